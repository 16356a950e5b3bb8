package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Notification{},
		&models.PushSubscription{},
		&models.PendingDelivery{},
		&models.CacheEntry{},
		&models.SafeZone{},
		&models.LocationUpdate{},
	)
}

// SeedData populates the default safe zone registry when empty.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SafeZone{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	zones := []models.SafeZone{
		{
			BaseModel: models.BaseModel{ID: "zone-cp"},
			Name:      "Connaught Place Police Station",
			Category:  "police",
			Address:   "Connaught Place, New Delhi",
			Latitude:  28.6315,
			Longitude: 77.2167,
			Verified:  true,
		},
		{
			BaseModel: models.BaseModel{ID: "zone-aiims"},
			Name:      "AIIMS Emergency Ward",
			Category:  "hospital",
			Address:   "Ansari Nagar, New Delhi",
			Latitude:  28.5672,
			Longitude: 77.2100,
			Verified:  true,
		},
		{
			BaseModel: models.BaseModel{ID: "zone-igi"},
			Name:      "India Gate Relief Camp",
			Category:  "shelter",
			Address:   "Kartavya Path, New Delhi",
			Latitude:  28.6129,
			Longitude: 77.2295,
			Capacity:  500,
			Verified:  true,
		},
	}

	for _, zone := range zones {
		if err := db.Where(models.SafeZone{BaseModel: models.BaseModel{ID: zone.ID}}).
			Attrs(zone).FirstOrCreate(&models.SafeZone{}).Error; err != nil {
			return err
		}
	}

	return nil
}

// AutoMigrateAndSeed convenience helper used during application start-up.
func AutoMigrateAndSeed(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := SeedData(db); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}

	return nil
}
