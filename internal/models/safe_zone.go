package models

// SafeZone is a designated safe location (shelter, police station, hospital)
// surfaced to users during an incident.
type SafeZone struct {
	BaseModel

	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	Category  string  `gorm:"type:varchar(64);default:'shelter'" json:"category"`
	Address   string  `gorm:"type:text" json:"address,omitempty"`
	Latitude  float64 `gorm:"not null;index" json:"latitude"`
	Longitude float64 `gorm:"not null;index" json:"longitude"`
	Capacity  int     `json:"capacity,omitempty"`
	Verified  bool    `gorm:"default:false" json:"verified"`
}
