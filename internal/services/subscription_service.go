package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
)

// SubscriptionService manages push subscription registrations and feeds
// the dispatcher its subscription set. A nil database puts the service in
// demo mode: registrations succeed without persistence and lookups come
// back empty.
type SubscriptionService struct {
	db *gorm.DB
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

func (s *SubscriptionService) demo() bool {
	return s.db == nil
}

// Register stores a subscription handle for the user. Re-registering an
// existing handle is idempotent and returns the stored row, so clients
// can re-send their subscription on every startup.
func (s *SubscriptionService) Register(ctx context.Context, userID, handle string) (models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.PushSubscription{}, apperrors.NewBadRequest("user id is required")
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return models.PushSubscription{}, apperrors.NewBadRequest("subscription handle is required")
	}

	sub := models.PushSubscription{UserID: userID, Handle: handle}

	if s.demo() {
		sub.ID = uuid.NewString()
		return sub, nil
	}

	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return models.PushSubscription{}, fmt.Errorf("subscription service: register: %w", err)
		}
		var existing models.PushSubscription
		if lookupErr := s.db.WithContext(ctx).
			Where("handle = ?", handle).
			First(&existing).Error; lookupErr != nil {
			return models.PushSubscription{}, fmt.Errorf("subscription service: load existing: %w", lookupErr)
		}
		return existing, nil
	}

	return sub, nil
}

// ListForUser returns every subscription the user holds.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	if s.demo() {
		return nil, nil
	}

	var subs []models.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("subscription service: list: %w", err)
	}
	return subs, nil
}

// Get loads a single subscription by ID.
func (s *SubscriptionService) Get(ctx context.Context, subscriptionID string) (models.PushSubscription, error) {
	ctx = ensureContext(ctx)

	if s.demo() {
		return models.PushSubscription{}, gorm.ErrRecordNotFound
	}

	var sub models.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("id = ?", subscriptionID).
		First(&sub).Error; err != nil {
		return models.PushSubscription{}, err
	}
	return sub, nil
}

// Remove deletes a subscription, typically after the transport reports it gone.
func (s *SubscriptionService) Remove(ctx context.Context, subscriptionID string) error {
	ctx = ensureContext(ctx)

	if s.demo() {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Where("id = ?", subscriptionID).
		Delete(&models.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("subscription service: remove: %w", err)
	}
	return nil
}
