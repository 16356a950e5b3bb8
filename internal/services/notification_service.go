package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
)

// DefaultListLimit caps how many notifications a single list call returns.
const DefaultListLimit = 50

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Priority       string         `json:"priority"`
	Location       string         `json:"location,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	ActionRequired bool           `json:"action_required"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID         string
	Type           string
	Title          string
	Message        string
	Priority       string
	Location       string
	Latitude       *float64
	Longitude      *float64
	ActionRequired bool
	Metadata       map[string]any
	ExpiresAt      *time.Time
	ExpiresIn      time.Duration
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID string
	Limit  int
}

// NotificationService manages safety notifications for users. A nil
// database puts the service in demo mode: writes are acknowledged without
// persistence and reads come back empty, so the API surface stays usable
// without infrastructure.
type NotificationService struct {
	db    *gorm.DB
	hub   *realtime.Hub
	clock func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub, clock: time.Now}
}

// WithClock overrides the time source, primarily for tests.
func (s *NotificationService) WithClock(clock func() time.Time) *NotificationService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *NotificationService) demo() bool {
	return s.db == nil
}

// Create registers a new notification and broadcasts it to connected devices.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	priority := defaultIfEmpty(strings.TrimSpace(input.Priority), models.PriorityMedium)
	if !models.ValidPriority(priority) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown priority %q", priority))
	}

	notification := models.Notification{
		UserID:         userID,
		Type:           defaultIfEmpty(strings.TrimSpace(input.Type), "system"),
		Title:          title,
		Message:        strings.TrimSpace(input.Message),
		Priority:       priority,
		Location:       strings.TrimSpace(input.Location),
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		ActionRequired: input.ActionRequired,
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	// An explicit expiry timestamp wins over the TTL convenience.
	switch {
	case input.ExpiresAt != nil:
		expires := input.ExpiresAt.UTC()
		notification.ExpiresAt = &expires
	case input.ExpiresIn > 0:
		expires := s.clock().UTC().Add(input.ExpiresIn)
		notification.ExpiresAt = &expires
	}

	if s.demo() {
		notification.ID = uuid.NewString()
		notification.CreatedAt = s.clock().UTC()
	} else if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := mapNotification(notification)
	s.broadcast(userID, "notification.created", realtime.Event{
		Event:        "notification.created",
		Notification: &dto,
	})
	return &dto, nil
}

// ListForUser returns the user's pending notifications, newest first.
// Acknowledged and expired rows never surface.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	if s.demo() {
		return []NotificationDTO{}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("acknowledged_at IS NULL").
		Where("expires_at IS NULL OR expires_at > ?", s.clock().UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return mapNotificationRows(rows), nil
}

// Acknowledge marks a notification handled so it stops surfacing in lists.
// An already-acknowledged notification is logically gone, so a repeat
// acknowledgment reports ErrNotFound rather than rewriting the timestamp.
func (s *NotificationService) Acknowledge(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	if s.demo() {
		return nil, apperrors.ErrNotFound
	}

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND acknowledged_at IS NULL", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := s.clock().UTC()
	notification.AcknowledgedAt = &now
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		Update("acknowledged_at", now).Error; err != nil {
		return nil, fmt.Errorf("notification service: acknowledge notification: %w", err)
	}

	dto := mapNotification(notification)
	s.broadcast(userID, "notification.acknowledged", realtime.Event{
		Event:          "notification.acknowledged",
		NotificationID: notification.ID,
	})
	return &dto, nil
}

// CleanupExpired deletes notifications past their expiry. Scheduled from
// the maintenance cron; a notification that expired is no longer safety
// relevant and keeping it would only mislead.
func (s *NotificationService) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	if s.demo() {
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.clock().UTC()).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("notification service: cleanup expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) broadcast(userID, event string, payload realtime.Event) {
	if s.hub == nil {
		return
	}
	payload.Event = event
	s.hub.Broadcast(userID, payload)
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:             row.ID,
		UserID:         row.UserID,
		Type:           row.Type,
		Title:          row.Title,
		Message:        row.Message,
		Priority:       defaultIfEmpty(row.Priority, models.PriorityMedium),
		Location:       row.Location,
		Latitude:       row.Latitude,
		Longitude:      row.Longitude,
		ActionRequired: row.ActionRequired,
		Metadata:       decodeJSON(row.Metadata),
		CreatedAt:      row.CreatedAt,
		ExpiresAt:      row.ExpiresAt,
		AcknowledgedAt: row.AcknowledgedAt,
	}
}
