package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan-mod/suraksha-setu/internal/database/testutil"
	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/internal/realtime"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
)

func TestNotificationServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewNotificationService(db, realtime.NewHub())

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:  "user-123",
		Title:   "Flood warning",
		Message: "Move to higher ground",
		Metadata: map[string]any{
			"zone": "yamuna-bank",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)
	require.Equal(t, "system", dto.Type)
	require.Equal(t, models.PriorityMedium, dto.Priority)
	require.False(t, dto.ActionRequired)
	require.Equal(t, "yamuna-bank", dto.Metadata["zone"])

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-123"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, dto.ID, items[0].ID)
}

func TestNotificationServiceListNewestFirst(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNotificationService(db, nil).WithClock(func() time.Time { return now })

	ctx := context.Background()
	first, err := svc.Create(ctx, CreateNotificationInput{UserID: "user-1", Title: "first"})
	require.NoError(t, err)

	// created_at comes from gorm, so space the rows out in real time.
	require.NoError(t, db.Model(&models.Notification{}).
		Where("id = ?", first.ID).
		Update("created_at", now.Add(-time.Hour)).Error)

	second, err := svc.Create(ctx, CreateNotificationInput{UserID: "user-1", Title: "second"})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, second.ID, items[0].ID)
	require.Equal(t, first.ID, items[1].ID)
}

func TestNotificationServiceRejectsUnknownPriority(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewNotificationService(db, nil)

	_, err := svc.Create(context.Background(), CreateNotificationInput{
		UserID:   "user-1",
		Title:    "broken",
		Priority: "urgent-ish",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestNotificationServiceAcknowledge(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewNotificationService(db, realtime.NewHub())

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{UserID: "user-1", Title: "Check in"})
	require.NoError(t, err)

	acked, err := svc.Acknowledge(ctx, "user-1", dto.ID)
	require.NoError(t, err)
	require.NotNil(t, acked.AcknowledgedAt)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Empty(t, items)

	// Once acknowledged the record is logically gone; a second attempt
	// must not rewrite the timestamp.
	_, err = svc.Acknowledge(ctx, "user-1", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	var stored models.Notification
	require.NoError(t, db.Where("id = ?", dto.ID).First(&stored).Error)
	require.Equal(t, acked.AcknowledgedAt.Unix(), stored.AcknowledgedAt.Unix())

	_, err = svc.Acknowledge(ctx, "user-1", "missing-id")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Acknowledging someone else's notification is indistinguishable from
	// a missing one.
	_, err = svc.Acknowledge(ctx, "user-2", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNotificationServiceExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNotificationService(db, nil).WithClock(func() time.Time { return now })

	ctx := context.Background()
	_, err := svc.Create(ctx, CreateNotificationInput{
		UserID:    "user-1",
		Title:     "Temporary alert",
		ExpiresIn: 10 * time.Minute,
	})
	require.NoError(t, err)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	now = now.Add(11 * time.Minute)

	items, err = svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Empty(t, items)

	removed, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestNotificationServiceExplicitExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewNotificationService(db, nil).WithClock(func() time.Time { return now })

	ctx := context.Background()
	deadline := now.Add(30 * time.Minute)
	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:    "user-1",
		Title:     "Evacuation window",
		ExpiresAt: &deadline,
		// The explicit timestamp wins over the TTL convenience.
		ExpiresIn: time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, dto.ExpiresAt)
	require.Equal(t, deadline, dto.ExpiresAt.UTC())

	now = now.Add(10 * time.Minute)
	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	now = now.Add(21 * time.Minute)
	items, err = svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestNotificationServiceDemoMode(t *testing.T) {
	svc := NewNotificationService(nil, realtime.NewHub())

	ctx := context.Background()
	dto, err := svc.Create(ctx, CreateNotificationInput{UserID: "user-1", Title: "demo"})
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)

	items, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = svc.Acknowledge(ctx, "user-1", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
