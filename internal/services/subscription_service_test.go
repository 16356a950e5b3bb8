package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/database/testutil"
)

func TestSubscriptionServiceRegisterIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewSubscriptionService(db)

	ctx := context.Background()
	sub, err := svc.Register(ctx, "user-1", "https://push.example.com/send/abc")
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	again, err := svc.Register(ctx, "user-1", "https://push.example.com/send/abc")
	require.NoError(t, err)
	require.Equal(t, sub.ID, again.ID)

	subs, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestSubscriptionServiceGetAndRemove(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := NewSubscriptionService(db)

	ctx := context.Background()
	sub, err := svc.Register(ctx, "user-1", "https://push.example.com/send/device-a")
	require.NoError(t, err)

	got, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)

	require.NoError(t, svc.Remove(ctx, sub.ID))

	_, err = svc.Get(ctx, sub.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Removing an already removed subscription is a no-op.
	require.NoError(t, svc.Remove(ctx, sub.ID))
}

func TestSubscriptionServiceValidation(t *testing.T) {
	svc := NewSubscriptionService(nil)

	_, err := svc.Register(context.Background(), "", "handle")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "user-1", "  ")
	require.Error(t, err)
}

func TestSubscriptionServiceDemoMode(t *testing.T) {
	svc := NewSubscriptionService(nil)

	ctx := context.Background()
	sub, err := svc.Register(ctx, "user-1", "https://push.example.com/send/demo")
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	subs, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, subs)

	_, err = svc.Get(ctx, sub.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
