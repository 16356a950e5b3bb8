package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aryan-mod/suraksha-setu/internal/database/testutil"
	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/internal/query"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func TestLocationServiceReportLocation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := NewLocationService(db, query.NewWrapper())

	ctx := context.Background()
	report, err := svc.ReportLocation(ctx, ReportLocationInput{
		UserID:    "user-1",
		Latitude:  floatPtr(28.6315),
		Longitude: floatPtr(77.2167),
		Accuracy:  12.5,
	})
	require.NoError(t, err)
	require.Equal(t, query.SourceLive, report.Source)
	require.Equal(t, "gps", report.Update.Source)
	require.NotEmpty(t, report.Update.ID)

	// Only the Connaught Place station sits within 2km of the report;
	// AIIMS and India Gate are farther out.
	require.Len(t, report.SafeZones, 1)
	require.Equal(t, "zone-cp", report.SafeZones[0].ID)

	var stored models.LocationUpdate
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&stored).Error)
	require.InDelta(t, 28.6315, stored.Latitude, 1e-9)
}

func TestLocationServiceRequiresCoordinates(t *testing.T) {
	svc := NewLocationService(nil, query.NewWrapper())

	cases := []ReportLocationInput{
		{UserID: "user-1"},
		{UserID: "user-1", Latitude: floatPtr(28.6)},
		{UserID: "user-1", Longitude: floatPtr(77.2)},
		{UserID: "user-1", Latitude: floatPtr(91), Longitude: floatPtr(77.2)},
		{UserID: "user-1", Latitude: floatPtr(28.6), Longitude: floatPtr(181)},
		{Latitude: floatPtr(28.6), Longitude: floatPtr(77.2)},
	}
	for _, input := range cases {
		_, err := svc.ReportLocation(context.Background(), input)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, 400, appErr.StatusCode)
	}
}

func TestLocationServiceFallbackWhenDatabaseUnavailable(t *testing.T) {
	svc := NewLocationService(nil, query.NewWrapper())

	report, err := svc.ReportLocation(context.Background(), ReportLocationInput{
		UserID:    "user-1",
		Latitude:  floatPtr(28.6315),
		Longitude: floatPtr(77.2167),
	})
	require.NoError(t, err)
	require.Equal(t, query.SourceFallback, report.Source)
	require.Len(t, report.SafeZones, 1)
	require.Equal(t, "zone-cp", report.SafeZones[0].ID)
}

func TestLocationServiceListSafeZones(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc := NewLocationService(db, query.NewWrapper())

	result, err := svc.ListSafeZones(context.Background())
	require.NoError(t, err)
	require.Equal(t, query.SourceLive, result.Source)
	require.Len(t, result.Data, 3)

	degraded := NewLocationService(nil, query.NewWrapper())
	result, err = degraded.ListSafeZones(context.Background())
	require.NoError(t, err)
	require.True(t, result.Fallback())
	require.Len(t, result.Data, 3)
}

func TestHaversineKM(t *testing.T) {
	// Connaught Place to India Gate is roughly 2.4km.
	d := haversineKM(28.6315, 77.2167, 28.6129, 77.2295)
	require.InDelta(t, 2.4, d, 0.2)

	require.Zero(t, haversineKM(28.6, 77.2, 28.6, 77.2))
}
