package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/aryan-mod/suraksha-setu/internal/models"
	"github.com/aryan-mod/suraksha-setu/internal/query"
	apperrors "github.com/aryan-mod/suraksha-setu/pkg/errors"
)

// DefaultNearbyRadiusKM bounds which safe zones count as "nearby" when a
// user reports a position.
const DefaultNearbyRadiusKM = 2.0

const earthRadiusKM = 6371.0

var errDatabaseUnavailable = errors.New("location service: database unavailable")

// SafeZoneListing is a safe-zone query result with provenance.
type SafeZoneListing = query.Result[[]models.SafeZone]

// ReportLocationInput carries one user position report. Latitude and
// longitude are pointers so a missing coordinate is distinguishable from
// zero, which is a valid coordinate.
type ReportLocationInput struct {
	UserID    string
	Latitude  *float64
	Longitude *float64
	Accuracy  float64
	Source    string
}

// LocationReport is the response to a position report: the stored update
// plus the safe zones within reach, tagged with where the zone data came
// from so clients can caveat fallback results.
type LocationReport struct {
	Update    models.LocationUpdate `json:"update"`
	SafeZones []models.SafeZone     `json:"safe_zones"`
	Source    query.Source          `json:"source"`
}

// LocationService records user positions and answers proximity queries
// against the safe-zone registry.
type LocationService struct {
	db       *gorm.DB
	wrapper  *query.Wrapper
	radiusKM float64
}

// NewLocationService constructs a LocationService. A nil database puts the
// service in demo mode: reports are not persisted and zone lookups serve
// the canned fallback set.
func NewLocationService(db *gorm.DB, wrapper *query.Wrapper) *LocationService {
	if wrapper == nil {
		wrapper = query.NewWrapper()
	}
	return &LocationService{db: db, wrapper: wrapper, radiusKM: DefaultNearbyRadiusKM}
}

// WithRadiusKM overrides the nearby radius.
func (s *LocationService) WithRadiusKM(radius float64) *LocationService {
	if radius > 0 {
		s.radiusKM = radius
	}
	return s
}

// ReportLocation validates and stores a position report, then resolves
// the safe zones near it. Zone lookup failures degrade to fallback data
// rather than failing the report.
func (s *LocationService) ReportLocation(ctx context.Context, input ReportLocationInput) (*LocationReport, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if input.Latitude == nil || input.Longitude == nil {
		return nil, apperrors.NewBadRequest("latitude and longitude are required")
	}
	lat, lon := *input.Latitude, *input.Longitude
	if lat < -90 || lat > 90 {
		return nil, apperrors.NewBadRequest("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return nil, apperrors.NewBadRequest("longitude must be between -180 and 180")
	}

	update := models.LocationUpdate{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lon,
		Accuracy:  input.Accuracy,
		Source:    defaultIfEmpty(strings.TrimSpace(input.Source), "gps"),
	}

	if s.db != nil {
		if err := s.db.WithContext(ctx).Create(&update).Error; err != nil {
			return nil, fmt.Errorf("location service: store location: %w", err)
		}
	}

	zones, err := s.NearbySafeZones(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	return &LocationReport{
		Update:    update,
		SafeZones: zones.Data,
		Source:    zones.Source,
	}, nil
}

// NearbySafeZones returns safe zones within the configured radius of the
// point, nearest first. When the registry cannot be read the canned
// fallback set is served and tagged as such.
func (s *LocationService) NearbySafeZones(ctx context.Context, lat, lon float64) (query.Result[[]models.SafeZone], error) {
	ctx = ensureContext(ctx)

	fallback := nearbyZones(FallbackSafeZones(), lat, lon, s.radiusKM)
	return query.Execute(ctx, s.wrapper, "nearby_safe_zones", func(ctx context.Context) ([]models.SafeZone, error) {
		zones, err := s.loadSafeZones(ctx)
		if err != nil {
			return nil, err
		}
		return nearbyZones(zones, lat, lon, s.radiusKM), nil
	}, &fallback)
}

// ListSafeZones returns the full safe-zone registry, falling back to the
// canned set when the registry cannot be read.
func (s *LocationService) ListSafeZones(ctx context.Context) (query.Result[[]models.SafeZone], error) {
	ctx = ensureContext(ctx)

	fallback := FallbackSafeZones()
	return query.Execute(ctx, s.wrapper, "safe_zones", s.loadSafeZones, &fallback)
}

func (s *LocationService) loadSafeZones(ctx context.Context) ([]models.SafeZone, error) {
	if s.db == nil {
		return nil, errDatabaseUnavailable
	}
	var zones []models.SafeZone
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&zones).Error; err != nil {
		return nil, fmt.Errorf("location service: load safe zones: %w", err)
	}
	return zones, nil
}

func nearbyZones(zones []models.SafeZone, lat, lon, radiusKM float64) []models.SafeZone {
	type scored struct {
		zone     models.SafeZone
		distance float64
	}

	var hits []scored
	for _, zone := range zones {
		d := haversineKM(lat, lon, zone.Latitude, zone.Longitude)
		if d <= radiusKM {
			hits = append(hits, scored{zone: zone, distance: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	out := make([]models.SafeZone, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.zone)
	}
	return out
}

// haversineKM computes the great-circle distance between two points.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FallbackSafeZones is the canned registry served when the database is
// unreachable. Mirrors the seed data so degraded responses stay plausible.
func FallbackSafeZones() []models.SafeZone {
	return []models.SafeZone{
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
}
