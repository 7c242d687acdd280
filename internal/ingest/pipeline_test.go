package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overwatch/internal/alertbus"
	"overwatch/internal/config"
	"overwatch/internal/store"
	"overwatch/pkg/shared"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "overwatch.db")
	s, err := store.New(&store.Config{DBPath: dbPath, MaxOpenConns: 1, AutoInitialize: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{
		PredictionHorizon:    180 * time.Second,
		PredictionStride:     30 * time.Second,
		HighSpeedThresholdKt: 500,
		AlertIdleWindow:      120 * time.Second,
		IngestDeadline:       2 * time.Second,
		RadarCenterLat:       11.65,
		RadarCenterLon:       78.15,
		RadarRangeKm:         250,
	}

	bus := alertbus.NewBus(nil)
	deduper := alertbus.NewDeduper(cfg.AlertIdleWindow)
	p := NewPipeline(s, bus, deduper, cfg)
	require.NoError(t, p.RegionCache().Refresh())
	return p
}

func strPtr(s string) *string { return &s }

const intrusionSquare = `{"type":"Polygon","coordinates":[[[78.10,11.60],[78.20,11.60],[78.20,11.70],[78.10,11.70],[78.10,11.60]]]}`

// spec.md §8 scenario 1: benign cruise outside any region.
func TestIngest_BenignCruise(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.CreateRegion(shared.CreateRegionRequest{Name: "far-away", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
		TransponderID: strPtr("AI301"),
		Latitude:      11.45, Longitude: 77.85, Altitude: 35000, Groundspeed: 450, Track: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Flight.ThreatScore)
	assert.Equal(t, "Low", res.Flight.ThreatLevel)
	assert.False(t, res.Flight.InRestrictedArea)
	assert.False(t, res.AlertEmitted)
}

// spec.md §8 scenario 2: zone intrusion by small aircraft.
func TestIngest_ZoneIntrusionSmallAircraft(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.CreateRegion(shared.CreateRegionRequest{Name: "restricted", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
		TransponderID: strPtr("VT-SAL"),
		Latitude:      11.6052, Longitude: 78.1202, Altitude: 3529, Groundspeed: 60, Track: 45,
	})
	require.NoError(t, err)

	assert.True(t, res.Flight.InRestrictedArea)
	assert.Equal(t, 50, res.Flight.ThreatScore)
	assert.Equal(t, "High", res.Flight.ThreatLevel)
	assert.True(t, res.AlertEmitted)
}

// spec.md §8 scenario 3: unidentified fast aircraft outside any zone.
func TestIngest_UnidentifiedFastAircraftOutsideZone(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
		TransponderID: nil,
		Latitude:      11.52, Longitude: 78.08, Altitude: 25000, Groundspeed: 780, Track: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, "fighter", res.Flight.Classification)
	assert.Equal(t, 50, res.Flight.ThreatScore)
	assert.Equal(t, "High", res.Flight.ThreatLevel)
	assert.True(t, res.AlertEmitted)
}

// spec.md §8 scenario 4: unidentified fast aircraft intruding at low altitude.
func TestIngest_UnidentifiedFastAircraftIntrudingLowAltitude(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.CreateRegion(shared.CreateRegionRequest{Name: "restricted", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
		TransponderID: nil,
		Latitude:      11.6052, Longitude: 78.1202, Altitude: 800, Groundspeed: 780, Track: 45,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Flight.ThreatScore)
	assert.Equal(t, "Critical", res.Flight.ThreatLevel)
}

// spec.md §8 scenario 5: dedup under continuous intrusion.
func TestIngest_DedupUnderContinuousIntrusion(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.CreateRegion(shared.CreateRegionRequest{Name: "restricted", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	alertsEmitted := 0
	for i := 0; i < 10; i++ {
		res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
			TransponderID: strPtr("VT-SAL"),
			Latitude:      11.6052 + float64(i)*0.0001, Longitude: 78.1202, Altitude: 3529, Groundspeed: 60, Track: 45,
		})
		require.NoError(t, err)
		if res.AlertEmitted {
			alertsEmitted++
		}
	}

	assert.Equal(t, 1, alertsEmitted)

	flights, err := p.store.ListRecentFlights(20)
	require.NoError(t, err)
	assert.Len(t, flights, 10)

	open, err := p.store.ListOpenAlerts()
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

// spec.md §8 scenario 6: auto-close on exit.
func TestIngest_AutoCloseOnExit(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.CreateRegion(shared.CreateRegionRequest{Name: "restricted", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), shared.TelemetryRequest{
		TransponderID: strPtr("VT-SAL"),
		Latitude:      11.6052, Longitude: 78.1202, Altitude: 3529, Groundspeed: 60, Track: 45,
	})
	require.NoError(t, err)
	require.True(t, res.AlertEmitted)

	outside := shared.TelemetryRequest{
		TransponderID: strPtr("VT-SAL"),
		Latitude:      11.0, Longitude: 77.0, Altitude: 3529, Groundspeed: 60, Track: 45,
	}
	_, err = p.Ingest(context.Background(), outside)
	require.NoError(t, err)
	_, err = p.Ingest(context.Background(), outside)
	require.NoError(t, err)

	open, err := p.store.ListOpenAlerts()
	require.NoError(t, err)
	assert.Empty(t, open, "two consecutive non-intrusion samples should auto-close the open alert")
}

func TestIngest_InvalidTelemetryRejected(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)
	_, err := p.Ingest(context.Background(), shared.TelemetryRequest{Latitude: 999, Longitude: 0, Track: 0})
	assert.Error(t, err)
}

func TestIngest_ContainmentFlipsWhenRegionToggled(t *testing.T) {
	t.Parallel()

	// spec.md §8 "Containment consistency".
	p := newTestPipeline(t)
	region, err := p.CreateRegion(shared.CreateRegionRequest{Name: "restricted", PolygonJSON: intrusionSquare})
	require.NoError(t, err)

	req := shared.TelemetryRequest{
		TransponderID: strPtr("AI301"),
		Latitude:      11.65, Longitude: 78.15, Altitude: 20000, Groundspeed: 250, Track: 45,
	}

	res, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Flight.InRestrictedArea)

	_, err = p.ToggleRegion(region.ID)
	require.NoError(t, err)

	res, err = p.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Flight.InRestrictedArea, "deactivating the region should flip containment back")
}
