package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "overwatch.db")
	s, err := New(&Config{DBPath: dbPath, MaxOpenConns: 1, AutoInitialize: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_InsertAndListFlights(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	id, err := s.InsertFlight(&shared.Flight{
		Timestamp:      time.Now().UTC(),
		Classification: "airliner",
		ThreatLevel:    "Low",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	flights, err := s.ListRecentFlights(10)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, id, flights[0].ID)
}

func TestStore_ListLatestSnapshotOnePerIdentifier(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	vt := "VT-SAL"
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := s.InsertFlight(&shared.Flight{
			TransponderID: &vt,
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			Altitude:      float64(1000 + i),
		})
		require.NoError(t, err)
	}
	other := "AI301"
	_, err := s.InsertFlight(&shared.Flight{TransponderID: &other, Timestamp: base})
	require.NoError(t, err)

	snapshot, err := s.ListLatestSnapshot(10)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	for _, f := range snapshot {
		if f.TransponderID != nil && *f.TransponderID == vt {
			assert.Equal(t, float64(1002), f.Altitude, "snapshot should keep the latest row per identifier")
		}
	}
}

func TestStore_RegionCRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	poly := `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`

	region, err := s.UpsertRegion("test-zone", poly)
	require.NoError(t, err)
	assert.True(t, region.Active)

	active, err := s.GetActiveRegions()
	require.NoError(t, err)
	require.Len(t, active, 1)

	toggled, err := s.ToggleRegion(region.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	active, err = s.GetActiveRegions()
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.DeleteRegion(region.ID))
	_, err = s.GetRegion(region.ID)
	assert.Error(t, err)
}

func TestStore_ToggleRegionNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.ToggleRegion(999)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

func TestStore_AlertDedupLookupAndResolve(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	flightID, err := s.InsertFlight(&shared.Flight{Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	vt := "VT-SAL"
	alertID, err := s.InsertAlert(&shared.Alert{
		FlightID:      flightID,
		TransponderID: &vt,
		RegionID:      7,
		Severity:      "High",
		Message:       "High threat from VT-SAL",
	})
	require.NoError(t, err)

	open, err := s.FindOpenAlert("VT-SAL", 7)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, alertID, open.ID)

	resolvedBy := int64(1)
	require.NoError(t, s.ResolveAlert(alertID, &resolvedBy))

	open, err = s.FindOpenAlert("VT-SAL", 7)
	require.NoError(t, err)
	assert.Nil(t, open, "resolved alert must not appear as open")

	// idempotent: resolving again is a no-op, not an error.
	require.NoError(t, s.ResolveAlert(alertID, &resolvedBy))
}

func TestStore_AtMostOneUnresolvedAlertPerIdentityRegion(t *testing.T) {
	t.Parallel()

	// spec.md §3 invariant, enforced by the caller (Deduper) through its
	// in-memory open-alert map, seeded from ListOpenAlerts; this test asserts
	// that FindOpenAlert finds the unresolved alert for an (identity, region)
	// pair after it is inserted.
	s := newTestStore(t)
	flightID, _ := s.InsertFlight(&shared.Flight{Timestamp: time.Now().UTC()})
	vt := "VT-SAL"

	first, err := s.InsertAlert(&shared.Alert{FlightID: flightID, TransponderID: &vt, RegionID: 1, Severity: "High"})
	require.NoError(t, err)

	open, err := s.FindOpenAlert("VT-SAL", 1)
	require.NoError(t, err)
	assert.Equal(t, first, open.ID)
}

func TestStore_RetentionSweepRemovesOldFlightsKeepsUnresolvedAlerts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	_, err := s.InsertFlight(&shared.Flight{Timestamp: old})
	require.NoError(t, err)
	_, err = s.InsertFlight(&shared.Flight{Timestamp: recent})
	require.NoError(t, err)

	n, err := s.DeleteFlightsOlderThan(time.Now().UTC().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	flights, err := s.ListRecentFlights(10)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	flightID, _ := s.InsertFlight(&shared.Flight{Timestamp: recent})
	_, err = s.InsertAlert(&shared.Alert{FlightID: flightID, CreatedAt: old, LastSeenAt: old})
	require.NoError(t, err)

	removed, err := s.DeleteResolvedAlertsOlderThan(time.Now().UTC().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed, "unresolved alerts are never deleted by retention")
}

func TestStore_OperatorUniqueEmail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.CreateOperator("ops@example.com", "admin", "hash")
	require.NoError(t, err)

	_, err = s.CreateOperator("ops@example.com", "analyst", "hash2")
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.KindConflict, apiErr.Kind)
}

func TestStore_Allowlist(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ok, err := s.IsAllowlisted("VT-SAL")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AddAllowlistEntry("VT-SAL", "friendly survey aircraft")
	require.NoError(t, err)

	ok, err = s.IsAllowlisted("VT-SAL")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RemoveAllowlistEntry("VT-SAL"))
	ok, err = s.IsAllowlisted("VT-SAL")
	require.NoError(t, err)
	assert.False(t, ok)
}
