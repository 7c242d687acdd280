package ingest

import (
	"sync/atomic"

	"overwatch/internal/geometry"
	"overwatch/internal/store"
)

// parsedRegion pairs a store row with its once-parsed geometry, so the hot
// path never re-parses GeoJSON (spec.md §9 "the string form is not used on
// the hot path").
type parsedRegion struct {
	ID   int64
	Name string
	Geom *geometry.Region
}

// RegionCache is the read-mostly active-regions value from spec.md §5:
// "Implementations should... use a copy-on-write swap whenever a region
// CRUD mutates it." Reads never block on a refresh.
type RegionCache struct {
	regions atomic.Pointer[[]parsedRegion]
	store   *store.Store
}

func NewRegionCache(s *store.Store) *RegionCache {
	rc := &RegionCache{store: s}
	empty := []parsedRegion{}
	rc.regions.Store(&empty)
	return rc
}

// Refresh reloads and re-parses all active regions, then swaps the
// pointer atomically. Malformed polygons already in the store (which
// should not happen, since upsert validates first) are skipped rather than
// failing the whole refresh.
func (rc *RegionCache) Refresh() error {
	active, err := rc.store.GetActiveRegions()
	if err != nil {
		return err
	}

	parsed := make([]parsedRegion, 0, len(active))
	for _, r := range active {
		geom, err := geometry.Parse(r.PolygonJSON)
		if err != nil {
			continue
		}
		parsed = append(parsed, parsedRegion{ID: r.ID, Name: r.Name, Geom: geom})
	}

	rc.regions.Store(&parsed)
	return nil
}

// Get returns the current snapshot. Safe for concurrent use without
// locking; callers never observe a partially-updated slice.
func (rc *RegionCache) Get() []parsedRegion {
	return *rc.regions.Load()
}

// Containment iterates active regions, short-circuiting on first
// containment (spec.md §4.7: "short-circuit on first containment for the
// flag; retain region id for dedup key").
func Containment(regions []parsedRegion, lat, lon float64) (inside bool, regionID int64) {
	for _, r := range regions {
		if geometry.Contains(r.Geom, lat, lon) {
			return true, r.ID
		}
	}
	return false, 0
}
