package alertbus

import (
	"fmt"
	"sync"
	"time"

	"overwatch/internal/threat"
	"overwatch/pkg/shared"
)

// dedupKey is (external identifier or "UNKNOWN-<region id>", region id,
// severity category), per spec.md §4.6.
type dedupKey struct {
	identity string
	regionID int64
	severity threat.Category
}

type openAlert struct {
	alertID      int64
	missCount    int // consecutive non-intrusion samples, for rule (a)
	lastSeen     time.Time
}

// Deduper maintains the open-alerts map and decides whether a newly computed
// threat warrants a new alert (spec.md §4.6, §5 "short critical section").
type Deduper struct {
	mu         sync.Mutex
	open       map[dedupKey]*openAlert
	idleWindow time.Duration
}

func NewDeduper(idleWindow time.Duration) *Deduper {
	return &Deduper{
		open:       make(map[dedupKey]*openAlert),
		idleWindow: idleWindow,
	}
}

// Seed rebuilds the in-memory map from the store's open alerts, used on cold
// start (spec.md §4.6 step 2: "or in the store on cold start").
func (d *Deduper) Seed(alerts []shared.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range alerts {
		identity := "UNKNOWN-" + fmt.Sprint(a.RegionID)
		if a.TransponderID != nil && *a.TransponderID != "" {
			identity = *a.TransponderID
		}
		key := dedupKey{identity: identity, regionID: a.RegionID, severity: threat.Category(a.Severity)}
		d.open[key] = &openAlert{alertID: a.ID, lastSeen: a.LastSeenAt}
	}
}

// Decision is what the ingest pipeline needs to know after evaluating a
// telemetry sample's threat.
type Decision struct {
	Key           dedupKey
	IsNew         bool
	ExistingID    int64
}

// Evaluate implements the Deduper rule of spec.md §4.6 for a single
// telemetry evaluation whose category is High or Critical. identity is the
// track's external identifier, or "" for unidentified tracks.
func (d *Deduper) Evaluate(identity string, regionID int64, severity threat.Category, now time.Time) Decision {
	key := d.key(identity, regionID, severity)

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.open[key]; ok {
		existing.lastSeen = now
		existing.missCount = 0
		return Decision{Key: key, IsNew: false, ExistingID: existing.alertID}
	}

	return Decision{Key: key, IsNew: true}
}

// Register records a newly-created alert's id against its key once the
// store write has committed.
func (d *Deduper) Register(key dedupKey, alertID int64, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open[key] = &openAlert{alertID: alertID, lastSeen: now}
}

// NoIntrusion records a non-intrusion sample for every open alert belonging
// to identity, advancing rule (a)'s two-consecutive-miss counter. Returns
// the alert ids that just crossed the auto-close threshold.
func (d *Deduper) NoIntrusion(identity string, now time.Time) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var closed []int64
	for key, oa := range d.open {
		if key.identity != identity {
			continue
		}
		oa.missCount++
		if oa.missCount >= 2 {
			closed = append(closed, oa.alertID)
			delete(d.open, key)
		}
	}
	return closed
}

// SweepIdle closes alerts whose track has produced no telemetry for the
// idle window, rule (b) of spec.md §4.6.
func (d *Deduper) SweepIdle(now time.Time) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var closed []int64
	for key, oa := range d.open {
		if now.Sub(oa.lastSeen) >= d.idleWindow {
			closed = append(closed, oa.alertID)
			delete(d.open, key)
		}
	}
	return closed
}

// Forget removes a key after the backing alert was resolved out-of-band
// (operator acknowledgement), so the next intrusion opens a fresh alert.
func (d *Deduper) Forget(alertID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, oa := range d.open {
		if oa.alertID == alertID {
			delete(d.open, key)
			return
		}
	}
}

func (d *Deduper) key(identity string, regionID int64, severity threat.Category) dedupKey {
	if identity == "" {
		identity = "UNKNOWN-" + fmt.Sprint(regionID)
	}
	return dedupKey{identity: identity, regionID: regionID, severity: severity}
}
