package alertbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overwatch/internal/threat"
	"overwatch/pkg/shared"
)

func TestDeduper_IdempotentUnderContinuousIntrusion(t *testing.T) {
	t.Parallel()

	// spec.md §8 scenario 5: 10 identical high-threat samples, 1 alert.
	d := NewDeduper(120 * time.Second)
	now := time.Now().UTC()

	var firstID int64 = -1
	for i := 0; i < 10; i++ {
		decision := d.Evaluate("VT-SAL", 7, threat.High, now.Add(time.Duration(i)*time.Second))
		if decision.IsNew {
			d.Register(decision.Key, 99, now)
			firstID = 99
		} else {
			assert.Equal(t, firstID, decision.ExistingID)
		}
	}

	require.NotEqual(t, int64(-1), firstID)
}

func TestDeduper_ReopensAfterResolve(t *testing.T) {
	t.Parallel()

	d := NewDeduper(120 * time.Second)
	now := time.Now().UTC()

	decision := d.Evaluate("VT-SAL", 7, threat.High, now)
	require.True(t, decision.IsNew)
	d.Register(decision.Key, 1, now)

	d.Forget(1)

	decision2 := d.Evaluate("VT-SAL", 7, threat.High, now.Add(time.Second))
	assert.True(t, decision2.IsNew, "a second alert should open after the first is forgotten")
}

func TestDeduper_AutoCloseAfterTwoConsecutiveMisses(t *testing.T) {
	t.Parallel()

	// spec.md §8 scenario 6.
	d := NewDeduper(120 * time.Second)
	now := time.Now().UTC()

	decision := d.Evaluate("VT-SAL", 7, threat.High, now)
	d.Register(decision.Key, 1, now)

	closed := d.NoIntrusion("VT-SAL", now.Add(time.Second))
	assert.Empty(t, closed, "one miss should not auto-close")

	closed = d.NoIntrusion("VT-SAL", now.Add(2*time.Second))
	assert.Equal(t, []int64{1}, closed, "two consecutive misses should auto-close")
}

func TestDeduper_SweepIdleClosesStaleAlerts(t *testing.T) {
	t.Parallel()

	d := NewDeduper(10 * time.Second)
	now := time.Now().UTC()

	decision := d.Evaluate("VT-SAL", 7, threat.High, now)
	d.Register(decision.Key, 1, now)

	closed := d.SweepIdle(now.Add(5 * time.Second))
	assert.Empty(t, closed, "not idle yet")

	closed = d.SweepIdle(now.Add(11 * time.Second))
	assert.Equal(t, []int64{1}, closed)
}

func TestDeduper_UnidentifiedTracksKeyByRegion(t *testing.T) {
	t.Parallel()

	d := NewDeduper(120 * time.Second)
	now := time.Now().UTC()

	a := d.Evaluate("", 1, threat.Critical, now)
	b := d.Evaluate("", 2, threat.Critical, now)

	assert.True(t, a.IsNew)
	assert.True(t, b.IsNew)
	assert.NotEqual(t, a.Key, b.Key, "different regions must produce different dedup keys for unidentified tracks")
}

func TestDeduper_SeedRebuildsFromStoreRows(t *testing.T) {
	t.Parallel()

	id := "VT-SAL"
	now := time.Now().UTC()
	d := NewDeduper(120 * time.Second)
	d.Seed([]shared.Alert{
		{ID: 42, TransponderID: &id, RegionID: 7, Severity: string(threat.High), LastSeenAt: now},
	})

	decision := d.Evaluate("VT-SAL", 7, threat.High, now.Add(time.Second))
	assert.False(t, decision.IsNew)
	assert.Equal(t, int64(42), decision.ExistingID)
}
