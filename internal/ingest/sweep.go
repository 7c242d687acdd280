package ingest

import (
	"context"
	"time"
)

// SeedDeduper rebuilds the open-alerts map from the store on cold start
// (spec.md §4.6 step 2).
func (p *Pipeline) SeedDeduper() error {
	open, err := p.store.ListOpenAlerts()
	if err != nil {
		return err
	}
	p.deduper.Seed(open)
	return nil
}

// RunIdleAlertSweep closes alerts whose track has gone quiet for the
// configured idle window (spec.md §4.6 rule (b)), independent of the
// store's own retention sweep.
func (p *Pipeline) RunIdleAlertSweep(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			for _, id := range p.deduper.SweepIdle(now) {
				p.resolveAndPublish(id, nil)
			}
		}
	}
}
