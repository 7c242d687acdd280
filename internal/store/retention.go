package store

import (
	"context"
	"log"
	"time"
)

// RetentionConfig controls the background sweep that trims old flights and
// resolved alerts (spec.md §5 "Retention", §8).
type RetentionConfig struct {
	FlightRetention time.Duration
	AlertRetention  time.Duration
	Tick            time.Duration
}

// RunRetentionSweep runs until ctx is cancelled, deleting expired rows on
// each tick in short, independent writes so it never holds the single
// writer lane for long (spec.md §5: "the sweep must not starve ingest
// writers").
func (s *Store) RunRetentionSweep(ctx context.Context, cfg RetentionConfig) {
	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(cfg)
		}
	}
}

func (s *Store) sweepOnce(cfg RetentionConfig) {
	now := time.Now().UTC()

	if n, err := s.DeleteFlightsOlderThan(now.Add(-cfg.FlightRetention)); err != nil {
		log.Printf("retention: flight sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("retention: removed %d expired flight records", n)
	}

	if n, err := s.DeleteResolvedAlertsOlderThan(now.Add(-cfg.AlertRetention)); err != nil {
		log.Printf("retention: alert sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("retention: removed %d expired resolved alerts", n)
	}
}
