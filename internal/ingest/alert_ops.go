package ingest

import (
	"overwatch/pkg/shared"
)

// ResolveAlert is the operator acknowledgement operation (spec.md §4.7).
// resolvedBy records the actor (SPEC_FULL.md §C.4 supplemented field).
func (p *Pipeline) ResolveAlert(id int64, resolvedBy int64) error {
	if err := p.store.ResolveAlert(id, &resolvedBy); err != nil {
		return err
	}
	p.deduper.Forget(id)

	alert, err := p.store.GetAlert(id)
	if err != nil {
		return nil
	}
	p.bus.Publish(shared.PushEvent{Type: shared.EventTypeAlertResolved, Data: alert})
	return nil
}

func (p *Pipeline) ListRecentAlerts(resolved *bool, limit int) ([]shared.Alert, error) {
	return p.store.ListRecentAlerts(resolved, limit)
}

func (p *Pipeline) ListRecentFlights(limit int) ([]shared.Flight, error) {
	return p.store.ListLatestSnapshot(limit)
}
