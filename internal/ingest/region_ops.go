package ingest

import (
	"overwatch/internal/apierr"
	"overwatch/internal/geometry"
	"overwatch/pkg/shared"
)

func mapGeometryErr(err error) error {
	return apierr.Wrap(apierr.KindMalformedGeometry, "invalid region polygon", err)
}

// CreateRegion validates the polygon via the Geometry Service before the
// atomic store write, then invalidates the region cache (spec.md §4.5,
// §4.7: "400 on malformed geometry").
func (p *Pipeline) CreateRegion(req shared.CreateRegionRequest) (*shared.Region, error) {
	if _, err := geometry.Parse(req.PolygonJSON); err != nil {
		return nil, mapGeometryErr(err)
	}

	region, err := p.store.UpsertRegion(req.Name, req.PolygonJSON)
	if err != nil {
		return nil, err
	}
	_ = p.regions.Refresh()
	return region, nil
}

func (p *Pipeline) ToggleRegion(id int64) (*shared.Region, error) {
	region, err := p.store.ToggleRegion(id)
	if err != nil {
		return nil, err
	}
	_ = p.regions.Refresh()
	return region, nil
}

func (p *Pipeline) DeleteRegion(id int64) error {
	if err := p.store.DeleteRegion(id); err != nil {
		return err
	}
	_ = p.regions.Refresh()
	return nil
}

func (p *Pipeline) ListRegions() ([]shared.Region, error) {
	return p.store.ListRegions()
}

func (p *Pipeline) ActiveRegions() []shared.Region {
	cached := p.regions.Get()
	out := make([]shared.Region, 0, len(cached))
	for _, r := range cached {
		out = append(out, shared.Region{ID: r.ID, Name: r.Name, Active: true})
	}
	return out
}
