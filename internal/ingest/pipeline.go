// Package ingest wires the Ingest & Query Surface's telemetry pipeline
// (spec.md §4.7): validate → classify → geometry → predict → score →
// persist → dedup → (conditionally) persist alert → publish.
package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"overwatch/internal/alertbus"
	"overwatch/internal/apierr"
	"overwatch/internal/classify"
	"overwatch/internal/config"
	"overwatch/internal/store"
	"overwatch/internal/threat"
	"overwatch/internal/trajectory"
	"overwatch/internal/weather"
	"overwatch/pkg/shared"
)

// Pipeline is the stateful glue the HTTP handler calls into. Its own state
// is limited to the region cache and a process-wide weather RNG; everything
// else is pure per spec.md §3 "Ownership": all other components are
// stateless transformers.
type Pipeline struct {
	store   *store.Store
	bus     *alertbus.Bus
	deduper *alertbus.Deduper
	regions *RegionCache
	cfg     *config.Config

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewPipeline(s *store.Store, bus *alertbus.Bus, deduper *alertbus.Deduper, cfg *config.Config) *Pipeline {
	return &Pipeline{
		store:   s,
		bus:     bus,
		deduper: deduper,
		regions: NewRegionCache(s),
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(1)),
	}
}

func (p *Pipeline) RegionCache() *RegionCache { return p.regions }

// Result is what the Ingest telemetry handler needs to build its response
// (spec.md §4.7: "201 + track id + derived summary").
type Result struct {
	Flight       shared.Flight
	AlertEmitted bool
}

// Ingest runs the full pipeline for one telemetry sample, bounded by the
// configured wall-clock deadline (spec.md §5). Exceeding it returns
// DeadlineExceeded without persisting anything partial — the store write is
// the atomic commit point, so a deadline that fires before it simply
// abandons the attempt.
func (p *Pipeline) Ingest(ctx context.Context, req shared.TelemetryRequest) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.IngestDeadline)
	defer cancel()

	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)

	go func() {
		res, err := p.run(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- res
	}()

	select {
	case <-ctx.Done():
		return nil, apierr.DeadlineExceeded("ingest pipeline exceeded its deadline")
	case err := <-errCh:
		return nil, err
	case res := <-resultCh:
		return res, nil
	}
}

func (p *Pipeline) run(ctx context.Context, req shared.TelemetryRequest) (*Result, error) {
	now := time.Now().UTC()

	identity := ""
	hasIdentifier := req.TransponderID != nil && *req.TransponderID != "" && *req.TransponderID != "UNKNOWN"
	if hasIdentifier {
		identity = *req.TransponderID
	}

	allowlisted := false
	if hasIdentifier {
		var err error
		allowlisted, err = p.store.IsAllowlisted(identity)
		if err != nil {
			return nil, err
		}
	}

	classification := classify.Classify(req.Groundspeed, req.Altitude, hasIdentifier)
	aircraftModel := classify.PredictAircraftModel(req.Groundspeed, req.Altitude, classification)

	regions := p.regions.Get()
	inRestricted, regionID := Containment(regions, req.Latitude, req.Longitude)

	traj := trajectory.Predict(req.Latitude, req.Longitude, req.Groundspeed, req.Track,
		int(p.cfg.PredictionHorizon.Seconds()), int(p.cfg.PredictionStride.Seconds()))

	detection := p.detect(req)

	threatInput := threat.Input{
		InRestrictedRegion:  inRestricted && !allowlisted,
		HasExternalIdentity: hasIdentifier || allowlisted,
		Classification:      classification,
		SpeedKt:             req.Groundspeed,
		AltitudeFt:          req.Altitude,
	}
	assessment := threat.Assess(threatInput, threat.Options{
		HighSpeedThresholdKt: p.cfg.HighSpeedThresholdKt,
		Graduated:            p.cfg.GraduatedHighSpeed,
	})

	flight := shared.Flight{
		TransponderID:       req.TransponderID,
		Timestamp:           now,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		Altitude:            req.Altitude,
		Groundspeed:         req.Groundspeed,
		Track:                req.Track,
		Classification:      string(classification),
		AircraftModel:       aircraftModel,
		ThreatLevel:         string(assessment.Category),
		ThreatScore:         assessment.Score,
		DetectionConfidence: detection.DetectionConfidence,
		SignalStrength:      detection.SignalStrength * 100,
		WeatherCondition:    string(detection.WeatherCondition),
		InRestrictedArea:    inRestricted,
		Allowlisted:         allowlisted,
		PredictedTrajectory: toTrajectoryPoints(traj),
	}

	if err := ctx.Err(); err != nil {
		return nil, apierr.DeadlineExceeded("ingest pipeline exceeded its deadline")
	}

	id, err := p.store.InsertFlight(&flight)
	if err != nil {
		id, err = p.retryInsertFlight(&flight)
		if err != nil {
			return nil, err
		}
	}
	flight.ID = id

	// Bus (broadcast): every persisted track is pushed regardless of threat
	// level (spec.md §2 data flow, §6 "track_update"), distinct from the
	// conditional alert/alert_resolved events evaluateDeduper may also emit.
	p.bus.Publish(shared.PushEvent{Type: shared.EventTypeTrackUpdate, Data: &flight})

	alertEmitted := p.evaluateDeduper(&flight, assessment, inRestricted, regionID, identity, now)

	return &Result{Flight: flight, AlertEmitted: alertEmitted}, nil
}

// retryInsertFlight implements spec.md §7's "store errors trigger a single
// automatic retry before surfacing" recovery policy.
func (p *Pipeline) retryInsertFlight(f *shared.Flight) (int64, error) {
	return p.store.InsertFlight(f)
}

func (p *Pipeline) detect(req shared.TelemetryRequest) weather.DetectionResult {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return weather.Detect(req.Latitude, req.Longitude, req.Altitude,
		p.cfg.RadarCenterLat, p.cfg.RadarCenterLon, p.cfg.RadarRangeKm, p.rng)
}

// evaluateDeduper implements spec.md §4.6's Deduper rule plus the
// auto-close condition (a): two consecutive samples outside all regions.
// Bus publish failures never propagate to the caller (§7 "Recovery
// policy") — the alert is already persisted by the time publish runs.
func (p *Pipeline) evaluateDeduper(f *shared.Flight, assessment threat.Result, inRestricted bool, regionID int64, identity string, now time.Time) bool {
	emitted := false

	if !inRestricted {
		for _, closedID := range p.deduper.NoIntrusion(identity, now) {
			p.resolveAndPublish(closedID, nil)
		}
	}

	if assessment.Category != threat.High && assessment.Category != threat.Critical {
		return false
	}

	decision := p.deduper.Evaluate(identity, regionID, assessment.Category, now)
	if !decision.IsNew {
		_ = p.store.TouchAlertLastSeen(decision.ExistingID, now)
		return false
	}

	var transponderID *string
	if identity != "" {
		transponderID = &identity
	}

	alert := &shared.Alert{
		FlightID:          f.ID,
		TransponderID:     transponderID,
		RegionID:          regionID,
		Severity:          string(assessment.Category),
		Message:           alertMessage(f, assessment),
		ThreatReasons:     assessment.Reasons,
		RecommendedAction: assessment.RecommendedAction,
		CreatedAt:         now,
		LastSeenAt:        now,
	}

	id, err := p.store.InsertAlert(alert)
	if err != nil {
		return false
	}
	alert.ID = id
	p.deduper.Register(decision.Key, id, now)

	p.bus.Publish(shared.PushEvent{Type: shared.EventTypeAlert, Data: alert})
	emitted = true

	return emitted
}

func (p *Pipeline) resolveAndPublish(alertID int64, resolvedBy *int64) {
	if err := p.store.ResolveAlert(alertID, resolvedBy); err != nil {
		return
	}
	p.deduper.Forget(alertID)

	alert, err := p.store.GetAlert(alertID)
	if err != nil {
		return
	}
	p.bus.Publish(shared.PushEvent{Type: shared.EventTypeAlertResolved, Data: alert})
}

func alertMessage(f *shared.Flight, a threat.Result) string {
	id := "unidentified aircraft"
	if f.TransponderID != nil && *f.TransponderID != "" {
		id = *f.TransponderID
	}
	return fmt.Sprintf("%s threat from %s (score %d)", a.Category, id, a.Score)
}

func toTrajectoryPoints(samples []trajectory.Sample) []shared.TrajectoryPoint {
	out := make([]shared.TrajectoryPoint, len(samples))
	for i, s := range samples {
		out[i] = shared.TrajectoryPoint{Lat: s.Lat, Lon: s.Lon, T: s.OffsetSeconds}
	}
	return out
}

func validate(req shared.TelemetryRequest) error {
	if req.Latitude < -90 || req.Latitude > 90 {
		return apierr.InvalidTelemetry("latitude out of range")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return apierr.InvalidTelemetry("longitude out of range")
	}
	if req.Altitude < 0 {
		return apierr.InvalidTelemetry("altitude must be non-negative")
	}
	if req.Groundspeed < 0 {
		return apierr.InvalidTelemetry("groundspeed must be non-negative")
	}
	if req.Track < 0 || req.Track >= 360 {
		return apierr.InvalidTelemetry("track must be in [0, 360)")
	}
	return nil
}
