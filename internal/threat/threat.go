// Package threat implements the Threat Analyzer (spec.md §4.4): combining
// geofence, identity, and kinematic signals into a weighted score and
// human-readable reasons. Grounded on the original's ThreatAnalyzer.assess_threat.
package threat

import (
	"fmt"

	"overwatch/internal/classify"
)

type Category string

const (
	Low      Category = "Low"
	Medium   Category = "Medium"
	High     Category = "High"
	Critical Category = "Critical"
)

// Weights, per spec.md §4.4's scoring table.
const (
	WeightZoneIntrusion    = 40
	WeightNoIdentity        = 25
	WeightHighSpeed         = 15
	WeightMilitaryClass     = 10
	WeightLowAltitudeZone   = 10
)

// Options parameterizes the one signal spec.md explicitly calls out as
// operator-configurable: the high-speed threshold and whether its 15 points
// are awarded as a step function or graduated between threshold and 700 kt.
type Options struct {
	HighSpeedThresholdKt float64
	Graduated            bool
}

func DefaultOptions() Options {
	return Options{HighSpeedThresholdKt: 500, Graduated: false}
}

// Input bundles the signals the analyzer consumes.
type Input struct {
	InRestrictedRegion  bool
	HasExternalIdentity bool
	Classification      classify.Category
	SpeedKt             float64
	AltitudeFt          float64
}

// Result is the analyzer's output: score, category, ordered reasons, and
// the fixed recommended-action mapping.
type Result struct {
	Score              int
	Category           Category
	Reasons            []string
	RecommendedAction  string
}

// Assess is deterministic: identical Input and Options always produce a
// bit-identical Result (spec.md §4.4, §8 "Determinism"), since it is pure
// arithmetic and string formatting with no hidden state.
func Assess(in Input, opts Options) Result {
	score := 0
	var reasons []string

	if in.InRestrictedRegion {
		score += WeightZoneIntrusion
		reasons = append(reasons, "Inside restricted zone")
	}

	if !in.HasExternalIdentity {
		score += WeightNoIdentity
		reasons = append(reasons, "No transponder signal")
	}

	if pts, reason := highSpeedContribution(in.SpeedKt, opts); pts > 0 {
		score += pts
		reasons = append(reasons, reason)
	}

	if classify.IsMilitaryClass(in.Classification, in.HasExternalIdentity, in.AltitudeFt) {
		score += WeightMilitaryClass
		reasons = append(reasons, "Military aircraft type")
	}

	if in.InRestrictedRegion && in.AltitudeFt < 5000 {
		score += WeightLowAltitudeZone
		reasons = append(reasons, "Low altitude in zone")
	}

	clamped := score
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	return Result{
		Score:             clamped,
		Category:          categorize(clamped),
		Reasons:           reasons,
		RecommendedAction: recommendedAction(categorize(clamped)),
	}
}

// highSpeedContribution implements the "High speed" signal. The default is
// a step function (full WeightHighSpeed above threshold); the graduated
// variant spec.md §4.4 permits scales linearly from 0 at the threshold to
// the full weight at 700 kt.
func highSpeedContribution(speedKt float64, opts Options) (int, string) {
	threshold := opts.HighSpeedThresholdKt
	if threshold <= 0 {
		threshold = 500
	}
	if speedKt <= threshold {
		return 0, ""
	}

	reason := fmt.Sprintf("High speed (%.0f kt)", speedKt)
	if !opts.Graduated {
		return WeightHighSpeed, reason
	}

	const graduatedCeilingKt = 700
	if speedKt >= graduatedCeilingKt {
		return WeightHighSpeed, reason
	}
	fraction := (speedKt - threshold) / (graduatedCeilingKt - threshold)
	pts := int(fraction * float64(WeightHighSpeed))
	return pts, reason
}

func categorize(score int) Category {
	switch {
	case score >= 70:
		return Critical
	case score >= 50:
		return High
	case score >= 25:
		return Medium
	default:
		return Low
	}
}

// recommendedAction is the fixed category -> action table spec.md §4.4 calls for.
func recommendedAction(c Category) string {
	switch c {
	case Critical:
		return "activate response protocol"
	case High:
		return "monitor and contact via radio"
	case Medium:
		return "log and continue monitoring"
	default:
		return "no action required"
	}
}
