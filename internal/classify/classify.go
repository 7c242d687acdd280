// Package classify implements the Classifier (spec.md §4.2): mapping a
// telemetry record to a coarse aircraft category, plus the original's
// cosmetic aircraft-model text prediction (SPEC_FULL.md §C.3).
package classify

import "fmt"

type Category string

const (
	SmallProp       Category = "small-prop"
	Airliner        Category = "airliner"
	HighPerformance Category = "high-performance"
	Fighter         Category = "fighter"
	Helicopter      Category = "helicopter"
	Unknown         Category = "unknown"
)

// Classify applies the decision rule from spec.md §4.2, top to bottom,
// first match wins. speed is ground speed in knots, altitude in feet.
// hasIdentifier is whether an external identifier is present.
func Classify(speedKt, altitudeFt float64, hasIdentifier bool) Category {
	switch {
	case speedKt < 120:
		if !hasIdentifier && altitudeFt < 500 {
			return Unknown
		}
		if altitudeFt < 1500 && speedKt < 40 {
			return Helicopter
		}
		return SmallProp
	case speedKt < 350:
		return Airliner
	case speedKt < 600:
		return HighPerformance
	default:
		return Fighter
	}
}

// militaryCruiseAltitudeFt is the altitude above which an identified
// high-performance contact is presumed to be civil traffic rather than
// military, grounded on the original's classify_aircraft_type treating a
// transponder-equipped contact in the 25,000-45,000 ft band as "airliner"
// regardless of its raw speed bucket.
const militaryCruiseAltitudeFt = 25000

// IsMilitaryClass reports whether a classification is deemed military for
// the Threat Analyzer's "Military class" signal (spec.md §4.4: fighter and
// high-performance are the trigger, "and deemed military by context"). A
// fighter-speed profile is always deemed military. A high-performance
// profile is deemed military only when it lacks an external identifier or
// is flying below the altitude band civil traffic uses at that speed; an
// identified, high-altitude high-performance contact is ordinary cruise
// traffic, not a military signal.
func IsMilitaryClass(c Category, hasIdentifier bool, altitudeFt float64) bool {
	switch c {
	case Fighter:
		return true
	case HighPerformance:
		return !hasIdentifier || altitudeFt < militaryCruiseAltitudeFt
	default:
		return false
	}
}

// PredictAircraftModel guesses a specific airframe string from
// speed/altitude/classification, grounded on the original's
// predict_aircraft_model. Purely cosmetic narrative surfaced to dashboard
// consumers; never an input to the threat score.
func PredictAircraftModel(speedKt, altitudeFt float64, c Category) string {
	switch c {
	case SmallProp:
		switch {
		case speedKt < 80:
			return "Likely: Cessna 172 Skyhawk (85% confidence)"
		case speedKt < 100:
			return "Likely: Piper Cherokee (82% confidence)"
		default:
			return "Likely: Beechcraft Bonanza (78% confidence)"
		}
	case Helicopter:
		return "Likely: Light utility helicopter (70% confidence)"
	case Airliner:
		if altitudeFt > 35000 {
			if speedKt > 300 {
				return "Likely: Boeing 777/787 (88% confidence)"
			}
			return "Likely: Airbus A320/A321 (85% confidence)"
		}
		if speedKt < 200 {
			return "Likely: Regional Jet - Embraer E175 (80% confidence)"
		}
		return "Likely: Boeing 737/Airbus A320 (83% confidence)"
	case HighPerformance:
		switch {
		case speedKt > 500:
			return "Likely: Military Transport - C-130J Hercules (75% confidence)"
		case altitudeFt > 40000:
			return "Likely: Business Jet - Gulfstream G650 (80% confidence)"
		default:
			return "Likely: Military Trainer - Hawk T2 (72% confidence)"
		}
	case Fighter:
		switch {
		case speedKt > 750:
			return "Likely: F-22 Raptor or Su-57 (90% confidence), high threat"
		case speedKt > 650:
			return "Likely: F-16 Fighting Falcon or MiG-29 (87% confidence), threat"
		default:
			return "Likely: F/A-18 Hornet or Rafale (84% confidence), threat"
		}
	default:
		return fmt.Sprintf("Unknown aircraft model (insufficient data, %s)", c)
	}
}
