// Package trajectory implements the Trajectory Predictor (spec.md §4.3): a
// constant-velocity, equirectangular extrapolation of future position.
// Grounded on the original's TrajectoryPredictor.predict_path.
package trajectory

import "math"

// Sample is one (lat, lon) estimate at OffsetSeconds into the future.
type Sample struct {
	Lat           float64
	Lon           float64
	OffsetSeconds int
}

const (
	// knotsToDegPerSecond converts ground speed in knots to degrees of
	// latitude per second at the equator (spec.md §4.3).
	knotsToDegPerSecond = 1.0 / 216000.0
	minCosLat           = 1e-6
)

// Predict returns Horizon/Stride samples of (lat, lon, t), starting one
// stride out from the origin and running to the horizon inclusive (e.g. the
// default 180s/30s config yields offsets 30, 60, ..., 180). The original's
// predict_path instead starts at t=0 and stops short of the horizon
// (0, 30, ..., 150); both produce 6 samples, but this predictor reports the
// offset actually reached rather than the one just before it. It never
// fails; a pole singularity (cos(lat0) == 0) clamps to minCosLat.
func Predict(lat, lon, speedKt, headingDeg float64, horizonSeconds, strideSeconds int) []Sample {
	if strideSeconds <= 0 {
		strideSeconds = 30
	}
	if horizonSeconds <= 0 {
		horizonSeconds = 180
	}

	speedDegPerSec := speedKt * knotsToDegPerSecond
	headingRad := headingDeg * math.Pi / 180

	cosLat0 := math.Cos(lat * math.Pi / 180)
	if math.Abs(cosLat0) < minCosLat {
		cosLat0 = minCosLat
	}

	samples := make([]Sample, 0, horizonSeconds/strideSeconds)
	for t := strideSeconds; t <= horizonSeconds; t += strideSeconds {
		dlat := math.Cos(headingRad) * speedDegPerSec * float64(t)
		dlon := math.Sin(headingRad) * speedDegPerSec * float64(t) / cosLat0

		samples = append(samples, Sample{
			Lat:           lat + dlat,
			Lon:           lon + dlon,
			OffsetSeconds: t,
		})
	}
	return samples
}
