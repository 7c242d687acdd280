package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredict_SampleCountAndOffsets(t *testing.T) {
	t.Parallel()

	samples := Predict(0, 0, 300, 90, 180, 30)
	a := assert.New(t)
	a.Len(samples, 6)
	for i, s := range samples {
		a.Equal((i+1)*30, s.OffsetSeconds)
	}
}

func TestPredict_HeadingEastIncreasesLongitude(t *testing.T) {
	t.Parallel()

	samples := Predict(0, 0, 300, 90, 60, 30)
	for _, s := range samples {
		assert.Greater(t, s.Lon, 0.0)
		assert.InDelta(t, 0, s.Lat, 1e-9)
	}
}

func TestPredict_HeadingNorthIncreasesLatitude(t *testing.T) {
	t.Parallel()

	samples := Predict(0, 0, 300, 0, 60, 30)
	for _, s := range samples {
		assert.Greater(t, s.Lat, 0.0)
		assert.InDelta(t, 0, s.Lon, 1e-9)
	}
}

func TestPredict_ZeroOrNegativeStrideDefaults(t *testing.T) {
	t.Parallel()

	samples := Predict(0, 0, 100, 0, 180, 0)
	assert.NotEmpty(t, samples)
	assert.Equal(t, 30, samples[0].OffsetSeconds)
}

func TestPredict_PoleSingularityClamped(t *testing.T) {
	t.Parallel()

	// cos(90deg) == 0; must not divide by zero or produce NaN/Inf.
	samples := Predict(90, 0, 300, 90, 60, 30)
	for _, s := range samples {
		assert.False(t, isNaNOrInf(s.Lon))
		assert.False(t, isNaNOrInf(s.Lat))
	}
}

func isNaNOrInf(f float64) bool {
	return f != f || f > 1e300 || f < -1e300
}
