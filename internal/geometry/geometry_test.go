package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[0,0],[0,10],[10,10],[10,0],[0,0]]]}`

func TestParse_ValidSquare(t *testing.T) {
	t.Parallel()

	region, err := Parse(squareGeoJSON)
	require.NoError(t, err)
	assert.Len(t, region.Ring, 5) // closed ring: 4 distinct + repeated first
}

func TestParse_RejectsTooFewVertices(t *testing.T) {
	t.Parallel()

	_, err := Parse(`{"type":"Polygon","coordinates":[[[0,0],[0,10]]]}`)
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestParse_RejectsWrongType(t *testing.T) {
	t.Parallel()

	_, err := Parse(`{"type":"LineString","coordinates":[[[0,0],[0,10],[10,10]]]}`)
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := Parse(`not json`)
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestContains_InsideAndOutside(t *testing.T) {
	t.Parallel()

	region, err := Parse(squareGeoJSON)
	require.NoError(t, err)

	assert.True(t, Contains(region, 5, 5), "center should be inside")
	assert.False(t, Contains(region, 50, 50), "far outside")
}

func TestContains_BoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	region, err := Parse(squareGeoJSON)
	require.NoError(t, err)

	assert.True(t, Contains(region, 0, 5), "on an edge")
	assert.True(t, Contains(region, 0, 0), "on a vertex")
}

func TestContains_NilRegion(t *testing.T) {
	t.Parallel()

	assert.False(t, Contains(nil, 1, 1))
}

func TestCentroidAndExtent(t *testing.T) {
	t.Parallel()

	region, err := Parse(squareGeoJSON)
	require.NoError(t, err)

	lat, lon, extent := CentroidAndExtent(region)
	assert.InDelta(t, 5, lat, 1e-9)
	assert.InDelta(t, 5, lon, 1e-9)
	assert.InDelta(t, 10, extent, 1e-9)
}

func TestEncode_RoundTrips(t *testing.T) {
	t.Parallel()

	region, err := Parse(squareGeoJSON)
	require.NoError(t, err)

	encoded, err := Encode(region)
	require.NoError(t, err)

	reparsed, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, region.Ring, reparsed.Ring)
}
