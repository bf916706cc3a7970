package crs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProj4(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		proj    string
		wantErr string
	}{
		{name: "longlat",
			text: "+proj=longlat +datum=WGS84 +no_defs", proj: projLongLat},
		{name: "spherical mercator",
			text: builtinProj4["EPSG:3857"], proj: projMerc},
		{name: "utm expands to tmerc",
			text: "+proj=utm +zone=33 +ellps=GRS80 +units=m +no_defs", proj: projTMerc},
		{name: "tmerc",
			text: "+proj=tmerc +lat_0=0 +lon_0=9 +k=0.9996 +x_0=500000 +y_0=0 +ellps=GRS80 +units=m +no_defs", proj: projTMerc},
		{name: "missing proj",
			text: "+ellps=GRS80 +units=m", wantErr: "missing +proj"},
		{name: "unsupported family",
			text: "+proj=stere +lat_0=90 +ellps=WGS84", wantErr: "not supported"},
		{name: "utm without zone",
			text: "+proj=utm +ellps=GRS80", wantErr: "zone"},
		{name: "utm zone out of range",
			text: "+proj=utm +zone=61 +ellps=GRS80", wantErr: "zone"},
		{name: "unknown ellipsoid",
			text: "+proj=tmerc +lon_0=9 +ellps=PLUTO", wantErr: "unknown ellipsoid"},
		{name: "ellipsoidal mercator",
			text: "+proj=merc +ellps=WGS84", wantErr: "not supported"},
		{name: "bad number",
			text: "+proj=tmerc +lon_0=nine", wantErr: "+lon_0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseProj4(MustParse("EPSG:9999"), tt.text)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.proj, def.Proj)
		})
	}
}

func TestWebMercatorAnchors(t *testing.T) {
	def, err := ParseProj4(MustParse("EPSG:3857"), builtinProj4["EPSG:3857"])
	require.NoError(t, err)

	x, y, err := def.Forward(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, _, err = def.Forward(180, 0)
	require.NoError(t, err)
	assert.InDelta(t, 20037508.342789244, x, 1e-6)

	_, _, err = def.Forward(0, 90)
	require.Error(t, err, "the poles are outside the mercator domain")
}

func TestTransverseMercatorAnchors(t *testing.T) {
	def, err := ParseProj4(MustParse("EPSG:3006"), builtinProj4["EPSG:3006"])
	require.NoError(t, err)

	// on the central meridian at the equator the projection is exact
	x, y, err := def.Forward(15, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500000, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	// a Swedish coordinate lands in the plausible SWEREF99 TM value range
	x, y, err = def.Forward(11.9746, 57.7089)
	require.NoError(t, err)
	assert.Greater(t, x, 250000.0)
	assert.Less(t, x, 350000.0)
	assert.Greater(t, y, 6350000.0)
	assert.Less(t, y, 6450000.0)
}

func TestRoundTrips(t *testing.T) {
	// points kept near the tmerc zones' central meridians, where the
	// series expansions are well within the engine's 1e-6 degree promise
	points := [][2]float64{
		{11.9746, 57.7089},
		{12.5, 55.6},
		{11.2, 60.0},
	}
	for id, text := range builtinProj4 {
		def, err := ParseProj4(MustParse(id), text)
		require.NoError(t, err)
		for _, pt := range points {
			t.Run(fmt.Sprintf("%v(%v,%v)", id, pt[0], pt[1]), func(t *testing.T) {
				x, y, err := def.Forward(pt[0], pt[1])
				require.NoError(t, err)
				lon, lat, err := def.Inverse(x, y)
				require.NoError(t, err)
				assert.InDelta(t, pt[0], lon, 1e-6)
				assert.InDelta(t, pt[1], lat, 1e-6)
			})
		}
	}
}

func TestUTMSouth(t *testing.T) {
	def, err := ParseProj4(MustParse("EPSG:32733"), "+proj=utm +zone=33 +south +datum=WGS84 +units=m +no_defs")
	require.NoError(t, err)
	_, y, err := def.Forward(15, -10)
	require.NoError(t, err)
	assert.Greater(t, y, 0.0, "southern hemisphere northings carry the false northing")
	assert.Less(t, y, 10000000.0)
}
