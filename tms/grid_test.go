package tms

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapvault/tilegrid/crs"
)

func TestAssembleFillsGaps(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")

	grid, err := Assemble(set, 0, 24)
	require.NoError(t, err)

	assert.Equal(t, 5, grid.MinLevel)
	assert.Equal(t, 12, grid.MaxLevel)
	assert.Equal(t, 12, grid.HighestKnownLevel)
	require.Len(t, grid.Levels, 8, "no missing levels between min and max")

	for i, gridLevel := range grid.Levels {
		assert.Equal(t, 5+i, gridLevel.Level)
		if i > 0 {
			assert.Less(t, gridLevel.Resolution, grid.Levels[i-1].Resolution)
		}
	}

	// levels 8 and 9 were absent from the cache metadata
	l8, ok := grid.LevelAt(8)
	require.True(t, ok)
	assert.True(t, l8.Synthesized)
	assert.Equal(t, uint(256), l8.MatrixWidth, "dimensions double up from the known level 7")
	l9, _ := grid.LevelAt(9)
	assert.Equal(t, uint(512), l9.MatrixWidth)
	l10, _ := grid.LevelAt(10)
	assert.False(t, l10.Synthesized)
	assert.Equal(t, uint(1024), l10.MatrixWidth)

	require.NotNil(t, grid.DataBounds)
}

func TestAssembleOverzoom(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")

	grid, err := Assemble(set, 10, 20)
	require.NoError(t, err)

	assert.Equal(t, 20, grid.MaxLevel, "extra levels are capped at the allowed maximum")
	assert.Equal(t, 12, grid.HighestKnownLevel)
	require.Len(t, grid.Levels, 16)

	for _, gridLevel := range grid.Levels {
		assert.LessOrEqual(t, gridLevel.Level, 20)
		if gridLevel.Level > 12 {
			assert.True(t, gridLevel.Synthesized, "overzoom levels are synthetic at level %v", gridLevel.Level)
		}
	}

	l13, _ := grid.LevelAt(13)
	l12, _ := grid.LevelAt(12)
	assert.InDelta(t, l12.Resolution/2, l13.Resolution, 1e-9)
	assert.Equal(t, uint(8192), l13.MatrixWidth)
	l20, _ := grid.LevelAt(20)
	assert.Equal(t, uint(1048576), l20.MatrixWidth)
}

func TestAssemblePyramidBounds(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")

	grid, err := Assemble(set, 0, 24)
	require.NoError(t, err)

	// anchored at the origin, spanning the finest known matrix
	assert.InDelta(t, -20037508.342789244, grid.Bounds.MinX(), 1e-6)
	assert.InDelta(t, 20037508.342789244, grid.Bounds.MaxX(), 1e-6)
	assert.InDelta(t, -20037508.342789244, grid.Bounds.MinY(), 1e-6)
	assert.InDelta(t, 20037508.342789244, grid.Bounds.MaxY(), 1e-6)
}

func TestAssembleCapBelowKnownLevels(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")

	grid, err := Assemble(set, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, grid.MaxLevel)
	assert.Equal(t, 10, grid.HighestKnownLevel)

	_, err = Assemble(set, 0, 3)
	require.Error(t, err, "a cap below the lowest known level leaves nothing to assemble")
}

func TestAssembleErrors(t *testing.T) {
	_, err := Assemble(&TileMatrixSet{ID: "empty"}, 0, 20)
	require.ErrorContains(t, err, "no matrices")
}

func TestTileAddressing(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")
	grid, err := Assemble(set, 0, 24)
	require.NoError(t, err)

	t.Run("TileFor", func(t *testing.T) {
		tests := []struct {
			name  string
			level int
			pt    geom.Point
			col   uint
			row   uint
			ok    bool
		}{
			{name: "world center", level: 5, pt: geom.Point{0.01, -0.01}, col: 16, row: 16, ok: true},
			{name: "top left corner tile", level: 5, pt: geom.Point{-20000000, 20000000}, col: 0, row: 0, ok: true},
			{name: "level below the grid", level: 4, pt: geom.Point{0, 0}, ok: false},
			{name: "level above the grid", level: 13, pt: geom.Point{0, 0}, ok: false},
			{name: "west of the matrix", level: 5, pt: geom.Point{-20100000, 0}, ok: false},
			{name: "north of the matrix", level: 5, pt: geom.Point{0, 20100000}, ok: false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				col, row, ok := grid.TileFor(tt.level, tt.pt)
				require.Equal(t, tt.ok, ok)
				if ok {
					assert.Equal(t, tt.col, col)
					assert.Equal(t, tt.row, row)
				}
			})
		}
	})

	t.Run("TileBounds inverts TileFor", func(t *testing.T) {
		pt := geom.Point{1500000, 7500000}
		col, row, ok := grid.TileFor(7, pt)
		require.True(t, ok)
		bounds, ok := grid.TileBounds(7, col, row)
		require.True(t, ok)
		assert.True(t, bounds.Contains(pt))

		spanX := float64(grid.TileWidth) * grid.Levels[7-grid.MinLevel].Resolution
		assert.InDelta(t, spanX, bounds.XSpan(), 1e-6)
	})

	t.Run("TileKey", func(t *testing.T) {
		key, ok := grid.TileKey(5, 16, 16)
		require.True(t, ok)
		assert.Equal(t, "5/768", key.String())
		col, row := key.ColRow()
		assert.Equal(t, [2]uint{16, 16}, [2]uint{col, row})

		_, ok = grid.TileKey(5, 32, 0)
		assert.False(t, ok)
	})

	t.Run("TileBounds outside the matrix", func(t *testing.T) {
		_, ok := grid.TileBounds(5, 32, 0)
		assert.False(t, ok)
		_, ok = grid.TileBounds(99, 0, 0)
		assert.False(t, ok)
	})
}

func TestAssembledGridIsPlainData(t *testing.T) {
	set := loadTestTileMatrixSet(t, "SwedenWebFromCache")
	grid, err := Assemble(set, 2, 24)
	require.NoError(t, err)

	assert.Equal(t, crs.MustParse("EPSG:3857"), grid.CRS)
	// mutating the source set afterwards must not affect the grid
	set.Matrices[5] = Matrix{Level: 5, Resolution: 1, MatrixWidth: 1, MatrixHeight: 1}
	l5, _ := grid.LevelAt(5)
	assert.InDelta(t, 4891.96981025128, l5.Resolution, 1e-6)
}
