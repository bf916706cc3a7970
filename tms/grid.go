package tms

import (
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/mapvault/tilegrid/crs"
	"github.com/mapvault/tilegrid/extent"
	"github.com/mapvault/tilegrid/mathhelp"
	"github.com/mapvault/tilegrid/tilekey"
)

// GridLevel is one dense, renderer-ready level of a TileGrid.
type GridLevel struct {
	Level            int        `json:"level"`
	Resolution       float64    `json:"resolution"`
	ScaleDenominator float64    `json:"scale_denominator"`
	MatrixWidth      uint       `json:"matrix_width"`
	MatrixHeight     uint       `json:"matrix_height"`
	Origin           [2]float64 `json:"top_left"`
	// Synthesized levels were not reported by the cache; requesting tiles
	// there is expected to trigger on-demand generation downstream.
	Synthesized bool `json:"synthesized,omitempty"`
}

// TileGrid is an assembled tile pyramid with no missing levels between
// MinLevel and MaxLevel, ready for a renderer or cache key calculator.
// It holds no reference back to the TileMatrixSet it was derived from.
type TileGrid struct {
	CRS        crs.ID `json:"crs"`
	TileWidth  uint   `json:"tile_width"`
	TileHeight uint   `json:"tile_height"`
	MinLevel   int    `json:"min_level"`
	MaxLevel   int    `json:"max_level"`
	// HighestKnownLevel is the finest level the cache actually reported;
	// levels above it are overzoom.
	HighestKnownLevel int         `json:"highest_known_level"`
	Levels            []GridLevel `json:"levels"`
	// Bounds is the outer pyramid boundary in grid coordinates, derived
	// from the finest known matrix. Renderers clamp panning/zoom to it.
	Bounds extent.BoundingBox `json:"bounds"`
	// DataBounds is the cached data extent as reported, when reported.
	DataBounds *extent.BoundingBox `json:"data_bounds,omitempty"`
}

// Assemble derives a dense TileGrid from a sparse set, extended with up to
// extraLevels synthetic overzoom levels but never past maxAllowedLevel.
func Assemble(set *TileMatrixSet, extraLevels, maxAllowedLevel uint) (*TileGrid, error) {
	if len(set.Matrices) == 0 {
		return nil, fmt.Errorf("tile matrix set %q has no matrices", set.ID)
	}
	lowest, highest := set.LevelRange()

	desiredMax := highest + int(extraLevels)
	if desiredMax > int(maxAllowedLevel) {
		desiredMax = int(maxAllowedLevel)
	}
	if desiredMax < lowest {
		return nil, fmt.Errorf("max allowed level %v lies below the lowest known level %v", maxAllowedLevel, lowest)
	}
	// the finest reported level that survives the cap
	highestKnown := lowest
	for level := range set.Matrices {
		if level <= desiredMax && level > highestKnown {
			highestKnown = level
		}
	}

	known := make(map[int]float64, len(set.Matrices))
	for level, matrix := range set.Matrices {
		known[level] = matrix.Resolution
	}
	resolutions := BuildPyramid(known, lowest, desiredMax)

	grid := &TileGrid{
		CRS:               set.CRS,
		TileWidth:         set.TileWidth,
		TileHeight:        set.TileHeight,
		MinLevel:          lowest,
		MaxLevel:          desiredMax,
		HighestKnownLevel: highestKnown,
		Levels:            make([]GridLevel, 0, desiredMax-lowest+1),
		DataBounds:        set.Bounds,
	}

	// matrix dimensions double per level up from the nearest known matrix
	baseLevel := lowest
	baseWidth, baseHeight := set.Matrices[lowest].MatrixWidth, set.Matrices[lowest].MatrixHeight
	for level := lowest; level <= desiredMax; level++ {
		matrix, isKnown := set.Matrices[level]
		gridLevel := GridLevel{
			Level:       level,
			Resolution:  resolutions[level-lowest],
			Origin:      set.OriginOf(level),
			Synthesized: !isKnown || matrix.Resolution <= 0,
		}
		gridLevel.ScaleDenominator = gridLevel.Resolution / MetersPerScaleUnit
		if isKnown {
			gridLevel.MatrixWidth, gridLevel.MatrixHeight = matrix.MatrixWidth, matrix.MatrixHeight
			baseLevel, baseWidth, baseHeight = level, matrix.MatrixWidth, matrix.MatrixHeight
		} else {
			factor := mathhelp.Pow2(uint(level - baseLevel))
			gridLevel.MatrixWidth = baseWidth * factor
			gridLevel.MatrixHeight = baseHeight * factor
		}
		grid.Levels = append(grid.Levels, gridLevel)
	}

	bounds, err := pyramidBounds(set, highestKnown, resolutions[highestKnown-lowest])
	if err != nil {
		return nil, err
	}
	grid.Bounds = bounds
	return grid, nil
}

// pyramidBounds anchors the outer grid boundary at the origin of the finest
// known level and spans that level's matrix in ground units.
func pyramidBounds(set *TileMatrixSet, level int, resolution float64) (extent.BoundingBox, error) {
	matrix := set.Matrices[level]
	origin := set.OriginOf(level)
	width := float64(matrix.MatrixWidth) * float64(set.TileWidth) * resolution
	height := float64(matrix.MatrixHeight) * float64(set.TileHeight) * resolution
	bounds, ok := extent.Normalize([4]float64{
		origin[0], origin[1] - height,
		origin[0] + width, origin[1],
	})
	if !ok {
		return extent.BoundingBox{}, fmt.Errorf("tile matrix set %q yields a degenerate pyramid boundary at level %v", set.ID, level)
	}
	return bounds, nil
}

// LevelAt returns the grid level by level number.
func (g *TileGrid) LevelAt(level int) (GridLevel, bool) {
	if level < g.MinLevel || level > g.MaxLevel {
		return GridLevel{}, false
	}
	return g.Levels[level-g.MinLevel], true
}

// TileFor addresses the tile containing a point, with top-left origin
// numbering. ok is false outside the matrix or for an unknown level.
func (g *TileGrid) TileFor(level int, pt geom.Point) (col, row uint, ok bool) {
	gridLevel, ok := g.LevelAt(level)
	if !ok {
		return 0, 0, false
	}
	tileSpanX := float64(g.TileWidth) * gridLevel.Resolution
	x := (pt.X() - gridLevel.Origin[0]) / tileSpanX
	if x < 0 || x >= float64(gridLevel.MatrixWidth) {
		return 0, 0, false
	}
	tileSpanY := float64(g.TileHeight) * gridLevel.Resolution
	y := (gridLevel.Origin[1] - pt.Y()) / tileSpanY
	if y < 0 || y >= float64(gridLevel.MatrixHeight) {
		return 0, 0, false
	}
	return uint(x), uint(y), true
}

// TileKey returns the cache key for a tile address, or ok false when the
// address lies outside the level's matrix.
func (g *TileGrid) TileKey(level int, col, row uint) (tilekey.Key, bool) {
	gridLevel, ok := g.LevelAt(level)
	if !ok || col >= gridLevel.MatrixWidth || row >= gridLevel.MatrixHeight {
		return tilekey.Key{}, false
	}
	return tilekey.Encode(level, col, row)
}

// TileBounds returns the ground extent of one tile.
func (g *TileGrid) TileBounds(level int, col, row uint) (extent.BoundingBox, bool) {
	gridLevel, ok := g.LevelAt(level)
	if !ok || col >= gridLevel.MatrixWidth || row >= gridLevel.MatrixHeight {
		return extent.BoundingBox{}, false
	}
	tileSpanX := float64(g.TileWidth) * gridLevel.Resolution
	tileSpanY := float64(g.TileHeight) * gridLevel.Resolution
	minX := gridLevel.Origin[0] + float64(col)*tileSpanX
	maxY := gridLevel.Origin[1] - float64(row)*tileSpanY
	return extent.MustNormalize([4]float64{minX, maxY - tileSpanY, minX + tileSpanX, maxY}), true
}
