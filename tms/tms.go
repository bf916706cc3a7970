// Package tms models WMTS-style tile matrix sets and derives dense,
// renderer-ready tile grids from sparse ones. The JSON decoder is tolerant
// of the field spellings the cache metadata ships in the wild: matrix levels
// under "source_level", "z" or an integer-like "identifier", and resolutions
// either directly or as a scale denominator.
package tms

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
	"golang.org/x/exp/maps"

	"github.com/mapvault/tilegrid/crs"
	"github.com/mapvault/tilegrid/extent"
)

// MetersPerScaleUnit converts an OGC scale denominator to a ground
// resolution, via the standardized rendering pixel size of 0.28 mm.
const MetersPerScaleUnit = 0.00028

// Matrix is one level of a tile matrix set. A zero Resolution means the
// source did not report one; BuildPyramid fills those in.
type Matrix struct {
	Level            int
	Resolution       float64
	ScaleDenominator float64
	MatrixWidth      uint `validate:"min=1"`
	MatrixHeight     uint `validate:"min=1"`
	// TopLeft overrides the set origin for this level, already in x,y order.
	TopLeft *[2]float64
}

// TileMatrixSet is a possibly sparse multi-resolution pyramid description,
// as reported by the tile cache metadata. It is read-only to this package:
// Assemble derives a completed TileGrid and never mutates the source.
type TileMatrixSet struct {
	ID         string `json:"id,omitempty"`
	CRS        crs.ID `json:"-"`
	TileWidth  uint   `default:"256" validate:"min=1" json:"tile_width"`
	TileHeight uint   `default:"256" validate:"min=1" json:"tile_height"`
	// AxisOrder is the order ordinate pairs were spelled in on the wire.
	// Decoding normalizes everything to x,y; this records what was declared.
	AxisOrder string `default:"xy" validate:"oneof=xy yx" json:"axis_order"`
	// Origin is the top-left corner the tile numbering is anchored at.
	Origin [2]float64 `json:"-"`
	// Bounds is the optional extent of the cached data in the set's CRS.
	Bounds   *extent.BoundingBox `json:"-"`
	Matrices map[int]Matrix      `validate:"required,min=1" json:"-"`
}

func (tms *TileMatrixSet) UnmarshalJSON(data []byte) error {
	if err := defaults.Set(tms); err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, tms, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawCRS, ok := specials["supported_crs"]
	if !ok {
		rawCRS, ok = specials["crs"]
	}
	if !ok {
		return fmt.Errorf(`missing key "supported_crs"`)
	}
	crsString, ok := rawCRS.(string)
	if !ok {
		return fmt.Errorf(`"supported_crs" should be a string, not a %T`, rawCRS)
	}
	tms.CRS, err = crs.Parse(crsString)
	if err != nil {
		return err
	}

	rawOrigin, ok := specials["top_left_corner"]
	if !ok {
		return fmt.Errorf(`missing key "top_left_corner"`)
	}
	tms.Origin, err = unmarshalOrdinatePair(rawOrigin, tms.AxisOrder)
	if err != nil {
		return fmt.Errorf(`"top_left_corner": %w`, err)
	}

	if rawBounds, ok := specials["bounds"]; ok {
		tms.Bounds, err = unmarshalBounds(rawBounds)
	} else if rawBounds, ok := specials["extent"]; ok {
		tms.Bounds, err = unmarshalBounds(rawBounds)
	}
	if err != nil {
		return err
	}

	rawMatrices, ok := specials["matrices"]
	if !ok {
		return fmt.Errorf(`missing key "matrices"`)
	}
	tms.Matrices, err = unmarshalMatrices(rawMatrices, tms.AxisOrder)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tms)
}

func unmarshalMatrices(rawMatrices interface{}, setAxisOrder string) (map[int]Matrix, error) {
	rawMatricesList, ok := rawMatrices.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"matrices" should be an array`)
	}
	matrices := make(map[int]Matrix, len(rawMatricesList))
	for _, rawMatrix := range rawMatricesList {
		rawMatrixMap, ok := rawMatrix.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf(`"matrices" should contain objects`)
		}
		var matrix Matrix
		if err := matrix.unmarshalJSONFromMap(rawMatrixMap, setAxisOrder); err != nil {
			return nil, err
		}
		if _, duplicate := matrices[matrix.Level]; duplicate {
			return nil, fmt.Errorf("duplicate matrix level %v", matrix.Level)
		}
		matrices[matrix.Level] = matrix
	}
	return matrices, nil
}

func (m *Matrix) unmarshalJSONFromMap(data map[string]interface{}, setAxisOrder string) error {
	level, err := matrixLevel(data)
	if err != nil {
		return err
	}
	if level < 0 {
		return fmt.Errorf("matrix level %v is negative", level)
	}
	m.Level = level

	m.Resolution, m.ScaleDenominator, err = matrixResolution(data)
	if err != nil {
		return fmt.Errorf("matrix %v: %w", level, err)
	}

	m.MatrixWidth, err = uintField(data, "matrix_width", 1)
	if err != nil {
		return fmt.Errorf("matrix %v: %w", level, err)
	}
	m.MatrixHeight, err = uintField(data, "matrix_height", 1)
	if err != nil {
		return fmt.Errorf("matrix %v: %w", level, err)
	}

	if rawTopLeft, ok := data["top_left"]; ok && rawTopLeft != nil {
		axisOrder := setAxisOrder
		if rawAxisOrder, ok := data["axis_order"].(string); ok {
			axisOrder = rawAxisOrder
		}
		topLeft, err := unmarshalOrdinatePair(rawTopLeft, axisOrder)
		if err != nil {
			return fmt.Errorf(`matrix %v: "top_left": %w`, level, err)
		}
		m.TopLeft = &topLeft
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(m)
}

// matrixLevel digs the level out of whichever field the producer used:
// "source_level" wins, then "z", then an integer-like "identifier".
func matrixLevel(data map[string]interface{}) (int, error) {
	for _, key := range []string{"source_level", "z"} {
		if raw, ok := data[key]; ok && raw != nil {
			number, ok := raw.(float64)
			if !ok {
				return 0, fmt.Errorf(`%q should be a number, not a %T`, key, raw)
			}
			return int(number), nil
		}
	}
	raw, ok := data["identifier"]
	if !ok || raw == nil {
		return 0, fmt.Errorf(`matrix without "source_level", "z" or "identifier"`)
	}
	switch identifier := raw.(type) {
	case float64:
		return int(identifier), nil
	case string:
		level, err := strconv.Atoi(identifier)
		if err != nil {
			return 0, fmt.Errorf("only integer-like identifiers are supported for matrices: %w", err)
		}
		return level, nil
	default:
		return 0, fmt.Errorf(`"identifier" should be a string or number, not a %T`, raw)
	}
}

// matrixResolution prefers an explicit "resolution" and otherwise derives one
// from "scale_denominator". Both may be absent; the pyramid builder fills the
// gap later. Whichever is known also yields its counterpart.
func matrixResolution(data map[string]interface{}) (resolution, scaleDenominator float64, err error) {
	resolution, err = floatField(data, "resolution")
	if err != nil {
		return 0, 0, err
	}
	scaleDenominator, err = floatField(data, "scale_denominator")
	if err != nil {
		return 0, 0, err
	}
	if resolution <= 0 && scaleDenominator > 0 {
		resolution = scaleDenominator * MetersPerScaleUnit
	}
	if scaleDenominator <= 0 && resolution > 0 {
		scaleDenominator = resolution / MetersPerScaleUnit
	}
	return resolution, scaleDenominator, nil
}

func floatField(data map[string]interface{}, key string) (float64, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, nil
	}
	number, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf(`%q should be a number, not a %T`, key, raw)
	}
	return number, nil
}

func uintField(data map[string]interface{}, key string, fallback uint) (uint, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	number, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf(`%q should be a number, not a %T`, key, raw)
	}
	if number < 0 {
		return 0, fmt.Errorf(`%q should not be negative`, key)
	}
	return uint(number), nil
}

// unmarshalOrdinatePair reads an [a, b] pair and returns it in x,y order,
// honoring a declared "yx" axis order.
func unmarshalOrdinatePair(raw interface{}, axisOrder string) ([2]float64, error) {
	rawList, ok := raw.([]interface{})
	if !ok || len(rawList) != 2 {
		return [2]float64{}, fmt.Errorf("should be a two-element array, got %v", raw)
	}
	var pair [2]float64
	for i, rawOrdinate := range rawList {
		number, ok := rawOrdinate.(float64)
		if !ok {
			return [2]float64{}, fmt.Errorf("ordinates should be numbers, not %T", rawOrdinate)
		}
		pair[i] = number
	}
	if axisOrder == "yx" {
		pair[0], pair[1] = pair[1], pair[0]
	}
	return pair, nil
}

func unmarshalBounds(raw interface{}) (*extent.BoundingBox, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var bounds extent.BoundingBox
	if err := json.Unmarshal(encoded, &bounds); err != nil {
		return nil, fmt.Errorf(`"bounds": %w`, err)
	}
	return &bounds, nil
}

// LoadTileMatrixSet decodes the wire form of a tile matrix set.
func LoadTileMatrixSet(data []byte) (*TileMatrixSet, error) {
	var tms TileMatrixSet
	if err := json.Unmarshal(data, &tms); err != nil {
		return nil, err
	}
	return &tms, nil
}

// LevelRange returns the lowest and highest level present in the set.
func (tms *TileMatrixSet) LevelRange() (lowest, highest int) {
	levels := maps.Keys(tms.Matrices)
	sort.Ints(levels)
	return levels[0], levels[len(levels)-1]
}

// OriginOf returns the effective top-left origin for a level.
func (tms *TileMatrixSet) OriginOf(level int) [2]float64 {
	if matrix, ok := tms.Matrices[level]; ok && matrix.TopLeft != nil {
		return *matrix.TopLeft
	}
	return tms.Origin
}
