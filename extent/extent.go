// Package extent provides the bounding box value type used throughout the
// engine: a validated, canonical, immutable [minX, minY, maxX, maxY] rectangle.
package extent

import (
	"encoding/json"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/mapvault/tilegrid/mathhelp"
)

// ErrInvalidExtent is returned for non-finite or degenerate (zero-area) input.
var ErrInvalidExtent = fmt.Errorf("invalid extent")

// BoundingBox is an axis-aligned rectangle. The zero value is not valid;
// construct one through Normalize or Combine. Fields are unexported so a
// constructed box always satisfies minX < maxX and minY < maxY.
type BoundingBox struct {
	minX, minY, maxX, maxY float64
}

// Normalize canonicalizes four numbers into a BoundingBox, reordering
// transposed min/max pairs. ok is false if any value is non-finite or the
// result would be degenerate.
func Normalize(raw [4]float64) (bbox BoundingBox, ok bool) {
	if !mathhelp.AllFinite(raw[0], raw[1], raw[2], raw[3]) {
		return bbox, false
	}
	minX, maxX := raw[0], raw[2]
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := raw[1], raw[3]
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	if minX == maxX || minY == maxY {
		return bbox, false
	}
	return BoundingBox{minX, minY, maxX, maxY}, true
}

// MustNormalize is Normalize for statically known input, e.g. in tests.
func MustNormalize(raw [4]float64) BoundingBox {
	bbox, ok := Normalize(raw)
	if !ok {
		panic(fmt.Errorf("%w: %v", ErrInvalidExtent, raw))
	}
	return bbox
}

// Combine returns the minimal box containing both a and b.
// A nil a yields b unchanged, so extents can be accumulated from scratch.
func Combine(a *BoundingBox, b BoundingBox) BoundingBox {
	if a == nil {
		return b
	}
	c := *a
	if b.minX < c.minX {
		c.minX = b.minX
	}
	if b.minY < c.minY {
		c.minY = b.minY
	}
	if b.maxX > c.maxX {
		c.maxX = b.maxX
	}
	if b.maxY > c.maxY {
		c.maxY = b.maxY
	}
	return c
}

func (b BoundingBox) MinX() float64 { return b.minX }
func (b BoundingBox) MinY() float64 { return b.minY }
func (b BoundingBox) MaxX() float64 { return b.maxX }
func (b BoundingBox) MaxY() float64 { return b.maxY }

// XSpan is the distance of the BoundingBox in X.
func (b BoundingBox) XSpan() float64 { return b.maxX - b.minX }

// YSpan is the distance of the BoundingBox in Y.
func (b BoundingBox) YSpan() float64 { return b.maxY - b.minY }

// Array returns the box as [minX, minY, maxX, maxY].
func (b BoundingBox) Array() [4]float64 {
	return [4]float64{b.minX, b.minY, b.maxX, b.maxY}
}

// SwapXY returns the box with its X and Y ordinates exchanged.
func (b BoundingBox) SwapXY() BoundingBox {
	return BoundingBox{b.minY, b.minX, b.maxY, b.maxX}
}

// Vertices return the corners of the BoundingBox. The corners are ordered
// (minx,miny), (maxx,miny), (maxx,maxy), (minx,maxy).
func (b BoundingBox) Vertices() [4]geom.Point {
	return [4]geom.Point{
		{b.minX, b.minY},
		{b.maxX, b.minY},
		{b.maxX, b.maxY},
		{b.minX, b.maxY},
	}
}

// Envelope returns the minimal BoundingBox around the given points.
// ok is false when the points are non-finite or collapse to a degenerate box.
func Envelope(pts ...geom.Point) (BoundingBox, bool) {
	if len(pts) == 0 {
		return BoundingBox{}, false
	}
	minX, minY := pts[0].X(), pts[0].Y()
	maxX, maxY := minX, minY
	for _, pt := range pts[1:] {
		if pt.X() < minX {
			minX = pt.X()
		}
		if pt.X() > maxX {
			maxX = pt.X()
		}
		if pt.Y() < minY {
			minY = pt.Y()
		}
		if pt.Y() > maxY {
			maxY = pt.Y()
		}
	}
	return Normalize([4]float64{minX, minY, maxX, maxY})
}

// Contains reports whether the point lies within the box, borders included.
func (b BoundingBox) Contains(pt geom.Point) bool {
	return mathhelp.BetweenInc(pt.X(), b.minX, b.maxX) &&
		mathhelp.BetweenInc(pt.Y(), b.minY, b.maxY)
}

func (b BoundingBox) ToGeomExtent() geom.Extent {
	return geom.Extent{b.minX, b.minY, b.maxX, b.maxY}
}

func FromGeomExtent(e geom.Extent) (BoundingBox, bool) {
	return Normalize([4]float64{e.MinX(), e.MinY(), e.MaxX(), e.MaxY()})
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%v %v %v %v]", b.minX, b.minY, b.maxX, b.maxY)
}

// MarshalJSON encodes the box as a [minX, minY, maxX, maxY] array,
// the wire shape callers exchange extents in.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Array())
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw [4]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	bbox, ok := Normalize(raw)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidExtent, raw)
	}
	*b = bbox
	return nil
}
