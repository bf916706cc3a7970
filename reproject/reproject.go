// Package reproject moves bounding boxes between reference systems: it
// repairs reversed axis order for the systems known to ship northing-first,
// projects boxes through their four corners and unions per-layer extents
// into a project extent.
package reproject

import (
	"context"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/mapvault/tilegrid/crs"
	"github.com/mapvault/tilegrid/extent"
	"github.com/mapvault/tilegrid/mapslicehelp"
	"github.com/mapvault/tilegrid/mathhelp"
)

// ErrUnprojectable is returned when the corner projection and its
// swapped-axes fallback both produced non-finite or degenerate results.
var ErrUnprojectable = fmt.Errorf("unprojectable extent")

// axisSwapThreshold separates easting-like from northing-like magnitudes in
// the axis order heuristic. Northings in the suspect systems run well above
// it, eastings well below.
const axisSwapThreshold = 2_000_000

// Projected systems that are exchanged northing before easting in practice.
// Best effort: there is no authoritative per-CRS axis order table here, only
// this allow-list and the magnitude heuristic.
var northingFirstSuspects = mapslicehelp.AsKeys([]crs.ID{
	crs.MustParse("EPSG:3006"),
	crs.MustParse("EPSG:3035"),
	crs.MustParse("EPSG:2193"),
})

// NorthingFirst reports whether id is on the northing-first allow-list.
func NorthingFirst(id crs.ID) bool {
	_, ok := northingFirstSuspects[id]
	return ok
}

// ResolveAxisOrder reorders a box tagged with a northing-first system into
// that declared order when the magnitudes say the northings sit on the wrong
// axis. Boxes tagged with any other system pass through untouched, as does
// anything the heuristic does not match.
func ResolveAxisOrder(bbox extent.BoundingBox, id crs.ID) extent.BoundingBox {
	if !NorthingFirst(id) {
		return bbox
	}
	yLooksNorthing := looksLikeNorthing(bbox.MinY()) && looksLikeNorthing(bbox.MaxY())
	xLooksNorthing := looksLikeNorthing(bbox.MinX()) && looksLikeNorthing(bbox.MaxX())
	if yLooksNorthing && !xLooksNorthing {
		return bbox.SwapXY()
	}
	return bbox
}

func looksLikeNorthing(ordinate float64) bool {
	if ordinate < 0 {
		ordinate = -ordinate
	}
	return ordinate >= axisSwapThreshold
}

// Transform reprojects bbox from source to target. The four corners are
// projected individually and re-enveloped: corner projections of a rotated
// or skewed system are not axis-aligned pairs, so taking two opposite
// corners would clip the box.
//
// A failed primary attempt (non-finite or degenerate envelope) is retried
// once with X/Y swapped at the input. If that also fails the box is
// surfaced as ErrUnprojectable, never returned untransformed under the
// target label.
func Transform(ctx context.Context, bbox extent.BoundingBox, source, target crs.ID, reg *crs.Registry) (extent.BoundingBox, error) {
	if source.Equal(target) {
		// exact: not a single float may drift on this path
		return bbox, nil
	}

	// Stored metadata is sometimes mislabeled. A box that already fits in
	// geographic bounds is left alone when geographic is what was asked
	// for: not "fixing" a correct box beats corrupting it.
	if target.IsGeographic() && withinGeographicBounds(bbox) {
		return bbox, nil
	}

	srcDef, err := reg.Resolve(ctx, source)
	if err != nil {
		return extent.BoundingBox{}, fmt.Errorf("resolving source crs: %w", err)
	}
	tgtDef, err := reg.Resolve(ctx, target)
	if err != nil {
		return extent.BoundingBox{}, fmt.Errorf("resolving target crs: %w", err)
	}

	corrected := ResolveAxisOrder(bbox, source)
	if out, ok := projectCorners(corrected, srcDef, tgtDef, NorthingFirst(source), NorthingFirst(target)); ok {
		return out, nil
	}
	if out, ok := projectCorners(corrected.SwapXY(), srcDef, tgtDef, NorthingFirst(source), NorthingFirst(target)); ok {
		return out, nil
	}
	return extent.BoundingBox{}, fmt.Errorf("%w: %v from %v to %v", ErrUnprojectable, bbox, source, target)
}

func projectCorners(bbox extent.BoundingBox, srcDef, tgtDef *crs.Definition, srcNorthingFirst, tgtNorthingFirst bool) (extent.BoundingBox, bool) {
	work := bbox
	if srcNorthingFirst {
		// the projection math speaks easting-first
		work = bbox.SwapXY()
	}
	projected := make([]geom.Point, 0, 4)
	for _, corner := range work.Vertices() {
		lon, lat, err := srcDef.Inverse(corner.X(), corner.Y())
		if err != nil || !validLonLat(lon, lat) {
			return extent.BoundingBox{}, false
		}
		x, y, err := tgtDef.Forward(lon, lat)
		if err != nil || !mathhelp.AllFinite(x, y) {
			return extent.BoundingBox{}, false
		}
		projected = append(projected, geom.Point{x, y})
	}
	envelope, ok := extent.Envelope(projected...)
	if !ok {
		return extent.BoundingBox{}, false
	}
	if tgtNorthingFirst {
		envelope = envelope.SwapXY()
	}
	return envelope, true
}

func withinGeographicBounds(bbox extent.BoundingBox) bool {
	return mathhelp.BetweenInc(bbox.MinX(), -180, 180) &&
		mathhelp.BetweenInc(bbox.MaxX(), -180, 180) &&
		mathhelp.BetweenInc(bbox.MinY(), -90, 90) &&
		mathhelp.BetweenInc(bbox.MaxY(), -90, 90)
}

func validLonLat(lon, lat float64) bool {
	return mathhelp.AllFinite(lon, lat) &&
		mathhelp.BetweenInc(lon, -180, 180) &&
		mathhelp.BetweenInc(lat, -90, 90)
}
