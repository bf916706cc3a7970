package reproject

import (
	"context"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/mapvault/tilegrid/crs"
	"github.com/mapvault/tilegrid/extent"
	"github.com/mapvault/tilegrid/mapslicehelp"
)

// Accumulator unions per-source extents (layers, themes) into one extent in a
// fixed reference CRS. Re-adding a source widens its extent, never shrinks
// it, so repeated cache runs keep a stable outer boundary. Not safe for
// concurrent use; accumulate from one goroutine.
type Accumulator struct {
	target    crs.ID
	reg       *crs.Registry
	perSource *orderedmap.OrderedMap[string, extent.BoundingBox]
	total     *extent.BoundingBox
}

// NewAccumulator accumulates extents in the target CRS.
func NewAccumulator(target crs.ID, reg *crs.Registry) *Accumulator {
	return &Accumulator{
		target:    target,
		reg:       reg,
		perSource: orderedmap.New[string, extent.BoundingBox](),
	}
}

// Add transforms bbox from its CRS into the accumulator's target CRS and
// unions it in under the given source name. On a transform failure nothing
// is accumulated and the error is returned; the caller decides whether to
// retry, substitute or go without the extent.
func (a *Accumulator) Add(ctx context.Context, source string, bbox extent.BoundingBox, in crs.ID) error {
	transformed, err := Transform(ctx, bbox, in, a.target, a.reg)
	if err != nil {
		return fmt.Errorf("accumulating extent of %q: %w", source, err)
	}
	if previous, ok := a.perSource.Get(source); ok {
		transformed = extent.Combine(&previous, transformed)
	}
	a.perSource.Set(source, transformed)
	combined := extent.Combine(a.total, transformed)
	a.total = &combined
	return nil
}

// Total returns the union of everything accumulated so far.
// ok is false while nothing has been added.
func (a *Accumulator) Total() (extent.BoundingBox, bool) {
	if a.total == nil {
		return extent.BoundingBox{}, false
	}
	return *a.total, true
}

// Source returns the accumulated extent for one source.
func (a *Accumulator) Source(name string) (extent.BoundingBox, bool) {
	return a.perSource.Get(name)
}

// Sources lists the source names in the order they were first added.
func (a *Accumulator) Sources() []string {
	return mapslicehelp.OrderedMapKeys(a.perSource)
}

// CRS returns the accumulator's fixed target CRS.
func (a *Accumulator) CRS() crs.ID {
	return a.target
}
