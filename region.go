package atlasengine

import "sync/atomic"

// AtlasRegion describes where a photo landed inside an atlas page, once
// packed. Immutable once written.
type AtlasRegion struct {
	PhotoID      PhotoRef
	AtlasRect    Rect
	OriginalSize Size2D
	ScaledSize   Size2D
	AspectRatio  float64
	LODLevel     LODLevel
}

// Size2D is a plain width/height pair (distinct from the atlas-page Size
// enum, which is always square).
type Size2D struct {
	Width, Height int
}

// RegionCell is a single-producer, multi-consumer observable slot holding
// an optional AtlasRegion. It starts at nil (the "None" state) and transitions
// to non-nil exactly once, after the photo's pixels are composited. Built on
// atomic.Pointer rather than a mutex so the consumer's common-path read is
// lock-free.
type RegionCell struct {
	p atomic.Pointer[AtlasRegion]
}

// Get returns the current region, or nil if the photo hasn't been
// composited into its atlas yet.
func (c *RegionCell) Get() *AtlasRegion {
	return c.p.Load()
}

// set publishes region. Only the builder that owns this cell may call set;
// consumers only ever call Get. Calling set twice is a builder bug (it
// would violate the "never reverts, never rewrites" invariant), so the
// second call is simply ignored rather than silently overwriting an
// observed region out from under a reader.
func (c *RegionCell) set(region AtlasRegion) {
	c.p.CompareAndSwap(nil, &region)
}

// newPendingCell returns a RegionCell in the initial "None" state.
func newPendingCell() *RegionCell {
	return &RegionCell{}
}
