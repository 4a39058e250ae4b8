package atlasengine

import (
	"fmt"
	"hash/maphash"
	"image"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
)

// atlasPadding is the fixed padding (in pixels) enforced on every side of a
// packed region.
const atlasPadding = 2

// TextureAtlas holds one atlas page's pixels plus every photo packed into
// it, each with a reactive region cell tracking its composite state.
//
// pixels is an *ebiten.Image used purely as an off-screen, CPU-addressable
// compositing canvas (see SPEC_FULL.md §1) — the engine never draws this
// image to a window.
type TextureAtlas struct {
	pixels     *ebiten.Image
	lodLevel   LODLevel
	size       Size
	photoIDs   []PhotoRef // insertion order, for utilization/debug only
	regions    map[PhotoRef]*RegionCell
	pixelBytes int64
}

// newTextureAtlas allocates a TextureAtlas backed by buf (acquired from the
// BitmapPool) with a pending reactive-region slot for every member photo.
func newTextureAtlas(buf *ebiten.Image, lod LODLevel, size Size, members []PhotoRef) *TextureAtlas {
	regions := make(map[PhotoRef]*RegionCell, len(members))
	for _, p := range members {
		regions[p] = newPendingCell()
	}
	return &TextureAtlas{
		pixels:     buf,
		lodLevel:   lod,
		size:       size,
		photoIDs:   append([]PhotoRef(nil), members...),
		regions:    regions,
		pixelBytes: int64(size) * int64(size) * 4,
	}
}

// LODLevel returns the single LOD every region in this atlas was generated
// at.
func (a *TextureAtlas) LODLevel() LODLevel { return a.lodLevel }

// Size returns the atlas page's edge length.
func (a *TextureAtlas) Size() Size { return a.size }

// Pixels returns the underlying compositing canvas. Callers in the
// rendering pipeline may read it; only the builder that owns this atlas
// during construction writes to it.
func (a *TextureAtlas) Pixels() *ebiten.Image { return a.pixels }

// PixelBytes returns the atlas page's footprint in bytes (size² × 4), used
// by the memory manager's budget accounting.
func (a *TextureAtlas) PixelBytes() int64 { return a.pixelBytes }

// Region returns the reactive cell for photo, or nil if photo is not a
// member of this atlas.
func (a *TextureAtlas) Region(photo PhotoRef) *RegionCell {
	return a.regions[photo]
}

// Members returns every photo this atlas was built to hold, in insertion
// order.
func (a *TextureAtlas) Members() []PhotoRef {
	return append([]PhotoRef(nil), a.photoIDs...)
}

// Utilization returns Σ region_area / atlas_area across every photo that
// has transitioned to Some(region) so far.
func (a *TextureAtlas) Utilization() float64 {
	var sum int64
	for _, cell := range a.regions {
		if r := cell.Get(); r != nil {
			sum += r.AtlasRect.Area()
		}
	}
	atlasArea := int64(a.size) * int64(a.size)
	if atlasArea == 0 {
		return 0
	}
	return float64(sum) / float64(atlasArea)
}

// publish records a packed rect as an AtlasRegion and transitions the
// matching reactive cell from None to Some. Called by the atlas builder
// once a photo's pixels have been composited onto a.pixels.
func (a *TextureAtlas) publish(rect PackedRect, original, scaled Size2D, aspect float64) {
	cell, ok := a.regions[rect.ID]
	if !ok {
		return
	}
	cell.set(AtlasRegion{
		PhotoID:      rect.ID,
		AtlasRect:    rect.Rect,
		OriginalSize: original,
		ScaledSize:   scaled,
		AspectRatio:  aspect,
		LODLevel:     a.lodLevel,
	})
}

// compositePhoto writes pp's scaled pixels into atlas at the location
// packedRect assigns it, then publishes the reactive region. Uses a direct
// pixel write into the atlas's backing image rather than a draw call, since
// this module never renders the atlas itself.
func compositePhoto(atlas *TextureAtlas, packedRect PackedRect, pp *ProcessedPhoto) {
	r := packedRect.Rect
	dstRect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	sub := atlas.pixels.SubImage(dstRect).(*ebiten.Image)
	sub.WritePixels(pp.Pixels.Pix)

	atlas.publish(packedRect, pp.OriginalSize, pp.ScaledSize, pp.AspectRatio)
}

// recycle releases the pixel buffer back to pool. Called by the memory
// manager on eviction/unregistration, never by readers.
func (a *TextureAtlas) recycle(pool *BitmapPool) {
	if a.pixels != nil {
		pool.Release(a.pixels)
		a.pixels = nil
	}
}

// AtlasKey identifies a built atlas for memory-manager bookkeeping
//: the LOD, the physical size, and a deterministic hash of
// the sorted member photo refs, so two atlases holding the same photo set
// at the same LOD/size compare equal regardless of build order.
type AtlasKey struct {
	LODLevel   LODLevel
	AtlasSize  Size
	PhotosHash uint64
}

// atlasKeySeed is a fixed maphash seed so PhotosHash is deterministic across
// calls within a process — maphash normally reseeds per-process to resist
// hash-flooding, which we don't need for a same-process dedup key, but we do
// need the same photo set to hash identically for the lifetime of a run.
var atlasKeySeed = maphash.MakeSeed()

// NewAtlasKey computes the AtlasKey for a packed photo set. photos need not
// be pre-sorted; NewAtlasKey sorts a copy by URI before hashing so ordering
// never affects the key.
//
// hash/maphash is used rather than a third-party hashing library: nothing
// in the example pack imports one (the closest candidates — goleveldb,
// pgx — bring their own internal hashing that isn't exposed as a general
// "hash these strings" API), and maphash is the standard, idiomatic choice
// for an in-process, non-cryptographic dedup key.
func NewAtlasKey(lod LODLevel, size Size, photos []PhotoRef) AtlasKey {
	sorted := append([]PhotoRef(nil), photos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URI < sorted[j].URI })

	var h maphash.Hash
	h.SetSeed(atlasKeySeed)
	for _, p := range sorted {
		_, _ = h.WriteString(p.URI)
		_, _ = h.WriteString("\x00")
	}
	return AtlasKey{LODLevel: lod, AtlasSize: size, PhotosHash: h.Sum64()}
}

func (k AtlasKey) String() string {
	return fmt.Sprintf("L%d/%d/%x", k.LODLevel.Level(), k.AtlasSize, k.PhotosHash)
}
