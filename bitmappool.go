package atlasengine

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// BitmapPool is a size-partitioned free list of atlas-sized pixel buffers,
// bucketed over the closed set of three legal atlas sizes with fixed
// per-size capacities rather than an unbounded growth map.
type BitmapPool struct {
	mu        sync.Mutex
	free      map[Size][]*ebiten.Image
	capacity  map[Size]int
	drainable bool // false only while the last OnPressure level was Critical
}

// NewBitmapPool creates a BitmapPool with the given per-size capacities.
// Sizes absent from capacity default to 0 (no pooling — always allocate).
func NewBitmapPool(capacity map[Size]int) *BitmapPool {
	return &BitmapPool{
		free:      make(map[Size][]*ebiten.Image),
		capacity:  capacity,
		drainable: true,
	}
}

// Acquire returns a validated, transparent-cleared buffer of exactly
// size×size, reusing a pooled one if available, else allocating new —
// mirroring renderTexturePool.Acquire's "validate then clear on reuse"
// idiom.
func (p *BitmapPool) Acquire(size Size) *ebiten.Image {
	p.mu.Lock()
	stack := p.free[size]
	if len(stack) > 0 {
		img := stack[len(stack)-1]
		p.free[size] = stack[:len(stack)-1]
		p.mu.Unlock()
		img.Clear()
		return img
	}
	p.mu.Unlock()

	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, int(size), int(size)),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns buf to its size's free list, or recycles it (lets it be
// garbage collected) if that list is already at capacity.
func (p *BitmapPool) Release(buf *ebiten.Image) {
	if buf == nil {
		return
	}
	b := buf.Bounds()
	size := Size(b.Dx())
	if b.Dx() != b.Dy() {
		return // not an atlas-shaped buffer; nothing sane to pool it as
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free[size]) >= p.capacity[size] {
		return // at capacity: drop it, let GC reclaim
	}
	p.free[size] = append(p.free[size], buf)
}

// OnPressure drains free lists on Low/Medium/High pressure; Critical
// cleanup is the memory manager's job, not the bitmap
// pool's, so Critical is a no-op here.
func (p *BitmapPool) OnPressure(pressure Pressure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainable = pressure != PressureCritical
	if pressure == PressureCritical || pressure == PressureNormal {
		return
	}
	p.free = make(map[Size][]*ebiten.Image)
}

// Len reports how many buffers of size are currently pooled, for tests and
// diagnostics.
func (p *BitmapPool) Len(size Size) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[size])
}
