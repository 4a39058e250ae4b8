package atlasengine

import "fmt"

// PhotoRef is an opaque, comparable handle identifying a source photo and
// its original pixel dimensions. PhotoRef is immutable and safe to use as a
// map key: a flat value type meant to be copied and compared by value.
type PhotoRef struct {
	URI           string
	OriginalWidth int
	OriginalHeight int
}

// String implements fmt.Stringer for debug logging.
func (p PhotoRef) String() string {
	return fmt.Sprintf("%s(%dx%d)", p.URI, p.OriginalWidth, p.OriginalHeight)
}

// Area returns the original pixel area. The distributor does not use it: it
// sorts by each photo's scaled area at the target LOD.
func (p PhotoRef) Area() int64 {
	return int64(p.OriginalWidth) * int64(p.OriginalHeight)
}

// PhotoPriority drives scheduling fairness. It never affects LOD selection
// — see AtlasPriority for that.
type PhotoPriority uint8

const (
	PhotoPriorityNormal PhotoPriority = iota
	PhotoPriorityHigh
)

func (p PhotoPriority) String() string {
	if p == PhotoPriorityHigh {
		return "HIGH"
	}
	return "NORMAL"
}

// SelectionMode distinguishes whether "selection" means a whole grid cell
// or a single photo.
type SelectionMode uint8

const (
	CellMode SelectionMode = iota
	PhotoMode
)

// Pressure is a coarse memory-utilization level driving distribution
// strategy and eviction aggressiveness.
type Pressure uint8

const (
	PressureNormal Pressure = iota
	PressureLow
	PressureMedium
	PressureHigh
	PressureCritical
)

func (p Pressure) String() string {
	switch p {
	case PressureNormal:
		return "normal"
	case PressureLow:
		return "low"
	case PressureMedium:
		return "medium"
	case PressureHigh:
		return "high"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// pressureFor derives Pressure from a used/budget ratio using the
// thresholds from  (0.80 / 0.90 / 0.98 / 0.99).
func pressureFor(used, budget int64) Pressure {
	if budget <= 0 {
		return PressureCritical
	}
	ratio := float64(used) / float64(budget)
	switch {
	case ratio >= 0.99:
		return PressureCritical
	case ratio >= 0.98:
		return PressureHigh
	case ratio >= 0.90:
		return PressureMedium
	case ratio >= 0.80:
		return PressureLow
	default:
		return PressureNormal
	}
}

// PerformanceTier classifies the host device's rendering headroom.
type PerformanceTier uint8

const (
	TierLow PerformanceTier = iota
	TierMedium
	TierHigh
)

func (t PerformanceTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Size is a square atlas-page edge length in pixels.
type Size int

// Legal atlas page sizes. A device's recommended set is always a subset of
// these three, smallest first.
const (
	Size2048 Size = 2048
	Size4096 Size = 4096
	Size8192 Size = 8192
)

// AllSizes lists every legal atlas size, smallest first.
var AllSizes = []Size{Size2048, Size4096, Size8192}

// Rect is an axis-aligned pixel rectangle with the origin at the top-left,
// Y increasing downward.
type Rect struct {
	X, Y, Width, Height int
}

// Contains reports whether r fully contains other.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// Intersects reports whether r and other overlap (sharing only an edge
// does not count as overlap — two packed regions butting up against each
// other without padding would otherwise register as a packer bug).
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width &&
		r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height &&
		r.Y+r.Height > other.Y
}

// Area returns width*height.
func (r Rect) Area() int64 {
	return int64(r.Width) * int64(r.Height)
}
