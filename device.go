package atlasengine

// DeviceCapabilities describes the host's rendering and memory headroom.
// The engine consumes this; it never mutates it.
type DeviceCapabilities struct {
	MemoryBudgetBytes     int64
	MaxAtlasSize          Size
	RecommendedAtlasSizes []Size
	PerformanceTier       PerformanceTier
}

// RecommendedSizesOrDefault returns RecommendedAtlasSizes, falling back to
// every size up to MaxAtlasSize if the caller left it unset.
func (d DeviceCapabilities) RecommendedSizesOrDefault() []Size {
	if len(d.RecommendedAtlasSizes) > 0 {
		return d.RecommendedAtlasSizes
	}
	var out []Size
	for _, s := range AllSizes {
		if s <= d.MaxAtlasSize {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []Size{Size2048}
	}
	return out
}

// SmallestSize returns the smallest size in RecommendedSizesOrDefault.
func (d DeviceCapabilities) SmallestSize() Size {
	sizes := d.RecommendedSizesOrDefault()
	smallest := sizes[0]
	for _, s := range sizes[1:] {
		if s < smallest {
			smallest = s
		}
	}
	return smallest
}

// DetectDeviceCapabilities produces a best-effort DeviceCapabilities for
// hosts that don't already have a device profile, grounded on
// geotiff2pmtiles/internal/tile.ComputeMemoryLimit: a fraction of total
// system RAM, minus fixed runtime headroom, clamped to a sane minimum, then
// classified into a PerformanceTier by total RAM.
func DetectDeviceCapabilities(budgetFraction float64) DeviceCapabilities {
	totalRAM, err := totalSystemRAM()
	if err != nil || totalRAM == 0 {
		log().Warn("atlasengine: device RAM detection failed, using conservative defaults", "error", err)
		return DeviceCapabilities{
			MemoryBudgetBytes:     512 * 1024 * 1024,
			MaxAtlasSize:          Size2048,
			RecommendedAtlasSizes: []Size{Size2048},
			PerformanceTier:       TierLow,
		}
	}

	const runtimeHeadroom = 256 * 1024 * 1024
	budget := int64(float64(totalRAM)*budgetFraction) - runtimeHeadroom
	if budget < 128*1024*1024 {
		budget = 128 * 1024 * 1024
	}

	tier := tierForRAM(totalRAM)
	maxSize, sizes := sizesForTier(tier)

	return DeviceCapabilities{
		MemoryBudgetBytes:     budget,
		MaxAtlasSize:          maxSize,
		RecommendedAtlasSizes: sizes,
		PerformanceTier:       tier,
	}
}

func tierForRAM(totalRAM uint64) PerformanceTier {
	const gb = 1024 * 1024 * 1024
	switch {
	case totalRAM >= 8*gb:
		return TierHigh
	case totalRAM >= 3*gb:
		return TierMedium
	default:
		return TierLow
	}
}

func sizesForTier(tier PerformanceTier) (Size, []Size) {
	switch tier {
	case TierHigh:
		return Size8192, []Size{Size2048, Size4096, Size8192}
	case TierMedium:
		return Size4096, []Size{Size2048, Size4096}
	default:
		return Size2048, []Size{Size2048}
	}
}
