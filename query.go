package atlasengine

// QueryAPI implements read-side contract over a
// StreamingManager: best_region, region_at, persistent_cache,
// memory_status, cleanup_high_detail_for_deselection.
type QueryAPI struct {
	manager *StreamingManager
}

// NewQueryAPI wraps manager with the read-only query surface.
func NewQueryAPI(manager *StreamingManager) *QueryAPI {
	return &QueryAPI{manager: manager}
}

// BestRegion returns the highest-LOD resident region for photo, falling
// back to the persistent cache if nothing else is resident.
func (q *QueryAPI) BestRegion(photo PhotoRef) (*TextureAtlas, *AtlasRegion, bool) {
	for l := L7; ; l-- {
		if atlas, region, ok := q.regionAtExact(photo, l); ok {
			return atlas, region, true
		}
		if l == L0 {
			break
		}
	}

	if cache := q.manager.persistentCache.Load(); cache != nil {
		for _, atlas := range *cache {
			if cell := atlas.Region(photo); cell != nil {
				if region := cell.Get(); region != nil {
					return atlas, region, true
				}
			}
		}
	}

	return nil, nil, false
}

// RegionAt returns photo's region at preferredLOD, falling back to
// progressively lower LODs if preferredLOD isn't resident.
func (q *QueryAPI) RegionAt(photo PhotoRef, preferredLOD LODLevel) (*TextureAtlas, *AtlasRegion, bool) {
	for l := preferredLOD; ; l-- {
		if atlas, region, ok := q.regionAtExact(photo, l); ok {
			return atlas, region, true
		}
		if l == L0 {
			break
		}
	}
	return nil, nil, false
}

func (q *QueryAPI) regionAtExact(photo PhotoRef, lod LODLevel) (*TextureAtlas, *AtlasRegion, bool) {
	for _, atlas := range q.manager.CurrentAtlases(lod) {
		if cell := atlas.Region(photo); cell != nil {
			if region := cell.Get(); region != nil {
				return atlas, region, true
			}
		}
	}
	return nil, nil, false
}

// PersistentCache returns the installed persistent-cache atlas set, if any.
func (q *QueryAPI) PersistentCache() ([]*TextureAtlas, bool) {
	cache := q.manager.persistentCache.Load()
	if cache == nil {
		return nil, false
	}
	return *cache, true
}

// MemoryStatus reports the current budget/pressure snapshot.
func (q *QueryAPI) MemoryStatus() MemoryStatus {
	return q.manager.memory.Status()
}

// CleanupHighDetailForDeselection synchronously drops L7's atlases and
// emits AtlasRemoved.
func (q *QueryAPI) CleanupHighDetailForDeselection() {
	q.manager.RemoveLOD(L7, "deselection")
}
