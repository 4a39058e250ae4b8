package atlasengine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BuildRequest is one atlas pool build job: a photo set destined for a
// single LOD, plus the context driving its memory/tier decisions.
type BuildRequest struct {
	LOD        LODLevel
	Photos     []PhotoRef
	Priority   AtlasPriority
	PhotoPriority map[PhotoRef]PhotoPriority
	Strategy   ScaleStrategy
}

// AtlasPool handles strategy selection, distribution,
// chunked parallel builds, and the immediate-availability fast path.
//
// Parallel group builds are chunked with a channel-based semaphore
// (`make(chan struct{}, maxConcurrent)` acquire/release), composed with an
// errgroup.Group per chunk so one failed build doesn't abandon its chunk
// siblings.
type AtlasPool struct {
	device    DeviceCapabilities
	memory    *MemoryManager
	bitmaps   *BitmapPool
	processor *Processor
	config    EngineConfig
}

// NewAtlasPool wires the pool's four collaborators together.
func NewAtlasPool(device DeviceCapabilities, memory *MemoryManager, bitmaps *BitmapPool, processor *Processor, config EngineConfig) *AtlasPool {
	return &AtlasPool{device: device, memory: memory, bitmaps: bitmaps, processor: processor, config: config}
}

// BuildOutcome is one LOD's completed atlas generation.
type BuildOutcome struct {
	Atlases []*TextureAtlas
	Failed  []PhotoRef
}

// Build runs the full pipeline for one request: pick a
// distribution strategy, compute groups, pack each group, composite
// photos, and register the resulting atlases with the memory manager.
// Atlases from cancelled or failed builds are never registered — no
// partial atlas is ever registered with the memory manager.
func (p *AtlasPool) Build(ctx context.Context, pressure Pressure, req BuildRequest) (BuildOutcome, error) {
	if len(req.Photos) == 0 {
		return BuildOutcome{}, newPhotoError(KindNoInput, PhotoRef{}, nil)
	}

	entries := p.entriesFor(req)
	sizes := p.device.RecommendedSizesOrDefault()

	totalArea := int64(0)
	for _, e := range entries {
		totalArea += e.area()
	}
	estimatedCount := EstimateAtlasCount(totalArea, req.LOD, sizes[len(sizes)-1])
	hasHigh := req.Priority == SelectedPhoto || anyHighPriority(req)

	strategy := SelectStrategy(pressure, p.device.PerformanceTier, estimatedCount, hasHigh)
	groups := p.computeGroups(strategy, entries, sizes, req.LOD)

	maxParallel := p.config.ParallelBuilds.ForTier(p.device.PerformanceTier, pressure)
	return p.buildGroups(ctx, groups, req.LOD, req.Strategy, req.Priority, maxParallel)
}

// GenerateImmediate implements immediate-availability mode:
// compute groups and publish empty, pre-protected atlases right away, then
// populate them asynchronously. Returned atlases are pre-protected but not
// yet registered: each is registered with the memory manager once its
// population finishes (a cancelled one is recycled instead). Callers
// observe per-photo progress via TextureAtlas.Region.
func (p *AtlasPool) GenerateImmediate(ctx context.Context, pressure Pressure, req BuildRequest, onDone func(BuildOutcome)) []*TextureAtlas {
	if len(req.Photos) == 0 {
		return nil
	}

	entries := p.entriesFor(req)
	sizes := p.device.RecommendedSizesOrDefault()

	totalArea := int64(0)
	for _, e := range entries {
		totalArea += e.area()
	}
	estimatedCount := EstimateAtlasCount(totalArea, req.LOD, sizes[len(sizes)-1])
	hasHigh := req.Priority == SelectedPhoto || anyHighPriority(req)
	strategy := SelectStrategy(pressure, p.device.PerformanceTier, estimatedCount, hasHigh)
	groups := p.computeGroups(strategy, entries, sizes, req.LOD)

	var atlases []*TextureAtlas
	for _, g := range groups {
		buf := p.bitmaps.Acquire(g.Size)
		atlas := newTextureAtlas(buf, req.LOD, g.Size, g.Photos)
		key := NewAtlasKey(req.LOD, g.Size, g.Photos)
		p.memory.AddProtected(key)
		atlases = append(atlases, atlas)
	}

	go func() {
		maxParallel := p.config.ParallelBuilds.ForTier(p.device.PerformanceTier, pressure)
		outcome, _ := p.populateGroups(ctx, groups, atlases, req.LOD, req.Strategy, req.Priority, maxParallel)
		if onDone != nil {
			onDone(outcome)
		}
	}()

	return atlases
}

func anyHighPriority(req BuildRequest) bool {
	for _, pr := range req.PhotoPriority {
		if pr == PhotoPriorityHigh {
			return true
		}
	}
	return false
}

func (p *AtlasPool) entriesFor(req BuildRequest) []photoEntry {
	entries := make([]photoEntry, 0, len(req.Photos))
	res := req.LOD.Res()
	for _, ref := range req.Photos {
		w, h := scaledDimsFor(ref, res, req.Strategy)
		pr := PhotoPriorityNormal
		if req.PhotoPriority != nil {
			pr = req.PhotoPriority[ref]
		}
		entries = append(entries, photoEntry{ref: ref, width: w, height: h, priority: pr})
	}
	return entries
}

// scaledDimsFor estimates a photo's scaled footprint without decoding, for
// distribution purposes only — the processor computes the authoritative
// size once it actually decodes.
func scaledDimsFor(ref PhotoRef, res int, strategy ScaleStrategy) (int, int) {
	if strategy == CenterCrop {
		return res, res
	}
	if ref.OriginalWidth == 0 || ref.OriginalHeight == 0 {
		return res, res
	}
	if ref.OriginalWidth >= ref.OriginalHeight {
		h := res * ref.OriginalHeight / ref.OriginalWidth
		if h < 1 {
			h = 1
		}
		return res, h
	}
	w := res * ref.OriginalWidth / ref.OriginalHeight
	if w < 1 {
		w = 1
	}
	return w, res
}

func (p *AtlasPool) computeGroups(strategy DistributionStrategy, entries []photoEntry, sizes []Size, lod LODLevel) []Group {
	switch strategy {
	case StrategyPriorityBased:
		return PriorityBased(entries, sizes, lod)
	case StrategyMultiSize:
		return MultiSize(entries, sizes, lod)
	default:
		return SingleSize(entries, sizes[0])
	}
}

// buildGroups allocates a fresh atlas per group then delegates to
// populateGroups.
func (p *AtlasPool) buildGroups(ctx context.Context, groups []Group, lod LODLevel, strategy ScaleStrategy, priority AtlasPriority, maxParallel int) (BuildOutcome, error) {
	atlases := make([]*TextureAtlas, len(groups))
	for i, g := range groups {
		buf := p.bitmaps.Acquire(g.Size)
		atlases[i] = newTextureAtlas(buf, lod, g.Size, g.Photos)
		key := NewAtlasKey(lod, g.Size, g.Photos)
		p.memory.AddProtected(key)
	}
	return p.populateGroups(ctx, groups, atlases, lod, strategy, priority, maxParallel)
}

// populateGroups packs and composites every group's photos in chunks of
// maxParallel, releasing any buffer whose build is cancelled back to the
// pool without registering it.
func (p *AtlasPool) populateGroups(ctx context.Context, groups []Group, atlases []*TextureAtlas, lod LODLevel, strategy ScaleStrategy, priority AtlasPriority, maxParallel int) (BuildOutcome, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	sem := make(chan struct{}, maxParallel)

	var mu sync.Mutex
	var outcome BuildOutcome

	// A fresh errgroup per chunk of maxParallel groups; each chunk is waited
	// on before the next one starts.
	var g *errgroup.Group
	var gctx context.Context
	for i := range groups {
		i := i
		if i%maxParallel == 0 {
			if g != nil {
				_ = g.Wait()
			}
			g, gctx = errgroup.WithContext(ctx)
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()

			atlas := atlases[i]
			failed := p.populateOne(gctx, atlas, groups[i], lod, strategy, priority)

			if gctx.Err() != nil {
				key := NewAtlasKey(lod, groups[i].Size, groups[i].Photos)
				p.memory.Unprotect(key)
				atlas.recycle(p.bitmaps)
				return nil
			}

			key := NewAtlasKey(lod, groups[i].Size, groups[i].Photos)
			p.memory.Register(key, atlas, priority)

			mu.Lock()
			outcome.Atlases = append(outcome.Atlases, atlas)
			outcome.Failed = append(outcome.Failed, failed...)
			mu.Unlock()
			return nil
		})
	}
	if g != nil {
		_ = g.Wait()
	}

	if len(outcome.Atlases) == 0 {
		return outcome, newPhotoError(KindGenerationFailed, PhotoRef{}, nil)
	}
	return outcome, nil
}

// populateOne packs one group's rectangles and composites each photo into
// atlas, returning photos that failed to decode or pack.
func (p *AtlasPool) populateOne(ctx context.Context, atlas *TextureAtlas, group Group, lod LODLevel, strategy ScaleStrategy, priority AtlasPriority) []PhotoRef {
	inputs := make([]PackInput, 0, len(group.Photos))
	processed := make(map[PhotoRef]*ProcessedPhoto, len(group.Photos))
	var failed []PhotoRef

	for _, ref := range group.Photos {
		if ctx.Err() != nil {
			return failed
		}
		pp, err := p.processor.Process(ctx, ref, lod, strategy, PhotoPriorityNormal)
		if err != nil {
			if isCancelled(err) {
				return failed
			}
			failed = append(failed, ref)
			continue
		}
		processed[ref] = pp
		b := pp.Pixels.Bounds()
		inputs = append(inputs, PackInput{ID: ref, Width: b.Dx(), Height: b.Dy()})
	}

	result := Pack(inputs, atlas.Size())
	for _, f := range result.Failed {
		failed = append(failed, f.ID)
	}

	for _, packedRect := range result.Packed {
		if ctx.Err() != nil {
			return failed
		}
		pp := processed[packedRect.ID]
		if pp == nil {
			continue
		}
		compositePhoto(atlas, packedRect, pp)
	}

	return failed
}

func isCancelled(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindCancelled
}
