package atlasengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// frameTick is the ≈one-frame wait the manager observes after cancelling
// in-flight work for a superseded LOD, before relaunching on the same LOD
// key.
const frameTick = 16 * time.Millisecond

// jobEntry tracks one LOD's currently in-flight task, keyed by LODLevel in
// the manager's active-job map.
type jobEntry struct {
	cancel context.CancelFunc
	seq    uint64
}

// StreamingManager launches per-LOD generation tasks concurrently via
// errgroup.WithContext, cancels superseded work, and publishes results on
// an AtlasStream.
type StreamingManager struct {
	pool   *AtlasPool
	memory *MemoryManager
	stream *AtlasStream
	config EngineConfig

	rootCtx context.Context

	atlasMu sync.RWMutex
	current map[LODLevel][]*TextureAtlas // streamingManager.atlasMu

	jobMu sync.Mutex
	jobs  map[LODLevel]*jobEntry // streamingManager.jobMu

	seq uint64 // atomically incremented; the sole GenerationRequest.sequence source

	persistentCacheInit atomic.Bool
	persistentCache     atomic.Pointer[[]*TextureAtlas]
}

// NewStreamingManager wires a StreamingManager against its collaborators.
// ctx is the manager's root context; cancelling it stops every in-flight
// task.
func NewStreamingManager(ctx context.Context, pool *AtlasPool, memory *MemoryManager, config EngineConfig) *StreamingManager {
	return &StreamingManager{
		pool:    pool,
		memory:  memory,
		stream:  NewAtlasStream(),
		config:  config,
		rootCtx: ctx,
		current: make(map[LODLevel][]*TextureAtlas),
		jobs:    make(map[LODLevel]*jobEntry),
	}
}

// Stream returns the manager's AtlasStream for subscription.
func (m *StreamingManager) Stream() *AtlasStream { return m.stream }

// OnVisibleCellsChanged is the ViewportEvents callback: it
// derives the surviving PriorityRequests, bumps the sequence, and launches
// one task per request.
func (m *StreamingManager) OnVisibleCellsChanged(ctx context.Context, vp ViewportState, allCanvasPhotos []PhotoRef) {
	seq := atomic.AddUint64(&m.seq, 1)

	m.stream.Publish(loadingResult(seq, 0, false, "viewport changed"))

	if m.persistentCacheInit.Load() {
		if cache := m.persistentCache.Load(); cache != nil {
			m.stream.Publish(lodReadyResult(seq, L0, *cache, 0, "persistent_cache"))
		}
	}

	existing := m.residencySnapshot()
	requests := SelectRequests(vp, m.persistentCacheInit.Load(), allCanvasPhotos, existing)
	if len(requests) == 0 {
		return
	}

	// One task per surviving PriorityRequest, fanned out with
	// errgroup.WithContext. The group runs in the background so
	// OnVisibleCellsChanged itself never blocks on generation.
	g, gctx := errgroup.WithContext(ctx)
	for _, req := range requests {
		req := req
		g.Go(func() error {
			m.launch(gctx, seq, req)
			return nil
		})
	}
	go func() { _ = g.Wait() }()
}

// residencySnapshot builds the dedup map the selector needs: for each
// resident photo, the highest LOD it's currently available at.
func (m *StreamingManager) residencySnapshot() Residency {
	m.atlasMu.RLock()
	defer m.atlasMu.RUnlock()

	out := make(Residency)
	for lod, atlases := range m.current {
		for _, atlas := range atlases {
			for _, p := range atlas.Members() {
				if cur, ok := out[p]; !ok || cur.Less(lod) {
					out[p] = lod
				}
			}
		}
	}
	return out
}

// launch cancels any in-flight task for req.LOD, waits one frame tick, then
// starts a new task bound to seq.
func (m *StreamingManager) launch(ctx context.Context, seq uint64, req PriorityRequest) {
	m.jobMu.Lock()
	prev, hadPrev := m.jobs[req.LOD]
	if hadPrev {
		prev.cancel()
	}
	m.jobMu.Unlock()

	if hadPrev {
		wait := m.config.FrameTick
		if wait <= 0 {
			wait = frameTick
		}
		time.Sleep(wait)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	m.jobMu.Lock()
	m.jobs[req.LOD] = &jobEntry{cancel: cancel, seq: seq}
	m.jobMu.Unlock()

	go m.runTask(taskCtx, seq, req)
}

// runTask builds req's atlases and publishes the LODReady/LODFailed result,
// unless superseded in the meantime. A PersistentCache request always
// builds at L0 regardless of req.LOD (the generic effective-LOD formula
// doesn't apply to it) and installs the result as the permanent cache
// instead of occupying a per-LOD slot in m.current.
func (m *StreamingManager) runTask(ctx context.Context, seq uint64, req PriorityRequest) {
	defer m.clearJob(req.LOD, seq)

	start := time.Now()
	pressure := m.memory.Status().Pressure

	buildLOD := req.LOD
	if req.Priority == PersistentCache {
		buildLOD = L0
	}

	priorityMap := make(map[PhotoRef]PhotoPriority, len(req.Photos))
	for _, p := range req.Photos {
		priorityMap[p] = PhotoPriorityNormal
	}

	buildReq := BuildRequest{
		LOD:           buildLOD,
		Photos:        req.Photos,
		Priority:      req.Priority,
		PhotoPriority: priorityMap,
		Strategy:      FitCenter,
	}

	outcome, err := m.pool.Build(ctx, pressure, buildReq)
	if ctx.Err() != nil {
		return // cancelled/superseded: never emits LODFailed
	}
	if err != nil {
		retryable := true
		if e, ok := err.(*Error); ok {
			retryable = e.Kind == KindGenerationFailed
		}
		m.stream.Publish(lodFailedResult(seq, buildLOD, err, retryable))
		return
	}

	if req.Priority == PersistentCache {
		m.SetPersistentCache(outcome.Atlases)
		elapsed := time.Since(start).Milliseconds()
		m.stream.Publish(lodReadyResult(seq, L0, outcome.Atlases, elapsed, req.Reason))
		return
	}

	m.atlasMu.Lock()
	m.current[buildLOD] = outcome.Atlases
	m.atlasMu.Unlock()

	elapsed := time.Since(start).Milliseconds()
	m.stream.Publish(lodReadyResult(seq, buildLOD, outcome.Atlases, elapsed, req.Reason))
}

func (m *StreamingManager) clearJob(lod LODLevel, seq uint64) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	if entry, ok := m.jobs[lod]; ok && entry.seq == seq {
		delete(m.jobs, lod)
	}
}

// SetPersistentCache installs the zero-wait fallback cache.
func (m *StreamingManager) SetPersistentCache(atlases []*TextureAtlas) {
	cp := append([]*TextureAtlas(nil), atlases...)
	m.persistentCache.Store(&cp)
	m.persistentCacheInit.Store(true)
}

// CurrentAtlases returns the resident atlases for lod.
func (m *StreamingManager) CurrentAtlases(lod LODLevel) []*TextureAtlas {
	m.atlasMu.RLock()
	defer m.atlasMu.RUnlock()
	return append([]*TextureAtlas(nil), m.current[lod]...)
}

// RemoveLOD drops lod's resident atlases, unregisters them from the memory
// manager, and publishes AtlasRemoved — used by
// cleanup_high_detail_for_deselection.
func (m *StreamingManager) RemoveLOD(lod LODLevel, reason string) {
	m.atlasMu.Lock()
	atlases := m.current[lod]
	delete(m.current, lod)
	m.atlasMu.Unlock()

	for _, atlas := range atlases {
		key := NewAtlasKey(lod, atlas.Size(), atlas.Members())
		m.memory.Unregister(key)
	}

	seq := atomic.AddUint64(&m.seq, 1)
	m.stream.Publish(atlasRemovedResult(seq, lod, reason, len(atlases)))
}
