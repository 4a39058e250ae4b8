package atlasengine

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// memorySafetyMargin is the 10% headroom the Memory Manager reserves below
// the device's reported budget.
const memorySafetyMargin = 0.9

// entryState is an AtlasKey's position in the Memory Manager's state
// machine: absent -> Protected -> Live(Protected) -> Live ->
// absent.
type entryState uint8

const (
	stateProtectedOnly entryState = iota // pre-registered, not yet Live
	stateLive
)

// registryEntry is one AtlasKey's bookkeeping row.
type registryEntry struct {
	atlas      *TextureAtlas
	priority   AtlasPriority
	bytes      int64
	state      entryState
	lastAccess time.Time
}

// RequestResult is the outcome of a budget request.
type RequestResult struct {
	OK            bool
	RecommendedLOD LODLevel
	HasRecommendation bool
}

// MemoryStatus summarizes current budget usage for the Query API.
type MemoryStatus struct {
	Budget    int64
	Used      int64
	Pressure  Pressure
	AtlasCount int
}

// MemoryManager handles budget accounting, pressure
// classification, priority-ordered eviction, and the pre-protect/register
// race guard. Register and Touch also record each key in a
// github.com/hashicorp/golang-lru v1 Cache, but eviction order is decided
// from each registry entry's lastAccess timestamp: priority ascending, then
// last access ascending. The LRU cache's own order is not consulted.
type MemoryManager struct {
	mu        sync.RWMutex
	budget    int64
	used      int64
	registry  map[AtlasKey]*registryEntry
	protected map[AtlasKey]bool
	recency   *lru.Cache
	pool      *BitmapPool
	pressure  Pressure

	onPressure func(Pressure)
}

// NewMemoryManager builds a MemoryManager against device's reported budget,
// reduced by memorySafetyMargin, releasing evicted pixel buffers to pool.
func NewMemoryManager(device DeviceCapabilities, pool *BitmapPool) *MemoryManager {
	// golang-lru's v1 Cache requires a positive bounded size; there is no
	// natural upper bound on resident atlas count, so size generously and
	// rely on the manager's own budget accounting (not golang-lru's
	// capacity eviction) to actually bound memory use.
	recency, _ := lru.New(100000)
	return &MemoryManager{
		budget:    int64(float64(device.MemoryBudgetBytes) * memorySafetyMargin),
		registry:  make(map[AtlasKey]*registryEntry),
		protected: make(map[AtlasKey]bool),
		recency:   recency,
		pool:      pool,
	}
}

// OnPressureChange registers a callback invoked whenever pressure crosses
// into a new level.
func (m *MemoryManager) OnPressureChange(fn func(Pressure)) {
	m.mu.Lock()
	m.onPressure = fn
	m.mu.Unlock()
}

// Available returns budget minus used.
func (m *MemoryManager) Available() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.budget - m.used
}

// Request implements the budget request operation: succeed outright if
// there's room; else evict lower-priority atlases (priority asc, last
// access asc) until there's room or nothing left to evict; if still short,
// recommend the highest LOD whose per-photo estimate fits the remaining
// budget.
func (m *MemoryManager) Request(requiredBytes int64, lod LODLevel, priority AtlasPriority, perPhotoEstimate func(LODLevel) int64) RequestResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.budget-m.used >= requiredBytes {
		return RequestResult{OK: true}
	}

	for m.budget-m.used < requiredBytes {
		victim := m.pickEvictionVictimLocked(priority)
		if victim == nil {
			break
		}
		m.evictLocked(*victim)
	}

	if m.budget-m.used >= requiredBytes {
		return RequestResult{OK: true}
	}

	if perPhotoEstimate == nil {
		return RequestResult{OK: false}
	}
	available := m.budget - m.used
	for l := lod; ; l-- {
		if perPhotoEstimate(l) <= available {
			return RequestResult{OK: false, RecommendedLOD: l, HasRecommendation: true}
		}
		if l == L0 {
			break
		}
	}
	return RequestResult{OK: false}
}

// pickEvictionVictimLocked finds the lowest-priority, least-recently-used
// unprotected, strictly-lower-priority-than-requesting key to evict.
// PersistentCache atlases are never eviction candidates: they're the
// permanent fallback guaranteeing every photo has some renderable region,
// so requestOrder (which governs request emission order, not eviction
// precedence) must not apply to them here. Called with mu held.
func (m *MemoryManager) pickEvictionVictimLocked(requesting AtlasPriority) *AtlasKey {
	var best *AtlasKey
	var bestEntry *registryEntry

	for key, entry := range m.registry {
		if m.protected[key] {
			continue
		}
		if entry.state != stateLive {
			continue
		}
		if entry.priority == PersistentCache {
			continue
		}
		if entry.priority.requestOrder() >= requesting.requestOrder() {
			continue
		}
		if best == nil ||
			entry.priority.requestOrder() < bestEntry.priority.requestOrder() ||
			(entry.priority.requestOrder() == bestEntry.priority.requestOrder() && entry.lastAccess.Before(bestEntry.lastAccess)) {
			k := key
			best = &k
			bestEntry = entry
		}
	}
	return best
}

// evictLocked removes key from the registry and recycles its pixels.
// Called with mu held.
func (m *MemoryManager) evictLocked(key AtlasKey) {
	entry, ok := m.registry[key]
	if !ok {
		return
	}
	delete(m.registry, key)
	m.used -= entry.bytes
	if entry.atlas != nil {
		entry.atlas.recycle(m.pool)
	}
	m.recomputePressureLocked()
}

// AddProtected marks keys immune to emergencyCleanup and pre-reserves them
// against the eviction race between allocation and registration: new
// atlases are added to the protected set before registration.
func (m *MemoryManager) AddProtected(keys ...AtlasKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.protected[k] = true
		if _, ok := m.registry[k]; !ok {
			m.registry[k] = &registryEntry{state: stateProtectedOnly}
		}
	}
}

// Unprotect clears the protection flag on keys without touching their
// registry entry.
func (m *MemoryManager) Unprotect(keys ...AtlasKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.protected, k)
	}
}

// Register records atlas as Live under key. Must be preceded by
// AddProtected(key); Register does not itself protect, to
// keep the race-closing step explicit at the call site.
func (m *MemoryManager) Register(key AtlasKey, atlas *TextureAtlas, priority AtlasPriority) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.registry[key]
	if !ok {
		entry = &registryEntry{}
		m.registry[key] = entry
	}
	entry.atlas = atlas
	entry.priority = priority
	entry.bytes = atlas.PixelBytes()
	entry.state = stateLive
	entry.lastAccess = monotonicNow()

	m.used += entry.bytes
	m.recency.Add(key, nil)
	m.recomputePressureLocked()
}

// Unregister removes key from the registry, recycling its pixels if not
// already recycled.
func (m *MemoryManager) Unregister(key AtlasKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.registry[key]
	if !ok {
		return
	}
	delete(m.registry, key)
	delete(m.protected, key)
	if entry.state == stateLive {
		m.used -= entry.bytes
	}
	if entry.atlas != nil {
		entry.atlas.recycle(m.pool)
	}
	m.recomputePressureLocked()
}

// Touch updates key's last_access to now.
func (m *MemoryManager) Touch(key AtlasKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.registry[key]; ok {
		entry.lastAccess = monotonicNow()
		m.recency.Get(key)
	}
}

// EmergencyCleanup evicts half of the unprotected Live atlases, lowest
// priority first.
func (m *MemoryManager) EmergencyCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emergencyCleanupLocked()
}

type evictionCandidate struct {
	key   AtlasKey
	entry *registryEntry
}

func (m *MemoryManager) emergencyCleanupLocked() {
	var candidates []evictionCandidate
	for k, e := range m.registry {
		if e.state != stateLive || m.protected[k] {
			continue
		}
		if e.priority == PersistentCache {
			continue
		}
		candidates = append(candidates, evictionCandidate{k, e})
	}
	if len(candidates) == 0 {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.entry.priority.requestOrder() != b.entry.priority.requestOrder() {
			return a.entry.priority.requestOrder() < b.entry.priority.requestOrder()
		}
		return a.entry.lastAccess.Before(b.entry.lastAccess)
	})

	n := (len(candidates) + 1) / 2
	for i := 0; i < n; i++ {
		m.evictLocked(candidates[i].key)
	}
}

// recomputePressureLocked recalculates Pressure from used/budget and fires
// onPressure on a level change; crossing into Critical auto-invokes
// emergencyCleanup.
func (m *MemoryManager) recomputePressureLocked() {
	next := pressureFor(m.used, m.budget)
	if next == m.pressure {
		return
	}
	m.pressure = next
	if m.onPressure != nil {
		go m.onPressure(next)
	}
	if next == PressureCritical {
		m.emergencyCleanupLocked()
	}
}

// Status reports current budget usage for the Query API.
func (m *MemoryManager) Status() MemoryStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.registry {
		if e.state == stateLive {
			count++
		}
	}
	return MemoryStatus{Budget: m.budget, Used: m.used, Pressure: m.pressure, AtlasCount: count}
}

// Lookup returns the Live atlas registered under key, or nil.
func (m *MemoryManager) Lookup(key AtlasKey) *TextureAtlas {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.registry[key]
	if !ok || entry.state != stateLive {
		return nil
	}
	return entry.atlas
}

// monotonicNow is a process-clock timestamp source, separated out so tests
// can't accidentally depend on wall-clock semantics — it only needs to
// order events within one run.
func monotonicNow() time.Time {
	return time.Now()
}
