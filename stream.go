package atlasengine

import "sync"

// AtlasStreamResult is the tagged result the manager emits per event.
// Which payload fields are meaningful depends on the result's variant,
// reported by the Is* methods.
type AtlasStreamResult struct {
	variant streamVariant
	seq     uint64
	lod     LODLevel
	hasLOD  bool

	Message string
	Progress float64

	Atlases []*TextureAtlas
	ElapsedMS int64
	Reason    string

	Err       error
	Retryable bool

	RemovedCount int
}

type streamVariant uint8

const (
	variantLoading streamVariant = iota
	variantProgress
	variantLODReady
	variantLODFailed
	variantAtlasRemoved
)

// Sequence returns the GenerationRequest sequence this result belongs to —
// the sole field consumers use to order/merge results.
func (r AtlasStreamResult) Sequence() uint64 { return r.seq }

// LOD returns the LOD this result concerns and whether one is set (Loading
// may be emitted without a specific LOD).
func (r AtlasStreamResult) LOD() (LODLevel, bool) { return r.lod, r.hasLOD }

func (r AtlasStreamResult) IsLoading() bool      { return r.variant == variantLoading }
func (r AtlasStreamResult) IsProgress() bool     { return r.variant == variantProgress }
func (r AtlasStreamResult) IsLODReady() bool     { return r.variant == variantLODReady }
func (r AtlasStreamResult) IsLODFailed() bool    { return r.variant == variantLODFailed }
func (r AtlasStreamResult) IsAtlasRemoved() bool { return r.variant == variantAtlasRemoved }

func loadingResult(seq uint64, lod LODLevel, hasLOD bool, message string) AtlasStreamResult {
	return AtlasStreamResult{variant: variantLoading, seq: seq, lod: lod, hasLOD: hasLOD, Message: message}
}

func progressResult(seq uint64, lod LODLevel, message string, progress float64) AtlasStreamResult {
	return AtlasStreamResult{variant: variantProgress, seq: seq, lod: lod, hasLOD: true, Message: message, Progress: progress}
}

func lodReadyResult(seq uint64, lod LODLevel, atlases []*TextureAtlas, elapsedMS int64, reason string) AtlasStreamResult {
	return AtlasStreamResult{variant: variantLODReady, seq: seq, lod: lod, hasLOD: true, Atlases: atlases, ElapsedMS: elapsedMS, Reason: reason}
}

func lodFailedResult(seq uint64, lod LODLevel, err error, retryable bool) AtlasStreamResult {
	return AtlasStreamResult{variant: variantLODFailed, seq: seq, lod: lod, hasLOD: true, Err: err, Retryable: retryable}
}

func atlasRemovedResult(seq uint64, lod LODLevel, reason string, removedCount int) AtlasStreamResult {
	return AtlasStreamResult{variant: variantAtlasRemoved, seq: seq, lod: lod, hasLOD: true, Reason: reason, RemovedCount: removedCount}
}

// dedupKey is the (sequence, variant, lod) triple the stream filters
// duplicate emissions on.
type dedupKey struct {
	seq     uint64
	variant streamVariant
	lod     LODLevel
	hasLOD  bool
}

func keyFor(r AtlasStreamResult) dedupKey {
	return dedupKey{seq: r.seq, variant: r.variant, lod: r.lod, hasLOD: r.hasLOD}
}

// streamBufferSize bounds each subscriber's channel; publish drops on a
// full channel rather than blocking or growing memory without bound.
const streamBufferSize = 64

// AtlasStream is a cold-on-subscribe broadcast of AtlasStreamResult: each
// new subscriber immediately receives the latest value (if any) followed by
// every subsequent event. A mutex-guarded registry of output channels, one
// per subscriber.
type AtlasStream struct {
	mu      sync.Mutex
	latest  *AtlasStreamResult
	subs    map[chan AtlasStreamResult]struct{}
	lastKey map[dedupKey]bool
}

// NewAtlasStream returns an empty AtlasStream with no replay value yet.
func NewAtlasStream() *AtlasStream {
	return &AtlasStream{
		subs:    make(map[chan AtlasStreamResult]struct{}),
		lastKey: make(map[dedupKey]bool),
	}
}

// Subscribe returns a channel that receives the current replay value (if
// any) followed by every subsequent publish. The caller should range over
// the channel and must not close it; call Unsubscribe to stop receiving.
func (s *AtlasStream) Subscribe() chan AtlasStreamResult {
	ch := make(chan AtlasStreamResult, streamBufferSize)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	latest := s.latest
	s.mu.Unlock()

	if latest != nil {
		ch <- *latest
	}
	return ch
}

// Unsubscribe removes ch from the broadcast set and closes it.
func (s *AtlasStream) Unsubscribe(ch chan AtlasStreamResult) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// Publish broadcasts result to every current subscriber, after applying the
// sequence==0 discard rule and the (sequence, variant, lod) distinctness
// filter.
func (s *AtlasStream) Publish(result AtlasStreamResult) {
	if result.seq == 0 {
		return
	}

	s.mu.Lock()
	key := keyFor(result)
	if s.lastKey[key] {
		s.mu.Unlock()
		return
	}
	s.lastKey[key] = true
	r := result
	s.latest = &r

	recipients := make([]chan AtlasStreamResult, 0, len(s.subs))
	for ch := range s.subs {
		recipients = append(recipients, ch)
	}
	s.mu.Unlock()

	for _, ch := range recipients {
		select {
		case ch <- result:
		default:
			// Slow subscriber: drop rather than block the publisher, which
			// would stall every other subscriber and the generator itself.
		}
	}
}
