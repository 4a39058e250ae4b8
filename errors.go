package atlasengine

import "fmt"

// Kind classifies an engine-level failure, so callers and internal
// bookkeeping (failed-photo lists, retry decisions) can switch on a stable
// type instead of a string. Processor.Process returns DecodeFailure and
// Cancelled errors, and AtlasPool.Build returns NoInput and
// GenerationFailed errors; of these, only GenerationFailed reaches the
// AtlasStream (as LODFailed).
type Kind uint8

const (
	// KindNoInput marks an empty request. AtlasPool.Build returns it as an
	// error together with an empty BuildOutcome. The streaming manager
	// never builds an empty request, so it never appears on the stream.
	KindNoInput Kind = iota
	// KindDecodeFailure is a per-photo decode failure; recorded in a LOD's
	// failed list, never fails the whole atlas.
	KindDecodeFailure
	// KindPackingFailure is a per-photo packing failure (rectangle too
	// large for any atlas size); recorded in the failed list.
	KindPackingFailure
	// KindAllocationFailure means no memory was available for a group.
	// No code in this package returns it: the atlas pool does not request
	// budget before building, and no smaller-group or lower-LOD retry
	// exists.
	KindAllocationFailure
	// KindCancelled marks work discarded due to supersession. Silently
	// dropped, never surfaced as LODFailed.
	KindCancelled
	// KindGenerationFailed means a LOD produced zero atlases with photos;
	// emitted as LODFailed{Retryable: true}.
	KindGenerationFailed
)

func (k Kind) String() string {
	switch k {
	case KindNoInput:
		return "no_input"
	case KindDecodeFailure:
		return "decode_failure"
	case KindPackingFailure:
		return "packing_failure"
	case KindAllocationFailure:
		return "allocation_failure"
	case KindCancelled:
		return "cancelled"
	case KindGenerationFailed:
		return "generation_failed"
	default:
		return "unknown"
	}
}

// Error is the engine's typed error, carrying a Kind and, for per-photo
// failures, the offending PhotoRef.
type Error struct {
	Kind  Kind
	Photo PhotoRef // zero value if not photo-specific
	Err   error    // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Photo.URI != "" {
		if e.Err != nil {
			return fmt.Sprintf("atlasengine: %s: %s: %v", e.Kind, e.Photo, e.Err)
		}
		return fmt.Sprintf("atlasengine: %s: %s", e.Kind, e.Photo)
	}
	if e.Err != nil {
		return fmt.Sprintf("atlasengine: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("atlasengine: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newPhotoError builds a per-photo Error.
func newPhotoError(kind Kind, photo PhotoRef, err error) *Error {
	return &Error{Kind: kind, Photo: photo, Err: err}
}
