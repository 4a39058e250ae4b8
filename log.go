package atlasengine

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the package-level default logger. It is an atomic.Pointer
// so SetLogger can be called concurrently with engine operation without a
// mutex on the hot path — mirroring the lock-free read pattern region.go
// uses for reactive region cells.
var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.Default())
}

// SetLogger overrides the package-level logger used for engine-internal
// diagnostics (the warning DetectDeviceCapabilities logs when it falls
// back to conservative defaults). Passing nil
// restores slog.Default(). Engines constructed with an EngineConfig.Logger
// call this during NewEngine.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	logger.Store(l)
}

func log() *slog.Logger {
	return logger.Load()
}
