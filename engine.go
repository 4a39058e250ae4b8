package atlasengine

import "context"

// Engine is the top-level façade wiring every subsystem together: memory
// manager, bitmap pool, photo processor, atlas pool, and streaming manager,
// leaves-first: device capabilities → memory manager → bitmap pool → photo
// processor → packer → atlas pool → streaming manager → consumers.
type Engine struct {
	cancel context.CancelFunc

	Memory  *MemoryManager
	Bitmaps *BitmapPool
	Manager *StreamingManager
	Query   *QueryAPI
}

// NewEngine constructs every subsystem for device, decoding photos via
// decoder, within device's reported memory budget.
func NewEngine(device DeviceCapabilities, decoder ImageDecoder, config EngineConfig) *Engine {
	if config.Logger != nil {
		SetLogger(config.Logger)
	}

	bitmaps := NewBitmapPool(config.BitmapPoolCapacity)
	mem := NewMemoryManager(device, bitmaps)
	if config.MemoryBudgetFraction > 0 {
		mem.budget = int64(float64(device.MemoryBudgetBytes) * config.MemoryBudgetFraction)
	}

	processor := NewProcessor(decoder)
	pool := NewAtlasPool(device, mem, bitmaps, processor, config)

	ctx, cancel := context.WithCancel(context.Background())
	manager := NewStreamingManager(ctx, pool, mem, config)

	mem.OnPressureChange(func(p Pressure) {
		bitmaps.OnPressure(p)
	})

	return &Engine{
		cancel:  cancel,
		Memory:  mem,
		Bitmaps: bitmaps,
		Manager: manager,
		Query:   NewQueryAPI(manager),
	}
}

// Stream returns the engine's AtlasStream.
func (e *Engine) Stream() *AtlasStream { return e.Manager.Stream() }

// OnVisibleCellsChanged forwards to the streaming manager.
func (e *Engine) OnVisibleCellsChanged(visibleCells []Cell, zoom float64, selected *PhotoRef, mode SelectionMode, activeCell *Cell, allCanvasPhotos []PhotoRef) {
	vp := ViewportState{
		VisibleCells:  visibleCells,
		Zoom:          zoom,
		Selected:      selected,
		SelectionMode: mode,
		ActiveCell:    activeCell,
	}
	e.Manager.OnVisibleCellsChanged(e.Manager.rootCtx, vp, allCanvasPhotos)
}

// Close cancels every in-flight generation task and releases root
// resources. The engine is unusable after Close.
func (e *Engine) Close() {
	e.cancel()
}
