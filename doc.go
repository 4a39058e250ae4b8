// Package atlasengine is a streaming, multi-resolution texture atlas engine
// for a photo gallery rendered on a zoomable, pannable 2D canvas.
//
// Given a stream of viewport updates (visible cells, zoom, selection), the
// engine decides which photos need to be resident at which resolution
// ("level of detail", or LOD), generates the corresponding atlas textures on
// a background worker pool without blocking the caller, and evicts atlases
// under memory pressure without ever leaving a photo with nothing to render.
//
// The engine owns no window and draws nothing itself — it is consumed by an
// external rendering pipeline (see [AtlasStream]) that already knows how to
// draw a [TextureAtlas] page to screen.
//
// # Quick start
//
//	eng := atlasengine.NewEngine(device, decoder, atlasengine.DefaultConfig())
//	defer eng.Close()
//
//	sub := eng.Stream().Subscribe()
//	go func() {
//		for res := range sub {
//			// res is an AtlasStreamResult; merge on res.Sequence().
//		}
//	}()
//
//	eng.OnVisibleCellsChanged(visibleCells, zoom, nil, atlasengine.CellMode, &activeCell, allPhotos)
//
// # Key subsystems
//
// The LOD selector is the free function [SelectRequests], which decides what
// needs generating; [StreamingManager] launches and cancels per-LOD tasks;
// [AtlasPool] distributes photos across atlas pages and builds them in
// parallel; [Pack] places rectangles inside a fixed-size canvas;
// [MemoryManager] enforces a device-aware byte budget with priority+LRU
// eviction; [BitmapPool] reuses atlas-sized pixel buffers; [RegionCell]
// publishes per-photo availability as atlases fill in.
package atlasengine
