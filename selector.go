package atlasengine

// PriorityRequest is one entry of the LOD Selector's output: a priority
// bucket paired with the photos it wants resident and why.
type PriorityRequest struct {
	Priority AtlasPriority
	Photos   []PhotoRef
	Reason   string
	LOD      LODLevel
}

// ViewportState is the selector's input snapshot.
type ViewportState struct {
	VisibleCells  []Cell
	Zoom          float64
	Selected      *PhotoRef
	SelectionMode SelectionMode
	ActiveCell    *Cell
}

// Cell is one hex-grid cell's photo membership, in cell-major display
// order — the grid layout itself is an external collaborator;
// the engine only consumes the ordered photo list each cell resolves to.
type Cell struct {
	Photos []PhotoRef
}

// Residency reports the highest LOD a photo is currently resident at, built
// by the caller from the current atlas table.
type Residency map[PhotoRef]LODLevel

// SelectRequests implements: derive an ordered list of
// PriorityRequest from the viewport state, apply each priority's quality
// boost to get an effective LOD, then drop photos already resident at or
// above that LOD. Requests that become empty are dropped entirely.
func SelectRequests(vp ViewportState, persistentCacheInitialized bool, allCanvasPhotos []PhotoRef, existing Residency) []PriorityRequest {
	var out []PriorityRequest

	if !persistentCacheInitialized {
		if req, ok := buildRequest(PersistentCache, allCanvasPhotos, "persistent_cache_cold_start", vp.Zoom, existing); ok {
			out = append(out, req)
		}
	}

	visible := visiblePhotos(vp)
	if req, ok := buildRequest(VisibleCells, visible, "visible_cells", vp.Zoom, existing); ok {
		out = append(out, req)
	}

	if vp.SelectionMode == CellMode && vp.ActiveCell != nil {
		if req, ok := buildRequest(ActiveCell, vp.ActiveCell.Photos, "active_cell", vp.Zoom, existing); ok {
			out = append(out, req)
		}
	}

	if vp.SelectionMode == PhotoMode && vp.Selected != nil {
		if req, ok := buildRequest(SelectedPhoto, []PhotoRef{*vp.Selected}, "selected_photo", vp.Zoom, existing); ok {
			out = append(out, req)
		}
	}

	return out
}

// visiblePhotos is the union of visible cells' photos, minus the selected
// photo when selection_mode == PhotoMode.
func visiblePhotos(vp ViewportState) []PhotoRef {
	var excluded PhotoRef
	hasExcluded := false
	if vp.SelectionMode == PhotoMode && vp.Selected != nil {
		excluded = *vp.Selected
		hasExcluded = true
	}

	seen := make(map[PhotoRef]bool)
	var out []PhotoRef
	for _, cell := range vp.VisibleCells {
		for _, p := range cell.Photos {
			if hasExcluded && p == excluded {
				continue
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// buildRequest computes the effective LOD for priority, filters photos
// against existing residency, and reports ok=false if nothing survives.
// PersistentCache always targets the fixed L0 baseline; every other
// priority derives its effective LOD from the current zoom.
func buildRequest(priority AtlasPriority, photos []PhotoRef, reason string, zoom float64, existing Residency) (PriorityRequest, bool) {
	if len(photos) == 0 {
		return PriorityRequest{}, false
	}

	effective := L0
	if priority != PersistentCache {
		effective = priority.Quality().Apply(forZoom(zoom))
	}

	var kept []PhotoRef
	for _, p := range photos {
		if at, ok := existing[p]; ok && !at.Less(effective) {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return PriorityRequest{}, false
	}

	return PriorityRequest{Priority: priority, Photos: kept, Reason: reason, LOD: effective}, true
}
