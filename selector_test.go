package atlasengine

import "testing"

func photoRef(uri string) PhotoRef { return PhotoRef{URI: uri} }

func TestSelectRequestsEmitsPersistentCacheOnlyWhenCold(t *testing.T) {
	all := []PhotoRef{photoRef("a"), photoRef("b")}
	vp := ViewportState{Zoom: 1.0}

	got := SelectRequests(vp, false, all, Residency{})
	if len(got) == 0 || got[0].Priority != PersistentCache {
		t.Fatalf("expected PersistentCache request first when cold, got %+v", got)
	}

	got = SelectRequests(vp, true, all, Residency{})
	for _, r := range got {
		if r.Priority == PersistentCache {
			t.Errorf("expected no PersistentCache request once initialized, got %+v", got)
		}
	}
}

func TestSelectRequestsVisibleCellsUnionsAndExcludesSelected(t *testing.T) {
	vp := ViewportState{
		VisibleCells: []Cell{
			{Photos: []PhotoRef{photoRef("a"), photoRef("b")}},
			{Photos: []PhotoRef{photoRef("b"), photoRef("c")}},
		},
		SelectionMode: PhotoMode,
		Selected:      &PhotoRef{URI: "b"},
		Zoom:          1.0,
	}

	got := SelectRequests(vp, true, nil, Residency{})

	var visible *PriorityRequest
	for i := range got {
		if got[i].Priority == VisibleCells {
			visible = &got[i]
		}
	}
	if visible == nil {
		t.Fatal("expected a VisibleCells request")
	}
	want := map[string]bool{"a": true, "c": true}
	if len(visible.Photos) != len(want) {
		t.Fatalf("VisibleCells photos = %+v, want exactly %v", visible.Photos, want)
	}
	for _, p := range visible.Photos {
		if !want[p.URI] {
			t.Errorf("unexpected photo %v in VisibleCells (selected photo should be excluded)", p)
		}
	}
}

func TestSelectRequestsActiveCellOnlyInCellMode(t *testing.T) {
	cell := &Cell{Photos: []PhotoRef{photoRef("x")}}

	vp := ViewportState{SelectionMode: CellMode, ActiveCell: cell, Zoom: 1.0}
	got := SelectRequests(vp, true, nil, Residency{})
	found := false
	for _, r := range got {
		if r.Priority == ActiveCell {
			found = true
		}
	}
	if !found {
		t.Error("expected ActiveCell request in CellMode with a non-nil active cell")
	}

	vp.SelectionMode = PhotoMode
	got = SelectRequests(vp, true, nil, Residency{})
	for _, r := range got {
		if r.Priority == ActiveCell {
			t.Error("did not expect ActiveCell request outside CellMode")
		}
	}
}

func TestSelectRequestsSelectedPhotoOnlyInPhotoMode(t *testing.T) {
	sel := &PhotoRef{URI: "s"}
	vp := ViewportState{SelectionMode: PhotoMode, Selected: sel, Zoom: 1.0}

	got := SelectRequests(vp, true, nil, Residency{})
	found := false
	for _, r := range got {
		if r.Priority == SelectedPhoto {
			found = true
			if r.LOD != L7 {
				t.Errorf("SelectedPhoto LOD = %v, want L7 (QualityMaximum)", r.LOD)
			}
		}
	}
	if !found {
		t.Error("expected a SelectedPhoto request in PhotoMode with a selection")
	}
}

func TestSelectRequestsDropsAlreadyResidentPhotos(t *testing.T) {
	vp := ViewportState{
		VisibleCells: []Cell{{Photos: []PhotoRef{photoRef("a")}}},
		Zoom:         1.0, // forZoom(1.0) resolves to L2
	}
	existing := Residency{photoRef("a"): L4} // resident above the effective LOD

	got := SelectRequests(vp, true, nil, existing)
	for _, r := range got {
		if r.Priority == VisibleCells {
			t.Errorf("expected VisibleCells request to be dropped entirely, got %+v", r)
		}
	}
}

func TestSelectRequestsEmptyRequestDropped(t *testing.T) {
	vp := ViewportState{Zoom: 1.0}
	got := SelectRequests(vp, true, nil, Residency{})
	if len(got) != 0 {
		t.Errorf("expected no requests when nothing is visible/active/selected, got %+v", got)
	}
}
