package atlasengine

import "testing"

func TestRegionCellStartsNone(t *testing.T) {
	cell := newPendingCell()
	if cell.Get() != nil {
		t.Error("expected a freshly created RegionCell to start at None")
	}
}

func TestRegionCellTransitionsOnce(t *testing.T) {
	cell := newPendingCell()
	ref := PhotoRef{URI: "a"}

	cell.set(AtlasRegion{PhotoID: ref, LODLevel: L2})
	first := cell.Get()
	if first == nil || first.PhotoID != ref {
		t.Fatalf("expected Some(region) after set, got %+v", first)
	}

	cell.set(AtlasRegion{PhotoID: PhotoRef{URI: "b"}, LODLevel: L5})
	second := cell.Get()
	if second.PhotoID != ref || second.LODLevel != L2 {
		t.Errorf("expected second set to be ignored, got %+v", second)
	}
}
