package atlasengine

import "testing"

func TestNewAtlasKeyOrderIndependent(t *testing.T) {
	a := []PhotoRef{{URI: "a"}, {URI: "b"}, {URI: "c"}}
	b := []PhotoRef{{URI: "c"}, {URI: "a"}, {URI: "b"}}

	ka := NewAtlasKey(L3, Size2048, a)
	kb := NewAtlasKey(L3, Size2048, b)
	if ka != kb {
		t.Errorf("NewAtlasKey should be order-independent: %v != %v", ka, kb)
	}
}

func TestNewAtlasKeyDeterministic(t *testing.T) {
	photos := []PhotoRef{{URI: "x"}, {URI: "y"}}
	k1 := NewAtlasKey(L2, Size4096, photos)
	k2 := NewAtlasKey(L2, Size4096, photos)
	if k1 != k2 {
		t.Error("NewAtlasKey should be deterministic for the same inputs")
	}
}

func TestNewAtlasKeyDistinguishesLODAndSize(t *testing.T) {
	photos := []PhotoRef{{URI: "x"}}
	base := NewAtlasKey(L2, Size2048, photos)

	if NewAtlasKey(L3, Size2048, photos) == base {
		t.Error("different LOD should produce a different key")
	}
	if NewAtlasKey(L2, Size4096, photos) == base {
		t.Error("different size should produce a different key")
	}
}

func TestNewAtlasKeyDistinguishesPhotoSet(t *testing.T) {
	k1 := NewAtlasKey(L2, Size2048, []PhotoRef{{URI: "a"}})
	k2 := NewAtlasKey(L2, Size2048, []PhotoRef{{URI: "b"}})
	if k1 == k2 {
		t.Error("different photo sets should produce different keys")
	}
}

func TestTextureAtlasPixelBytes(t *testing.T) {
	atlas := newTextureAtlas(nil, L3, Size2048, nil)
	want := int64(Size2048) * int64(Size2048) * 4
	if got := atlas.PixelBytes(); got != want {
		t.Errorf("PixelBytes = %d, want %d", got, want)
	}
}

func TestTextureAtlasMembersAndRegion(t *testing.T) {
	refs := []PhotoRef{{URI: "a"}, {URI: "b"}}
	atlas := newTextureAtlas(nil, L1, Size2048, refs)

	if got := atlas.Members(); len(got) != 2 {
		t.Errorf("Members() = %v, want 2 entries", got)
	}
	if atlas.Region(refs[0]) == nil {
		t.Error("expected a pending region cell for a known member")
	}
	if atlas.Region(PhotoRef{URI: "unknown"}) != nil {
		t.Error("expected nil region for a non-member photo")
	}
}

func TestTextureAtlasUtilizationGrowsWithPublishedRegions(t *testing.T) {
	refs := []PhotoRef{{URI: "a"}}
	atlas := newTextureAtlas(nil, L1, Size2048, refs)

	if u := atlas.Utilization(); u != 0 {
		t.Errorf("Utilization before publish = %v, want 0", u)
	}

	atlas.publish(PackedRect{ID: refs[0], Rect: Rect{X: 0, Y: 0, Width: 100, Height: 100}}, Size2D{}, Size2D{Width: 100, Height: 100}, 1.0)

	if u := atlas.Utilization(); u <= 0 {
		t.Errorf("Utilization after publish = %v, want > 0", u)
	}
}
