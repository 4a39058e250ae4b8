package atlasengine

import (
	"math"
	"testing"
)

func TestLODLevelRes(t *testing.T) {
	want := map[LODLevel]int{
		L0: 32, L1: 64, L2: 128, L3: 192, L4: 256, L5: 384, L6: 512, L7: 768,
	}
	for l, res := range want {
		if got := l.Res(); got != res {
			t.Errorf("L%d.Res() = %d, want %d", l.Level(), got, res)
		}
	}
}

func TestForZoomPartitionsAxis(t *testing.T) {
	tests := []struct {
		zoom float64
		want LODLevel
	}{
		{0.0, L0},
		{0.24, L0},
		{0.25, L1},
		{0.5, L2},
		{1.0, L2},
		{1.5, L4},
		{2.5, L5},
		{4.0, L6},
		{6.0, L7},
		{1000.0, L7},
	}
	for _, tt := range tests {
		if got := forZoom(tt.zoom); got != tt.want {
			t.Errorf("forZoom(%v) = L%d, want L%d", tt.zoom, got.Level(), tt.want.Level())
		}
	}
}

func TestZoomRangeTop(t *testing.T) {
	_, high := L7.ZoomRange()
	if !math.IsInf(high, 1) {
		t.Errorf("L7.ZoomRange() high = %v, want +Inf", high)
	}
}

func TestLODLevelLess(t *testing.T) {
	if !L2.Less(L3) {
		t.Error("L2.Less(L3) = false, want true")
	}
	if L3.Less(L2) {
		t.Error("L3.Less(L2) = true, want false")
	}
	if L2.Less(L2) {
		t.Error("L2.Less(L2) = true, want false")
	}
}
