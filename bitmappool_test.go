package atlasengine

import "testing"

func TestBitmapPoolAcquireReleaseReuses(t *testing.T) {
	pool := NewBitmapPool(map[Size]int{Size2048: 2})

	buf := pool.Acquire(Size2048)
	if buf == nil {
		t.Fatal("Acquire returned nil")
	}
	pool.Release(buf)

	if got := pool.Len(Size2048); got != 1 {
		t.Errorf("Len(2048) after release = %d, want 1", got)
	}

	reacquired := pool.Acquire(Size2048)
	if reacquired != buf {
		t.Error("Acquire after Release should reuse the pooled buffer")
	}
	if got := pool.Len(Size2048); got != 0 {
		t.Errorf("Len(2048) after reacquire = %d, want 0", got)
	}
}

func TestBitmapPoolCapacityDropsExcess(t *testing.T) {
	pool := NewBitmapPool(map[Size]int{Size2048: 1})

	a := pool.Acquire(Size2048)
	b := pool.Acquire(Size2048)
	pool.Release(a)
	pool.Release(b)

	if got := pool.Len(Size2048); got != 1 {
		t.Errorf("Len(2048) = %d, want 1 (capacity enforced)", got)
	}
}

func TestBitmapPoolOnPressureDrains(t *testing.T) {
	pool := NewBitmapPool(map[Size]int{Size2048: 4})
	pool.Release(pool.Acquire(Size2048))
	pool.Release(pool.Acquire(Size2048))

	pool.OnPressure(PressureHigh)
	if got := pool.Len(Size2048); got != 0 {
		t.Errorf("Len(2048) after High pressure = %d, want 0", got)
	}
}

func TestBitmapPoolCriticalPressureDoesNotDrain(t *testing.T) {
	pool := NewBitmapPool(map[Size]int{Size2048: 4})
	pool.Release(pool.Acquire(Size2048))

	pool.OnPressure(PressureCritical)
	if got := pool.Len(Size2048); got != 1 {
		t.Errorf("Len(2048) after Critical pressure = %d, want 1 (pool itself does not drain)", got)
	}
}
