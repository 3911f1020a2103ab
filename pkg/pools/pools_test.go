package pools

import (
	"sync"
	"testing"
)

func TestFloat64Pool_Get(t *testing.T) {
	pool := NewFloat64Pool()

	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"small", 12},
		{"small_exact", SmallSize},
		{"medium", 1000},
		{"large", LargeSize},
		{"huge", LargeSize + 1},
		{"oversized", MaxPool + 10}, // Allocated directly
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := pool.Get(tt.size)
			if len(v) != tt.size {
				t.Errorf("Get(%d) length = %d", tt.size, len(v))
			}
			pool.Put(v)
		})
	}
}

func TestFloat64Pool_ReuseIsZeroed(t *testing.T) {
	pool := NewFloat64Pool()

	for i := 0; i < 10; i++ {
		v := pool.Get(SmallSize)
		for j := range v {
			v[j] = float64(j + 1)
		}
		pool.Put(v)
	}

	v := pool.Get(100)
	for j, x := range v {
		if x != 0 {
			t.Fatalf("reused slice not cleared at %d: %v", j, x)
		}
	}
}

func TestFloat64Pool_UndersizedNotReturnedForLargerRequest(t *testing.T) {
	pool := NewFloat64Pool()

	// capacity 300 covers the small class only
	pool.Put(make([]float64, 300))
	v := pool.Get(1000)
	if len(v) != 1000 || cap(v) < 1000 {
		t.Errorf("Get(1000) = len %d cap %d", len(v), cap(v))
	}

	pool.Put(make([]float64, 10)) // below every class, dropped
	pool.Put(make([]float64, MaxPool+1))
}

func TestDefaultFloat64Pool(t *testing.T) {
	v := GetFloat64s(50)
	if len(v) != 50 {
		t.Errorf("GetFloat64s(50) length = %d", len(v))
	}
	PutFloat64s(v)
}

func TestFloat64Pool_Concurrent(t *testing.T) {
	pool := NewFloat64Pool()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := pool.Get(n)
				for k := range v {
					if v[k] != 0 {
						t.Error("dirty slice")
						return
					}
					v[k] = 1
				}
				pool.Put(v)
			}
		}(i * 10)
	}

	wg.Wait()
}
