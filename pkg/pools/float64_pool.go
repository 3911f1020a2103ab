package pools

import (
	"sync"
)

// Vector size classes, in elements
const (
	SmallSize  = 256
	MediumSize = 4096
	LargeSize  = 65536
	MaxPool    = 1 << 20 // Don't pool vectors larger than this
)

// Float64Pool provides size-class based pooling for float64 slices.
type Float64Pool struct {
	small  sync.Pool // <= 256 elements
	medium sync.Pool // <= 4096 elements
	large  sync.Pool // <= 65536 elements
	huge   sync.Pool // <= MaxPool elements
}

func newClass(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			v := make([]float64, 0, size)
			return &v
		},
	}
}

// NewFloat64Pool creates an empty pool
func NewFloat64Pool() *Float64Pool {
	return &Float64Pool{
		small:  newClass(SmallSize),
		medium: newClass(MediumSize),
		large:  newClass(LargeSize),
		huge:   newClass(MaxPool),
	}
}

func (p *Float64Pool) class(size int) *sync.Pool {
	switch {
	case size <= SmallSize:
		return &p.small
	case size <= MediumSize:
		return &p.medium
	case size <= LargeSize:
		return &p.large
	case size <= MaxPool:
		return &p.huge
	default:
		return nil
	}
}

// Get returns a zeroed slice of length size.
func (p *Float64Pool) Get(size int) []float64 {
	pool := p.class(size)
	if pool == nil {
		return make([]float64, size)
	}
	vp, ok := pool.Get().(*[]float64)
	if !ok || cap(*vp) < size {
		return make([]float64, size)
	}
	v := (*vp)[:size]
	clear(v)
	return v
}

// Put returns a slice to the pool. The caller must not use it afterwards.
func (p *Float64Pool) Put(v []float64) {
	c := cap(v)
	if c == 0 || c > MaxPool {
		return
	}
	// File under the largest class the capacity fully covers
	var pool *sync.Pool
	switch {
	case c >= MaxPool:
		pool = &p.huge
	case c >= LargeSize:
		pool = &p.large
	case c >= MediumSize:
		pool = &p.medium
	case c >= SmallSize:
		pool = &p.small
	default:
		return
	}
	v = v[:0]
	pool.Put(&v)
}

// Default global pool
var defaultFloat64Pool = NewFloat64Pool()

// GetFloat64s returns a zeroed slice from the default pool.
func GetFloat64s(size int) []float64 {
	return defaultFloat64Pool.Get(size)
}

// PutFloat64s returns a slice to the default pool.
func PutFloat64s(v []float64) {
	defaultFloat64Pool.Put(v)
}
