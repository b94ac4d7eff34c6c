package mempool

import (
	"sync"
)

// Sized pools for mask and label buffers used on hot paths.

var (
	bytePools sync.Map // key: size class (int), value: *sync.Pool
	intPools  sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor(pools *sync.Map, cls int, newFn func() any) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: newFn})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetBytes retrieves a zeroed []byte buffer of length n from the pool.
// The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	cls := sizeClass(n)
	p := poolFor(&bytePools, cls, func() any { return make([]byte, cls) })
	buf, ok := p.Get().([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return // not allocated by GetBytes
	}
	p := poolFor(&bytePools, cls, func() any { return make([]byte, cls) })
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetInts retrieves a zeroed []int buffer of length n from the pool.
// The caller must return it via PutInts when done.
func GetInts(n int) []int {
	cls := sizeClass(n)
	p := poolFor(&intPools, cls, func() any { return make([]int, cls) })
	buf, ok := p.Get().([]int)
	if !ok || cap(buf) < cls {
		buf = make([]int, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// PutInts returns a buffer to the pool. It is safe to pass a nil slice.
func PutInts(buf []int) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return
	}
	p := poolFor(&intPools, cls, func() any { return make([]int, cls) })
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
