package db

import (
	"sync"
	"sync/atomic"
)

// Region is engine-owned memory holding one value returned by Get. It stays
// valid until it is handed back to the pool it came from with Free.
type Region struct {
	data   []byte
	pooled bool
	freed  atomic.Bool
}

// Bytes returns the value held by the region.
func (r *Region) Bytes() []byte {
	return r.data
}

func (r *Region) Len() int {
	return len(r.data)
}

// Size buckets: 256B, 1KB, 4KB, 16KB, 64KB
var regionBuckets = [5]int{
	256,
	1024,
	4 * 1024,
	16 * 1024,
	64 * 1024,
}

// RegionPool allocates result regions and takes them back once readers are
// done with them. It plays the role of the engine's decompression allocator:
// value buffers are recycled instead of being left to the garbage collector.
type RegionPool struct {
	pools       [len(regionBuckets)]sync.Pool
	outstanding atomic.Int64
	closed      atomic.Bool
}

func NewRegionPool() *RegionPool {
	p := &RegionPool{}
	for i := range p.pools {
		size := regionBuckets[i]
		p.pools[i].New = func() any {
			buf := make([]byte, 0, size)
			return &buf
		}
	}
	return p
}

func bucketFor(size int) int {
	for i, b := range regionBuckets {
		if size <= b {
			return i
		}
	}
	return -1
}

// Alloc returns a region of exactly n bytes. Contents are unspecified.
func (p *RegionPool) Alloc(n int) *Region {
	p.outstanding.Add(1)
	bucket := bucketFor(n)
	if bucket < 0 || p.closed.Load() {
		return &Region{data: make([]byte, n)}
	}
	bufPtr := p.pools[bucket].Get().(*[]byte)
	return &Region{data: (*bufPtr)[:n], pooled: true}
}

// Adopt wraps a slice the engine already allocated for this read. It is never
// recycled.
func (p *RegionPool) Adopt(b []byte) *Region {
	p.outstanding.Add(1)
	return &Region{data: b}
}

// Free returns r to the pool. Freeing a region more than once is a no-op.
func (p *RegionPool) Free(r *Region) {
	if r == nil || !r.freed.CompareAndSwap(false, true) {
		return
	}
	p.outstanding.Add(-1)
	data := r.data
	r.data = nil
	if !r.pooled || p.closed.Load() {
		return
	}
	if bucket := bucketFor(cap(data)); bucket >= 0 && cap(data) == regionBuckets[bucket] {
		data = data[:0]
		p.pools[bucket].Put(&data)
	}
}

// Abandon accounts for a region whose memory became unreachable without
// being freed. The memory is left to the garbage collector.
func (p *RegionPool) Abandon() {
	p.outstanding.Add(-1)
}

// Outstanding reports how many regions have been handed out and not freed.
func (p *RegionPool) Outstanding() int64 {
	return p.outstanding.Load()
}

// Close stops recycling. Regions still held by readers stay valid and may be
// freed afterwards.
func (p *RegionPool) Close() {
	p.closed.Store(true)
}
