package ldb

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/openrelayxyz/cardinal-ldb/buffer"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

var borrowed atomic.Int64

// lease tracks whether a borrowed region has been given back. It must not
// reference the region's memory: the runtime cleanup that abandons the lease
// is attached to that memory.
type lease struct {
	pool *dbpkg.RegionPool
	done atomic.Bool
}

func (l *lease) settle() bool {
	if !l.done.CompareAndSwap(false, true) {
		return false
	}
	borrowedGauge.Update(borrowed.Add(-1))
	return true
}

func (l *lease) abandon() {
	if l.settle() {
		l.pool.Abandon()
	}
}

// ZeroCopyValue is a value borrowed straight from the engine's memory. The
// bytes stay valid until Release is called. A value that is never released
// is given back once neither it nor any slice returned by Bytes is reachable.
type ZeroCopyValue struct {
	region  *dbpkg.Region
	lease   *lease
	cleanup runtime.Cleanup
}

func newZeroCopyValue(r *dbpkg.Region, pool *dbpkg.RegionPool) *ZeroCopyValue {
	v := &ZeroCopyValue{region: r, lease: &lease{pool: pool}}
	if data := r.Bytes(); cap(data) > 0 {
		v.cleanup = runtime.AddCleanup(unsafe.SliceData(data), (*lease).abandon, v.lease)
	} else {
		v.cleanup = runtime.AddCleanup(v, (*lease).abandon, v.lease)
	}
	borrowedGauge.Update(borrowed.Add(1))
	return v
}

// Bytes returns the borrowed value. It returns nil after Release.
func (v *ZeroCopyValue) Bytes() []byte {
	return v.region.Bytes()
}

func (v *ZeroCopyValue) Len() int {
	return v.region.Len()
}

// View returns the borrowed value as an array view.
func (v *ZeroCopyValue) View() buffer.View {
	return buffer.Array(v.Bytes())
}

// Release hands the memory back to the engine. Repeated calls are no-ops.
func (v *ZeroCopyValue) Release() {
	v.cleanup.Stop()
	if v.lease.settle() {
		v.lease.pool.Free(v.region)
	}
}
