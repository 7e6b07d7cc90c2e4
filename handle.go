package ldb

import (
	"sync"
	"sync/atomic"
	"weak"

	log "github.com/inconshreveable/log15"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

// handle owns an open engine and its region pool. Operations hold the read
// side of lock for their whole duration; only release takes the write side,
// so the engine is never torn down underneath a running call.
type handle struct {
	path string
	// self identifies the handle to the batches it created without keeping
	// it alive.
	self weak.Pointer[handle]

	lock     sync.RWMutex
	released atomic.Bool
	// engine and regions are nil iff the handle has been released.
	engine  dbpkg.Engine
	regions *dbpkg.RegionPool

	batchLock sync.Mutex
	batches   map[uint64]weak.Pointer[WriteBatch]
	batchID   atomic.Uint64
}

func newHandle(path string, engine dbpkg.Engine) *handle {
	h := &handle{
		path:    path,
		engine:  engine,
		regions: dbpkg.NewRegionPool(),
		batches: make(map[uint64]weak.Pointer[WriteBatch]),
	}
	h.self = weak.Make(h)
	return h
}

// acquire takes the shared right and fails with ErrClosed if the handle is
// already released. On success the caller must call h.lock.RUnlock.
func (h *handle) acquire() error {
	h.lock.RLock()
	if h.engine == nil {
		h.lock.RUnlock()
		return ErrClosed
	}
	return nil
}

// release closes the engine exactly once. Concurrent and repeated calls
// return nil without doing anything.
func (h *handle) release() error {
	if h.released.Load() {
		return nil
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.engine == nil {
		return nil
	}
	h.releaseBatches()
	err := h.engine.Close()
	h.regions.Close()
	if n := h.regions.Outstanding(); n > 0 {
		log.Debug("Closing database with borrowed values outstanding", "path", h.path, "regions", n)
	}
	h.engine = nil
	h.regions = nil
	h.released.Store(true)
	log.Debug("Closed database", "path", h.path)
	return engineError("close", err)
}

func (h *handle) registerBatch(b *WriteBatch) uint64 {
	id := h.batchID.Add(1)
	h.batchLock.Lock()
	h.batches[id] = weak.Make(b)
	h.batchLock.Unlock()
	return id
}

func (h *handle) forgetBatch(id uint64) {
	h.batchLock.Lock()
	delete(h.batches, id)
	h.batchLock.Unlock()
}

// releaseBatch frees an engine batch on behalf of a WriteBatch that has
// already marked itself released.
func (h *handle) releaseBatch(id uint64, b dbpkg.Batch) {
	h.forgetBatch(id)
	if err := h.acquire(); err != nil {
		return
	}
	defer h.lock.RUnlock()
	h.engine.ReleaseBatch(b)
}

// releaseBatches frees every batch still alive. Called with the write lock
// held.
func (h *handle) releaseBatches() {
	h.batchLock.Lock()
	live := make([]*WriteBatch, 0, len(h.batches))
	for id, p := range h.batches {
		if b := p.Value(); b != nil {
			live = append(live, b)
		}
		delete(h.batches, id)
	}
	h.batchLock.Unlock()
	for _, b := range live {
		if eb := b.state.markReleased(); eb != nil {
			h.engine.ReleaseBatch(eb)
		}
	}
	if len(live) > 0 {
		log.Debug("Released open write batches", "path", h.path, "count", len(live))
	}
}
