package ldb

import (
	"runtime"
	"sync"
	"weak"

	"github.com/openrelayxyz/cardinal-ldb/buffer"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

// batchState is everything a WriteBatch owns. It never points back at the
// WriteBatch, so the runtime cleanup can use it after the batch is gone.
type batchState struct {
	lock     sync.Mutex
	batch    dbpkg.Batch // nil once released
	reserves map[string][]byte

	owner weak.Pointer[handle]
	id    uint64
}

// markReleased detaches the engine batch and returns it, or nil if another
// path already did.
func (s *batchState) markReleased() dbpkg.Batch {
	s.lock.Lock()
	defer s.lock.Unlock()
	b := s.batch
	s.batch = nil
	s.reserves = nil
	return b
}

func (s *batchState) release() {
	b := s.markReleased()
	if b == nil {
		return
	}
	if h := s.owner.Value(); h != nil {
		h.releaseBatch(s.id, b)
	}
}

// flushReserves copies reserved values into the engine batch. Called with
// lock held.
func (s *batchState) flushReserves() {
	for k, v := range s.reserves {
		s.batch.Put([]byte(k), v)
	}
	clear(s.reserves)
}

// WriteBatch collects mutations applied atomically by DB.Write. A batch may
// be written several times. It is not safe for concurrent mutation.
type WriteBatch struct {
	state   *batchState
	cleanup runtime.Cleanup
}

// NewWriteBatch returns an empty batch bound to db. The batch is released by
// Close, or by db.Close if it is still open then.
func (db *DB) NewWriteBatch() (*WriteBatch, error) {
	if err := db.h.acquire(); err != nil {
		return nil, err
	}
	defer db.h.lock.RUnlock()
	s := &batchState{
		batch:    db.h.engine.NewBatch(),
		reserves: make(map[string][]byte),
		owner:    db.h.self,
	}
	b := &WriteBatch{state: s}
	s.id = db.h.registerBatch(b)
	b.cleanup = runtime.AddCleanup(b, (*batchState).release, s)
	return b, nil
}

func (b *WriteBatch) mutate(fn func(dbpkg.Batch)) error {
	s := b.state
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.batch == nil {
		return ErrClosed
	}
	fn(s.batch)
	return nil
}

// Put records a write of value at key. Both slices are copied.
func (b *WriteBatch) Put(key, value []byte) error {
	return b.mutate(func(eb dbpkg.Batch) {
		delete(b.state.reserves, string(key))
		eb.Put(key, value)
	})
}

func (b *WriteBatch) Delete(key []byte) error {
	return b.mutate(func(eb dbpkg.Batch) {
		delete(b.state.reserves, string(key))
		eb.Delete(key)
	})
}

// PutView is Put for views; foreign views are copied through buffer.Default.
func (b *WriteBatch) PutView(key, value buffer.View) error {
	k, releaseKey, err := resolve(key)
	defer releaseKey()
	if err != nil {
		return err
	}
	v, releaseValue, err := resolve(value)
	defer releaseValue()
	if err != nil {
		return err
	}
	return b.Put(k, v)
}

func (b *WriteBatch) DeleteView(key buffer.View) error {
	k, release, err := resolve(key)
	defer release()
	if err != nil {
		return err
	}
	return b.Delete(k)
}

// PutReserve returns a slice of size bytes that will be stored at key when
// the batch is written. It can be filled in place, for example by decoding
// directly into it. A later Put or Delete of the same key discards the
// reservation.
func (b *WriteBatch) PutReserve(key []byte, size int) ([]byte, error) {
	var out []byte
	err := b.mutate(func(dbpkg.Batch) {
		out = make([]byte, size)
		b.state.reserves[string(key)] = out
	})
	return out, err
}

// Len is the number of recorded mutations, reservations included.
func (b *WriteBatch) Len() int {
	s := b.state
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.batch == nil {
		return 0
	}
	return s.batch.Len() + len(s.reserves)
}

// Reset drops every recorded mutation so the batch can be reused.
func (b *WriteBatch) Reset() error {
	return b.mutate(func(eb dbpkg.Batch) {
		clear(b.state.reserves)
		eb.Reset()
	})
}

// Close releases the batch. It is safe to call more than once, and after the
// owning database has been closed.
func (b *WriteBatch) Close() error {
	b.cleanup.Stop()
	b.state.release()
	return nil
}
