package ldb

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	log "github.com/inconshreveable/log15"
	"github.com/openrelayxyz/cardinal-ldb/buffer"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
	"github.com/openrelayxyz/cardinal-types/metrics"
)

var (
	getHitMeter     = metrics.NewMinorMeter("/ldb/get/hit")
	getMissMeter    = metrics.NewMinorMeter("/ldb/get/miss")
	keyCopyMeter    = metrics.NewMinorMeter("/ldb/key/copy")
	batchWriteMeter = metrics.NewMinorMeter("/ldb/batch/write")
	borrowedGauge   = metrics.NewMinorGauge("/ldb/regions/borrowed")
)

// DB is an open database. All methods are safe for concurrent use. Close
// waits for in-flight calls to finish; calls made after Close fail with
// ErrClosed.
//
// A DB that becomes unreachable without being closed is closed by the
// runtime eventually. That is a safety net; callers should Close.
type DB struct {
	h       *handle
	cleanup runtime.Cleanup
}

// Open opens the database at path. A nil opts means DefaultOptions().
// Configuration is validated before anything is allocated.
func Open(path string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	open, engineOpts := opts.engine()
	engine, err := open(path, engineOpts)
	if err != nil {
		if errors.Is(err, dbpkg.ErrUnsupported) {
			err = fmt.Errorf("%w: %w", ErrUnsupportedConfiguration, err)
		}
		return nil, &OpenError{Path: path, Err: err}
	}
	h := newHandle(path, engine)
	db := &DB{h: h}
	db.cleanup = runtime.AddCleanup(db, releaseLeaked, h)
	log.Debug("Opened database", "path", path)
	return db, nil
}

func releaseLeaked(h *handle) {
	if h.released.Load() {
		return
	}
	log.Warn("Database was not closed before being discarded", "path", h.path)
	if err := h.release(); err != nil {
		log.Error("Error releasing discarded database", "path", h.path, "err", err)
	}
}

// Close releases the engine. It blocks until in-flight calls return, and
// calling it again is a no-op.
func (db *DB) Close() error {
	err := db.h.release()
	db.cleanup.Stop()
	return err
}

// read runs fn on the region holding key's value while the shared right is
// held. fn owns the region and must free or keep it.
func (db *DB) read(op string, key buffer.View, ro *ReadOptions, fn func(*dbpkg.Region, *dbpkg.RegionPool) error) (bool, error) {
	if ro == nil {
		ro = DefaultReadOptions()
	}
	if ro.Snapshot != nil {
		return false, unsupported(op + " from snapshot")
	}
	if err := db.h.acquire(); err != nil {
		return false, err
	}
	defer db.h.lock.RUnlock()
	k, release, err := buffer.Resolve(key, ro.allocator())
	defer release()
	if err != nil {
		return false, err
	}
	if key.Kind() == buffer.KindForeign {
		keyCopyMeter.Mark(1)
	}
	region, err := db.h.engine.Get(k, &dbpkg.ReadOptions{
		VerifyChecksums: ro.VerifyChecksums,
		FillCache:       ro.FillCache,
		Regions:         db.h.regions,
	})
	if err == dbpkg.ErrNotFound {
		getMissMeter.Mark(1)
		return false, nil
	}
	if err != nil {
		return false, engineError(op, err)
	}
	getHitMeter.Mark(1)
	return true, fn(region, db.h.regions)
}

// Get returns a copy of the value stored at key. found is false when the key
// is absent.
func (db *DB) Get(key []byte, ro *ReadOptions) (value []byte, found bool, err error) {
	found, err = db.read("get", buffer.Array(key), ro, func(r *dbpkg.Region, pool *dbpkg.RegionPool) error {
		value = make([]byte, r.Len())
		copy(value, r.Bytes())
		pool.Free(r)
		return nil
	})
	return value, found, err
}

// GetView copies the value stored at key into a buffer allocated from
// ro.Allocator in the ro.Output representation. It returns nil when the key
// is absent. The caller releases the buffer.
func (db *DB) GetView(key buffer.View, ro *ReadOptions) (*buffer.Buffer, error) {
	if ro == nil {
		ro = DefaultReadOptions()
	}
	var out *buffer.Buffer
	_, err := db.read("get", key, ro, func(r *dbpkg.Region, pool *dbpkg.RegionPool) error {
		defer pool.Free(r)
		buf, err := ro.allocator().Allocate(ro.Output, r.Len())
		if err != nil {
			return err
		}
		if buf.Len() != r.Len() {
			n := buf.Len()
			buf.Release()
			return fmt.Errorf("%w: allocator returned %d bytes for a %d byte value", buffer.ErrBounds, n, r.Len())
		}
		copy(buf.Bytes(), r.Bytes())
		out = buf
		return nil
	})
	return out, err
}

// GetInto writes the value stored at key to dst. found is false, and nothing
// is written, when the key is absent.
func (db *DB) GetInto(key buffer.View, dst io.Writer, ro *ReadOptions) (found bool, err error) {
	return db.read("get", key, ro, func(r *dbpkg.Region, pool *dbpkg.RegionPool) error {
		defer pool.Free(r)
		_, err := dst.Write(r.Bytes())
		return err
	})
}

// GetZeroCopy returns the value stored at key without copying it out of the
// engine's memory, or nil when the key is absent. The value must be released.
func (db *DB) GetZeroCopy(key buffer.View, ro *ReadOptions) (*ZeroCopyValue, error) {
	var out *ZeroCopyValue
	_, err := db.read("get", key, ro, func(r *dbpkg.Region, pool *dbpkg.RegionPool) error {
		out = newZeroCopyValue(r, pool)
		return nil
	})
	return out, err
}

// ZeroCopyGet invokes a closure providing the value at the specified key. The
// value should be parsed and processed within the closure, as its memory is
// reused once the closure returns. fn is not called when the key is absent.
func (db *DB) ZeroCopyGet(key []byte, ro *ReadOptions, fn func([]byte) error) (bool, error) {
	v, err := db.GetZeroCopy(buffer.Array(key), ro)
	if err != nil || v == nil {
		return false, err
	}
	defer v.Release()
	return true, fn(v.Bytes())
}

func (db *DB) write(op string, wo *WriteOptions, fn func(dbpkg.Engine, *dbpkg.WriteOptions) error) error {
	if wo == nil {
		wo = &WriteOptions{}
	}
	if wo.Snapshot {
		return unsupported(op + " returning snapshot")
	}
	if err := db.h.acquire(); err != nil {
		return err
	}
	defer db.h.lock.RUnlock()
	return fn(db.h.engine, &dbpkg.WriteOptions{Sync: wo.Sync})
}

func (db *DB) Put(key, value []byte, wo *WriteOptions) error {
	return db.write("put", wo, func(e dbpkg.Engine, o *dbpkg.WriteOptions) error {
		return engineError("put", e.Put(key, value, o))
	})
}

func (db *DB) Delete(key []byte, wo *WriteOptions) error {
	return db.write("delete", wo, func(e dbpkg.Engine, o *dbpkg.WriteOptions) error {
		return engineError("delete", e.Delete(key, o))
	})
}

// PutView stores value at key. Views that are not directly addressable are
// copied into temporaries from buffer.Default first.
func (db *DB) PutView(key, value buffer.View, wo *WriteOptions) error {
	return db.write("put", wo, func(e dbpkg.Engine, o *dbpkg.WriteOptions) error {
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
		return engineError("put", e.Put(k, v, o))
	})
}

func (db *DB) DeleteView(key buffer.View, wo *WriteOptions) error {
	return db.write("delete", wo, func(e dbpkg.Engine, o *dbpkg.WriteOptions) error {
		k, release, err := resolve(key)
		defer release()
		if err != nil {
			return err
		}
		return engineError("delete", e.Delete(k, o))
	})
}

func resolve(v buffer.View) ([]byte, func(), error) {
	b, release, err := buffer.Resolve(v, buffer.Default)
	if err == nil && v.Kind() == buffer.KindForeign {
		keyCopyMeter.Mark(1)
	}
	return b, release, err
}

// Write applies every mutation in b atomically. Only one goroutine can write
// a given batch at a time; others wait.
func (db *DB) Write(b *WriteBatch, wo *WriteOptions) error {
	if b == nil {
		return fmt.Errorf("nil write batch")
	}
	return db.write("write", wo, func(e dbpkg.Engine, o *dbpkg.WriteOptions) error {
		s := b.state
		if s.owner != db.h.self {
			return ErrForeignBatch
		}
		s.lock.Lock()
		defer s.lock.Unlock()
		if s.batch == nil {
			return ErrClosed
		}
		s.flushReserves()
		if err := e.Write(s.batch, o); err != nil {
			return engineError("write", err)
		}
		batchWriteMeter.Mark(1)
		return nil
	})
}

// CompactRange compacts the keys in [start, limit). A nil bound leaves that
// side of the range open.
func (db *DB) CompactRange(start, limit []byte) error {
	if err := db.h.acquire(); err != nil {
		return err
	}
	defer db.h.lock.RUnlock()
	return engineError("compact", db.h.engine.CompactRange(start, limit))
}

// Iterator walks key / value pairs. No engine exposed through DB supports
// iteration; the type exists for NewIterator's signature.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Range is a key range [Start, Limit).
type Range struct {
	Start []byte
	Limit []byte
}

func (db *DB) NewIterator(ro *ReadOptions) (Iterator, error) {
	return nil, unsupported("iterator")
}

func (db *DB) GetSnapshot() (*Snapshot, error) {
	return nil, unsupported("snapshot")
}

func (db *DB) GetApproximateSizes(ranges ...Range) ([]uint64, error) {
	return nil, unsupported("approximate sizes")
}

func (db *DB) GetProperty(name string) (string, error) {
	return "", unsupported("property " + name)
}

func (db *DB) SuspendCompactions() error {
	return unsupported("suspend compactions")
}

func (db *DB) ResumeCompactions() error {
	return unsupported("resume compactions")
}
