// Package mem is an ordered in-memory engine. Stores are named by path and
// live for the lifetime of the process, so closing and reopening a path sees
// the same data, the way reopening a directory would.
package mem

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func (a *item) Less(than btree.Item) bool {
	return bytes.Compare(a.key, than.(*item).key) < 0
}

type store struct {
	tree   *btree.BTree
	locker sync.RWMutex
}

var (
	storesLock sync.Mutex
	stores     = make(map[string]*store)
)

// Destroy unregisters the named store. Engines already open on it keep
// working on the old data.
func Destroy(path string) {
	storesLock.Lock()
	defer storesLock.Unlock()
	delete(stores, path)
}

type Database struct {
	data   *store
	path   string
	closed atomic.Bool
}

// Open opens the named store. Opening an empty path always creates a private
// store that is not registered.
func Open(path string, opts *dbpkg.Options) (dbpkg.Engine, error) {
	if opts == nil {
		opts = &dbpkg.Options{CreateIfMissing: true}
	}
	if opts.Compression == dbpkg.ZstdCompression {
		return nil, fmt.Errorf("mem: %v compression: %w", opts.Compression, dbpkg.ErrUnsupported)
	}
	if path == "" {
		return &Database{data: &store{tree: btree.New(degree)}}, nil
	}
	storesLock.Lock()
	defer storesLock.Unlock()
	s, ok := stores[path]
	switch {
	case ok && opts.ErrorIfExists:
		return nil, fmt.Errorf("mem: %v: already exists", path)
	case !ok && !opts.CreateIfMissing:
		return nil, fmt.Errorf("mem: %v: does not exist", path)
	case !ok:
		s = &store{tree: btree.New(degree)}
		stores[path] = s
	}
	return &Database{data: s, path: path}, nil
}

// checkOpen panics on use after Close. Callers are expected to never let that
// happen, so reaching it is a bug in the caller's lifecycle handling.
func (db *Database) checkOpen() {
	if db.closed.Load() {
		panic(fmt.Sprintf("mem: use of released engine %q", db.path))
	}
}

func (db *Database) Get(key []byte, opts *dbpkg.ReadOptions) (*dbpkg.Region, error) {
	db.checkOpen()
	db.data.locker.RLock()
	defer db.data.locker.RUnlock()
	found := db.data.tree.Get(&item{key: key})
	if found == nil {
		return nil, dbpkg.ErrNotFound
	}
	val := found.(*item).value
	r := opts.Regions.Alloc(len(val))
	copy(r.Bytes(), val)
	return r, nil
}

func (db *Database) Put(key, value []byte, _ *dbpkg.WriteOptions) error {
	db.checkOpen()
	db.data.locker.Lock()
	defer db.data.locker.Unlock()
	db.data.tree.ReplaceOrInsert(&item{key: clone(key), value: clone(value)})
	return nil
}

func (db *Database) Delete(key []byte, _ *dbpkg.WriteOptions) error {
	db.checkOpen()
	db.data.locker.Lock()
	defer db.data.locker.Unlock()
	db.data.tree.Delete(&item{key: key})
	return nil
}

func (db *Database) NewBatch() dbpkg.Batch {
	db.checkOpen()
	return dbpkg.NewOpBatch()
}

func (db *Database) Write(b dbpkg.Batch, _ *dbpkg.WriteOptions) error {
	db.checkOpen()
	batch, ok := b.(*dbpkg.OpBatch)
	if !ok {
		return dbpkg.ErrForeignBatch
	}
	db.data.locker.Lock()
	defer db.data.locker.Unlock()
	return batch.Replay(func(op dbpkg.Op) error {
		if op.Delete {
			db.data.tree.Delete(&item{key: op.Key})
		} else {
			db.data.tree.ReplaceOrInsert(&item{key: clone(op.Key), value: clone(op.Value)})
		}
		return nil
	})
}

func (db *Database) ReleaseBatch(b dbpkg.Batch) {
	db.checkOpen()
	b.Reset()
}

// CompactRange has nothing to reclaim in memory.
func (db *Database) CompactRange(start, limit []byte) error {
	db.checkOpen()
	return nil
}

func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("mem: engine %q closed twice", db.path))
	}
	return nil
}

// Len reports the number of keys in the store.
func (db *Database) Len() int {
	db.data.locker.RLock()
	defer db.data.locker.RUnlock()
	return db.data.tree.Len()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
