package boltdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/inconshreveable/log15"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
	bolt "go.etcd.io/bbolt"
)

// FileName is the data file bolt keeps inside the database directory.
const FileName = "data.bolt"

var bucket = []byte("Cardinal")

// Database is a bolt backed engine. Bolt has no block cache of its own, so
// CacheSize buys an LRU of decoded values in front of it instead.
type Database struct {
	db *bolt.DB
	// cache is nil when CacheSize is zero. cacheLock keeps fills from racing
	// with the invalidation done by writes.
	cache     *lru.Cache
	cacheLock sync.RWMutex
}

// Open opens the bolt file inside the directory at path. path may also name
// the bolt file itself.
func Open(path string, opts *dbpkg.Options) (dbpkg.Engine, error) {
	if opts == nil {
		opts = &dbpkg.Options{CreateIfMissing: true, Compression: dbpkg.NoCompression}
	}
	if opts.Compression == dbpkg.SnappyCompression || opts.Compression == dbpkg.ZstdCompression {
		log.Debug("Bolt stores values uncompressed", "requested", opts.Compression)
	}
	file, err := dataFile(path, opts)
	if err != nil {
		return nil, err
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", file, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	out := &Database{db: db}
	if opts.CacheSize > 0 {
		blockSize := int64(opts.BlockSize)
		if blockSize <= 0 {
			blockSize = 4096
		}
		entries := int(opts.CacheSize / blockSize)
		if entries < 1 {
			entries = 1
		}
		out.cache, _ = lru.New(entries)
	}
	return out, nil
}

func dataFile(path string, opts *dbpkg.Options) (string, error) {
	file := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		file = filepath.Join(path, FileName)
	} else if os.IsNotExist(err) && filepath.Ext(path) != ".bolt" {
		if !opts.CreateIfMissing {
			return "", fmt.Errorf("bolt %q: does not exist", path)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
		file = filepath.Join(path, FileName)
	} else if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	_, err := os.Stat(file)
	exists := err == nil
	if exists && opts.ErrorIfExists {
		return "", fmt.Errorf("bolt %q: already exists", file)
	}
	if !exists && !opts.CreateIfMissing {
		return "", fmt.Errorf("bolt %q: does not exist", file)
	}
	return file, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// Get copies the value out of the memory map into a region; bolt's slice is
// only valid inside the transaction.
func (db *Database) Get(key []byte, opts *dbpkg.ReadOptions) (*dbpkg.Region, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(string(key)); ok {
			val := v.([]byte)
			region := opts.Regions.Alloc(len(val))
			copy(region.Bytes(), val)
			return region, nil
		}
		db.cacheLock.RLock()
		defer db.cacheLock.RUnlock()
	}
	var region *dbpkg.Region
	err := db.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucket).Get(key)
		if val == nil {
			return dbpkg.ErrNotFound
		}
		region = opts.Regions.Alloc(len(val))
		copy(region.Bytes(), val)
		if db.cache != nil && opts.FillCache {
			cached := make([]byte, len(val))
			copy(cached, val)
			db.cache.Add(string(key), cached)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return region, nil
}

func (db *Database) update(opts *dbpkg.WriteOptions, keys [][]byte, fn func(*bolt.Bucket) error) error {
	if db.cache != nil {
		db.cacheLock.Lock()
		defer db.cacheLock.Unlock()
	}
	if err := db.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucket))
	}); err != nil {
		return err
	}
	if db.cache != nil {
		for _, k := range keys {
			db.cache.Remove(string(k))
		}
	}
	if opts != nil && opts.Sync {
		return db.db.Sync()
	}
	return nil
}

func (db *Database) Put(key, value []byte, opts *dbpkg.WriteOptions) error {
	return db.update(opts, [][]byte{key}, func(bk *bolt.Bucket) error {
		return bk.Put(key, value)
	})
}

func (db *Database) Delete(key []byte, opts *dbpkg.WriteOptions) error {
	return db.update(opts, [][]byte{key}, func(bk *bolt.Bucket) error {
		return bk.Delete(key)
	})
}

func (db *Database) NewBatch() dbpkg.Batch {
	return dbpkg.NewOpBatch()
}

func (db *Database) Write(b dbpkg.Batch, opts *dbpkg.WriteOptions) error {
	batch, ok := b.(*dbpkg.OpBatch)
	if !ok {
		return dbpkg.ErrForeignBatch
	}
	var keys [][]byte
	batch.Replay(func(op dbpkg.Op) error {
		keys = append(keys, op.Key)
		return nil
	})
	return db.update(opts, keys, func(bk *bolt.Bucket) error {
		return batch.Replay(func(op dbpkg.Op) error {
			if op.Delete {
				return bk.Delete(op.Key)
			}
			return bk.Put(op.Key, op.Value)
		})
	})
}

func (db *Database) ReleaseBatch(b dbpkg.Batch) {
	b.Reset()
}

// CompactRange is a no-op: a B+tree reuses freed pages in place.
func (db *Database) CompactRange(start, limit []byte) error {
	return nil
}
