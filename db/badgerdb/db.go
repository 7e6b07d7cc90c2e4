package badgerdb

import (
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/inconshreveable/log15"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

type Database struct {
	db *badger.DB
}

func (db *Database) Close() error {
	return db.db.Close()
}

// Open opens a badger database in the directory at path. An empty path opens
// an in-memory database.
func Open(path string, opts *dbpkg.Options) (dbpkg.Engine, error) {
	if opts == nil {
		opts = &dbpkg.Options{CreateIfMissing: true, Compression: dbpkg.SnappyCompression}
	}
	opt := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opt = opt.WithInMemory(true)
	} else if err := checkPath(path, opts); err != nil {
		return nil, err
	}
	switch opts.Compression {
	case dbpkg.NoCompression:
		opt = opt.WithCompression(options.None)
	case dbpkg.SnappyCompression, dbpkg.CompressionUnspecified:
		opt = opt.WithCompression(options.Snappy)
	case dbpkg.ZstdCompression:
		opt = opt.WithCompression(options.ZSTD)
	}
	if opts.WriteBufferSize > 0 {
		opt = opt.WithMemTableSize(int64(opts.WriteBufferSize))
	}
	if opts.BlockSize > 0 {
		opt = opt.WithBlockSize(opts.BlockSize)
	}
	if opts.MaxFileSize > 0 {
		opt = opt.WithBaseTableSize(int64(opts.MaxFileSize))
	}
	if opts.CacheSize > 0 {
		opt = opt.WithBlockCacheSize(opts.CacheSize)
	}
	if opts.ParanoidChecks {
		opt = opt.WithVerifyValueChecksum(true)
	}
	if opts.BlockRestartInterval > 0 || opts.MaxOpenFiles > 0 {
		log.Debug("Ignoring options badger has no equivalent for", "blockRestartInterval", opts.BlockRestartInterval, "maxOpenFiles", opts.MaxOpenFiles)
	}
	db, err := badger.Open(opt)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return &Database{db: db}, nil
}

// checkPath enforces CreateIfMissing and ErrorIfExists; badger itself always
// creates its directory.
func checkPath(path string, opts *dbpkg.Options) error {
	_, err := os.Stat(filepath.Join(path, badger.ManifestFilename))
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if exists && opts.ErrorIfExists {
		return fmt.Errorf("badger %q: already exists", path)
	}
	if !exists && !opts.CreateIfMissing {
		return fmt.Errorf("badger %q: does not exist", path)
	}
	return nil
}

// Get copies the value into a pooled region while the read transaction is
// still open; badger's own slice is only valid inside the transaction.
func (db *Database) Get(key []byte, opts *dbpkg.ReadOptions) (*dbpkg.Region, error) {
	var region *dbpkg.Region
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return dbpkg.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			region = opts.Regions.Alloc(len(value))
			copy(region.Bytes(), value)
			return nil
		})
	})
	if err != nil {
		opts.Regions.Free(region)
		return nil, err
	}
	return region, nil
}

func (db *Database) sync(opts *dbpkg.WriteOptions) error {
	if opts != nil && opts.Sync {
		return db.db.Sync()
	}
	return nil
}

func (db *Database) Put(key, value []byte, opts *dbpkg.WriteOptions) error {
	if err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}); err != nil {
		return err
	}
	return db.sync(opts)
}

func (db *Database) Delete(key []byte, opts *dbpkg.WriteOptions) error {
	if err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}); err != nil {
		return err
	}
	return db.sync(opts)
}

func (db *Database) NewBatch() dbpkg.Batch {
	return dbpkg.NewOpBatch()
}

// Write replays the batch inside a single update transaction.
func (db *Database) Write(b dbpkg.Batch, opts *dbpkg.WriteOptions) error {
	batch, ok := b.(*dbpkg.OpBatch)
	if !ok {
		return dbpkg.ErrForeignBatch
	}
	if err := db.db.Update(func(txn *badger.Txn) error {
		return batch.Replay(func(op dbpkg.Op) error {
			if op.Delete {
				return txn.Delete(op.Key)
			}
			return txn.Set(op.Key, op.Value)
		})
	}); err != nil {
		return err
	}
	return db.sync(opts)
}

func (db *Database) ReleaseBatch(b dbpkg.Batch) {
	b.Reset()
}

// CompactRange flattens the LSM tree. Badger cannot compact a key range, so
// the bounds only gate a no-op for empty ranges.
func (db *Database) CompactRange(start, limit []byte) error {
	if start != nil && limit != nil && string(start) >= string(limit) {
		return nil
	}
	return db.db.Flatten(1)
}
