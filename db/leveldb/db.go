// Package leveldb is the default engine, backed by goleveldb.
package leveldb

import (
	"fmt"

	log "github.com/inconshreveable/log15"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type Database struct {
	db *leveldb.DB
}

// translate maps open options onto goleveldb's. Zero values keep the
// goleveldb defaults.
func translate(opts *dbpkg.Options) (*opt.Options, error) {
	o := &opt.Options{
		ErrorIfMissing:         !opts.CreateIfMissing,
		ErrorIfExist:           opts.ErrorIfExists,
		WriteBuffer:            opts.WriteBufferSize,
		OpenFilesCacheCapacity: opts.MaxOpenFiles,
		BlockSize:              opts.BlockSize,
		BlockRestartInterval:   opts.BlockRestartInterval,
		CompactionTableSize:    opts.MaxFileSize,
		BlockCacheCapacity:     int(opts.CacheSize),
	}
	if opts.ParanoidChecks {
		o.Strict = opt.StrictAll
	}
	switch opts.Compression {
	case dbpkg.NoCompression:
		o.Compression = opt.NoCompression
	case dbpkg.SnappyCompression, dbpkg.CompressionUnspecified:
		o.Compression = opt.SnappyCompression
	default:
		return nil, fmt.Errorf("leveldb: %v compression: %w", opts.Compression, dbpkg.ErrUnsupported)
	}
	return o, nil
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string, opts *dbpkg.Options) (dbpkg.Engine, error) {
	if opts == nil {
		opts = &dbpkg.Options{CreateIfMissing: true, Compression: dbpkg.SnappyCompression}
	}
	o, err := translate(opts)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	log.Debug("Opened leveldb", "path", path, "compression", opts.Compression)
	return &Database{db: db}, nil
}

func readOptions(opts *dbpkg.ReadOptions) *opt.ReadOptions {
	ro := &opt.ReadOptions{DontFillCache: !opts.FillCache}
	if opts.VerifyChecksums {
		ro.Strict = opt.StrictBlockChecksum
	}
	return ro
}

func writeOptions(opts *dbpkg.WriteOptions) *opt.WriteOptions {
	if opts == nil {
		return nil
	}
	return &opt.WriteOptions{Sync: opts.Sync}
}

// Get adopts the slice goleveldb returns: it is already a private copy, so
// wrapping it avoids a second one.
func (l *Database) Get(key []byte, opts *dbpkg.ReadOptions) (*dbpkg.Region, error) {
	val, err := l.db.Get(key, readOptions(opts))
	if err == leveldb.ErrNotFound {
		return nil, dbpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return opts.Regions.Adopt(val), nil
}

func (l *Database) Put(key, value []byte, opts *dbpkg.WriteOptions) error {
	return l.db.Put(key, value, writeOptions(opts))
}

func (l *Database) Delete(key []byte, opts *dbpkg.WriteOptions) error {
	return l.db.Delete(key, writeOptions(opts))
}

type batch struct {
	leveldb.Batch
}

func (l *Database) NewBatch() dbpkg.Batch {
	return &batch{}
}

func (l *Database) Write(b dbpkg.Batch, opts *dbpkg.WriteOptions) error {
	lb, ok := b.(*batch)
	if !ok {
		return dbpkg.ErrForeignBatch
	}
	return l.db.Write(&lb.Batch, writeOptions(opts))
}

func (l *Database) ReleaseBatch(b dbpkg.Batch) {
	b.Reset()
}

func (l *Database) CompactRange(start, limit []byte) error {
	return l.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (l *Database) Close() error {
	return l.db.Close()
}
