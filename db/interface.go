package db

import (
	"errors"
)

var (
	// ErrNotFound is returned by Engine.Get when the key is absent.
	ErrNotFound = errors.New("Not Found")
	// ErrUnsupported is wrapped by engines that cannot honor a setting.
	ErrUnsupported = errors.New("unsupported by engine")
	// ErrForeignBatch is returned when a batch is written to an engine that
	// did not create it.
	ErrForeignBatch = errors.New("batch was created by a different engine")
)

// Compression identifies the block compression requested at open time. The
// zero value means the caller never chose one.
type Compression int

const (
	CompressionUnspecified Compression = iota
	NoCompression
	SnappyCompression
	ZstdCompression
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	case ZstdCompression:
		return "zstd"
	}
	return "unspecified"
}

// Options is the open-time configuration handed to an engine. Zero numeric
// values leave the engine default in place.
type Options struct {
	CreateIfMissing      bool
	ErrorIfExists        bool
	ParanoidChecks       bool
	WriteBufferSize      int
	MaxOpenFiles         int
	BlockSize            int
	BlockRestartInterval int
	MaxFileSize          int
	Compression          Compression
	CacheSize            int64
}

// ReadOptions carries per-read settings. Regions is the allocator results
// are placed in; engines must not return regions from anywhere else.
type ReadOptions struct {
	VerifyChecksums bool
	FillCache       bool
	Regions         *RegionPool
}

type WriteOptions struct {
	Sync bool
}

// Engine is an open storage engine. Implementations must be safe for
// concurrent Get, Put, Delete, Write and CompactRange; Close is only ever
// called once, after every other call has returned.
type Engine interface {
	// Get returns the value stored at key in a region taken from
	// opts.Regions, or ErrNotFound.
	Get(key []byte, opts *ReadOptions) (*Region, error)
	Put(key, value []byte, opts *WriteOptions) error
	Delete(key []byte, opts *WriteOptions) error
	// NewBatch returns an empty batch bound to this engine.
	NewBatch() Batch
	// Write applies every mutation in b atomically.
	Write(b Batch, opts *WriteOptions) error
	// ReleaseBatch drops any resources held by b.
	ReleaseBatch(b Batch)
	// CompactRange compacts the key range [start, limit); nil bounds are
	// unbounded.
	CompactRange(start, limit []byte) error
	Close() error
}

// Batch accumulates mutations. Keys and values are copied on the way in.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Len() int
	Reset()
}

// Opener opens the engine stored at path.
type Opener func(path string, opts *Options) (Engine, error)
