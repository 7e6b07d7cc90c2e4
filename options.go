package ldb

import (
	"fmt"

	"github.com/openrelayxyz/cardinal-ldb/buffer"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
	"github.com/openrelayxyz/cardinal-ldb/db/leveldb"
)

type Compression = dbpkg.Compression

const (
	CompressionUnspecified = dbpkg.CompressionUnspecified
	NoCompression          = dbpkg.NoCompression
	SnappyCompression      = dbpkg.SnappyCompression
	ZstdCompression        = dbpkg.ZstdCompression
)

// Comparator orders keys. Only the engines' built-in bytewise ordering is
// supported; setting Options.Comparator makes Open fail.
type Comparator interface {
	Name() string
	Compare(a, b []byte) int
}

// Options configures Open. Zero numeric fields keep the engine default;
// Compression has to be chosen explicitly.
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
	Comparator           Comparator

	// Engine opens the storage engine. Nil selects leveldb.
	Engine dbpkg.Opener
}

// DefaultOptions mirrors LevelDB's defaults, with CreateIfMissing set.
func DefaultOptions() *Options {
	return &Options{
		CreateIfMissing:      true,
		WriteBufferSize:      4 << 20,
		MaxOpenFiles:         1000,
		BlockSize:            4 << 10,
		BlockRestartInterval: 16,
		MaxFileSize:          2 << 20,
		Compression:          SnappyCompression,
		CacheSize:            8 << 20,
	}
}

func (o *Options) validate() error {
	if o.Comparator != nil {
		return fmt.Errorf("%w: custom comparator %q", ErrUnsupportedConfiguration, o.Comparator.Name())
	}
	if o.Compression == CompressionUnspecified {
		return fmt.Errorf("%w: compression kind not set", ErrUnsupportedConfiguration)
	}
	if o.Compression < NoCompression || o.Compression > ZstdCompression {
		return fmt.Errorf("%w: unknown compression %d", ErrUnsupportedConfiguration, int(o.Compression))
	}
	return nil
}

func (o *Options) engine() (dbpkg.Opener, *dbpkg.Options) {
	open := o.Engine
	if open == nil {
		open = leveldb.Open
	}
	return open, &dbpkg.Options{
		CreateIfMissing:      o.CreateIfMissing,
		ErrorIfExists:        o.ErrorIfExists,
		ParanoidChecks:       o.ParanoidChecks,
		WriteBufferSize:      o.WriteBufferSize,
		MaxOpenFiles:         o.MaxOpenFiles,
		BlockSize:            o.BlockSize,
		BlockRestartInterval: o.BlockRestartInterval,
		MaxFileSize:          o.MaxFileSize,
		Compression:          o.Compression,
		CacheSize:            o.CacheSize,
	}
}

// Snapshot stands for a point-in-time view. This package never hands one
// out; it exists so ReadOptions mirrors the engine's read options.
type Snapshot struct{}

// ReadOptions configures a read. A nil *ReadOptions means
// DefaultReadOptions().
type ReadOptions struct {
	VerifyChecksums bool
	FillCache       bool
	// Snapshot must be nil; reading from a snapshot is unsupported.
	Snapshot *Snapshot

	// Allocator supplies materialized results and temporary key copies.
	// Nil selects buffer.Default.
	Allocator buffer.Allocator
	// Output is the representation materialized results are allocated in.
	Output buffer.Kind
}

func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{FillCache: true}
}

func (o *ReadOptions) allocator() buffer.Allocator {
	if o.Allocator == nil {
		return buffer.Default
	}
	return o.Allocator
}

// WriteOptions configures a write. A nil *WriteOptions means a zero value.
type WriteOptions struct {
	Sync bool
	// Snapshot asks for a snapshot of the state after the write. It is
	// unsupported and fails the write before anything is applied.
	Snapshot bool
}
