package leveldb

import (
	"bytes"
	"errors"
	"testing"

	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

var keys = [3]string{"Hello", "Yellow", "Mellow"}
var values = [3]string{"World", "Furled", "Burled"}

func defaultOpts() *dbpkg.Options {
	return &dbpkg.Options{CreateIfMissing: true, Compression: dbpkg.SnappyCompression}
}

func TestRoundTrip(t *testing.T) {
	path := t.TempDir()
	db, err := Open(path, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	for i := range keys {
		if err := db.Put([]byte(keys[i]), []byte(values[i]), &dbpkg.WriteOptions{Sync: i == 0}); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	db, err = Open(path, &dbpkg.Options{Compression: dbpkg.SnappyCompression})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ro := &dbpkg.ReadOptions{VerifyChecksums: true, FillCache: true, Regions: dbpkg.NewRegionPool()}
	for i := range keys {
		r, err := db.Get([]byte(keys[i]), ro)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(r.Bytes(), []byte(values[i])) {
			t.Errorf("Unexpected value: %v", string(r.Bytes()))
		}
		ro.Regions.Free(r)
	}
	if err := db.Delete([]byte("Hello"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get([]byte("Hello"), ro); err != dbpkg.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := db.CompactRange(nil, nil); err != nil {
		t.Errorf("CompactRange: %v", err)
	}
	if err := db.CompactRange([]byte("A"), []byte("Z")); err != nil {
		t.Errorf("CompactRange: %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(t.TempDir()+"/missing", &dbpkg.Options{Compression: dbpkg.NoCompression}); err == nil {
		t.Fatalf("Expected open of a missing database without CreateIfMissing to fail")
	}
}

func TestOpenErrorIfExists(t *testing.T) {
	path := t.TempDir()
	db, err := Open(path, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	db.Close()
	opts := defaultOpts()
	opts.ErrorIfExists = true
	if _, err := Open(path, opts); err == nil {
		t.Fatalf("Expected ErrorIfExists to reject an existing database")
	}
}

func TestZstdUnsupported(t *testing.T) {
	opts := defaultOpts()
	opts.Compression = dbpkg.ZstdCompression
	if _, err := Open(t.TempDir(), opts); !errors.Is(err, dbpkg.ErrUnsupported) {
		t.Fatalf("Expected ErrUnsupported, got %v", err)
	}
}

func TestWriteBatch(t *testing.T) {
	db, err := Open(t.TempDir(), defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("a"))
	if b.Len() != 3 {
		t.Errorf("Expected 3 records, got %v", b.Len())
	}
	if err := db.Write(b, &dbpkg.WriteOptions{Sync: true}); err != nil {
		t.Fatal(err)
	}
	db.ReleaseBatch(b)
	ro := &dbpkg.ReadOptions{Regions: dbpkg.NewRegionPool()}
	if _, err := db.Get([]byte("a"), ro); err != dbpkg.ErrNotFound {
		t.Errorf("Expected a to be deleted, got %v", err)
	}
	r, err := db.Get([]byte("b"), ro)
	if err != nil {
		t.Fatal(err)
	}
	if string(r.Bytes()) != "2" {
		t.Errorf("Unexpected value: %v", string(r.Bytes()))
	}
	if err := db.Write(dbpkg.NewOpBatch(), nil); err != dbpkg.ErrForeignBatch {
		t.Errorf("Expected ErrForeignBatch, got %v", err)
	}
}
