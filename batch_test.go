package ldb

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/openrelayxyz/cardinal-ldb/buffer"
)

func TestWriteBatch(t *testing.T) {
	db := openMem(t)
	defer db.Close()
	b, err := db.NewWriteBatch()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("a"))
	if b.Len() != 3 {
		t.Errorf("Expected 3 mutations, got %v", b.Len())
	}
	if err := db.Write(b, nil); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := db.Get([]byte("a"), nil); found {
		t.Errorf("Expected a to be absent")
	}
	if val, found, _ := db.Get([]byte("b"), nil); !found || string(val) != "2" {
		t.Errorf("Unexpected value for b: %q %v", val, found)
	}
}

func TestWriteBatchViewsAndReserve(t *testing.T) {
	db := openMem(t)
	defer db.Close()
	b, err := db.NewWriteBatch()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.PutView(buffer.Foreign(strings.NewReader("Hello")), buffer.Array([]byte("World"))); err != nil {
		t.Fatal(err)
	}
	reserved, err := b.PutReserve([]byte("Yellow"), 6)
	if err != nil {
		t.Fatal(err)
	}
	copy(reserved, "Furled")
	overwritten, _ := b.PutReserve([]byte("Mellow"), 3)
	copy(overwritten, "xxx")
	b.Put([]byte("Mellow"), []byte("Burled"))
	b.DeleteView(buffer.Foreign(buffer.Chunks{[]byte("Good"), []byte("bye")}))
	if err := db.Write(b, &WriteOptions{Sync: true}); err != nil {
		t.Fatal(err)
	}
	for i := range keys {
		val, found, err := db.Get([]byte(keys[i]), nil)
		if err != nil || !found || string(val) != values[i] {
			t.Errorf("Unexpected get of %v: %q %v %v", keys[i], val, found, err)
		}
	}
}

func TestWriteBatchReset(t *testing.T) {
	db := openMem(t)
	defer db.Close()
	b, _ := db.NewWriteBatch()
	defer b.Close()
	b.Put([]byte("a"), []byte("1"))
	b.PutReserve([]byte("b"), 1)
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty batch after Reset, got %v", b.Len())
	}
	db.Write(b, nil)
	if _, found, _ := db.Get([]byte("a"), nil); found {
		t.Errorf("Reset batch still wrote a")
	}
}

func TestWriteBatchClose(t *testing.T) {
	var engines []*countingEngine
	opts := memOptions()
	opts.Engine = countingOpener(&engines)
	db, err := Open("", opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b, _ := db.NewWriteBatch()
	for i := 0; i < 3; i++ {
		if err := b.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if n := engines[0].releases.Load(); n != 1 {
		t.Errorf("Expected one engine release, got %v", n)
	}
	if err := b.Put([]byte("a"), []byte("1")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := db.Write(b, nil); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if len(db.h.batches) != 0 {
		t.Errorf("Expected closed batch to be forgotten")
	}
}

func TestWriteBatchReleasedByDatabaseClose(t *testing.T) {
	var engines []*countingEngine
	opts := memOptions()
	opts.Engine = countingOpener(&engines)
	db, err := Open("", opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := db.NewWriteBatch()
	b.Put([]byte("a"), []byte("1"))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if n := engines[0].releases.Load(); n != 1 {
		t.Errorf("Expected close to release the open batch, got %v releases", n)
	}
	if err := b.Put([]byte("a"), []byte("1")); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close after database close: %v", err)
	}
	if n := engines[0].releases.Load(); n != 1 {
		t.Errorf("Expected no second release, got %v", n)
	}
}

func TestWriteBatchForeign(t *testing.T) {
	db1 := openMem(t)
	defer db1.Close()
	db2 := openMem(t)
	defer db2.Close()
	b, _ := db1.NewWriteBatch()
	defer b.Close()
	b.Put([]byte("a"), []byte("1"))
	if err := db2.Write(b, nil); err != ErrForeignBatch {
		t.Errorf("Expected ErrForeignBatch, got %v", err)
	}
}

func TestDiscardedBatchIsReleased(t *testing.T) {
	var engines []*countingEngine
	opts := memOptions()
	opts.Engine = countingOpener(&engines)
	db, err := Open("", opts)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	func() {
		b, _ := db.NewWriteBatch()
		b.Put([]byte("a"), []byte("1"))
	}()
	for i := 0; i < 100; i++ {
		runtime.GC()
		if engines[0].releases.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Discarded batch was never released")
}
