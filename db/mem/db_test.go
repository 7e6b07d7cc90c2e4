package mem

import (
	"bytes"
	"testing"

	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
)

var keys = [3]string{"Hello", "Yellow", "Mellow"}
var values = [3]string{"World", "Furled", "Burled"}

func readOpts() *dbpkg.ReadOptions {
	return &dbpkg.ReadOptions{FillCache: true, Regions: dbpkg.NewRegionPool()}
}

func TestPutGetDelete(t *testing.T) {
	db, err := Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ro := readOpts()
	for i := range keys {
		if err := db.Put([]byte(keys[i]), []byte(values[i]), nil); err != nil {
			t.Fatal(err)
		}
	}
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
	if ro.Regions.Outstanding() != 0 {
		t.Errorf("Leaked %v regions", ro.Regions.Outstanding())
	}
}

func TestBatch(t *testing.T) {
	db, err := Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b := db.NewBatch()
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("a"))
	if err := db.Write(b, nil); err != nil {
		t.Fatal(err)
	}
	db.ReleaseBatch(b)
	ro := readOpts()
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
}

func TestNamedStoreSurvivesReopen(t *testing.T) {
	name := t.Name()
	defer Destroy(name)
	if _, err := Open(name, &dbpkg.Options{}); err == nil {
		t.Fatalf("Expected open without CreateIfMissing to fail")
	}
	db, err := Open(name, &dbpkg.Options{CreateIfMissing: true})
	if err != nil {
		t.Fatal(err)
	}
	db.Put([]byte("Hello"), []byte("World"), nil)
	db.Close()
	if _, err := Open(name, &dbpkg.Options{ErrorIfExists: true}); err == nil {
		t.Fatalf("Expected ErrorIfExists to reject an existing store")
	}
	db, err = Open(name, &dbpkg.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	r, err := db.Get([]byte("Hello"), readOpts())
	if err != nil {
		t.Fatal(err)
	}
	if string(r.Bytes()) != "World" {
		t.Errorf("Unexpected value: %v", string(r.Bytes()))
	}
}

func TestUseAfterClosePanics(t *testing.T) {
	db, err := Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()
	defer func() {
		if recover() == nil {
			t.Errorf("Expected use after close to panic")
		}
	}()
	db.Put([]byte("Hello"), []byte("World"), nil)
}
