// Package resolver picks the engine for a database location and opens it.
package resolver

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/openrelayxyz/cardinal-ldb"
	dbpkg "github.com/openrelayxyz/cardinal-ldb/db"
	"github.com/openrelayxyz/cardinal-ldb/db/badgerdb"
	"github.com/openrelayxyz/cardinal-ldb/db/boltdb"
	"github.com/openrelayxyz/cardinal-ldb/db/leveldb"
	"github.com/openrelayxyz/cardinal-ldb/db/mem"
)

var ErrUnknownEngine = errors.New("unknown storage engine")

var engines = map[string]dbpkg.Opener{
	"leveldb": leveldb.Open,
	"badger":  badgerdb.Open,
	"bolt":    boltdb.Open,
	"mem":     mem.Open,
}

// ResolveEngine splits a location into an engine and the path to hand it.
// Locations may carry a scheme (leveldb://, badger://, bolt://, mem://).
// Bare paths are recognized from what is on disk: a regular file is a bolt
// database, a directory holding a badger MANIFEST is badger, and anything else
// is leveldb.
func ResolveEngine(location string) (dbpkg.Opener, string, error) {
	if strings.Contains(location, "://") {
		parsedURL, err := url.Parse(location)
		if err != nil {
			return nil, "", err
		}
		open, ok := engines[parsedURL.Scheme]
		if !ok {
			return nil, "", ErrUnknownEngine
		}
		// net/url treats everything after '//' as a host/path
		return open, parsedURL.Host + parsedURL.Path, nil
	}
	fileInfo, err := os.Stat(location)
	switch {
	case os.IsNotExist(err):
		return leveldb.Open, location, nil
	case err != nil:
		return nil, "", err
	case !fileInfo.IsDir():
		return boltdb.Open, location, nil
	}
	if _, err := os.Stat(filepath.Join(location, boltdb.FileName)); err == nil {
		return boltdb.Open, location, nil
	}
	if _, err := os.Stat(filepath.Join(location, badger.ManifestFilename)); err == nil {
		return badgerdb.Open, location, nil
	}
	return leveldb.Open, location, nil
}

// Open resolves location and opens it with opts (DefaultOptions when nil).
// opts is not modified.
func Open(location string, opts *ldb.Options) (*ldb.DB, error) {
	open, path, err := ResolveEngine(location)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = ldb.DefaultOptions()
	}
	o := *opts
	o.Engine = open
	return ldb.Open(path, &o)
}
