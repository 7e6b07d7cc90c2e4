// Package buffer describes the byte views a caller can hand to the database
// and the allocators used when bytes have to be materialized.
//
// A View is one of three representations:
//
//   ArrayView    bytes addressable through a Go slice
//   AddressView  bytes living in memory outside the Go heap
//   ForeignView  anything else (chunked or reader-backed), copied on use
//
// The set is closed; code that consumes a View switches over the concrete
// types instead of probing for capabilities.
package buffer

import (
	"errors"
	"io"
	"unsafe"
)

// Kind identifies a View representation.
type Kind uint8

const (
	KindArray Kind = iota
	KindAddress
	KindForeign
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindAddress:
		return "address"
	case KindForeign:
		return "foreign"
	}
	return "unknown"
}

var (
	ErrBounds     = errors.New("view bounds out of range")
	ErrNilAddress = errors.New("address view with nil address")
	ErrShortRead  = errors.New("foreign view returned fewer bytes than its length")
)

// View is a logical key or value supplied by the caller.
type View interface {
	Len() int
	Kind() Kind
	sealed()
}

// ArrayView exposes Length bytes of Array starting at Offset.
type ArrayView struct {
	Array  []byte
	Offset int
	Length int
}

// Array returns a view over the whole of b.
func Array(b []byte) ArrayView {
	return ArrayView{Array: b, Length: len(b)}
}

func (v ArrayView) Len() int   { return v.Length }
func (v ArrayView) Kind() Kind { return KindArray }
func (ArrayView) sealed()      {}

func (v ArrayView) bytes() ([]byte, error) {
	if v.Offset < 0 || v.Length < 0 || v.Offset+v.Length > len(v.Array) {
		return nil, ErrBounds
	}
	return v.Array[v.Offset : v.Offset+v.Length : v.Offset+v.Length], nil
}

// AddressView exposes Length bytes starting at Addr. The memory must stay
// mapped for as long as the view is in use.
type AddressView struct {
	Addr   unsafe.Pointer
	Length int
}

func (v AddressView) Len() int   { return v.Length }
func (v AddressView) Kind() Kind { return KindAddress }
func (AddressView) sealed()      {}

func (v AddressView) bytes() ([]byte, error) {
	if v.Length < 0 {
		return nil, ErrBounds
	}
	if v.Length == 0 {
		return []byte{}, nil
	}
	if v.Addr == nil {
		return nil, ErrNilAddress
	}
	return unsafe.Slice((*byte)(v.Addr), v.Length), nil
}

// Source is the minimum a foreign representation has to offer: its length and
// random access reads. *bytes.Reader and *strings.Reader qualify.
type Source interface {
	io.ReaderAt
	Len() int
}

// ForeignView wraps a Source whose bytes are not directly addressable.
type ForeignView struct {
	Source Source
}

// Foreign returns a view over src.
func Foreign(src Source) ForeignView {
	return ForeignView{Source: src}
}

func (v ForeignView) Len() int {
	if v.Source == nil {
		return 0
	}
	return v.Source.Len()
}
func (v ForeignView) Kind() Kind { return KindForeign }
func (ForeignView) sealed()      {}

// Chunks is a composite buffer made of several slices read back to back.
type Chunks [][]byte

func (c Chunks) Len() int {
	n := 0
	for _, b := range c {
		n += len(b)
	}
	return n
}

func (c Chunks) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrBounds
	}
	n := 0
	for _, b := range c {
		if off >= int64(len(b)) {
			off -= int64(len(b))
			continue
		}
		m := copy(p[n:], b[off:])
		n += m
		off = 0
		if n == len(p) {
			return n, nil
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
