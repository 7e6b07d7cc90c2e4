package buffer

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Allocator hands out buffers of a requested representation.
type Allocator interface {
	Allocate(kind Kind, n int) (*Buffer, error)
}

// Buffer is memory owned by the caller until Release is called. Release is
// idempotent.
type Buffer struct {
	data     []byte
	kind     Kind
	free     func([]byte)
	released atomic.Bool
}

// NewBuffer wraps data as a buffer of the given kind. free, if non-nil, is
// invoked once on Release.
func NewBuffer(data []byte, kind Kind, free func([]byte)) *Buffer {
	return &Buffer{data: data, kind: kind, free: free}
}

func (b *Buffer) Bytes() []byte { return b.data }
func (b *Buffer) Len() int      { return len(b.data) }
func (b *Buffer) Kind() Kind    { return b.kind }

// View returns a view over the buffer in its own representation.
func (b *Buffer) View() View {
	return b.prefix(len(b.data))
}

// prefix views the first n bytes. n must not exceed Len.
func (b *Buffer) prefix(n int) View {
	if b.kind == KindAddress && n > 0 {
		return AddressView{Addr: unsafe.Pointer(&b.data[0]), Length: n}
	}
	return ArrayView{Array: b.data, Length: n}
}

func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	data := b.data
	b.data = nil
	if b.free != nil {
		b.free(data)
	}
}

type defaultAllocator struct{}

// Default allocates array buffers on the Go heap and address buffers from
// anonymous memory mappings where the platform supports them.
var Default Allocator = defaultAllocator{}

func (defaultAllocator) Allocate(kind Kind, n int) (*Buffer, error) {
	if n < 0 {
		return nil, ErrBounds
	}
	switch kind {
	case KindArray:
		return NewBuffer(make([]byte, n), KindArray, nil), nil
	case KindAddress:
		return allocateOffHeap(n)
	}
	return nil, fmt.Errorf("cannot allocate %v buffer", kind)
}

// Heap only ever hands out array buffers, whatever kind is requested.
var Heap Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Allocate(_ Kind, n int) (*Buffer, error) {
	if n < 0 {
		return nil, ErrBounds
	}
	return NewBuffer(make([]byte, n), KindArray, nil), nil
}
