package buffer

import (
	"fmt"
	"io"
)

func noop() {}

// Resolve returns the bytes behind v. Array and address views are returned
// without copying. A foreign view is copied into a temporary array buffer
// taken from alloc (Default when nil) and resolved again; the returned release
// func frees that temporary and must be called once the bytes are no longer
// needed. release is never nil, even on error.
func Resolve(v View, alloc Allocator) (b []byte, release func(), err error) {
	switch v := v.(type) {
	case ArrayView:
		b, err = v.bytes()
		return b, noop, err
	case AddressView:
		b, err = v.bytes()
		return b, noop, err
	case ForeignView:
		if alloc == nil {
			alloc = Default
		}
		n := v.Len()
		tmp, err := alloc.Allocate(KindArray, n)
		if err != nil {
			return nil, noop, err
		}
		if kind, size := tmp.Kind(), tmp.Len(); kind == KindForeign || size < n {
			tmp.Release()
			return nil, noop, fmt.Errorf("allocator returned an unusable %v buffer of %d bytes", kind, size)
		}
		if n > 0 {
			m, err := v.Source.ReadAt(tmp.Bytes()[:n], 0)
			if m < n {
				tmp.Release()
				if err == nil || err == io.EOF {
					err = ErrShortRead
				}
				return nil, noop, err
			}
		}
		// Allocators may round up; only the first n bytes hold the copy.
		b, _, err = Resolve(tmp.prefix(n), alloc)
		if err != nil {
			tmp.Release()
			return nil, noop, err
		}
		return b, tmp.Release, nil
	case nil:
		return nil, noop, fmt.Errorf("nil view")
	}
	return nil, noop, fmt.Errorf("unknown view %T", v)
}
