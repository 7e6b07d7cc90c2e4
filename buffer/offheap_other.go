//go:build !unix

package buffer

import "errors"

var errNoOffHeap = errors.New("off-heap buffers are not supported on this platform")

func allocateOffHeap(n int) (*Buffer, error) {
	return nil, errNoOffHeap
}
