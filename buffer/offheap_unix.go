//go:build unix

package buffer

import (
	"golang.org/x/sys/unix"
)

func allocateOffHeap(n int) (*Buffer, error) {
	if n == 0 {
		return NewBuffer([]byte{}, KindAddress, nil), nil
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return NewBuffer(mem, KindAddress, func(b []byte) {
		unix.Munmap(b)
	}), nil
}
