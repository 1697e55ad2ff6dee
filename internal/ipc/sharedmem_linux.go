//go:build linux

package ipc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/asterd/100-million-row-challenge/internal/common"
)

// sharedMemSupported reports whether the anonymous shared-memory
// transport (memfd_create) is available. Linux-only per spec.md §9.
func sharedMemSupported() bool { return true }

// createSharedSegment allocates an anonymous, unlinked memfd sized size
// bytes and mmaps it MAP_SHARED for the coordinator's own readback. The
// returned *os.File is handed to the child via exec.Cmd.ExtraFiles.
func createSharedSegment(size int) (*os.File, []byte, error) {
	fd, err := unix.MemfdCreate("pageday-partial", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("memfd_create: %w", err)
	}
	f := os.NewFile(uintptr(fd), "pageday-partial")

	if size == 0 {
		return f, []byte{}, nil
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ftruncate: %w", err)
	}
	mapping, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}
	return f, mapping, nil
}

// writeSharedSegment is the child side: fd 3 is the memfd inherited from
// the parent via ExtraFiles. It maps the same bytes and writes the
// matrix as little-endian u32, matching the segment size the parent
// already allocated (P*D*4 bytes exactly).
func writeSharedSegment(matrix []uint32) error {
	f := os.NewFile(3, "pageday-partial")
	if f == nil {
		return fmt.Errorf("__aggworker: shared-memory fd 3 not inherited")
	}
	defer f.Close()

	size := int(common.MatrixBytes(len(matrix)))
	if size == 0 {
		return nil
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("__aggworker: mmap fd 3: %w", err)
	}
	defer unix.Munmap(mapping)

	common.PutMatrix(mapping, matrix)
	return nil
}
