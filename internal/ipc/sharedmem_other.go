//go:build !linux

package ipc

import (
	"fmt"
	"os"
)

// sharedMemSupported reports false off Linux: memfd_create has no
// portable equivalent this repo relies on, so resolveTransport falls
// through to the temp-file transport instead (spec.md §4.5/§9).
func sharedMemSupported() bool { return false }

func createSharedSegment(size int) (*os.File, []byte, error) {
	return nil, nil, fmt.Errorf("shared-memory transport unavailable on this platform")
}

func writeSharedSegment(matrix []uint32) error {
	return fmt.Errorf("__aggworker: shared-memory transport unavailable on this platform")
}
