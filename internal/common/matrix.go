// Package common carries byte-level plumbing shared by the parse entry
// point and the IPC transports: mmap helpers and the little-endian
// counter-matrix wire format used for shared-memory and temp-file
// payloads.
package common

import (
	"encoding/binary"
	"io"
)

// matrixBatch is the number of u32 cells moved per Write/Read syscall
// when streaming a matrix through an io.Writer/io.Reader.
const matrixBatch = 1 << 16

// MatrixBytes returns the number of bytes needed to hold count u32 cells —
// exactly what spec.md calls the shared-memory segment size, P*D*4.
func MatrixBytes(count int) int64 {
	return int64(count) * 4
}

// PutMatrix serializes counts as little-endian u32 directly into dst, which
// must be at least MatrixBytes(len(counts)) bytes. Used to populate a raw
// mmap'd shared-memory segment without going through an io.Writer.
func PutMatrix(dst []byte, counts []uint32) {
	for i, v := range counts {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], v)
	}
}

// GetMatrix parses a little-endian u32 array out of src into dst (same
// length as dst). src must be at least MatrixBytes(len(dst)) bytes.
func GetMatrix(dst []uint32, src []byte) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[i*4 : i*4+4])
	}
}

// WriteMatrix streams counts to w as little-endian u32, in large batches
// to keep syscall count low for the temp-file IPC transport.
func WriteMatrix(w io.Writer, counts []uint32) error {
	buf := make([]byte, 0, matrixBatch*4)
	for i := 0; i < len(counts); i += matrixBatch {
		end := i + matrixBatch
		if end > len(counts) {
			end = len(counts)
		}
		buf = buf[:(end-i)*4]
		PutMatrix(buf, counts[i:end])
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadMatrix reads exactly count little-endian u32 cells from r.
func ReadMatrix(r io.Reader, count int) ([]uint32, error) {
	out := make([]uint32, count)
	buf := make([]byte, matrixBatch*4)
	for i := 0; i < count; i += matrixBatch {
		end := i + matrixBatch
		if end > count {
			end = count
		}
		chunk := buf[:(end-i)*4]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, err
		}
		GetMatrix(out[i:end], chunk)
	}
	return out, nil
}

// AddInto accumulates src into dst cell-by-cell: dst[i] += src[i]. The
// merge the coordinator performs is commutative and associative (spec.md
// §4.5/§5), so callers may add partials in any order.
func AddInto(dst, src []uint32) {
	for i, v := range src {
		dst[i] += v
	}
}
