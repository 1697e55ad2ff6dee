// Package partition divides an mmapped input buffer into worker-count
// newline-aligned, gap-free byte ranges, the same up-front "precompute
// all boundaries first" approach the teacher's scanner uses
// (findSafeRecordBoundary), simplified for a format with no quoted
// fields: a safe cut point is simply the next newline at or after a
// chunk-size hint, no quote-parity walk needed.
package partition

import "bytes"

// Split divides data into workers byte ranges and returns workers+1
// boundaries: boundaries[i] is the start offset of worker i's range,
// boundaries[workers] is len(data), the end sentinel. Every interior
// boundary sits one byte past a '\n', so each range holds only whole
// lines. Adjacent boundaries may be equal when a worker's hint lands in
// a chunk with no more data to claim; callers should skip ranges where
// start >= end.
func Split(data []byte, workers int) []int64 {
	if workers < 1 {
		workers = 1
	}
	size := len(data)
	boundaries := make([]int64, workers+1)
	boundaries[workers] = int64(size)
	if size == 0 {
		return boundaries
	}

	chunkSize := size / workers
	for i := 1; i < workers; i++ {
		hint := i * chunkSize
		if hint >= size {
			boundaries[i] = int64(size)
			continue
		}
		boundaries[i] = int64(safeBoundary(data, hint))
	}

	for i := 1; i <= workers; i++ {
		if boundaries[i] < boundaries[i-1] {
			boundaries[i] = boundaries[i-1]
		}
	}
	return boundaries
}

// safeBoundary returns one byte past the first '\n' at or after hint, or
// len(data) if there is none. A hint that already sits at the start of a
// line still advances past the end of that line.
func safeBoundary(data []byte, hint int) int {
	nl := bytes.IndexByte(data[hint:], '\n')
	if nl == -1 {
		return len(data)
	}
	return hint + nl + 1
}
