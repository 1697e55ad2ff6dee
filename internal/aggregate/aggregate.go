// Package aggregate implements the hot per-range counting loop: walk a
// newline-aligned byte range, pull the slug and date key out of each
// fixed-shape line, and increment a dense flat counter matrix. It plays
// the role of the teacher's processChunk/parseLineSimd, narrowed from
// general CSV field extraction to this format's two fixed fields.
package aggregate

import (
	"bytes"
	"math/bits"

	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/layout"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
	"github.com/asterd/100-million-row-challenge/internal/simd"
)

var urlPrefixBytes = []byte(layout.URLPrefix)

// NewMatrix allocates a zeroed P*D counter matrix.
func NewMatrix(pathCount, dateCount int) []uint32 {
	return make([]uint32, pathCount*dateCount)
}

// Run scans region, a newline-aligned byte range sliced from the
// mmapped input (see internal/partition), and increments matrix for
// every well-formed line naming a registered path and an in-window
// date. Lines with an unrecognized path, an out-of-window date, or a
// malformed shape are silently skipped, per spec's error-handling
// design: no row in this pipeline aborts the run.
//
// It returns the number of lines it judged well-formed and registered
// (valid) against the total number of lines it walked (total).
func Run(region []byte, paths *pathregistry.Registry, dates *dateindex.Index, matrix []uint32) (valid, total int64) {
	if len(region) == 0 {
		return 0, 0
	}

	bitmapLen := (len(region) + 63) / 64
	newlines := make([]uint64, bitmapLen)
	simd.Scan(region, newlines)

	lineStart := 0
	for wordIdx, word := range newlines {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			word &^= 1 << uint(tz)
			nlPos := wordIdx*64 + tz
			if nlPos >= len(region) {
				continue
			}

			line := region[lineStart:nlPos]
			total++
			if processLine(line, paths, dates, matrix) {
				valid++
			}
			lineStart = nlPos + 1
		}
	}
	return valid, total
}

// processLine parses one line (no trailing newline) and increments its
// matrix cell. It reports whether the line was recognized.
func processLine(line []byte, paths *pathregistry.Registry, dates *dateindex.Index, matrix []uint32) bool {
	const minLen = layout.URLPrefixLen + 1 + layout.LineTailLenNoNL
	if len(line) < minLen {
		return false
	}
	if !bytes.Equal(line[:layout.URLPrefixLen], urlPrefixBytes) {
		return false
	}

	slugEnd := len(line) - layout.LineTailLenNoNL
	slug := line[layout.URLPrefixLen:slugEnd]
	tail := line[slugEnd:]
	if tail[0] != ',' {
		return false
	}

	dateKey := tail[layout.DateKeyOffsetFromComma : layout.DateKeyOffsetFromComma+layout.DateKeyLen]
	dateID, ok := dates.Lookup(dateKey)
	if !ok {
		return false
	}

	pathID, ok := paths.Lookup(slug)
	if !ok {
		return false
	}

	idx := paths.Offset(pathID) + dateID
	matrix[idx]++
	return true
}

