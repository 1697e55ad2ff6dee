// Package jsonemit writes the final counter matrix out as the canonical
// pretty-printed JSON document spec.md §4.6 describes. The output must
// match a reference byte-for-byte, so this package never goes through
// encoding/json: it hand-assembles the exact literal shape (escaped
// slashes, selective key omission, fixed indentation) the same way the
// teacher's sorter.go/common.go batch-build their own on-disk record
// format instead of relying on a generic encoder.
package jsonemit

import (
	"bufio"
	"io"
	"strconv"

	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
)

// bodyBufInit is the initial capacity of the per-path day-entry buffer;
// grows as needed, but most paths' accepted days fit well inside this.
const bodyBufInit = 2048

// Write renders matrix — indexed by paths.Offset(id)+dateID, as every
// other component in this pipeline indexes it — to w. Paths appear in
// registry id (discovery) order; days within a path appear in date id
// (chronological) order. A path with zero total visits is omitted
// entirely, and so is a zero-visit day within an included path.
func Write(w io.Writer, paths *pathregistry.Registry, dates *dateindex.Index, matrix []uint32) error {
	bw := bufio.NewWriterSize(w, 1<<16)

	dateCount := dates.Count()

	// Pre-computed per-date prefix, spec.md §4.6: one "        \"YYYY-MM-DD\": "
	// literal per day, built once rather than re-assembled per path.
	datePrefixes := make([]string, dateCount)
	for d := 0; d < dateCount; d++ {
		datePrefixes[d] = "        \"" + dates.Date(int32(d)) + "\": "
	}

	if _, err := bw.WriteString("{"); err != nil {
		return err
	}

	wroteAny := false
	body := make([]byte, 0, bodyBufInit)
	for p := 0; p < paths.Count(); p++ {
		offset := int(paths.Offset(int32(p)))

		body = body[:0]
		anyDay := false
		for d := 0; d < dateCount; d++ {
			count := matrix[offset+d]
			if count == 0 {
				continue
			}
			if anyDay {
				body = append(body, ",\n"...)
			} else {
				body = append(body, '\n')
			}
			body = append(body, datePrefixes[d]...)
			body = strconv.AppendUint(body, uint64(count), 10)
			anyDay = true
		}
		if !anyDay {
			continue
		}

		if wroteAny {
			if _, err := bw.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n    \""); err != nil {
			return err
		}
		if err := writeEscapedKey(bw, paths.Slug(int32(p))); err != nil {
			return err
		}
		if _, err := bw.WriteString("\": {"); err != nil {
			return err
		}
		if _, err := bw.Write(body); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n    }"); err != nil {
			return err
		}
		wroteAny = true
	}

	if !wroteAny {
		// spec.md §4.6: "the empty-file case writes exactly {}\n" — the
		// one spot this format carries a trailing newline.
		if _, err := bw.WriteString("}\n"); err != nil {
			return err
		}
		return bw.Flush()
	}

	if _, err := bw.WriteString("\n}"); err != nil {
		return err
	}
	return bw.Flush()
}

// writeEscapedKey writes "\/blog\/<slug>" with every '/' in slug escaped
// as "\/", the literal key shape spec.md §4.6 requires. Slugs are opaque
// bytes to this pipeline (pathregistry never parses them) beyond this
// one escape rule.
func writeEscapedKey(bw *bufio.Writer, slug string) error {
	if _, err := bw.WriteString("\\/blog\\/"); err != nil {
		return err
	}
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if c == '/' {
			if _, err := bw.WriteString("\\/"); err != nil {
				return err
			}
			continue
		}
		if err := bw.WriteByte(c); err != nil {
			return err
		}
	}
	return nil
}
