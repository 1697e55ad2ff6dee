// Package layout names the fixed byte-level shape of an accepted input
// line (spec.md §6), shared by the path registry, the partitioner and the
// hot aggregation loop so the constant lives in exactly one place.
//
//	https://stitcher.io/blog/<slug>,YYYY-MM-DDTHH:MM:SS+00:00\n
package layout

const (
	// URLPrefix precedes every slug on every accepted line.
	URLPrefix = "https://stitcher.io/blog/"

	// URLPrefixLen is len(URLPrefix); also the byte distance from a
	// line's start to the first byte of its slug.
	URLPrefixLen = len(URLPrefix)

	// LineTailLen is the fixed length of ",YYYY-MM-DDTHH:MM:SS+00:00\n"
	// (comma + timestamp + newline), the bytes following the slug.
	LineTailLen = 27

	// LineTailLenNoNL is LineTailLen without the trailing newline —
	// the byte length of ",YYYY-MM-DDTHH:MM:SS+00:00" alone, useful when
	// a line has already been sliced without its terminator.
	LineTailLenNoNL = LineTailLen - 1

	// LineStride is the byte distance from one line's terminating '\n'
	// to the next line's first slug byte: URLPrefixLen + 1.
	LineStride = URLPrefixLen + 1

	// DateKeyOffsetFromComma is where the "YY-MM-DD" key starts relative
	// to the comma following the slug: skip ",20".
	DateKeyOffsetFromComma = 3

	// DateKeyLen is the length of the "YY-MM-DD" key.
	DateKeyLen = 8
)
