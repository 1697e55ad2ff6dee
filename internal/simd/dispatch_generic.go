//go:build !amd64

package simd

// HasAVX2 always reports false off AMD64.
func HasAVX2() bool { return false }

// HasSSE42 always reports false off AMD64.
func HasSSE42() bool { return false }
