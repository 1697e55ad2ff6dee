//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// HasAVX2 reports whether the running CPU supports AVX2.
func HasAVX2() bool { return cpu.X86.HasAVX2 }

// HasSSE42 reports whether the running CPU supports SSE4.2.
func HasSSE42() bool { return cpu.X86.HasSSE42 }
