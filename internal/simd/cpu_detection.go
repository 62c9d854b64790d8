package simd

import (
	"github.com/klauspost/cpuid/v2"
)

// CPUFeatures contains detected CPU SIMD capabilities, used only to pick
// the dispatch table entry; none of the entries currently emit real
// vector assembly (see DESIGN.md) but the selection order matches what a
// hand-tuned build would pick.
type CPUFeatures struct {
	Vendor    string
	HasAVX512 bool
	HasAVX2   bool
	HasSSE42  bool
	HasSSE2   bool
	HasNEON   bool
}

var (
	features       CPUFeatures
	implementation string
)

// detectCPU selects the best available implementation tier.
//
// x86-64 order: AVX512F+DQ+BW -> AVX2 -> SSE4.2 -> SSE2 -> ref.
// ARM order: NEON -> ref.
func detectCPU() {
	hasAVX512 := cpuid.CPU.Supports(cpuid.AVX512F) &&
		cpuid.CPU.Supports(cpuid.AVX512DQ) &&
		cpuid.CPU.Supports(cpuid.AVX512BW)

	features = CPUFeatures{
		Vendor:    cpuid.CPU.VendorString,
		HasAVX512: hasAVX512,
		HasAVX2:   cpuid.CPU.Supports(cpuid.AVX2),
		HasSSE42:  cpuid.CPU.Supports(cpuid.SSE42),
		HasSSE2:   cpuid.CPU.Supports(cpuid.SSE2),
		HasNEON:   cpuid.CPU.Supports(cpuid.ASIMD),
	}

	switch {
	case features.HasAVX512:
		implementation = "avx512"
	case features.HasAVX2:
		implementation = "avx2"
	case features.HasSSE42:
		implementation = "sse4"
	case features.HasSSE2:
		implementation = "sse2"
	case features.HasNEON:
		implementation = "neon"
	default:
		implementation = "ref"
	}
}

// GetCPUFeatures returns the detected CPU capabilities.
func GetCPUFeatures() CPUFeatures {
	return features
}

// GetImplementation returns the selected dispatch tier name.
func GetImplementation() string {
	return implementation
}
