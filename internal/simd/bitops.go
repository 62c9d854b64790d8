package simd

// allTrueWide reports whether every byte in data is nonzero, using 8x
// unrolling so the compiler can keep the loop branch-light on tiers that
// have wide registers to spend on it.
func allTrueWide(data []byte) bool {
	i := 0
	n := len(data)
	for ; i <= n-8; i += 8 {
		if data[i] == 0 || data[i+1] == 0 || data[i+2] == 0 || data[i+3] == 0 ||
			data[i+4] == 0 || data[i+5] == 0 || data[i+6] == 0 || data[i+7] == 0 {
			return false
		}
	}
	for ; i < n; i++ {
		if data[i] == 0 {
			return false
		}
	}
	return true
}

// allTrueNarrow is the byte-at-a-time fallback for tiers without a wide
// kernel (sse2, ref).
func allTrueNarrow(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

func allFalseWide(data []byte) bool {
	i := 0
	n := len(data)
	for ; i <= n-8; i += 8 {
		if data[i] != 0 || data[i+1] != 0 || data[i+2] != 0 || data[i+3] != 0 ||
			data[i+4] != 0 || data[i+5] != 0 || data[i+6] != 0 || data[i+7] != 0 {
			return false
		}
	}
	for ; i < n; i++ {
		if data[i] != 0 {
			return false
		}
	}
	return true
}

func allFalseNarrow(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// invertWide flips each byte between the canonical 0x00/0x01 encoding.
// In-place: the kernel contract documents this as the sole exception to
// the no-overlap rule.
func invertWide(data []byte) {
	i := 0
	n := len(data)
	for ; i <= n-8; i += 8 {
		for j := 0; j < 8; j++ {
			if data[i+j] != 0 {
				data[i+j] = 0
			} else {
				data[i+j] = 1
			}
		}
	}
	for ; i < n; i++ {
		if data[i] != 0 {
			data[i] = 0
		} else {
			data[i] = 1
		}
	}
}

func invertNarrow(data []byte) {
	for i, b := range data {
		if b != 0 {
			data[i] = 0
		} else {
			data[i] = 1
		}
	}
}

// andWide performs dst[i] = (dst[i]!=0 && src[i]!=0) ? 1 : 0, canonicalizing
// to {0,1} regardless of the nonzero input convention.
func andWide(dst, src []byte) {
	i := 0
	n := len(dst)
	for ; i <= n-8; i += 8 {
		for j := 0; j < 8; j++ {
			if dst[i+j] != 0 && src[i+j] != 0 {
				dst[i+j] = 1
			} else {
				dst[i+j] = 0
			}
		}
	}
	for ; i < n; i++ {
		if dst[i] != 0 && src[i] != 0 {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

func andNarrow(dst, src []byte) {
	for i := range dst {
		if dst[i] != 0 && src[i] != 0 {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

func orWide(dst, src []byte) {
	i := 0
	n := len(dst)
	for ; i <= n-8; i += 8 {
		for j := 0; j < 8; j++ {
			if dst[i+j] != 0 || src[i+j] != 0 {
				dst[i+j] = 1
			} else {
				dst[i+j] = 0
			}
		}
	}
	for ; i < n; i++ {
		if dst[i] != 0 || src[i] != 0 {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

func orNarrow(dst, src []byte) {
	for i := range dst {
		if dst[i] != 0 || src[i] != 0 {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
}

// getBitsetBlockRef packs up to 64 bools (nonzero byte = true) into one
// little-endian word, bit i of the word corresponding to src[i]. Trailing
// bits beyond len(src) are zero.
func getBitsetBlockRef(src []byte) uint64 {
	var word uint64
	n := len(src)
	if n > 64 {
		n = 64
	}
	for i := 0; i < n; i++ {
		if src[i] != 0 {
			word |= 1 << uint(i)
		}
	}
	return word
}

// Popcount returns the number of set bits in x.
func Popcount(x uint64) int {
	return onesCount64(x)
}

// HammingDistance computes the Hamming distance between two packed bit
// vectors of equal word length, backing the Hamming metric.
func HammingDistance(a, b []uint64) int {
	dist := 0
	for i := range a {
		dist += onesCount64(a[i] ^ b[i])
	}
	return dist
}

func onesCount64(x uint64) int {
	const m0 = 0x5555555555555555
	const m1 = 0x3333333333333333
	const m2 = 0x0f0f0f0f0f0f0f0f

	x -= (x >> 1) & m0
	x = (x & m1) + ((x >> 2) & m1)
	x = (x + (x >> 4)) & m2
	x += x >> 8
	x += x >> 16
	x += x >> 32
	return int(x & 0x7f)
}
