package bitset

import "testing"

func TestSetGetClear(t *testing.T) {
	b := New(100)
	for i := 0; i < 100; i++ {
		if b.Get(i) {
			t.Errorf("bit %d should be unset initially", i)
		}
	}

	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(99)

	for _, i := range []int{0, 63, 64, 99} {
		if !b.Get(i) {
			t.Errorf("bit %d should be set", i)
		}
	}
	if b.Get(1) || b.Get(62) {
		t.Error("untouched bits should remain unset")
	}

	b.Clear(63)
	if b.Get(63) {
		t.Error("bit 63 should be cleared")
	}
}

func TestFlipIsInvolution(t *testing.T) {
	b := New(70)
	b.Set(3)
	b.Set(69)
	before := b.CountOnes()

	b.Flip()
	b.Flip()

	if b.CountOnes() != before {
		t.Fatalf("flip twice changed popcount: before=%d after=%d", before, b.CountOnes())
	}
	if !b.Get(3) || !b.Get(69) {
		t.Error("double flip did not restore original bits")
	}
}

func TestFlipClearsTailBits(t *testing.T) {
	b := New(70) // 2 words, 6 live bits in the second word
	b.Flip()
	if !b.All() {
		t.Fatal("expected all live bits set after flipping an empty bitset")
	}
	if b.CountOnes() != 70 {
		t.Fatalf("tail bits leaked into CountOnes: got %d want 70", b.CountOnes())
	}
}

func TestAllAndNone(t *testing.T) {
	b := New(10)
	if !b.None() {
		t.Fatal("fresh bitset should be None()")
	}
	for i := 0; i < 10; i++ {
		b.Set(i)
	}
	if !b.All() {
		t.Fatal("fully set bitset should be All()")
	}
}

func TestAndOr(t *testing.T) {
	a := New(8)
	b := New(8)
	a.Set(0)
	a.Set(1)
	b.Set(1)
	b.Set(2)

	and := a.Clone()
	and.And(b)
	if and.CountOnes() != 1 || !and.Get(1) {
		t.Fatalf("expected And to keep only bit 1, got %v", and.ToBytes())
	}

	or := a.Clone()
	or.Or(b)
	if or.CountOnes() != 3 {
		t.Fatalf("expected Or to set 3 bits, got %d", or.CountOnes())
	}
}

func TestAppendBoolRoundTrip(t *testing.T) {
	src := make([]byte, 128)
	for i := 0; i < len(src); i += 3 {
		src[i] = 1
	}

	b := New(len(src))
	b.AppendBool(0, src)

	got := b.ToBytes()
	for i := range src {
		if (src[i] != 0) != (got[i] != 0) {
			t.Fatalf("round trip mismatch at %d: want %d got %d", i, src[i], got[i])
		}
	}
}

func TestAppendBoolUnalignedOffset(t *testing.T) {
	b := New(80)
	src := make([]byte, 64)
	for i := range src {
		src[i] = 1
	}
	b.AppendBool(5, src)

	for i := 0; i < 5; i++ {
		if b.Get(i) {
			t.Fatalf("bit %d before offset should be unset", i)
		}
	}
	for i := 5; i < 69; i++ {
		if !b.Get(i) {
			t.Fatalf("bit %d within appended range should be set", i)
		}
	}
}

func TestViewReadsBorrowedBits(t *testing.T) {
	b := New(16)
	b.Set(4)
	b.Set(10)

	v := b.View()
	if v.Len() != 16 {
		t.Fatalf("view length mismatch: got %d", v.Len())
	}
	if !v.Get(4) || !v.Get(10) {
		t.Fatal("view did not see bits set before it was taken")
	}
	if v.CountOnes() != 2 {
		t.Fatalf("view popcount mismatch: got %d", v.CountOnes())
	}
}
