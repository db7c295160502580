package memimage

import (
	"testing"

	"github.com/tocurd/go-bsl/bslerr"
)

func TestSetGetDefined(t *testing.T) {
	img := New(1024)
	if _, defined := img.Get(0x10); defined {
		t.Fatalf("fresh image should read undefined")
	}
	if err := img.Set(0x10, 0xAB); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, defined := img.Get(0x10)
	if !defined || v != 0xAB {
		t.Fatalf("got (%v, %v), want (0xAB, true)", v, defined)
	}
}

func TestExtentEmpty(t *testing.T) {
	img := New(1024)
	first, last, count, err := img.Extent(0, 1023)
	if err != nil {
		t.Fatalf("Extent: %v", err)
	}
	if first != 1024 || last != 0 || count != 0 {
		t.Fatalf("got (%d,%d,%d), want (1024,0,0)", first, last, count)
	}
}

func TestExtentAgreement(t *testing.T) {
	img := New(1024)
	for _, a := range []int{0x10, 0x11, 0x20} {
		if err := img.Set(a, byte(a)); err != nil {
			t.Fatalf("Set(%d): %v", a, err)
		}
	}
	first, last, count, err := img.Extent(0, 1023)
	if err != nil {
		t.Fatalf("Extent: %v", err)
	}
	if first != 0x10 || last != 0x20 || count != 3 {
		t.Fatalf("got (%#x,%#x,%d), want (0x10,0x20,3)", first, last, count)
	}
}

func TestExtentInvalidRange(t *testing.T) {
	img := New(1024)
	if _, _, _, err := img.Extent(10, 5); err == nil {
		t.Fatalf("expected error for lo > hi")
	} else if _, ok := err.(*bslerr.AddressStartGreaterEnd); !ok {
		t.Fatalf("got %T, want *AddressStartGreaterEnd", err)
	}
	if _, _, _, err := img.Extent(0, 2000); err == nil {
		t.Fatalf("expected error for hi >= capacity")
	} else if _, ok := err.(*bslerr.AddressEndGreaterBuffer); !ok {
		t.Fatalf("got %T, want *AddressEndGreaterBuffer", err)
	}
}

func TestFillIdempotent(t *testing.T) {
	img := New(64)
	if err := img.Fill(4, 8, 0x42); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := img.Fill(4, 8, 0x42); err != nil {
		t.Fatalf("Fill (again): %v", err)
	}
	for a := 4; a <= 8; a++ {
		v, defined := img.Get(a)
		if !defined || v != 0x42 {
			t.Fatalf("addr %d: got (%v,%v), want (0x42,true)", a, v, defined)
		}
	}
}

func TestClipPreservesInside(t *testing.T) {
	img := New(64)
	_ = img.Fill(0, 63, 0x11)
	if err := img.Clip(10, 20); err != nil {
		t.Fatalf("Clip: %v", err)
	}
	for a := 0; a < 10; a++ {
		if _, defined := img.Get(a); defined {
			t.Fatalf("addr %d should be undefined after clip", a)
		}
	}
	for a := 10; a <= 20; a++ {
		v, defined := img.Get(a)
		if !defined || v != 0x11 {
			t.Fatalf("addr %d should remain defined inside clip range", a)
		}
	}
	for a := 21; a < 64; a++ {
		if _, defined := img.Get(a); defined {
			t.Fatalf("addr %d should be undefined after clip", a)
		}
	}
}

func TestCut(t *testing.T) {
	img := New(64)
	_ = img.Fill(0, 63, 0x11)
	if err := img.Cut(10, 20); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	for a := 10; a <= 20; a++ {
		if _, defined := img.Get(a); defined {
			t.Fatalf("addr %d should be undefined after cut", a)
		}
	}
	if v, defined := img.Get(5); !defined || v != 0x11 {
		t.Fatalf("addr 5 should remain defined")
	}
}

func TestCopyPreservesSource(t *testing.T) {
	img := New(128)
	_ = img.Set(0, 0xAA)
	_ = img.Set(1, 0xBB)
	if err := img.Copy(0, 1, 64); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if v, defined := img.Get(0); !defined || v != 0xAA {
		t.Fatalf("source byte 0 should be preserved")
	}
	if v, defined := img.Get(64); !defined || v != 0xAA {
		t.Fatalf("dest byte 64 should equal source")
	}
	if v, defined := img.Get(65); !defined || v != 0xBB {
		t.Fatalf("dest byte 65 should equal source")
	}
}

func TestMoveComposability(t *testing.T) {
	// move(src, dst) must be observationally equal to copy(src, dst) + cut(src).
	mk := func() *Image {
		img := New(128)
		_ = img.Set(0, 0xAA)
		_ = img.Set(1, 0xBB)
		_ = img.Set(2, 0xCC)
		return img
	}

	moved := mk()
	if err := moved.Move(0, 2, 10); err != nil {
		t.Fatalf("Move: %v", err)
	}

	composed := mk()
	if err := composed.Copy(0, 2, 10); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if err := composed.Cut(0, 2); err != nil {
		t.Fatalf("Cut: %v", err)
	}

	for a := 0; a < 128; a++ {
		mv, mDef := moved.Get(a)
		cp, cDef := composed.Get(a)
		if mv != cp || mDef != cDef {
			t.Fatalf("addr %d diverges: move=(%v,%v) compose=(%v,%v)", a, mv, mDef, cp, cDef)
		}
	}
}

func TestMoveOverlapping(t *testing.T) {
	img := New(128)
	_ = img.Set(0, 1)
	_ = img.Set(1, 2)
	_ = img.Set(2, 3)
	// Overlapping forward move: dst starts inside [src_lo, src_hi].
	if err := img.Move(0, 2, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if v, defined := img.Get(1); !defined || v != 1 {
		t.Fatalf("addr 1: got (%v,%v), want (1,true)", v, defined)
	}
	if v, defined := img.Get(2); !defined || v != 2 {
		t.Fatalf("addr 2: got (%v,%v), want (2,true)", v, defined)
	}
	if v, defined := img.Get(3); !defined || v != 3 {
		t.Fatalf("addr 3: got (%v,%v), want (3,true)", v, defined)
	}
}

func TestPresenceTagInvariant(t *testing.T) {
	img := New(16)
	_ = img.Set(0, 0xFF)
	_ = img.Clear(0)
	_ = img.Fill(1, 3, 0x00)
	for _, c := range img.cells {
		if c&0xFF00 != 0 && c&0xFF00 != 0xFF00 {
			t.Fatalf("cell 0x%04X has invalid presence tag", c)
		}
	}
}
