// Package memimage implements the address-sparse memory image shared by
// the file codecs and the protocol engine: a dense array of 16-bit
// tagged cells where the high byte is a presence flag (0xFF = defined,
// 0x00 = undefined) and the low byte is the data.
//
// This 16-bit-tagged encoding is an invariant of the whole module, not
// an implementation detail of this package: callers outside memimage
// never construct cells directly, but the HB/LB split is part of the
// public contract that codecs and the protocol engine rely on for cheap
// "is this byte present" iteration.
package memimage

import "github.com/tocurd/go-bsl/bslerr"

// DefaultCapacity covers the largest addressable target space this
// module targets: 16 MiB of flat address space.
const DefaultCapacity = 16 * 1024 * 1024

const (
	tagDefined   = 0xFF00
	tagUndefined = 0x0000
	dataMask     = 0x00FF
)

// Image is a fixed-capacity sparse byte array. The zero value is not
// usable; construct with New.
type Image struct {
	cells []uint16
}

// New returns an all-undefined image with the given capacity.
func New(capacity int) *Image {
	return &Image{cells: make([]uint16, capacity)}
}

// NewDefault returns an all-undefined image sized to DefaultCapacity.
func NewDefault() *Image {
	return New(DefaultCapacity)
}

// Len returns the image's capacity.
func (img *Image) Len() int { return len(img.cells) }

func (img *Image) validateRange(lo, hi int) error {
	if lo > hi {
		return &bslerr.AddressStartGreaterEnd{Start: lo, End: hi}
	}
	if lo < 0 || lo >= len(img.cells) {
		return &bslerr.AddressStartGreaterBuffer{Start: lo, Capacity: len(img.cells)}
	}
	if hi < 0 || hi >= len(img.cells) {
		return &bslerr.AddressEndGreaterBuffer{End: hi, Capacity: len(img.cells)}
	}
	return nil
}

// Defined reports whether addr holds a defined byte.
func (img *Image) Defined(addr int) bool {
	return addr >= 0 && addr < len(img.cells) && img.cells[addr]&0xFF00 != 0
}

// Get returns the byte at addr and whether it is defined. Out-of-range
// addresses read as undefined.
func (img *Image) Get(addr int) (value byte, defined bool) {
	if addr < 0 || addr >= len(img.cells) {
		return 0, false
	}
	c := img.cells[addr]
	return byte(c & dataMask), c&0xFF00 != 0
}

// Set defines addr with value.
func (img *Image) Set(addr int, value byte) error {
	if err := img.validateRange(addr, addr); err != nil {
		return err
	}
	img.cells[addr] = tagDefined | uint16(value)
	return nil
}

// Clear undefines addr.
func (img *Image) Clear(addr int) error {
	if err := img.validateRange(addr, addr); err != nil {
		return err
	}
	img.cells[addr] = tagUndefined
	return nil
}

// Extent returns the lowest and highest defined addresses within
// [scanLo, scanHi] and the count of defined bytes in that window. If no
// byte is defined, it returns (Len(), 0, 0).
func (img *Image) Extent(scanLo, scanHi int) (first, last, count int, err error) {
	if err := img.validateRange(scanLo, scanHi); err != nil {
		return 0, 0, 0, err
	}
	first = len(img.cells)
	last = 0
	for a := scanLo; a <= scanHi; a++ {
		if img.cells[a]&0xFF00 != 0 {
			if a < first {
				first = a
			}
			if a > last {
				last = a
			}
			count++
		}
	}
	return first, last, count, nil
}

// FullExtent is Extent over the whole image.
func (img *Image) FullExtent() (first, last, count int) {
	first, last, count, _ = img.Extent(0, len(img.cells)-1)
	return
}

// Fill sets every byte in [lo, hi] to value, defined. Idempotent.
func (img *Image) Fill(lo, hi int, value byte) error {
	if err := img.validateRange(lo, hi); err != nil {
		return err
	}
	cell := tagDefined | uint16(value)
	for a := lo; a <= hi; a++ {
		img.cells[a] = cell
	}
	return nil
}

// Clip undefines every byte outside [lo, hi], preserving defined values
// inside.
func (img *Image) Clip(lo, hi int) error {
	if err := img.validateRange(lo, hi); err != nil {
		return err
	}
	for a := 0; a < lo; a++ {
		img.cells[a] = tagUndefined
	}
	for a := hi + 1; a < len(img.cells); a++ {
		img.cells[a] = tagUndefined
	}
	return nil
}

// Cut undefines every byte inside [lo, hi].
func (img *Image) Cut(lo, hi int) error {
	if err := img.validateRange(lo, hi); err != nil {
		return err
	}
	for a := lo; a <= hi; a++ {
		img.cells[a] = tagUndefined
	}
	return nil
}

// Copy duplicates [srcLo, srcHi] (both defined and undefined cells) to
// start at dstLo, preserving the source.
func (img *Image) Copy(srcLo, srcHi, dstLo int) error {
	if err := img.validateRange(srcLo, srcHi); err != nil {
		return err
	}
	n := srcHi - srcLo + 1
	dstHi := dstLo + n - 1
	if err := img.validateRange(dstLo, dstHi); err != nil {
		return err
	}
	tmp := make([]uint16, n)
	copy(tmp, img.cells[srcLo:srcHi+1])
	copy(img.cells[dstLo:dstHi+1], tmp)
	return nil
}

// Move copies [srcLo, srcHi] to start at dstLo, then clears the source
// range. The Copy step reads the source into a temporary buffer before
// any mutation, so an overlapping move copies the pre-move data. The
// clear step only undefines source addresses that fall outside the
// destination range: when src and dst overlap, Cut(srcLo, srcHi) alone
// would erase destination bytes the copy just wrote, which is why Move
// cannot be implemented as plain Copy-then-Cut.
func (img *Image) Move(srcLo, srcHi, dstLo int) error {
	if err := img.Copy(srcLo, srcHi, dstLo); err != nil {
		return err
	}
	n := srcHi - srcLo + 1
	dstHi := dstLo + n - 1
	for a := srcLo; a <= srcHi; a++ {
		if a >= dstLo && a <= dstHi {
			continue
		}
		img.cells[a] = tagUndefined
	}
	return nil
}
