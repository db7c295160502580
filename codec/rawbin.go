package codec

import (
	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/memimage"
)

// DecodeRawBinary defines every byte of data starting at baseAddr.
// Raw binary carries no address metadata of its own.
func DecodeRawBinary(img *memimage.Image, data []byte, baseAddr int) error {
	if baseAddr+len(data) > img.Len() {
		return &bslerr.FileBufferExceeded{Address: baseAddr + len(data), Capacity: img.Len()}
	}
	for i, b := range data {
		if err := img.Set(baseAddr+i, b); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRawBinary emits the contiguous range [first, last] of img,
// rendering undefined bytes as 0x00. This is lossy for sparse images:
// raw binary has no way to represent a hole.
func EncodeRawBinary(img *memimage.Image) ([]byte, error) {
	first, last, count, _ := img.Extent(0, img.Len()-1)
	if count == 0 {
		return nil, nil
	}
	out := make([]byte, last-first+1)
	for a := first; a <= last; a++ {
		v, _ := img.Get(a)
		out[a-first] = v
	}
	return out, nil
}
