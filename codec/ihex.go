package codec

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/memimage"
)

const (
	ihexTypeData          = 0x00
	ihexTypeEOF           = 0x01
	ihexTypeExtSegment    = 0x02
	ihexTypeStartSegment  = 0x03
	ihexTypeExtLinear     = 0x04
	ihexTypeStartLinear   = 0x05
	ihexBlockSize         = 32
)

// DecodeIntelHex parses Intel HEX text and defines the corresponding
// bytes in img. Extended-linear-address (type 04) records shift
// subsequent 16-bit record addresses by 16 bits; extended-segment-
// address (type 02) is an explicit error, not a silently-ignored
// record, per the format's record-type policy.
func DecodeIntelHex(img *memimage.Image, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	var upperAddr uint32
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		done, err := decodeIntelHexLine(img, text, line, &upperAddr)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}

func decodeIntelHexLine(img *memimage.Image, text string, line int, upperAddr *uint32) (done bool, err error) {
	if len(text) < 1 || text[0] != ':' {
		return false, &bslerr.HexInvalidStart{Line: line}
	}
	body, err := hex.DecodeString(text[1:])
	if err != nil || len(body) < 5 {
		return false, &bslerr.HexInvalidStart{Line: line}
	}
	recLen := int(body[0])
	addr16 := uint32(body[1])<<8 | uint32(body[2])
	recType := body[3]
	if len(body) != recLen+5 {
		return false, &bslerr.HexInvalidStart{Line: line}
	}
	payload := body[4 : 4+recLen]
	chk := body[4+recLen]

	sum := byte(0)
	for _, b := range body[:4+recLen] {
		sum += b
	}
	want := byte(0) - sum // two's complement of low byte of sum
	if want != chk {
		return false, &bslerr.HexChecksum{Line: line, Expected: want, Got: chk}
	}

	switch recType {
	case ihexTypeData:
		linear := uint64(*upperAddr)<<16 | uint64(addr16)
		if linear+uint64(len(payload)) > uint64(img.Len()) {
			return false, &bslerr.FileBufferExceeded{Address: int(linear) + len(payload), Capacity: img.Len()}
		}
		for i, b := range payload {
			if err := img.Set(int(linear)+i, b); err != nil {
				return false, err
			}
		}
	case ihexTypeEOF:
		return true, nil
	case ihexTypeExtSegment:
		return false, &bslerr.HexUnsupportedType{Line: line, Type: recType}
	case ihexTypeStartSegment:
		// ignored: sets CS:IP for an 8086 start address, not relevant
		// to a flat flash/RAM image.
	case ihexTypeExtLinear:
		if len(payload) != 2 {
			return false, &bslerr.HexInvalidStart{Line: line}
		}
		*upperAddr = uint32(payload[0])<<8 | uint32(payload[1])
	case ihexTypeStartLinear:
		// ignored: sets EIP, not relevant to a flat flash/RAM image.
	default:
		return false, &bslerr.HexUnsupportedType{Line: line, Type: recType}
	}
	return false, nil
}

// EncodeIntelHex emits the defined bytes of img as Intel HEX text,
// inserting a type-04 extended-linear-address record whenever the upper
// 16 bits of the next block's address change, and terminating with the
// standard EOF record.
func EncodeIntelHex(img *memimage.Image) ([]byte, error) {
	first, last, count, _ := img.Extent(0, img.Len()-1)
	var buf bytes.Buffer

	if count == 0 {
		buf.WriteString(":00000001FF\n")
		return buf.Bytes(), nil
	}

	var upperAddr uint32 = 0xFFFFFFFF // force an initial ELA record
	addr := first
	for addr <= last {
		if !img.Defined(addr) {
			addr++
			continue
		}
		runStart := addr
		upper := uint32(runStart) >> 16
		if upper != upperAddr {
			writeIHexRecord(&buf, ihexTypeExtLinear, 0, []byte{byte(upper >> 8), byte(upper)})
			upperAddr = upper
		}

		limit := runStart&0xFFFF + ihexBlockSize
		if limit > 0x10000 {
			limit = 0x10000
		}
		chunk := make([]byte, 0, ihexBlockSize)
		for addr <= last && img.Defined(addr) && len(chunk) < ihexBlockSize && addr&0xFFFF < limit {
			v, _ := img.Get(addr)
			chunk = append(chunk, v)
			addr++
		}
		writeIHexRecord(&buf, ihexTypeData, uint16(runStart&0xFFFF), chunk)
	}

	buf.WriteString(":00000001FF\n")
	return buf.Bytes(), nil
}

func writeIHexRecord(buf *bytes.Buffer, recType byte, addr16 uint16, data []byte) {
	body := make([]byte, 0, 4+len(data))
	body = append(body, byte(len(data)), byte(addr16>>8), byte(addr16), recType)
	body = append(body, data...)

	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	chk := byte(0) - sum

	fmt.Fprintf(buf, ":%s%s\n", strings.ToUpper(hex.EncodeToString(body)), strings.ToUpper(hex.EncodeToString([]byte{chk})))
}
