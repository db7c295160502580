// Package codec implements the file formats the programmer loads
// images from and exports images to: Motorola S-record, Intel HEX, an
// ASCII address/value table, and raw binary. Every decoder is strict —
// a structural or checksum deviation aborts decoding and reports the
// offending line number or byte offset rather than skipping it.
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

// srecBlockSize is the maximum number of data bytes per emitted
// S-record, chosen to match typical device write block efficiency.
const srecBlockSize = 32

// DecodeSRecord parses Motorola S-record text and defines the
// corresponding bytes in img. S1/S2/S3 records carry data; S0 header,
// S5 count, and S7/S8/S9 termination records are tolerated but produce
// no data.
func DecodeSRecord(img *memimage.Image, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := decodeSRecordLine(img, text, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func srecAddrWidth(recType byte) (int, bool) {
	switch recType {
	case '0', '1', '5', '9':
		return 2, true
	case '2', '8':
		return 3, true
	case '3', '7':
		return 4, true
	default:
		return 0, false
	}
}

func decodeSRecordLine(img *memimage.Image, text string, line int) error {
	if len(text) < 4 || text[0] != 'S' {
		return &bslerr.SRecordInvalidStart{Line: line}
	}
	recType := text[1]
	addrWidth, ok := srecAddrWidth(recType)
	if !ok {
		return &bslerr.SRecordInvalidStart{Line: line}
	}

	body, err := hex.DecodeString(text[2:])
	if err != nil || len(body) < 1 {
		return &bslerr.SRecordInvalidStart{Line: line}
	}
	recLen := int(body[0])
	if recLen != len(body)-1 {
		return &bslerr.SRecordInvalidStart{Line: line}
	}
	if recLen < addrWidth+1 {
		return &bslerr.SRecordAddressOverflow{Line: line, Type: recType}
	}

	sum := byte(recLen)
	for _, b := range body[1:] {
		sum += b
	}
	if sum != 0xFF {
		want := byte(0xFF) - (sum - body[len(body)-1])
		return &bslerr.SRecordChecksum{Line: line, Expected: want, Got: body[len(body)-1]}
	}

	if recType != '1' && recType != '2' && recType != '3' {
		return nil
	}

	addr := 0
	for i := 0; i < addrWidth; i++ {
		addr = addr<<8 | int(body[1+i])
	}
	payload := body[1+addrWidth : len(body)-1]

	if addr+len(payload) > img.Len() {
		return &bslerr.FileBufferExceeded{Address: addr + len(payload), Capacity: img.Len()}
	}
	for i, b := range payload {
		if err := img.Set(addr+i, b); err != nil {
			return err
		}
	}
	return nil
}

// EncodeSRecord emits the defined bytes of img as S-record text: a
// dummy S0 header, S1/S2/S3 data records grouped into blocks of up to
// srecBlockSize bytes, and a matching termination record.
func EncodeSRecord(img *memimage.Image) ([]byte, error) {
	first, last, count, _ := img.Extent(0, img.Len()-1)
	var buf bytes.Buffer

	writeSRecordLine(&buf, '0', 0, []byte("go-bsl"))

	if count == 0 {
		writeSRecordLine(&buf, '9', 0, nil)
		return buf.Bytes(), nil
	}

	recType, termType := srecTypeFor(last)

	addr := first
	for addr <= last {
		if !img.Defined(addr) {
			addr++
			continue
		}
		runStart := addr
		// Cap each block so it ends on a 32-byte address boundary where
		// possible: the first block of a run may be short if runStart
		// isn't aligned, every block after that starts on a boundary and
		// holds up to 32 bytes (the last block of a run may be short).
		limit := srecBlockSize - (runStart % srecBlockSize)
		chunk := make([]byte, 0, srecBlockSize)
		for addr <= last && img.Defined(addr) && len(chunk) < limit {
			v, _ := img.Get(addr)
			chunk = append(chunk, v)
			addr++
		}
		writeSRecordLine(&buf, recType, runStart, chunk)
	}

	writeSRecordLine(&buf, termType, 0, nil)
	return buf.Bytes(), nil
}

func srecTypeFor(maxAddr int) (data byte, term byte) {
	switch {
	case maxAddr <= 0xFFFF:
		return '1', '9'
	case maxAddr <= 0xFFFFFF:
		return '2', '8'
	default:
		return '3', '7'
	}
}

func writeSRecordLine(buf *bytes.Buffer, recType byte, addr int, data []byte) {
	addrWidth, _ := srecAddrWidth(recType)
	recLen := addrWidth + len(data) + 1

	body := make([]byte, 0, 1+addrWidth+len(data))
	body = append(body, byte(recLen))
	for i := addrWidth - 1; i >= 0; i-- {
		body = append(body, byte(addr>>(8*i)))
	}
	body = append(body, data...)

	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	chk := ^sum

	fmt.Fprintf(buf, "S%c%s%s\n", recType, strings.ToUpper(hex.EncodeToString(body)), strings.ToUpper(hex.EncodeToString([]byte{chk})))
}
