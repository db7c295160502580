package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/memimage"
)

// DecodeASCIITable parses the `# addr\tvalue` text table. Lines
// beginning with '#' are comments; every other non-blank line must be
// two whitespace-separated tokens, each either decimal or 0x-prefixed
// hex.
func DecodeASCIITable(img *memimage.Image, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return &bslerr.InvalidCharacter{Line: line, Token: text}
		}
		addr, err := parseASCIIToken(fields[0])
		if err != nil {
			return &bslerr.InvalidCharacter{Line: line, Token: fields[0]}
		}
		value, err := parseASCIIToken(fields[1])
		if err != nil || value > 0xFF {
			return &bslerr.InvalidCharacter{Line: line, Token: fields[1]}
		}
		if addr >= img.Len() {
			return &bslerr.FileBufferExceeded{Address: addr, Capacity: img.Len()}
		}
		if err := img.Set(addr, byte(value)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseASCIIToken(tok string) (int, error) {
	base := 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		base = 16
		tok = tok[2:]
	}
	for _, r := range tok {
		ok := (r >= '0' && r <= '9') ||
			(base == 16 && ((r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')))
		if !ok {
			return 0, fmt.Errorf("invalid character %q", r)
		}
	}
	v, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// EncodeASCIITable emits a header line followed by one `0xADDR\t0xVV`
// line per defined byte in ascending address order.
func EncodeASCIITable(img *memimage.Image) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# address\tvalue\n")

	first, last, count, _ := img.Extent(0, img.Len()-1)
	if count == 0 {
		return buf.Bytes(), nil
	}
	for a := first; a <= last; a++ {
		v, defined := img.Get(a)
		if !defined {
			continue
		}
		fmt.Fprintf(&buf, "0x%04X\t0x%02X\n", a, v)
	}
	return buf.Bytes(), nil
}
