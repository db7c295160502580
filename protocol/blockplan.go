package protocol

import "github.com/tocurd/go-bsl/memimage"

// Block is one contiguous transaction-sized run of defined bytes.
type Block struct {
	Addr int
	Data []byte
}

// PlanWriteBlocks splits every maximal run of consecutive defined
// bytes in [lo, hi] into chunks of at most maxLen bytes, aligned on
// maxLen where possible (unaligned leading/trailing tails permitted).
// Blocks are returned in ascending address order.
func PlanWriteBlocks(img *memimage.Image, lo, hi, maxLen int) ([]Block, error) {
	var blocks []Block
	addr := lo
	for addr <= hi {
		if !img.Defined(addr) {
			addr++
			continue
		}
		runStart := addr
		for addr <= hi && img.Defined(addr) {
			addr++
		}
		runEnd := addr - 1 // inclusive

		pos := runStart
		for pos <= runEnd {
			limit := maxLen - (pos % maxLen)
			if limit <= 0 {
				limit = maxLen
			}
			end := pos + limit - 1
			if end > runEnd {
				end = runEnd
			}
			data := make([]byte, end-pos+1)
			for i := range data {
				v, _ := img.Get(pos + i)
				data[i] = v
			}
			blocks = append(blocks, Block{Addr: pos, Data: data})
			pos = end + 1
		}
	}
	return blocks, nil
}

// PlanReadChunks splits [lo, hi] into chunks of at most maxLen bytes
// with no alignment constraint, in ascending address order.
func PlanReadChunks(lo, hi, maxLen int) []Block {
	var chunks []Block
	for addr := lo; addr <= hi; addr += maxLen {
		n := maxLen
		if addr+n-1 > hi {
			n = hi - addr + 1
		}
		chunks = append(chunks, Block{Addr: addr, Data: make([]byte, n)})
	}
	return chunks
}
