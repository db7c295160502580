package protocol

import (
	"testing"

	"github.com/tocurd/go-bsl/memimage"
)

func setRun(t *testing.T, img *memimage.Image, lo, hi int) {
	t.Helper()
	for a := lo; a <= hi; a++ {
		if err := img.Set(a, byte(a)); err != nil {
			t.Fatalf("Set(0x%X): %v", a, err)
		}
	}
}

func TestPlanWriteBlocksWorkedExample(t *testing.T) {
	img := memimage.New(0x10000)
	setRun(t, img, 0x8000, 0x80FF)

	blocks, err := PlanWriteBlocks(img, 0x8000, 0x80FF, MaxWriteLen)
	if err != nil {
		t.Fatalf("PlanWriteBlocks: %v", err)
	}
	want := []Block{
		{Addr: 0x8000, Data: make([]byte, 128)},
		{Addr: 0x8080, Data: make([]byte, 128)},
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(want))
	}
	for i, b := range blocks {
		if b.Addr != want[i].Addr || len(b.Data) != len(want[i].Data) {
			t.Fatalf("block %d: addr=0x%X len=%d, want addr=0x%X len=%d",
				i, b.Addr, len(b.Data), want[i].Addr, len(want[i].Data))
		}
	}
}

func TestPlanWriteBlocksUnalignedTail(t *testing.T) {
	img := memimage.New(0x10000)
	// The run starts mid-grid at 0x8060 and ends mid-grid at 0x8140, so
	// planning must emit an unaligned leading tail, one full aligned
	// block, and an unaligned trailing tail.
	setRun(t, img, 0x8060, 0x8140)

	blocks, err := PlanWriteBlocks(img, 0x8060, 0x8140, MaxWriteLen)
	if err != nil {
		t.Fatalf("PlanWriteBlocks: %v", err)
	}
	wantAddr := []int{0x8060, 0x8080, 0x8100}
	wantLen := []int{0x8080 - 0x8060, 0x8100 - 0x8080, 0x8140 - 0x8100 + 1}
	if len(blocks) != len(wantAddr) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(wantAddr))
	}
	for i, b := range blocks {
		if b.Addr != wantAddr[i] || len(b.Data) != wantLen[i] {
			t.Fatalf("block %d: addr=0x%X len=%d, want addr=0x%X len=%d",
				i, b.Addr, len(b.Data), wantAddr[i], wantLen[i])
		}
		if len(b.Data) > MaxWriteLen {
			t.Fatalf("block %d exceeds MaxWriteLen: %d", i, len(b.Data))
		}
	}
}

func TestPlanWriteBlocksAscendingOrder(t *testing.T) {
	img := memimage.New(0x10000)
	// Set runs out of address order; PlanWriteBlocks must still return
	// blocks in ascending address order regardless of scan order.
	setRun(t, img, 0x400, 0x4FF)
	setRun(t, img, 0x50, 0xFF)
	setRun(t, img, 0x100, 0x1FF)

	blocks, err := PlanWriteBlocks(img, 0, 0xFFF, MaxWriteLen)
	if err != nil {
		t.Fatalf("PlanWriteBlocks: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatalf("expected blocks")
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Addr <= blocks[i-1].Addr {
			t.Fatalf("blocks not ascending: block %d addr 0x%X <= block %d addr 0x%X",
				i, blocks[i].Addr, i-1, blocks[i-1].Addr)
		}
	}
}

func TestPlanReadChunksNoAlignment(t *testing.T) {
	chunks := PlanReadChunks(0x10, 0x10F, MaxReadLen)
	if len(chunks) != 1 || chunks[0].Addr != 0x10 || len(chunks[0].Data) != MaxReadLen {
		t.Fatalf("got %+v, want one chunk at 0x10 len %d", chunks, MaxReadLen)
	}

	chunks = PlanReadChunks(0x10, 0x110, MaxReadLen)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Addr != 0x10 || len(chunks[0].Data) != MaxReadLen {
		t.Fatalf("chunk 0: addr=0x%X len=%d", chunks[0].Addr, len(chunks[0].Data))
	}
	if chunks[1].Addr != 0x10+MaxReadLen || len(chunks[1].Data) != 1 {
		t.Fatalf("chunk 1: addr=0x%X len=%d, want addr=0x%X len=1", chunks[1].Addr, len(chunks[1].Data), 0x10+MaxReadLen)
	}
}
