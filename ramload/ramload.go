// Package ramload side-loads vendor RAM routines that some device
// families require before flash WRITE or ERASE will succeed. A
// registry keyed by (family, flash size, BSL version) maps to an
// embedded Intel HEX blob describing the routine and where in RAM it
// belongs.
package ramload

import (
	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/codec"
	"github.com/tocurd/go-bsl/memimage"
	"github.com/tocurd/go-bsl/protocol"
)

// registryKey identifies one (family, flash size, BSL version) combination.
type registryKey struct {
	Family     protocol.Family
	FlashKB    int
	BSLVersion byte
}

// registry maps a device combination to its RAM-routine Intel HEX
// blob. Blobs are placeholders in this tree: a real distribution
// embeds the vendor's actual routine bytes per entry.
var registry = map[registryKey][]byte{
	{Family: protocol.FamilyA, FlashKB: 32, BSLVersion: 0x10}:  familyA32RAMRoutineBytes,
	{Family: protocol.FamilyA, FlashKB: 128, BSLVersion: 0x21}: familyA128RAMRoutineBytes,
}

// Register adds or overrides a RAM-routine blob for a device
// combination, so a host application can supply the vendor blob for
// its own hardware without patching this package.
func Register(family protocol.Family, flashKB int, bslVersion byte, intelHex []byte) {
	registry[registryKey{family, flashKB, bslVersion}] = intelHex
}

// Loader uploads and tracks residency of the RAM routine for one
// session's engine.
type Loader struct {
	Engine   *protocol.Engine
	resident bool
}

func New(engine *protocol.Engine) *Loader {
	return &Loader{Engine: engine}
}

// EnsureResident uploads the matching RAM routine if the current
// family requires one and it has not already been uploaded this
// session.
func (l *Loader) EnsureResident() error {
	if l.resident {
		return nil
	}
	if !protocol.RequiresRAMRoutine(l.Engine.Family) {
		return nil
	}
	blob, ok := registry[registryKey{l.Engine.Family, l.Engine.FlashKB, l.Engine.Version}]
	if !ok {
		return &bslerr.CannotIdentifyDevice{
			Family:     string(l.Engine.Family),
			FlashKB:    l.Engine.FlashKB,
			BSLVersion: l.Engine.Version,
		}
	}

	scratch := memimage.New(memimage.DefaultCapacity)
	if err := codec.DecodeIntelHex(scratch, blob); err != nil {
		return err
	}

	first, last, count := scratch.FullExtent()
	if count == 0 {
		l.resident = true
		return nil
	}

	blocks, err := protocol.PlanWriteBlocks(scratch, first, last, protocol.MaxWriteLen)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := l.Engine.Write(uint32(b.Addr), b.Data); err != nil {
			return err
		}
	}
	l.resident = true
	return nil
}
