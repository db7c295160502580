package protocol

// Family identifies the target device family, which determines
// whether flash writes require a RAM routine (§4.5).
type Family string

const (
	FamilyA Family = "FamilyA"
	FamilyB Family = "FamilyB"
)

// deviceEntry describes what a given BSL version byte implies about
// the connected target.
type deviceEntry struct {
	Family  Family
	FlashKB int
}

// bslVersionTable maps the version byte returned by GET to a device
// family and flash size, per vendor documentation. FamilyA parts need
// a RAM routine side-loaded before any flash WRITE or ERASE; FamilyB
// parts erase and program directly.
var bslVersionTable = map[byte]deviceEntry{
	0x10: {FamilyA, 32},
	0x21: {FamilyA, 128},
	0xA1: {FamilyB, 0},
}

// LookupDevice resolves a BSL version byte to its family and flash
// size. ok is false when the version is not in the table.
func LookupDevice(bslVersion byte) (family Family, flashKB int, ok bool) {
	e, found := bslVersionTable[bslVersion]
	if !found {
		return "", 0, false
	}
	return e.Family, e.FlashKB, true
}

// RequiresRAMRoutine reports whether flash WRITE/ERASE on this family
// must side-load a RAM routine first (§4.5).
func RequiresRAMRoutine(f Family) bool {
	return f == FamilyA
}
