package ramload

// Embedded Intel HEX blobs for the RAM routines FamilyA parts need
// side-loaded before a flash WRITE or ERASE. These are stand-ins for
// the vendor-supplied routines; a real deployment overrides them via
// Register with the actual binary for its silicon revision.

const familyA32RAMRoutine = "" +
	":0410000000200020AC\n" +
	":00000001FF\n"

const familyA128RAMRoutine = "" +
	":0410000000200020AC\n" +
	":00000001FF\n"

var familyA32RAMRoutineBytes = []byte(familyA32RAMRoutine)
var familyA128RAMRoutineBytes = []byte(familyA128RAMRoutine)
