package linemap

import (
	"debug/dwarf"
	"encoding/binary"
	"fmt"
	"sort"
)

// unitHeader locates one unit in .debug_info.
type unitHeader struct {
	Offset uint64
	Length uint64 // declared unit_length
	end    uint64
}

// scanUnits walks the unit_length fields of a .debug_info section.
func scanUnits(info []byte, order binary.ByteOrder) ([]unitHeader, error) {
	var units []unitHeader
	size := uint64(len(info))

	for off := uint64(0); off < size; {
		if size-off < 4 {
			return nil, fmt.Errorf("unit at 0x%x: truncated length", off)
		}
		length := uint64(order.Uint32(info[off:]))
		hdr := uint64(4)
		if length == 0xffffffff {
			if size-off < 12 {
				return nil, fmt.Errorf("unit at 0x%x: truncated 64-bit length", off)
			}
			length = order.Uint64(info[off+4:])
			hdr = 12
		}
		if length > size-off-hdr {
			return nil, fmt.Errorf("unit at 0x%x: length %d exceeds section", off, length)
		}

		end := off + hdr + length
		units = append(units, unitHeader{Offset: off, Length: length, end: end})
		off = end
	}

	return units, nil
}

// unitAt returns the unit containing the given .debug_info offset.
func unitAt(units []unitHeader, off dwarf.Offset) (unitHeader, bool) {
	i := sort.Search(len(units), func(i int) bool { return units[i].end > uint64(off) })
	if i == len(units) || units[i].Offset > uint64(off) {
		return unitHeader{}, false
	}
	return units[i], true
}
