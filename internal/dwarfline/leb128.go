package dwarfline

// decodeULEB128 decodes an unsigned LEB128 value.
// Returns the value and number of bytes consumed.
func decodeULEB128(data []byte) (uint64, int) {
	var result uint64
	var shift uint

	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}

	return 0, 0 // Invalid or truncated
}

// decodeSLEB128 decodes a signed LEB128 value.
// Returns the value and number of bytes consumed.
func decodeSLEB128(data []byte) (int64, int) {
	var result int64
	var shift uint

	for i := 0; i < len(data) && i < 10; i++ {
		b := data[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			// Sign-extend from the last byte.
			if shift < 64 && (b&0x40) != 0 {
				result |= -(1 << shift)
			}
			return result, i + 1
		}
	}

	return 0, 0
}
