package dwarfline

// IndexingScheme selects how file and directory indices in a line program
// map onto its tables.
type IndexingScheme int

const (
	// SchemeLegacy is used by DWARF 2-4: indices start at 1 and 0 means
	// "no file" or "no directory".
	SchemeLegacy IndexingScheme = iota
	// SchemeModern is used by DWARF 5: indices start at 0 and every value
	// addresses a table slot.
	SchemeModern
)

// NoDirectory is the directory slot returned when a file entry has no
// associated directory.
const NoDirectory = -1

// SchemeForVersion returns the indexing scheme used by a line-program version.
func SchemeForVersion(version uint16) IndexingScheme {
	if version >= 5 {
		return SchemeModern
	}
	return SchemeLegacy
}

// String returns the scheme name.
func (s IndexingScheme) String() string {
	switch s {
	case SchemeLegacy:
		return "legacy"
	case SchemeModern:
		return "modern"
	default:
		return "unknown"
	}
}

// FileSlot converts an encoded file index to a 0-based slot in a file table
// of n entries. ok is false when the index names no file.
func (s IndexingScheme) FileSlot(index uint64, n int) (slot int, ok bool) {
	if s == SchemeLegacy {
		if index == 0 {
			return -1, false
		}
		index--
	}
	if index >= uint64(n) {
		return -1, false
	}
	return int(index), true
}

// DirSlot converts an encoded directory index to a 0-based slot in a
// directory table of n entries. Under the legacy scheme index 0 yields
// NoDirectory. ok is false when the index is out of range.
func (s IndexingScheme) DirSlot(index uint64, n int) (slot int, ok bool) {
	if s == SchemeLegacy {
		if index == 0 {
			return NoDirectory, true
		}
		index--
	}
	if index >= uint64(n) {
		return -1, false
	}
	return int(index), true
}
