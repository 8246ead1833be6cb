package dwarfline

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion is returned for line programs outside DWARF 2-5.
	ErrUnsupportedVersion = errors.New("unsupported line program version")

	// ErrInvalidFileIndex is returned by FilePath when a row's file register
	// does not name an entry of the file table.
	ErrInvalidFileIndex = errors.New("invalid file index")
)

// DecodeError reports a structural problem at a .debug_line offset.
type DecodeError struct {
	Offset uint64
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding line program at 0x%x: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Line number content types (DW_LNCT_*).
const (
	lnctPath           = 0x1
	lnctDirectoryIndex = 0x2
)

// Attribute forms (DW_FORM_*) that may appear in DWARF 5 entry formats.
const (
	formBlock2   = 0x03
	formBlock4   = 0x04
	formData2    = 0x05
	formData4    = 0x06
	formData8    = 0x07
	formString   = 0x08
	formBlock    = 0x09
	formBlock1   = 0x0a
	formData1    = 0x0b
	formSdata    = 0x0d
	formStrp     = 0x0e
	formUdata    = 0x0f
	formStrx     = 0x1a
	formData16   = 0x1e
	formLineStrp = 0x1f
	formStrx1    = 0x25
	formStrx2    = 0x26
	formStrx3    = 0x27
	formStrx4    = 0x28
)

// Strings holds the string sections a DWARF 5 line table may reference.
type Strings struct {
	LineStr []byte // .debug_line_str
	Str     []byte // .debug_str
}

// FileEntry is one file-name table entry as encoded.
type FileEntry struct {
	Name     string
	DirIndex uint64
}

// Header is a decoded line-program header.
type Header struct {
	Offset        uint64 // offset of the unit in .debug_line
	Length        uint64 // declared unit_length
	Version       uint16
	Scheme        IndexingScheme
	Format64      bool
	AddressSize   uint8 // 0 before DWARF 5
	MinInstLength uint8
	MaxOpsPerInst uint8
	DefaultIsStmt bool
	LineBase      int8
	LineRange     uint8
	OpcodeBase    uint8

	StdOpcodeLengths []uint8
	IncludeDirs      []string
	Files            []FileEntry
}

// Program is a parsed line-number program.
type Program struct {
	Header

	data  []byte
	base  uint64
	order binary.ByteOrder
}

type entryFormat struct {
	content uint64
	form    uint64
}

// Parse decodes the line program starting at offset in a .debug_line section.
func Parse(section []byte, offset uint64, order binary.ByteOrder, strs Strings) (*Program, error) {
	if offset >= uint64(len(section)) {
		return nil, &DecodeError{Offset: offset, Err: fmt.Errorf("offset beyond section size %d", len(section))}
	}

	b := &buf{data: section, off: int(offset), order: order}
	h := Header{Offset: offset}

	length := uint64(b.u32())
	if length == 0xffffffff {
		h.Format64 = true
		length = b.u64()
	} else if length >= 0xfffffff0 {
		return nil, &DecodeError{Offset: offset, Err: fmt.Errorf("reserved unit length 0x%x", length)}
	}
	if b.err != nil {
		return nil, b.err
	}
	if length > uint64(len(section)-b.off) {
		return nil, &DecodeError{Offset: offset, Err: fmt.Errorf("unit length %d exceeds section", length)}
	}
	h.Length = length
	end := b.off + int(length)
	b.data = section[:end]

	h.Version = b.u16()
	if b.err != nil {
		return nil, b.err
	}
	if h.Version < 2 || h.Version > 5 {
		return nil, &DecodeError{Offset: offset, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)}
	}
	h.Scheme = SchemeForVersion(h.Version)

	if h.Version >= 5 {
		h.AddressSize = b.u8()
		b.u8() // segment_selector_size
	}

	headerLength := b.sectionOffset(h.Format64)
	if b.err == nil && headerLength > uint64(end-b.off) {
		b.fail("header length %d exceeds unit", headerLength)
	}
	programStart := uint64(b.off) + headerLength

	h.MinInstLength = b.u8()
	h.MaxOpsPerInst = 1
	if h.Version >= 4 {
		h.MaxOpsPerInst = b.u8()
	}
	h.DefaultIsStmt = b.u8() != 0
	h.LineBase = int8(b.u8())
	h.LineRange = b.u8()
	h.OpcodeBase = b.u8()
	if b.err != nil {
		return nil, b.err
	}

	switch {
	case h.MaxOpsPerInst == 0:
		b.fail("maximum operations per instruction is 0")
	case h.LineRange == 0:
		b.fail("line range is 0")
	case h.OpcodeBase == 0:
		b.fail("opcode base is 0")
	}

	h.StdOpcodeLengths = make([]uint8, 0, max(int(h.OpcodeBase)-1, 0))
	for i := 1; i < int(h.OpcodeBase) && b.err == nil; i++ {
		h.StdOpcodeLengths = append(h.StdOpcodeLengths, b.u8())
	}

	if h.Version >= 5 {
		readModernTables(b, &h, strs)
	} else {
		readLegacyTables(b, &h)
	}
	if b.err == nil && uint64(b.off) > programStart {
		b.fail("file tables end at 0x%x, past the header length", b.base+uint64(b.off))
	}
	if b.err != nil {
		return nil, b.err
	}

	return &Program{
		Header: h,
		data:   section[programStart:end],
		base:   programStart,
		order:  order,
	}, nil
}

func readLegacyTables(b *buf, h *Header) {
	for b.err == nil {
		dir := b.cstring()
		if dir == "" {
			break
		}
		h.IncludeDirs = append(h.IncludeDirs, dir)
	}
	for b.err == nil {
		name := b.cstring()
		if name == "" {
			break
		}
		dir := b.uleb()
		b.uleb() // mtime
		b.uleb() // length
		h.Files = append(h.Files, FileEntry{Name: name, DirIndex: dir})
	}
}

func readModernTables(b *buf, h *Header, strs Strings) {
	dirFormats := readEntryFormats(b)
	dirCount := readEntryCount(b, dirFormats)
	for i := uint64(0); i < dirCount && b.err == nil; i++ {
		e := readEntry(b, h.Format64, dirFormats, strs)
		h.IncludeDirs = append(h.IncludeDirs, e.Name)
	}

	fileFormats := readEntryFormats(b)
	fileCount := readEntryCount(b, fileFormats)
	for i := uint64(0); i < fileCount && b.err == nil; i++ {
		h.Files = append(h.Files, readEntry(b, h.Format64, fileFormats, strs))
	}
}

func readEntryFormats(b *buf) []entryFormat {
	n := int(b.u8())
	formats := make([]entryFormat, 0, n)
	for i := 0; i < n && b.err == nil; i++ {
		formats = append(formats, entryFormat{content: b.uleb(), form: b.uleb()})
	}
	return formats
}

// readEntryCount reads a table entry count and rejects counts the remaining
// bytes cannot hold.
func readEntryCount(b *buf, formats []entryFormat) uint64 {
	count := b.uleb()
	if b.err != nil {
		return 0
	}
	if count > 0 && len(formats) == 0 {
		b.fail("%d table entries with an empty entry format", count)
		return 0
	}
	if count > uint64(len(b.data)-b.off) {
		b.fail("table entry count %d exceeds unit", count)
		return 0
	}
	return count
}

func readEntry(b *buf, dwarf64 bool, formats []entryFormat, strs Strings) FileEntry {
	var e FileEntry
	for _, f := range formats {
		switch f.content {
		case lnctPath:
			e.Name = readFormString(b, dwarf64, f.form, strs)
		case lnctDirectoryIndex:
			e.DirIndex = readFormUint(b, f.form)
		default:
			skipForm(b, dwarf64, f.form)
		}
		if b.err != nil {
			break
		}
	}
	return e
}

func readFormString(b *buf, dwarf64 bool, form uint64, strs Strings) string {
	var sec []byte
	switch form {
	case formString:
		return b.cstring()
	case formLineStrp:
		sec = strs.LineStr
	case formStrp:
		sec = strs.Str
	default:
		b.fail("unsupported path form 0x%x", form)
		return ""
	}

	off := b.sectionOffset(dwarf64)
	if b.err != nil {
		return ""
	}
	s, ok := cstringAt(sec, off)
	if !ok {
		b.fail("string offset 0x%x out of range for form 0x%x", off, form)
	}
	return s
}

func readFormUint(b *buf, form uint64) uint64 {
	switch form {
	case formData1:
		return uint64(b.u8())
	case formData2:
		return uint64(b.u16())
	case formData4:
		return uint64(b.u32())
	case formData8:
		return b.u64()
	case formUdata:
		return b.uleb()
	default:
		b.fail("unsupported directory index form 0x%x", form)
		return 0
	}
}

func skipForm(b *buf, dwarf64 bool, form uint64) {
	switch form {
	case formString:
		b.cstring()
	case formLineStrp, formStrp:
		b.sectionOffset(dwarf64)
	case formUdata, formStrx:
		b.uleb()
	case formSdata:
		b.sleb()
	case formData1, formStrx1:
		b.skip(1)
	case formData2, formStrx2:
		b.skip(2)
	case formStrx3:
		b.skip(3)
	case formData4, formStrx4:
		b.skip(4)
	case formData8:
		b.skip(8)
	case formData16:
		b.skip(16)
	case formBlock:
		b.skip(int(b.uleb()))
	case formBlock1:
		b.skip(int(b.u8()))
	case formBlock2:
		b.skip(int(b.u16()))
	case formBlock4:
		b.skip(int(b.u32()))
	default:
		b.fail("unsupported entry form 0x%x", form)
	}
}
