package testutil

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// Unit is one compilation unit of a fixture image.
type Unit struct {
	Name    string
	CompDir string
	// Line is the unit's line program; nil means no DW_AT_stmt_list.
	Line *LineProgram
}

// Image describes a minimal ELF64 x86-64 executable carrying DWARF for Units.
type Image struct {
	Units []Unit
	// NoDebug omits every DWARF section.
	NoDebug bool
	// CompressLine stores the line section as a legacy .zdebug_line.
	CompressLine bool
	// BuildID adds a .note.gnu.build-id section when non-empty.
	BuildID  []byte
	TextAddr uint64
}

type section struct {
	name  string
	typ   uint32
	flags uint64
	addr  uint64
	data  []byte
}

// Bytes encodes the image.
func (img Image) Bytes() []byte {
	textAddr := img.TextAddr
	if textAddr == 0 {
		textAddr = 0x1000
	}
	sections := []section{
		{name: ".text", typ: 1, flags: 0x6, addr: textAddr, data: bytes.Repeat([]byte{0x90}, 64)},
	}

	if !img.NoDebug {
		var info, line, lineStr []byte
		for _, u := range img.Units {
			var stmtList int64 = -1
			version := uint16(4)
			if u.Line != nil {
				stmtList = int64(len(line))
				line, lineStr = u.Line.Encode(line, lineStr)
				if u.Line.Version >= 5 {
					version = 5
				}
			}
			info = append(info, encodeInfoUnit(version, u, stmtList)...)
		}

		lineName := ".debug_line"
		if img.CompressLine {
			lineName = ".zdebug_line"
			line = zdebug(line)
		}
		sections = append(sections,
			section{name: ".debug_abbrev", typ: 1, data: abbrevTable()},
			section{name: ".debug_info", typ: 1, data: info},
			section{name: lineName, typ: 1, data: line},
		)
		if len(lineStr) > 0 {
			sections = append(sections, section{name: ".debug_line_str", typ: 1, data: lineStr})
		}
	}

	if len(img.BuildID) > 0 {
		var note bytes.Buffer
		writeU32(&note, 4)
		writeU32(&note, uint32(len(img.BuildID)))
		writeU32(&note, 3) // NT_GNU_BUILD_ID
		note.WriteString("GNU\x00")
		note.Write(img.BuildID)
		for note.Len()%4 != 0 {
			note.WriteByte(0)
		}
		sections = append(sections, section{name: ".note.gnu.build-id", typ: 7, flags: 0x2, data: note.Bytes()})
	}

	return encodeELF(sections)
}

// WriteImage encodes img into a file named name inside a test temp dir and
// returns its path.
func WriteImage(t *testing.T, name string, img Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, img.Bytes(), 0o600); err != nil {
		t.Fatalf("write fixture image: %v", err)
	}
	return path
}

func abbrevTable() []byte {
	var b bytes.Buffer
	// 1: compile_unit with a line program.
	uleb128(&b, 1)
	uleb128(&b, 0x11)
	b.WriteByte(0)
	b.Write([]byte{0x03, 0x08, 0x1b, 0x08, 0x10, 0x17, 0x00, 0x00})
	// 2: compile_unit without one.
	uleb128(&b, 2)
	uleb128(&b, 0x11)
	b.WriteByte(0)
	b.Write([]byte{0x03, 0x08, 0x1b, 0x08, 0x00, 0x00})
	b.WriteByte(0)
	return b.Bytes()
}

func encodeInfoUnit(version uint16, u Unit, stmtList int64) []byte {
	var body bytes.Buffer
	writeU16(&body, version)
	if version >= 5 {
		body.WriteByte(0x01) // DW_UT_compile
		body.WriteByte(8)
		writeU32(&body, 0)
	} else {
		writeU32(&body, 0)
		body.WriteByte(8)
	}

	if stmtList >= 0 {
		uleb128(&body, 1)
	} else {
		uleb128(&body, 2)
	}
	body.WriteString(u.Name)
	body.WriteByte(0)
	body.WriteString(u.CompDir)
	body.WriteByte(0)
	if stmtList >= 0 {
		writeU32(&body, uint32(stmtList))
	}

	var unit bytes.Buffer
	writeU32(&unit, uint32(body.Len()))
	unit.Write(body.Bytes())
	return unit.Bytes()
}

func zdebug(data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("ZLIB")
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(data)))
	b.Write(size[:])
	zw := zlib.NewWriter(&b)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return b.Bytes()
}

func encodeELF(sections []section) []byte {
	const (
		ehdrSize = 64
		shdrSize = 64
	)

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOff := make([]uint32, len(sections)+1)
	for i, s := range sections {
		nameOff[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.name)
		shstrtab.WriteByte(0)
	}
	nameOff[len(sections)] = uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)
	sections = append(sections, section{name: ".shstrtab", typ: 3, data: shstrtab.Bytes()})

	var data bytes.Buffer
	offsets := make([]uint64, len(sections))
	for i, s := range sections {
		offsets[i] = uint64(ehdrSize + data.Len())
		data.Write(s.data)
	}
	for (ehdrSize+data.Len())%8 != 0 {
		data.WriteByte(0)
	}
	shoff := uint64(ehdrSize + data.Len())

	var out bytes.Buffer
	out.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	out.Write(make([]byte, 8))
	writeU16(&out, 2)  // ET_EXEC
	writeU16(&out, 62) // EM_X86_64
	writeU32(&out, 1)
	writeU64(&out, 0) // entry
	writeU64(&out, 0) // phoff
	writeU64(&out, shoff)
	writeU32(&out, 0)
	writeU16(&out, ehdrSize)
	writeU16(&out, 56)
	writeU16(&out, 0)
	writeU16(&out, shdrSize)
	writeU16(&out, uint16(len(sections)+1))
	writeU16(&out, uint16(len(sections))) // .shstrtab is last

	out.Write(data.Bytes())

	out.Write(make([]byte, shdrSize)) // SHN_UNDEF
	for i, s := range sections {
		writeU32(&out, nameOff[i])
		writeU32(&out, s.typ)
		writeU64(&out, s.flags)
		writeU64(&out, s.addr)
		writeU64(&out, offsets[i])
		writeU64(&out, uint64(len(s.data)))
		writeU32(&out, 0)
		writeU32(&out, 0)
		writeU64(&out, 1)
		writeU64(&out, 0)
	}
	return out.Bytes()
}
