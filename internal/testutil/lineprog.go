package testutil

import (
	"bytes"
	"encoding/binary"
)

// LineOps builds a line-number program opcode stream.
type LineOps struct {
	buf bytes.Buffer
}

// NewLineOps returns an empty opcode stream.
func NewLineOps() *LineOps {
	return &LineOps{}
}

// SetAddress emits DW_LNE_set_address with an 8-byte operand.
func (o *LineOps) SetAddress(addr uint64) *LineOps {
	o.buf.WriteByte(0)
	uleb128(&o.buf, 9)
	o.buf.WriteByte(0x02)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], addr)
	o.buf.Write(b[:])
	return o
}

// SetFile emits DW_LNS_set_file.
func (o *LineOps) SetFile(index uint64) *LineOps {
	o.buf.WriteByte(0x04)
	uleb128(&o.buf, index)
	return o
}

// AdvanceLine emits DW_LNS_advance_line.
func (o *LineOps) AdvanceLine(delta int64) *LineOps {
	o.buf.WriteByte(0x03)
	sleb128(&o.buf, delta)
	return o
}

// AdvancePC emits DW_LNS_advance_pc.
func (o *LineOps) AdvancePC(delta uint64) *LineOps {
	o.buf.WriteByte(0x02)
	uleb128(&o.buf, delta)
	return o
}

// Copy emits DW_LNS_copy, which appends a row.
func (o *LineOps) Copy() *LineOps {
	o.buf.WriteByte(0x01)
	return o
}

// NegateStmt emits DW_LNS_negate_stmt.
func (o *LineOps) NegateStmt() *LineOps {
	o.buf.WriteByte(0x06)
	return o
}

// ConstAddPC emits DW_LNS_const_add_pc.
func (o *LineOps) ConstAddPC() *LineOps {
	o.buf.WriteByte(0x08)
	return o
}

// FixedAdvancePC emits DW_LNS_fixed_advance_pc.
func (o *LineOps) FixedAdvancePC(delta uint16) *LineOps {
	o.buf.WriteByte(0x09)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], delta)
	o.buf.Write(b[:])
	return o
}

// Special emits a special opcode advancing the address by addrDelta and the
// line by lineDelta, using the fixture header parameters.
func (o *LineOps) Special(addrDelta uint64, lineDelta int64) *LineOps {
	op := (lineDelta - LineBase) + int64(LineRange)*int64(addrDelta) + OpcodeBase
	o.buf.WriteByte(byte(op))
	return o
}

// DefineFile emits DW_LNE_define_file.
func (o *LineOps) DefineFile(name string, dir uint64) *LineOps {
	var body bytes.Buffer
	body.WriteByte(0x03)
	body.WriteString(name)
	body.WriteByte(0)
	uleb128(&body, dir)
	uleb128(&body, 0)
	uleb128(&body, 0)
	o.buf.WriteByte(0)
	uleb128(&o.buf, uint64(body.Len()))
	o.buf.Write(body.Bytes())
	return o
}

// EndSequence emits DW_LNE_end_sequence.
func (o *LineOps) EndSequence() *LineOps {
	o.buf.Write([]byte{0x00, 0x01, 0x01})
	return o
}

// Raw appends bytes verbatim.
func (o *LineOps) Raw(b ...byte) *LineOps {
	o.buf.Write(b)
	return o
}

// Bytes returns the encoded stream.
func (o *LineOps) Bytes() []byte {
	return bytes.Clone(o.buf.Bytes())
}

// Header parameters used by every fixture line program.
const (
	LineBase   = -5
	LineRange  = 14
	OpcodeBase = 13
)

var stdOpcodeLengths = []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

// LineFile is a file-table entry with its directory index encoded as the
// target version expects.
type LineFile struct {
	Name string
	Dir  uint64
}

// LineProgram describes one .debug_line unit.
type LineProgram struct {
	Version     uint16 // 2 to 5
	Dwarf64     bool
	NoStmt      bool // default_is_stmt = 0
	IncludeDirs []string
	Files       []LineFile
	// LineStr stores DWARF 5 paths in .debug_line_str instead of inline.
	LineStr bool
	Ops     []byte
}

// Encode appends the unit to line (and its strings to lineStr when
// LineStr is set) and returns both.
func (lp LineProgram) Encode(line, lineStr []byte) ([]byte, []byte) {
	var hdr bytes.Buffer
	hdr.WriteByte(1) // minimum_instruction_length
	if lp.Version >= 4 {
		hdr.WriteByte(1) // maximum_operations_per_instruction
	}
	if lp.NoStmt {
		hdr.WriteByte(0)
	} else {
		hdr.WriteByte(1)
	}
	lineBase := int8(LineBase)
	hdr.WriteByte(byte(lineBase))
	hdr.WriteByte(LineRange)
	hdr.WriteByte(OpcodeBase)
	hdr.Write(stdOpcodeLengths)

	if lp.Version >= 5 {
		pathForm := uint64(0x08) // DW_FORM_string
		if lp.LineStr {
			pathForm = 0x1f // DW_FORM_line_strp
		}
		writePath := func(s string) {
			if !lp.LineStr {
				hdr.WriteString(s)
				hdr.WriteByte(0)
				return
			}
			writeOffset(&hdr, lp.Dwarf64, uint64(len(lineStr)))
			lineStr = append(lineStr, s...)
			lineStr = append(lineStr, 0)
		}

		hdr.WriteByte(1)
		uleb128(&hdr, 0x1) // DW_LNCT_path
		uleb128(&hdr, pathForm)
		uleb128(&hdr, uint64(len(lp.IncludeDirs)))
		for _, d := range lp.IncludeDirs {
			writePath(d)
		}

		hdr.WriteByte(3)
		uleb128(&hdr, 0x1) // DW_LNCT_path
		uleb128(&hdr, pathForm)
		uleb128(&hdr, 0x2)  // DW_LNCT_directory_index
		uleb128(&hdr, 0x0f) // DW_FORM_udata
		uleb128(&hdr, 0x5)  // DW_LNCT_MD5
		uleb128(&hdr, 0x1e) // DW_FORM_data16
		uleb128(&hdr, uint64(len(lp.Files)))
		for _, f := range lp.Files {
			writePath(f.Name)
			uleb128(&hdr, f.Dir)
			hdr.Write(make([]byte, 16))
		}
	} else {
		for _, d := range lp.IncludeDirs {
			hdr.WriteString(d)
			hdr.WriteByte(0)
		}
		hdr.WriteByte(0)
		for _, f := range lp.Files {
			hdr.WriteString(f.Name)
			hdr.WriteByte(0)
			uleb128(&hdr, f.Dir)
			uleb128(&hdr, 0) // mtime
			uleb128(&hdr, 0) // length
		}
		hdr.WriteByte(0)
	}

	var body bytes.Buffer
	writeU16(&body, lp.Version)
	if lp.Version >= 5 {
		body.WriteByte(8) // address_size
		body.WriteByte(0) // segment_selector_size
	}
	writeOffset(&body, lp.Dwarf64, uint64(hdr.Len()))
	body.Write(hdr.Bytes())
	body.Write(lp.Ops)

	var unit bytes.Buffer
	if lp.Dwarf64 {
		writeU32(&unit, 0xffffffff)
		writeU64(&unit, uint64(body.Len()))
	} else {
		writeU32(&unit, uint32(body.Len()))
	}
	unit.Write(body.Bytes())

	return append(line, unit.Bytes()...), lineStr
}

func writeOffset(b *bytes.Buffer, dwarf64 bool, v uint64) {
	if dwarf64 {
		writeU64(b, v)
		return
	}
	writeU32(b, uint32(v))
}

func writeU16(b *bytes.Buffer, v uint16) {
	var x [2]byte
	binary.LittleEndian.PutUint16(x[:], v)
	b.Write(x[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var x [4]byte
	binary.LittleEndian.PutUint32(x[:], v)
	b.Write(x[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var x [8]byte
	binary.LittleEndian.PutUint64(x[:], v)
	b.Write(x[:])
}

// uleb128 encodes an unsigned integer in LEB128 format.
func uleb128(b *bytes.Buffer, v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.WriteByte(c)
		if v == 0 {
			break
		}
	}
}

// sleb128 encodes a signed integer in LEB128 format.
func sleb128(b *bytes.Buffer, v int64) {
	for {
		c := byte(v & 0x7f)
		sign := (c & 0x40) != 0
		v >>= 7
		done := (v == 0 && !sign) || (v == -1 && sign)
		if !done {
			c |= 0x80
		}
		b.WriteByte(c)
		if done {
			break
		}
	}
}
