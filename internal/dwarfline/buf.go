package dwarfline

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// buf is a bounded cursor over section bytes. The first failure is kept in
// err and every later read returns zero, so callers check err once per
// logical step.
type buf struct {
	data  []byte
	off   int
	base  uint64 // section offset of data[0]
	order binary.ByteOrder
	err   error
}

func (b *buf) pos() uint64 {
	return b.base + uint64(b.off)
}

func (b *buf) fail(format string, args ...any) {
	if b.err != nil {
		return
	}
	b.err = &DecodeError{Offset: b.pos(), Err: fmt.Errorf(format, args...)}
	b.off = len(b.data)
}

func (b *buf) bytes(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > len(b.data)-b.off {
		b.fail("truncated data: need %d bytes, have %d", n, len(b.data)-b.off)
		return nil
	}
	v := b.data[b.off : b.off+n]
	b.off += n
	return v
}

func (b *buf) skip(n int) {
	b.bytes(n)
}

func (b *buf) u8() uint8 {
	v := b.bytes(1)
	if v == nil {
		return 0
	}
	return v[0]
}

func (b *buf) u16() uint16 {
	v := b.bytes(2)
	if v == nil {
		return 0
	}
	return b.order.Uint16(v)
}

func (b *buf) u32() uint32 {
	v := b.bytes(4)
	if v == nil {
		return 0
	}
	return b.order.Uint32(v)
}

func (b *buf) u64() uint64 {
	v := b.bytes(8)
	if v == nil {
		return 0
	}
	return b.order.Uint64(v)
}

// uint reads an n-byte unsigned integer; n must be 1, 2, 4 or 8.
func (b *buf) uint(n int) uint64 {
	switch n {
	case 1:
		return uint64(b.u8())
	case 2:
		return uint64(b.u16())
	case 4:
		return uint64(b.u32())
	case 8:
		return b.u64()
	default:
		b.fail("unsupported operand size %d", n)
		return 0
	}
}

// sectionOffset reads a 4- or 8-byte offset depending on the DWARF format.
func (b *buf) sectionOffset(dwarf64 bool) uint64 {
	if dwarf64 {
		return b.u64()
	}
	return uint64(b.u32())
}

func (b *buf) uleb() uint64 {
	if b.err != nil {
		return 0
	}
	v, n := decodeULEB128(b.data[b.off:])
	if n == 0 {
		b.fail("invalid ULEB128")
		return 0
	}
	b.off += n
	return v
}

func (b *buf) sleb() int64 {
	if b.err != nil {
		return 0
	}
	v, n := decodeSLEB128(b.data[b.off:])
	if n == 0 {
		b.fail("invalid SLEB128")
		return 0
	}
	b.off += n
	return v
}

func (b *buf) cstring() string {
	if b.err != nil {
		return ""
	}
	i := bytes.IndexByte(b.data[b.off:], 0)
	if i < 0 {
		b.fail("unterminated string")
		return ""
	}
	s := string(b.data[b.off : b.off+i])
	b.off += i + 1
	return s
}

// cstringAt returns the NUL-terminated string at off in sec.
func cstringAt(sec []byte, off uint64) (string, bool) {
	if off >= uint64(len(sec)) {
		return "", false
	}
	i := bytes.IndexByte(sec[off:], 0)
	if i < 0 {
		return "", false
	}
	return string(sec[off : off+uint64(i)]), true
}
