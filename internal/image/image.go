// Package image opens compiled binaries (ELF and Mach-O) and exposes the
// DWARF sections they carry.
package image

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrUnknownFormat is returned when a file is neither ELF nor Mach-O.
	ErrUnknownFormat = errors.New("unrecognized binary format")
	// ErrCorruptImage is returned when a file carries an ELF or Mach-O
	// magic number but its headers cannot be parsed.
	ErrCorruptImage = errors.New("corrupt binary image")
)

// maxInflatedSize bounds the declared size of a compressed debug section.
const maxInflatedSize = 1 << 34

// Format is the container format of an image.
type Format string

const (
	FormatELF   Format = "elf"
	FormatMachO Format = "macho"
)

// Image is an opened binary. It must be closed by the caller.
type Image struct {
	format Format
	elf    *elf.File
	macho  *macho.File
	closer io.Closer
}

// Open opens the binary at path read-only.
func Open(path string) (*Image, error) {
	// #nosec G304 - path is the binary the user asked to inspect.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	img, err := NewFile(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	img.closer = f
	return img, nil
}

// NewFile reads an image from r. Closing the image does not close r.
func NewFile(r io.ReaderAt) (*Image, error) {
	magic := make([]byte, 4)
	if _, err := r.ReadAt(magic, 0); err != nil {
		magic = nil
	}

	ef, err := elf.NewFile(r)
	if err == nil {
		return &Image{format: FormatELF, elf: ef}, nil
	}
	if bytes.Equal(magic, []byte(elf.ELFMAG)) {
		return nil, fmt.Errorf("%w: ELF: %w", ErrCorruptImage, err)
	}
	if !isFormatError(err) {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	mf, err := macho.NewFile(r)
	if err == nil {
		return &Image{format: FormatMachO, macho: mf}, nil
	}
	if isMachOMagic(magic) {
		return nil, fmt.Errorf("%w: Mach-O: %w", ErrCorruptImage, err)
	}

	return nil, ErrUnknownFormat
}

func isMachOMagic(magic []byte) bool {
	if len(magic) < 4 {
		return false
	}
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		switch order.Uint32(magic) {
		case macho.Magic32, macho.Magic64:
			return true
		}
	}
	return false
}

// isFormatError reports whether err means "not this container" rather
// than a damaged one.
func isFormatError(err error) bool {
	var fe *elf.FormatError
	if errors.As(err, &fe) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Format returns the container format.
func (i *Image) Format() Format {
	return i.format
}

// Close releases the underlying file.
func (i *Image) Close() error {
	if i.closer != nil {
		return i.closer.Close()
	}
	return nil
}

// ByteOrder returns the byte order of the image.
func (i *Image) ByteOrder() binary.ByteOrder {
	if i.elf != nil {
		return i.elf.ByteOrder
	}
	return i.macho.ByteOrder
}

// HasDebugInfo reports whether the image carries a DWARF info section.
func (i *Image) HasDebugInfo() bool {
	return i.rawSection("info") != nil
}

// DWARF returns the parsed DWARF data.
func (i *Image) DWARF() (*dwarf.Data, error) {
	if i.elf != nil {
		return i.elf.DWARF()
	}
	return i.macho.DWARF()
}

// Section returns the contents of the DWARF section with the given short
// name ("info", "line", "line_str", "str"). A missing section yields nil
// without error.
func (i *Image) Section(name string) ([]byte, error) {
	s := i.rawSection(name)
	if s == nil {
		return nil, nil
	}

	data, err := s.data()
	if err != nil {
		return nil, fmt.Errorf("failed to read section %s: %w", s.name, err)
	}
	if s.zdebug {
		data, err = inflate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress section %s: %w", s.name, err)
		}
	}
	return data, nil
}

// TextAddress returns the link address of the code section.
func (i *Image) TextAddress() (uint64, bool) {
	if i.elf != nil {
		if s := i.elf.Section(".text"); s != nil {
			return s.Addr, true
		}
		return 0, false
	}
	if s := i.macho.Section("__text"); s != nil {
		return s.Addr, true
	}
	return 0, false
}

type rawSection struct {
	name   string
	zdebug bool
	data   func() ([]byte, error)
}

func (i *Image) rawSection(name string) *rawSection {
	if i.elf != nil {
		if s := i.elf.Section(".debug_" + name); s != nil && s.Type != elf.SHT_NOBITS {
			return &rawSection{name: s.Name, data: s.Data}
		}
		if s := i.elf.Section(".zdebug_" + name); s != nil && s.Type != elf.SHT_NOBITS {
			return &rawSection{name: s.Name, zdebug: true, data: s.Data}
		}
		return nil
	}

	if s := i.macho.Section("__debug_" + name); s != nil {
		return &rawSection{name: s.Name, data: s.Data}
	}
	if s := i.macho.Section("__zdebug_" + name); s != nil {
		return &rawSection{name: s.Name, zdebug: true, data: s.Data}
	}
	return nil
}

// inflate decodes a legacy compressed debug section: "ZLIB", an 8-byte
// big-endian uncompressed size, then a zlib stream.
func inflate(data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[:4]) != "ZLIB" {
		// Not actually compressed.
		return data, nil
	}
	size := binary.BigEndian.Uint64(data[4:12])
	if size > maxInflatedSize {
		return nil, fmt.Errorf("declared size %d exceeds limit", size)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[12:]))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, 0, min(size, uint64(len(data))*64))
	buf := bytes.NewBuffer(out)
	n, err := io.Copy(buf, io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, err
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("decompressed %d bytes, header declares %d", n, size)
	}
	return buf.Bytes(), nil
}
