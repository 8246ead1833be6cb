package image

import (
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

const (
	ntGNUBuildID = 3
	lcUUID       = 0x1b
)

// BuildID returns the linker-assigned identifier of the image: the ELF
// NT_GNU_BUILD_ID note or the Mach-O LC_UUID.
func (i *Image) BuildID() (string, bool) {
	if i.elf != nil {
		return elfBuildID(i.elf)
	}

	for _, l := range i.macho.Loads {
		raw := l.Raw()
		if len(raw) < 24 || i.macho.ByteOrder.Uint32(raw) != lcUUID {
			continue
		}
		return hex.EncodeToString(raw[8:24]), true
	}
	return "", false
}

func elfBuildID(f *elf.File) (string, bool) {
	for _, s := range f.Sections {
		if s.Type != elf.SHT_NOTE {
			continue
		}
		data, err := s.Data()
		if err != nil {
			continue
		}
		if id, ok := parseBuildIDNote(data, f.ByteOrder); ok {
			return id, true
		}
	}
	return "", false
}

// parseBuildIDNote scans an ELF note section.
// Format: namesz(4) + descsz(4) + type(4) + name(namesz, 4-aligned) + desc(descsz, 4-aligned)
func parseBuildIDNote(data []byte, order binary.ByteOrder) (string, bool) {
	for len(data) >= 12 {
		namesz := uint64(order.Uint32(data[0:4]))
		descsz := uint64(order.Uint32(data[4:8]))
		typ := order.Uint32(data[8:12])

		nameEnd := 12 + align4(namesz)
		// The last note may omit its trailing desc padding.
		if nameEnd+descsz > uint64(len(data)) {
			return "", false
		}

		name := data[12 : 12+namesz]
		if typ == ntGNUBuildID && string(name) == "GNU\x00" && descsz > 0 {
			return hex.EncodeToString(data[nameEnd : nameEnd+descsz]), true
		}
		descEnd := nameEnd + align4(descsz)
		if descEnd > uint64(len(data)) {
			return "", false
		}
		data = data[descEnd:]
	}
	return "", false
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// Fingerprint identifies the contents of the binary at path. It prefers the
// build ID and falls back to an xxh3 hash of the file.
func Fingerprint(path string) (string, error) {
	img, err := Open(path)
	if err == nil {
		id, ok := img.BuildID()
		_ = img.Close()
		if ok {
			return "buildid:" + id, nil
		}
	}

	// #nosec G304 - path is the binary the user asked to inspect.
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open binary for hashing: %w", err)
	}
	defer func() { _ = file.Close() }()

	hasher := xxh3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash binary: %w", err)
	}

	return fmt.Sprintf("xxh3:%016x", hasher.Sum64()), nil
}
