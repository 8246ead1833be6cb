package image

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/linemap/internal/testutil"
)

func fixture() testutil.Image {
	return testutil.Image{
		Units: []testutil.Unit{{
			Name:    "main.c",
			CompDir: "/src",
			Line: &testutil.LineProgram{
				Version: 4,
				Files:   []testutil.LineFile{{Name: "main.c"}},
				Ops:     testutil.NewLineOps().SetAddress(0x1000).Copy().EndSequence().Bytes(),
			},
		}},
	}
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFile_UnknownFormat(t *testing.T) {
	for name, data := range map[string][]byte{
		"text":  []byte("#!/bin/sh\necho hello\n"),
		"empty": nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFile(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrUnknownFormat)
		})
	}
}

func TestNewFile_CorruptImage(t *testing.T) {
	data := fixture().Bytes()

	tests := map[string][]byte{
		"truncated ELF header": data[:40],
		"bad ELF class":        append([]byte{0x7f, 'E', 'L', 'F', 9}, data[5:]...),
		"truncated Mach-O":     {0xcf, 0xfa, 0xed, 0xfe, 0x07, 0x00},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewFile(bytes.NewReader(data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptImage)
			assert.NotErrorIs(t, err, ErrUnknownFormat)
		})
	}
}

func TestImage_ELFSections(t *testing.T) {
	path := testutil.WriteImage(t, "a.out", fixture())

	img, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = img.Close() }()

	assert.Equal(t, FormatELF, img.Format())
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), img.ByteOrder())
	assert.True(t, img.HasDebugInfo())

	line, err := img.Section("line")
	require.NoError(t, err)
	assert.NotEmpty(t, line)

	missing, err := img.Section("line_str")
	require.NoError(t, err)
	assert.Nil(t, missing)

	addr, ok := img.TextAddress()
	assert.True(t, ok)
	assert.Equal(t, uint64(0x1000), addr)

	data, err := img.DWARF()
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestImage_NoDebugInfo(t *testing.T) {
	img, err := NewFile(bytes.NewReader(testutil.Image{NoDebug: true}.Bytes()))
	require.NoError(t, err)
	assert.False(t, img.HasDebugInfo())
}

func TestImage_CompressedSection(t *testing.T) {
	plain := fixture()
	compressed := fixture()
	compressed.CompressLine = true

	a, err := NewFile(bytes.NewReader(plain.Bytes()))
	require.NoError(t, err)
	b, err := NewFile(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)

	want, err := a.Section("line")
	require.NoError(t, err)
	got, err := b.Section("line")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = b.DWARF()
	assert.NoError(t, err)
}

func TestInflate(t *testing.T) {
	t.Run("uncompressed passthrough", func(t *testing.T) {
		got, err := inflate([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
	})

	t.Run("size mismatch", func(t *testing.T) {
		data := []byte("ZLIB")
		data = binary.BigEndian.AppendUint64(data, 100)
		data = append(data, 0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01) // empty stream
		_, err := inflate(data)
		assert.Error(t, err)
	})

	t.Run("oversized declaration", func(t *testing.T) {
		data := []byte("ZLIB")
		data = binary.BigEndian.AppendUint64(data, 1<<62)
		_, err := inflate(data)
		assert.Error(t, err)
	})
}

func TestBuildID(t *testing.T) {
	img := fixture()
	img.BuildID = []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}

	f, err := NewFile(bytes.NewReader(img.Bytes()))
	require.NoError(t, err)

	id, ok := f.BuildID()
	assert.True(t, ok)
	assert.Equal(t, "deadbeef010203", id)

	f, err = NewFile(bytes.NewReader(fixture().Bytes()))
	require.NoError(t, err)
	_, ok = f.BuildID()
	assert.False(t, ok)
}

func TestParseBuildIDNote(t *testing.T) {
	note := func(name string, typ uint32, desc []byte) []byte {
		var b []byte
		b = binary.LittleEndian.AppendUint32(b, uint32(len(name)))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(desc)))
		b = binary.LittleEndian.AppendUint32(b, typ)
		b = append(b, name...)
		for len(b)%4 != 0 {
			b = append(b, 0)
		}
		b = append(b, desc...)
		for len(b)%4 != 0 {
			b = append(b, 0)
		}
		return b
	}

	tests := []struct {
		name   string
		data   []byte
		want   string
		wantOK bool
	}{
		{"build id", note("GNU\x00", 3, []byte{0xaa, 0xbb}), "aabb", true},
		{"after other note", append(note("GNU\x00", 1, []byte{1, 2, 3, 4}), note("GNU\x00", 3, []byte{0x01})...), "01", true},
		{"wrong owner", note("Go\x00\x00", 3, []byte{0xaa}), "", false},
		{"truncated", note("GNU\x00", 3, []byte{0xaa, 0xbb})[:14], "", false},
		{"unpadded last note", note("GNU\x00", 3, []byte{0xaa, 0xbb, 0xcc})[:19], "aabbcc", true},
		{"truncated desc", note("GNU\x00", 3, []byte{0xaa, 0xbb, 0xcc})[:18], "", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBuildIDNote(tt.data, binary.LittleEndian)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFingerprint(t *testing.T) {
	withID := fixture()
	withID.BuildID = []byte{0x12, 0x34}
	path := testutil.WriteImage(t, "with-id", withID)

	fp, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, "buildid:1234", fp)

	path = testutil.WriteImage(t, "no-id", fixture())
	first, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Regexp(t, `^xxh3:[0-9a-f]{16}$`, first)

	second, err := Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = Fingerprint(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
