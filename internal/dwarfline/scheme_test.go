package dwarfline

import "testing"

func TestSchemeForVersion(t *testing.T) {
	for v, want := range map[uint16]IndexingScheme{
		2: SchemeLegacy,
		3: SchemeLegacy,
		4: SchemeLegacy,
		5: SchemeModern,
	} {
		if got := SchemeForVersion(v); got != want {
			t.Errorf("SchemeForVersion(%d) = %s, want %s", v, got, want)
		}
	}
}

func TestIndexingScheme_FileSlot(t *testing.T) {
	tests := []struct {
		name     string
		scheme   IndexingScheme
		index    uint64
		n        int
		wantSlot int
		wantOK   bool
	}{
		{"legacy zero is no file", SchemeLegacy, 0, 2, -1, false},
		{"legacy first", SchemeLegacy, 1, 2, 0, true},
		{"legacy last", SchemeLegacy, 2, 2, 1, true},
		{"legacy out of range", SchemeLegacy, 3, 2, -1, false},
		{"modern zero", SchemeModern, 0, 2, 0, true},
		{"modern last", SchemeModern, 1, 2, 1, true},
		{"modern out of range", SchemeModern, 2, 2, -1, false},
		{"modern empty table", SchemeModern, 0, 0, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := tt.scheme.FileSlot(tt.index, tt.n)
			if slot != tt.wantSlot || ok != tt.wantOK {
				t.Errorf("FileSlot(%d, %d) = (%d, %v), want (%d, %v)", tt.index, tt.n, slot, ok, tt.wantSlot, tt.wantOK)
			}
		})
	}
}

func TestIndexingScheme_DirSlot(t *testing.T) {
	tests := []struct {
		name     string
		scheme   IndexingScheme
		index    uint64
		n        int
		wantSlot int
		wantOK   bool
	}{
		{"legacy zero is no directory", SchemeLegacy, 0, 0, NoDirectory, true},
		{"legacy first", SchemeLegacy, 1, 1, 0, true},
		{"legacy out of range", SchemeLegacy, 2, 1, -1, false},
		{"modern zero", SchemeModern, 0, 1, 0, true},
		{"modern out of range", SchemeModern, 1, 1, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := tt.scheme.DirSlot(tt.index, tt.n)
			if slot != tt.wantSlot || ok != tt.wantOK {
				t.Errorf("DirSlot(%d, %d) = (%d, %v), want (%d, %v)", tt.index, tt.n, slot, ok, tt.wantSlot, tt.wantOK)
			}
		})
	}
}
