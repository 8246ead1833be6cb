package dwarfline

import "testing"

func TestDecodeULEB128(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  uint64
		wantN int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"one byte max", []byte{0x7f}, 127, 1},
		{"two bytes", []byte{0x80, 0x01}, 128, 2},
		{"624485", []byte{0xe5, 0x8e, 0x26}, 624485, 3},
		{"trailing data ignored", []byte{0x05, 0xff}, 5, 1},
		{"truncated", []byte{0x80, 0x80}, 0, 0},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := decodeULEB128(tt.data)
			if got != tt.want || n != tt.wantN {
				t.Errorf("decodeULEB128(%x) = (%d, %d), want (%d, %d)", tt.data, got, n, tt.want, tt.wantN)
			}
		})
	}
}

func TestDecodeSLEB128(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  int64
		wantN int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"two", []byte{0x02}, 2, 1},
		{"minus one", []byte{0x7f}, -1, 1},
		{"minus two", []byte{0x7e}, -2, 1},
		{"127", []byte{0xff, 0x00}, 127, 2},
		{"minus 128", []byte{0x80, 0x7f}, -128, 2},
		{"minus 123456", []byte{0xc0, 0xbb, 0x78}, -123456, 3},
		{"truncated", []byte{0xff}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := decodeSLEB128(tt.data)
			if got != tt.want || n != tt.wantN {
				t.Errorf("decodeSLEB128(%x) = (%d, %d), want (%d, %d)", tt.data, got, n, tt.want, tt.wantN)
			}
		})
	}
}
