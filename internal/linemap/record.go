package linemap

import (
	"fmt"
	"strconv"
	"strings"
)

// Record maps one code address to the source line that produced it.
type Record struct {
	Module  string
	File    string
	Line    int
	Address uint64
}

// AddressHex renders the address as 0x-prefixed lowercase hex.
func (r Record) AddressHex() string {
	return "0x" + strconv.FormatUint(r.Address, 16)
}

// ParseAddress parses an address rendered by AddressHex.
func ParseAddress(s string) (uint64, error) {
	hex, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return 0, fmt.Errorf("address %q lacks 0x prefix", s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// Table is a list of records in emission order.
type Table []Record

// Unique keeps the first record of every (module, file, line), preserving
// order. Use it when one address per line is enough.
func Unique(t Table) Table {
	type key struct {
		module, file string
		line         int
	}
	seen := make(map[key]struct{}, len(t))
	out := make(Table, 0, len(t))
	for _, r := range t {
		k := key{r.Module, r.File, r.Line}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SkipReason explains why a line-program row produced no record.
type SkipReason int

const (
	// SkipInvalidFile: the file index names no entry of the file table.
	SkipInvalidFile SkipReason = iota + 1
	// SkipNotStatement: the row is not a recommended statement boundary.
	SkipNotStatement
	// SkipNoLine: the row carries line 0 (no source attribution).
	SkipNoLine
)

// String returns the reason name.
func (r SkipReason) String() string {
	switch r {
	case SkipInvalidFile:
		return "invalid file index"
	case SkipNotStatement:
		return "not a statement boundary"
	case SkipNoLine:
		return "no line number"
	default:
		return "unknown"
	}
}

// Skip describes a row dropped by the extractor.
type Skip struct {
	UnitOffset uint64
	Address    uint64
	FileIndex  uint64
	Line       int64
	Reason     SkipReason
}
