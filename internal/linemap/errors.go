package linemap

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds reported by the extractor. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("image not found or unreadable")
	ErrMissingDebugInfo   = errors.New("image has no DWARF debug information (recompile with -g)")
	ErrMalformedDebugInfo = errors.New("malformed DWARF debug information")
)

// Error is a terminal extraction failure.
type Error struct {
	Path string
	Kind error
	// UnitOffset is the .debug_info offset of the failing compilation unit,
	// or -1 when the failure is not tied to a unit.
	UnitOffset int64
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.UnitOffset >= 0 {
		fmt.Fprintf(&b, " (compile unit at 0x%x)", e.UnitOffset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func malformed(unitOffset int64, err error) *Error {
	return &Error{Kind: ErrMalformedDebugInfo, UnitOffset: unitOffset, Err: err}
}
