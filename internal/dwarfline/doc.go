// Package dwarfline decodes DWARF line-number programs (.debug_line).
//
// A Program is parsed from a single line-program unit: its header (DWARF 2
// through 5, 32- or 64-bit), its include-directory and file-name tables,
// and the opcode stream. Rows replays the line-number state machine and
// yields one Row per emitted state, in program order.
//
// The two file-index conventions used by the format are hidden behind
// IndexingScheme. Versions before 5 number files and directories from 1
// and reserve 0 for "none"; version 5 numbers both from 0. A Program
// detects its scheme once from the header version and resolves every file
// and directory index through it.
package dwarfline
