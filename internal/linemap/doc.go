// Package linemap extracts source line mappings from a binary's DWARF debug
// information.
//
// An Extractor walks every compilation unit of an image, replays its
// line-number program and emits one Record per statement-boundary row:
// the module the address belongs to, the source file and line, and the
// address itself. Rows that cannot be attributed to a file, that are not
// statement boundaries or that carry no line are skipped and reported
// through a Skip callback instead of failing the run.
//
// Tables are written without a header, comma-separated, in
// module,file,line,address order with the address as 0x-prefixed hex.
// Save replaces the destination atomically, so a failed run never leaves a
// partial file behind.
package linemap
