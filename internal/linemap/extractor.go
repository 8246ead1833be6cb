package linemap

import (
	"debug/dwarf"
	"errors"
	"iter"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/linemap/internal/dwarfline"
	lmerrors "github.com/coral-mesh/linemap/internal/errors"
	"github.com/coral-mesh/linemap/internal/image"
)

// Options tunes a single extraction.
type Options struct {
	// Module overrides the module name. Defaults to the image base name.
	Module string
	// OnSkip, when set, receives every dropped row.
	OnSkip func(Skip)
}

// Extractor turns DWARF line programs into line records.
// It holds no per-image state; one Extractor can serve many images.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates an extractor that logs through logger.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// ExtractFile produces every line record of the image at path.
// Failures are *Error values matching ErrNotFound, ErrMissingDebugInfo or
// ErrMalformedDebugInfo; no partial table is returned with an error.
func (e *Extractor) ExtractFile(path string, opts Options) (Table, error) {
	module := opts.Module
	if module == "" {
		module = filepath.Base(path)
	}

	img, err := image.Open(path)
	if err != nil {
		kind := ErrNotFound
		if errors.Is(err, image.ErrCorruptImage) {
			kind = ErrMalformedDebugInfo
		}
		return nil, &Error{Path: path, Kind: kind, UnitOffset: -1, Err: err}
	}
	defer lmerrors.DeferClose(e.logger, img, "failed to close image")

	logger := e.logger.With().Str("binary", path).Str("module", module).Logger()
	evt := logger.Info().Str("format", string(img.Format()))
	if addr, ok := img.TextAddress(); ok {
		evt = evt.Str("text_addr", Record{Address: addr}.AddressHex())
	}
	evt.Msg("Dumping line mappings")

	table, err := e.Extract(img, module, opts.OnSkip)
	if err != nil {
		var extractErr *Error
		if errors.As(err, &extractErr) {
			extractErr.Path = path
		}
		return nil, err
	}
	return table, nil
}

// Extract collects the records of an opened image.
func (e *Extractor) Extract(img *image.Image, module string, onSkip func(Skip)) (Table, error) {
	skipped := make(map[SkipReason]int)
	count := func(s Skip) {
		skipped[s.Reason]++
		if onSkip != nil {
			onSkip(s)
		}
	}

	var table Table
	for rec, err := range e.Records(img, module, count) {
		if err != nil {
			return nil, err
		}
		table = append(table, rec)
	}

	evt := e.logger.Info()
	if len(table) == 0 {
		evt = e.logger.Warn()
	}
	evt.Str("module", module).
		Int("records", len(table)).
		Int("skipped_invalid_file", skipped[SkipInvalidFile]).
		Int("skipped_not_stmt", skipped[SkipNotStatement]).
		Int("skipped_no_line", skipped[SkipNoLine]).
		Msg("Extracted line mappings")

	return table, nil
}

// Records lazily yields the records of img in unit order. Each row of a
// line program yields at most one record; dropped rows go to onSkip. The
// first terminal failure is yielded as an *Error and ends the sequence.
// Ranging over the result again restarts from the first unit.
func (e *Extractor) Records(img *image.Image, module string, onSkip func(Skip)) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if !img.HasDebugInfo() {
			yield(Record{}, &Error{Kind: ErrMissingDebugInfo, UnitOffset: -1})
			return
		}

		data, err := img.DWARF()
		if err != nil {
			yield(Record{}, malformed(-1, err))
			return
		}
		secs, err := loadSections(img)
		if err != nil {
			yield(Record{}, malformed(-1, err))
			return
		}
		units, err := scanUnits(secs.info, img.ByteOrder())
		if err != nil {
			yield(Record{}, malformed(-1, err))
			return
		}

		u := unitWalker{
			logger: e.logger,
			secs:   secs,
			img:    img,
			module: module,
			onSkip: onSkip,
			yield:  yield,
		}

		reader := data.Reader()
		for {
			entry, err := reader.Next()
			if err != nil {
				yield(Record{}, malformed(decodeErrorUnit(units, err), err))
				return
			}
			if entry == nil {
				return
			}
			if entry.Tag == 0 {
				continue
			}
			reader.SkipChildren()

			hdr, ok := unitAt(units, entry.Offset)
			if !ok {
				hdr = unitHeader{Offset: uint64(entry.Offset)}
			}
			e.logger.Info().
				Uint64("offset", hdr.Offset).
				Uint64("length", hdr.Length).
				Str("tag", entry.Tag.String()).
				Msg("Found a compile unit")

			if !u.walk(hdr, entry) {
				return
			}
		}
	}
}

type sections struct {
	info    []byte
	line    []byte
	lineStr []byte
	str     []byte
}

func loadSections(img *image.Image) (sections, error) {
	var (
		s   sections
		err error
	)
	for name, dst := range map[string]*[]byte{
		"info":     &s.info,
		"line":     &s.line,
		"line_str": &s.lineStr,
		"str":      &s.str,
	} {
		if *dst, err = img.Section(name); err != nil {
			return sections{}, err
		}
	}
	return s, nil
}

func decodeErrorUnit(units []unitHeader, err error) int64 {
	var de dwarf.DecodeError
	if errors.As(err, &de) {
		if hdr, ok := unitAt(units, de.Offset); ok {
			return int64(hdr.Offset)
		}
	}
	return -1
}

// unitWalker runs the line program of one unit at a time and applies the
// record rules to each row.
type unitWalker struct {
	logger zerolog.Logger
	secs   sections
	img    *image.Image
	module string
	onSkip func(Skip)
	yield  func(Record, error) bool
}

// walk reports whether iteration should continue with the next unit.
func (u *unitWalker) walk(hdr unitHeader, entry *dwarf.Entry) bool {
	unitOffset := int64(hdr.Offset)

	stmtList, ok := entry.Val(dwarf.AttrStmtList).(int64)
	if !ok {
		u.logger.Info().Uint64("offset", hdr.Offset).Msg("Compile unit has no line program")
		return true
	}

	prog, err := dwarfline.Parse(u.secs.line, uint64(stmtList), u.img.ByteOrder(), dwarfline.Strings{
		LineStr: u.secs.lineStr,
		Str:     u.secs.str,
	})
	if err != nil {
		u.yield(Record{}, malformed(unitOffset, err))
		return false
	}
	u.logger.Debug().
		Uint64("offset", hdr.Offset).
		Uint16("version", prog.Version).
		Str("indexing", prog.Scheme.String()).
		Int("files", len(prog.Files)).
		Int("dirs", len(prog.IncludeDirs)).
		Msg("Decoding line program")

	for row, err := range prog.Rows() {
		if err != nil {
			u.yield(Record{}, malformed(unitOffset, err))
			return false
		}
		if row.EndSequence {
			continue
		}

		file, err := prog.FilePath(row)
		if errors.Is(err, dwarfline.ErrInvalidFileIndex) {
			u.skip(hdr, row, SkipInvalidFile)
			continue
		}
		if err != nil {
			u.yield(Record{}, malformed(unitOffset, err))
			return false
		}

		if !row.IsStmt {
			u.skip(hdr, row, SkipNotStatement)
			continue
		}
		if row.Line < 1 {
			u.skip(hdr, row, SkipNoLine)
			continue
		}

		rec := Record{Module: u.module, File: file, Line: int(row.Line), Address: row.Address}
		if !u.yield(rec, nil) {
			return false
		}
	}
	return true
}

func (u *unitWalker) skip(hdr unitHeader, row dwarfline.Row, reason SkipReason) {
	s := Skip{
		UnitOffset: hdr.Offset,
		Address:    row.Address,
		FileIndex:  row.File,
		Line:       row.Line,
		Reason:     reason,
	}

	evt := u.logger.Debug()
	if reason == SkipInvalidFile {
		evt = u.logger.Warn()
	}
	evt.Str("address", Record{Address: row.Address}.AddressHex()).
		Uint64("file_index", row.File).
		Int64("line", row.Line).
		Str("reason", reason.String()).
		Msg("Skipping entry")

	if u.onSkip != nil {
		u.onSkip(s)
	}
}
