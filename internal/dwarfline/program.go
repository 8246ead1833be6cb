package dwarfline

import (
	"fmt"
	"iter"
	"path"
	"slices"
)

// Standard opcodes (DW_LNS_*).
const (
	lnsCopy             = 1
	lnsAdvancePC        = 2
	lnsAdvanceLine      = 3
	lnsSetFile          = 4
	lnsSetColumn        = 5
	lnsNegateStmt       = 6
	lnsSetBasicBlock    = 7
	lnsConstAddPC       = 8
	lnsFixedAdvancePC   = 9
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12
)

// Extended opcodes (DW_LNE_*).
const (
	lneEndSequence      = 1
	lneSetAddress       = 2
	lneDefineFile       = 3
	lneSetDiscriminator = 4
)

// Row is the state-machine register set after one row-emitting opcode.
type Row struct {
	Address       uint64
	OpIndex       uint64
	File          uint64 // encoded file index, see IndexingScheme
	Line          int64
	Column        uint64
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64

	// file table in effect when the row was emitted (grows with define_file)
	files []FileEntry
}

// Rows returns an iterator over the rows of the program in emission order.
// Each call replays the program from its first opcode. A decode error is
// yielded once, after which iteration stops.
func (p *Program) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		m := &machine{p: p, files: slices.Clone(p.Files)}
		m.reset()

		b := &buf{data: p.data, base: p.base, order: p.order}
		for b.off < len(b.data) {
			row, emitted := m.step(b)
			if b.err != nil {
				yield(Row{}, b.err)
				return
			}
			if emitted && !yield(row, nil) {
				return
			}
		}
	}
}

// FilePath resolves the file register of r to a path, joining the file name
// with its include directory. It returns ErrInvalidFileIndex when the index
// names no file, and a *DecodeError when the file entry refers to a
// directory outside the table.
func (p *Program) FilePath(r Row) (string, error) {
	files := r.files
	if files == nil {
		files = p.Files
	}

	slot, ok := p.Scheme.FileSlot(r.File, len(files))
	if !ok {
		return "", fmt.Errorf("%w: %d (%d files, %s indexing)", ErrInvalidFileIndex, r.File, len(files), p.Scheme)
	}
	f := files[slot]

	dir, ok := p.Scheme.DirSlot(f.DirIndex, len(p.IncludeDirs))
	if !ok {
		return "", &DecodeError{
			Offset: p.Offset,
			Err:    fmt.Errorf("file %q references directory index %d of %d", f.Name, f.DirIndex, len(p.IncludeDirs)),
		}
	}
	if dir == NoDirectory {
		return f.Name, nil
	}
	return joinPath(p.IncludeDirs[dir], f.Name), nil
}

func joinPath(dir, name string) string {
	if dir == "" || path.IsAbs(name) {
		return name
	}
	return path.Join(dir, name)
}

type machine struct {
	p     *Program
	files []FileEntry
	regs  Row
}

func (m *machine) reset() {
	m.regs = Row{
		File:   1,
		Line:   1,
		IsStmt: m.p.DefaultIsStmt,
	}
}

// emit snapshots the registers and clears the per-row flags.
func (m *machine) emit() Row {
	row := m.regs
	row.files = m.files
	m.regs.BasicBlock = false
	m.regs.PrologueEnd = false
	m.regs.EpilogueBegin = false
	m.regs.Discriminator = 0
	return row
}

// advance applies an operation advance to address and op_index.
func (m *machine) advance(opAdvance uint64) {
	minInst := uint64(m.p.MinInstLength)
	maxOps := uint64(m.p.MaxOpsPerInst)
	if maxOps == 1 {
		m.regs.Address += minInst * opAdvance
		return
	}
	total := m.regs.OpIndex + opAdvance
	m.regs.Address += minInst * (total / maxOps)
	m.regs.OpIndex = total % maxOps
}

// step executes one opcode and reports whether it emitted a row.
func (m *machine) step(b *buf) (Row, bool) {
	op := b.u8()
	if b.err != nil {
		return Row{}, false
	}

	if op >= m.p.OpcodeBase {
		adjusted := uint64(op - m.p.OpcodeBase)
		lineRange := uint64(m.p.LineRange)
		m.advance(adjusted / lineRange)
		m.regs.Line += int64(m.p.LineBase) + int64(adjusted%lineRange)
		return m.emit(), true
	}

	switch op {
	case 0:
		return m.extended(b)
	case lnsCopy:
		return m.emit(), true
	case lnsAdvancePC:
		m.advance(b.uleb())
	case lnsAdvanceLine:
		m.regs.Line += b.sleb()
	case lnsSetFile:
		m.regs.File = b.uleb()
	case lnsSetColumn:
		m.regs.Column = b.uleb()
	case lnsNegateStmt:
		m.regs.IsStmt = !m.regs.IsStmt
	case lnsSetBasicBlock:
		m.regs.BasicBlock = true
	case lnsConstAddPC:
		m.advance(uint64(255-m.p.OpcodeBase) / uint64(m.p.LineRange))
	case lnsFixedAdvancePC:
		m.regs.Address += uint64(b.u16())
		m.regs.OpIndex = 0
	case lnsSetPrologueEnd:
		m.regs.PrologueEnd = true
	case lnsSetEpilogueBegin:
		m.regs.EpilogueBegin = true
	case lnsSetISA:
		m.regs.ISA = b.uleb()
	default:
		// Unknown standard opcode: skip its ULEB128 operands.
		for i := uint8(0); i < m.p.StdOpcodeLengths[op-1]; i++ {
			b.uleb()
		}
	}
	return Row{}, false
}

func (m *machine) extended(b *buf) (Row, bool) {
	length := b.uleb()
	if b.err != nil {
		return Row{}, false
	}
	if length == 0 || length > uint64(len(b.data)-b.off) {
		b.fail("extended opcode length %d out of range", length)
		return Row{}, false
	}
	end := b.off + int(length)
	sub := b.u8()

	var (
		row     Row
		emitted bool
	)
	switch sub {
	case lneEndSequence:
		m.regs.EndSequence = true
		row, emitted = m.emit(), true
		m.reset()
	case lneSetAddress:
		m.regs.Address = b.uint(int(length) - 1)
		m.regs.OpIndex = 0
	case lneDefineFile:
		name := b.cstring()
		dir := b.uleb()
		b.uleb() // mtime
		b.uleb() // length
		m.files = append(m.files, FileEntry{Name: name, DirIndex: dir})
	case lneSetDiscriminator:
		m.regs.Discriminator = b.uleb()
	}
	if b.err != nil {
		return Row{}, false
	}
	if b.off > end {
		b.fail("extended opcode 0x%x overruns its length %d", sub, length)
		return Row{}, false
	}
	b.off = end
	return row, emitted
}
