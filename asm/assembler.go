// Package asm provides a two-pass assembler for MIPS64 source in the
// EduMIPS64 dialect.
//
// A source file is split into a .data section holding directives and a .code
// (or .text) section holding instructions. Labels end with ':' and ';' starts
// a comment. Numeric operands accept Go integer syntax, labels, and $(...)
// expressions evaluated with starlark, e.g. "daddi r1, r0, $(4*8+1)".
//
// The assembler collects every diagnostic instead of stopping at the first
// one, and reports them as an ErrorList.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/sarchlab/m64sim/emu"
	"github.com/sarchlab/m64sim/insts"
)

type section int

const (
	sectionCode section = iota
	sectionData
)

// pendingInst is an instruction whose operands are parsed in pass two.
type pendingInst struct {
	inst *insts.Instruction
	src  line
}

// Assembler translates source text into code memory, data memory and the
// symbol table.
type Assembler struct {
	code    *emu.CodeMemory
	data    *emu.Memory
	symbols *emu.SymbolTable
	logger  *slog.Logger

	labels   map[string]uint64
	dataNext uint64
	pending  []pendingInst
	errs     ErrorList
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// New creates an assembler writing into the given memories and symbol table.
func New(
	code *emu.CodeMemory,
	data *emu.Memory,
	symbols *emu.SymbolTable,
	opts ...Option,
) *Assembler {
	a := &Assembler{
		code:    code,
		data:    data,
		symbols: symbols,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Parse assembles source. Code memory, data memory and the symbol table are
// cleared first. It returns nil on a clean parse, otherwise an ErrorList
// that may contain only warnings.
func (a *Assembler) Parse(source string) error {
	a.code.Reset()
	a.data.Reset()
	a.symbols.Reset()
	a.labels = make(map[string]uint64)
	a.dataNext = 0
	a.pending = nil
	a.errs = nil

	sec := sectionCode
	var pendingLabel token

	for i, raw := range strings.Split(source, "\n") {
		l := lex(i+1, raw)

		if l.label.text != "" {
			if !a.defineLabel(l, sec) {
				l.label = token{}
			}
		}

		if l.head.text == "" {
			if l.label.text != "" {
				pendingLabel = l.label
			}
			continue
		}

		if l.label.text == "" {
			l.label = pendingLabel
		}
		pendingLabel = token{}

		switch strings.ToLower(l.head.text) {
		case ".data":
			sec = sectionData
			continue
		case ".code", ".text":
			sec = sectionCode
			continue
		}

		if strings.HasPrefix(l.head.text, ".") {
			if sec != sectionData {
				a.errorf(l.row, l.head.col, "%w: %s", ErrSectionMismatch, l.head.text)
				continue
			}
			a.directive(l)
			continue
		}

		if sec != sectionCode {
			a.errorf(l.row, l.head.col, "%w: %s", ErrSectionMismatch, l.head.text)
			continue
		}
		a.instruction(l)
	}

	for _, p := range a.pending {
		a.operands(p.inst, p.src)
	}

	a.checkHalt()

	a.logger.Debug("assembled program",
		"instructions", a.code.Len(),
		"dataBytes", a.dataNext,
		"diagnostics", len(a.errs))

	if len(a.errs) == 0 {
		return nil
	}

	return a.errs
}

func (a *Assembler) errorf(row, col int, format string, args ...any) {
	a.errs = append(a.errs, &Error{Row: row, Col: col, Err: fmt.Errorf(format, args...)})
}

func (a *Assembler) report(row, col int, err error) {
	a.errs = append(a.errs, &Error{Row: row, Col: col, Err: err})
}

func (a *Assembler) defineLabel(l line, sec section) bool {
	name := l.label.text
	if !validLabel(name) {
		a.errorf(l.row, l.label.col, "%w: %s", ErrLabelInvalid, name)
		return false
	}

	kind, addr := emu.SymbolCode, a.code.NextAddress()
	if sec == sectionData {
		kind, addr = emu.SymbolData, alignUp(a.dataNext, emu.CellSize)
	}

	if err := a.symbols.Define(name, kind, addr); err != nil {
		a.errorf(l.row, l.label.col, "%w: %s", ErrLabelDuplicate, name)
		return false
	}
	a.labels[name] = addr

	return true
}

func (a *Assembler) instruction(l line) {
	op, ok := insts.Lookup(l.head.text)
	if !ok {
		a.errorf(l.row, l.head.col, "%w: %s", ErrUnknownInstruction, l.head.text)
		return
	}

	inst := &insts.Instruction{
		Op:      op,
		Line:    l.row,
		Label:   l.label.text,
		Comment: l.comment,
		Text:    l.body,
	}

	if err := a.code.Append(inst); err != nil {
		a.report(l.row, l.head.col, err)
		return
	}

	a.pending = append(a.pending, pendingInst{inst: inst, src: l})
}

// operands parses the operand list of inst according to its syntax.
func (a *Assembler) operands(inst *insts.Instruction, l line) {
	want := operandCount(inst.Op.Syntax())
	args := l.args
	if inst.Op.Syntax() == insts.SyntaxImmOpt && len(args) == 0 {
		return
	}
	if len(args) != want {
		a.errorf(l.row, l.head.col, "%w: %s takes %d, got %d",
			ErrOperandCount, inst.Op, want, len(args))
		return
	}

	p := operandParser{a: a, l: l}

	switch inst.Op.Syntax() {
	case insts.SyntaxRdRsRt:
		inst.Rd, inst.Rs, inst.Rt = p.gpr(0), p.gpr(1), p.gpr(2)
	case insts.SyntaxRdRtRs:
		inst.Rd, inst.Rt, inst.Rs = p.gpr(0), p.gpr(1), p.gpr(2)
	case insts.SyntaxRdRtSa:
		inst.Rd, inst.Rt = p.gpr(0), p.gpr(1)
		inst.Sa = uint8(p.imm(2, 0, 31))
	case insts.SyntaxRtRsImm:
		inst.Rt, inst.Rs = p.gpr(0), p.gpr(1)
		lo, hi := immRange(inst.Op)
		inst.Imm = p.imm(2, lo, hi)
	case insts.SyntaxRtImm:
		inst.Rt = p.gpr(0)
		lo, hi := immRange(inst.Op)
		inst.Imm = p.imm(1, lo, hi)
	case insts.SyntaxRsRt:
		inst.Rs, inst.Rt = p.gpr(0), p.gpr(1)
	case insts.SyntaxRd:
		inst.Rd = p.gpr(0)
	case insts.SyntaxRtOffRs:
		inst.Rt = p.gpr(0)
		inst.Imm, inst.Rs = p.memRef(1)
	case insts.SyntaxFtOffRs:
		inst.Ft = p.fpr(0)
		inst.Imm, inst.Rs = p.memRef(1)
	case insts.SyntaxRsRtLabel:
		inst.Rs, inst.Rt = p.gpr(0), p.gpr(1)
		inst.TargetLabel, inst.Target = p.target(2)
	case insts.SyntaxRsLabel:
		inst.Rs = p.gpr(0)
		inst.TargetLabel, inst.Target = p.target(1)
	case insts.SyntaxLabel:
		inst.TargetLabel, inst.Target = p.target(0)
	case insts.SyntaxRs:
		inst.Rs = p.gpr(0)
	case insts.SyntaxFdFsFt:
		inst.Fd, inst.Fs, inst.Ft = p.fpr(0), p.fpr(1), p.fpr(2)
	case insts.SyntaxFdFs:
		inst.Fd, inst.Fs = p.fpr(0), p.fpr(1)
	case insts.SyntaxFsFt:
		inst.Fs, inst.Ft = p.fpr(0), p.fpr(1)
	case insts.SyntaxRtFs:
		inst.Rt, inst.Fs = p.gpr(0), p.fpr(1)
	case insts.SyntaxImmOpt:
		inst.Imm = p.imm(0, 0, 1<<20-1)
	}
}

func operandCount(s insts.Syntax) int {
	switch s {
	case insts.SyntaxNone:
		return 0
	case insts.SyntaxRd, insts.SyntaxLabel, insts.SyntaxRs, insts.SyntaxImmOpt:
		return 1
	case insts.SyntaxRdRtSa, insts.SyntaxRdRsRt, insts.SyntaxRdRtRs,
		insts.SyntaxRtRsImm, insts.SyntaxRsRtLabel, insts.SyntaxFdFsFt:
		return 3
	default:
		return 2
	}
}

// immRange returns the accepted immediate range: logical immediates are
// zero-extended, the others sign-extended.
func immRange(op insts.Op) (int64, int64) {
	switch op {
	case insts.OpANDI, insts.OpORI, insts.OpXORI, insts.OpLUI:
		return 0, math.MaxUint16
	}
	return math.MinInt16, math.MaxInt16
}

// operandParser parses the operands of one line, reporting each bad operand
// at its own column.
type operandParser struct {
	a *Assembler
	l line
}

func (p operandParser) arg(i int) token {
	return p.l.args[i]
}

func (p operandParser) gpr(i int) uint8 {
	t := p.arg(i)
	n, ok := emu.LookupGPR(t.text)
	if !ok {
		p.a.errorf(p.l.row, t.col, "%w: %q", ErrRegisterInvalid, t.text)
	}
	return n
}

func (p operandParser) fpr(i int) uint8 {
	t := p.arg(i)
	n, ok := emu.LookupFPR(t.text)
	if !ok {
		p.a.errorf(p.l.row, t.col, "%w: %q", ErrRegisterInvalid, t.text)
	}
	return n
}

func (p operandParser) imm(i int, lo, hi int64) int64 {
	t := p.arg(i)
	v, err := p.a.intValue(t.text)
	if err == nil {
		err = checkRange(v, lo, hi)
	}
	if err != nil {
		p.a.report(p.l.row, t.col, err)
		return 0
	}
	return v
}

// memRef parses "offset(base)". An empty offset means 0.
func (p operandParser) memRef(i int) (int64, uint8) {
	t := p.arg(i)
	open := strings.LastIndex(t.text, "(")
	if open < 0 || !strings.HasSuffix(t.text, ")") {
		p.a.errorf(p.l.row, t.col, "%w: %q", ErrValueInvalid, t.text)
		return 0, 0
	}

	// "$(expr)" alone has no base register.
	if open == 1 && t.text[0] == '$' {
		p.a.errorf(p.l.row, t.col, "%w: %q", ErrValueInvalid, t.text)
		return 0, 0
	}

	var off int64
	if s := strings.TrimSpace(t.text[:open]); s != "" {
		v, err := p.a.intValue(s)
		if err == nil {
			err = checkRange(v, math.MinInt16, math.MaxInt16)
		}
		if err != nil {
			p.a.report(p.l.row, t.col, err)
		}
		off = v
	}

	regText := strings.TrimSpace(t.text[open+1 : len(t.text)-1])
	base, ok := emu.LookupGPR(regText)
	if !ok {
		p.a.errorf(p.l.row, t.col+open+1, "%w: %q", ErrRegisterInvalid, regText)
	}

	return off, base
}

// target resolves a branch or jump target, given as a code label or a
// numeric byte address.
func (p operandParser) target(i int) (string, uint64) {
	t := p.arg(i)

	if sym, ok := p.a.symbols.Lookup(t.text); ok {
		if sym.Kind != emu.SymbolCode {
			p.a.errorf(p.l.row, t.col, "%w: %s is a data label", ErrLabelInvalid, t.text)
		}
		return t.text, sym.Address
	}

	v, err := p.a.intValue(t.text)
	if err != nil {
		p.a.report(p.l.row, t.col, err)
		return t.text, 0
	}
	if v < 0 || v%4 != 0 {
		p.a.errorf(p.l.row, t.col, "%w: %d is not a code address", ErrValueRange, v)
	}

	return "", uint64(v)
}

// directive handles a data section directive.
func (a *Assembler) directive(l line) {
	name := strings.ToLower(l.head.text)
	start := alignUp(a.dataNext, emu.CellSize)

	var (
		buf []byte
		ok  = true
	)

	switch name {
	case ".byte", ".word16", ".word32", ".word", ".word64":
		buf, ok = a.intData(l, directiveSize(name))
	case ".double":
		buf, ok = a.floatData(l)
	case ".space":
		if len(l.args) != 1 {
			a.errorf(l.row, l.head.col, "%w: .space takes 1, got %d", ErrOperandCount, len(l.args))
			return
		}
		n, err := a.intValue(l.args[0].text)
		if err == nil {
			err = checkRange(n, 0, int64(a.data.Size()))
		}
		if err != nil {
			a.report(l.row, l.args[0].col, err)
			return
		}
		buf = make([]byte, n)
	case ".ascii", ".asciiz":
		buf, ok = a.stringData(l, name == ".asciiz")
	default:
		a.errorf(l.row, l.head.col, "%w: %s", ErrUnknownDirective, l.head.text)
		return
	}

	if !ok {
		return
	}

	end := start + uint64(len(buf))
	if end > a.data.Size() {
		a.errorf(l.row, l.head.col, "%w: %d bytes at 0x%X", ErrDataOverflow, len(buf), start)
		return
	}

	for i, b := range buf {
		a.data.Write8(start+uint64(i), b)
	}

	label := l.label.text
	for addr := start; addr < alignUp(end, emu.CellSize) || addr == start; addr += emu.CellSize {
		a.data.Annotate(addr, label, l.body, l.comment)
		label = ""
	}

	a.dataNext = alignUp(end, emu.CellSize)
}

func directiveSize(name string) int {
	switch name {
	case ".byte":
		return 1
	case ".word16":
		return 2
	case ".word32":
		return 4
	default:
		return 8
	}
}

func (a *Assembler) intData(l line, size int) ([]byte, bool) {
	if len(l.args) == 0 {
		a.errorf(l.row, l.head.col, "%w: %s needs values", ErrOperandCount, l.head.text)
		return nil, false
	}

	bits := uint(size * 8)
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if bits < 64 {
		lo, hi = -(1 << (bits - 1)), (1<<bits)-1
	}

	buf := make([]byte, 0, size*len(l.args))
	ok := true

	for _, t := range l.args {
		v, err := a.intValue(t.text)
		if err == nil {
			err = checkRange(v, lo, hi)
		}
		if err != nil {
			a.report(l.row, t.col, err)
			ok = false
			continue
		}

		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], uint64(v))
		buf = append(buf, word[:size]...)
	}

	return buf, ok
}

func (a *Assembler) floatData(l line) ([]byte, bool) {
	if len(l.args) == 0 {
		a.errorf(l.row, l.head.col, "%w: .double needs values", ErrOperandCount)
		return nil, false
	}

	buf := make([]byte, 0, 8*len(l.args))
	ok := true

	for _, t := range l.args {
		v, err := a.floatValue(t.text)
		if err != nil {
			a.report(l.row, t.col, err)
			ok = false
			continue
		}
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	return buf, ok
}

func (a *Assembler) stringData(l line, terminate bool) ([]byte, bool) {
	if len(l.args) == 0 {
		a.errorf(l.row, l.head.col, "%w: %s needs a string", ErrOperandCount, l.head.text)
		return nil, false
	}

	var buf []byte
	ok := true

	for _, t := range l.args {
		s, err := strconv.Unquote(t.text)
		if err != nil || !strings.HasPrefix(t.text, `"`) {
			a.errorf(l.row, t.col, "%w: %s", ErrStringInvalid, t.text)
			ok = false
			continue
		}
		buf = append(buf, s...)
		if terminate {
			buf = append(buf, 0)
		}
	}

	return buf, ok
}

// checkHalt warns when the program has no terminating instruction.
func (a *Assembler) checkHalt() {
	for _, inst := range a.code.All() {
		if inst.Op == insts.OpHALT || (inst.Op == insts.OpSYSCALL && inst.Imm == 0) {
			return
		}
	}

	row := 1
	if n := a.code.Len(); n > 0 {
		row = a.code.All()[n-1].Line
	}

	a.errs = append(a.errs, &Error{Row: row, Col: 1, Err: ErrHaltMissing, IsWarning: true})
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}

// Diagnostics returns the diagnostics carried by err, or nil.
func Diagnostics(err error) ErrorList {
	var list ErrorList
	if errors.As(err, &list) {
		return list
	}
	return nil
}
