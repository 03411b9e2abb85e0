package emu

import (
	"fmt"

	"github.com/sarchlab/m64sim/insts"
)

// DefaultCodeSize is the default code memory size in instructions.
const DefaultCodeSize = 4096

// CodeMemory holds the assembled program. Instruction i lives at byte offset
// 4*i.
type CodeMemory struct {
	insts []*insts.Instruction
	limit int
}

// NewCodeMemory creates an empty code memory holding at most limit
// instructions.
func NewCodeMemory(limit int) *CodeMemory {
	if limit <= 0 {
		limit = DefaultCodeSize
	}
	return &CodeMemory{limit: limit}
}

// Append places inst at the next free address and sets its Address.
func (c *CodeMemory) Append(inst *insts.Instruction) error {
	if len(c.insts) >= c.limit {
		return fmt.Errorf("%w: %d instructions", ErrCodeMemoryFull, c.limit)
	}

	inst.Address = uint64(len(c.insts) * 4)
	c.insts = append(c.insts, inst)

	return nil
}

// Len returns the number of instructions.
func (c *CodeMemory) Len() int {
	return len(c.insts)
}

// NextAddress returns the address the next appended instruction will get.
func (c *CodeMemory) NextAddress() uint64 {
	return uint64(len(c.insts) * 4)
}

// At returns the instruction at a byte offset, or nil.
func (c *CodeMemory) At(offset uint64) *insts.Instruction {
	if offset%4 != 0 || offset/4 >= uint64(len(c.insts)) {
		return nil
	}
	return c.insts[offset/4]
}

// All returns the program in address order.
func (c *CodeMemory) All() []*insts.Instruction {
	return c.insts
}

// Reset drops the program.
func (c *CodeMemory) Reset() {
	c.insts = nil
}

// SymbolKind tells whether a symbol names code or data.
type SymbolKind int

// Symbol kinds.
const (
	SymbolCode SymbolKind = iota
	SymbolData
)

// Symbol is a label bound to an address.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Address uint64
}

// SymbolTable maps labels to code and data addresses.
type SymbolTable struct {
	symbols map[string]Symbol
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Symbol)}
}

// Define binds name to an address.
func (t *SymbolTable) Define(name string, kind SymbolKind, addr uint64) error {
	if _, ok := t.symbols[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, name)
	}

	t.symbols[name] = Symbol{Name: name, Kind: kind, Address: addr}

	return nil
}

// Lookup returns the symbol bound to name.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Reset removes every symbol.
func (t *SymbolTable) Reset() {
	clear(t.symbols)
}
