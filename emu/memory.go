package emu

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// CellSize is the width in bytes of one data memory cell.
const CellSize = 8

// DefaultDataSize is the default data memory size in bytes.
const DefaultDataSize = 8192

// Cell holds the source metadata of one 64-bit data memory cell.
type Cell struct {
	Label   string
	Code    string
	Comment string

	used bool
}

// Memory is the byte-addressed data memory. Values are stored little-endian
// in 64-bit cells; each cell can carry the label, directive text and comment
// that declared it.
type Memory struct {
	data  []byte
	cells []Cell
}

// NewMemory creates a data memory of DefaultDataSize bytes.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultDataSize)
}

// NewMemoryWithSize creates a data memory of the given size, rounded up to a
// whole number of cells.
func NewMemoryWithSize(size int) *Memory {
	if size <= 0 {
		size = DefaultDataSize
	}
	n := (size + CellSize - 1) / CellSize

	return &Memory{
		data:  make([]byte, n*CellSize),
		cells: make([]Cell, n),
	}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Reset zeroes the memory and drops all cell metadata.
func (m *Memory) Reset() {
	clear(m.data)
	clear(m.cells)
}

func (m *Memory) check(addr uint64, size int) error {
	if addr+uint64(size) > m.Size() || addr+uint64(size) < addr {
		return fmt.Errorf("%w: 0x%X", ErrAddressOutOfRange, addr)
	}
	if addr%uint64(size) != 0 {
		return fmt.Errorf("%w: %d bytes at 0x%X", ErrUnalignedAccess, size, addr)
	}
	return nil
}

// Read reads size bytes (1, 2, 4 or 8) at addr, zero-extended.
func (m *Memory) Read(addr uint64, size int) (uint64, error) {
	if err := m.check(addr, size); err != nil {
		return 0, err
	}

	b := m.data[addr : addr+uint64(size)]
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		return binary.LittleEndian.Uint64(b), nil
	}
}

// Write writes the low size bytes of value at addr and marks the cell used.
func (m *Memory) Write(addr uint64, size int, value uint64) error {
	if err := m.check(addr, size); err != nil {
		return err
	}

	b := m.data[addr : addr+uint64(size)]
	switch size {
	case 1:
		b[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(value))
	default:
		binary.LittleEndian.PutUint64(b, value)
	}
	m.cells[addr/CellSize].used = true

	return nil
}

// Read8 reads one byte. Out-of-range addresses read as 0.
func (m *Memory) Read8(addr uint64) byte {
	if addr >= m.Size() {
		return 0
	}
	return m.data[addr]
}

// Write8 writes one byte. Out-of-range addresses are ignored.
func (m *Memory) Write8(addr uint64, value byte) {
	if addr >= m.Size() {
		return
	}
	m.data[addr] = value
	m.cells[addr/CellSize].used = true
}

// ReadString reads a NUL-terminated string starting at addr.
func (m *Memory) ReadString(addr uint64) (string, error) {
	var buf []byte
	for a := addr; ; a++ {
		if a >= m.Size() {
			return "", fmt.Errorf("%w: unterminated string at 0x%X",
				ErrAddressOutOfRange, addr)
		}
		if m.data[a] == 0 {
			return string(buf), nil
		}
		buf = append(buf, m.data[a])
	}
}

// Annotate attaches source metadata to the cell containing addr.
func (m *Memory) Annotate(addr uint64, label, code, comment string) {
	i := addr / CellSize
	if i >= uint64(len(m.cells)) {
		return
	}

	c := &m.cells[i]
	c.used = true
	if label != "" {
		c.Label = label
	}
	if code != "" {
		c.Code = code
	}
	if comment != "" {
		c.Comment = comment
	}
}

// CellAt returns the metadata of the cell containing addr.
func (m *Memory) CellAt(addr uint64) Cell {
	i := addr / CellSize
	if i >= uint64(len(m.cells)) {
		return Cell{}
	}
	return m.cells[i]
}

// CellDump is one row of the data memory dump.
type CellDump struct {
	Address    uint64 `json:"address"`
	AddressHex string `json:"address_hex"`
	Value      int64  `json:"value"`
	ValueHex   string `json:"value_hex"`
	Label      string `json:"label"`
	Code       string `json:"code"`
	Comment    string `json:"comment"`
}

// Cells returns the declared or written cells in address order.
func (m *Memory) Cells() []CellDump {
	out := []CellDump{}
	for i, c := range m.cells {
		if !c.used {
			continue
		}

		addr := uint64(i * CellSize)
		v := binary.LittleEndian.Uint64(m.data[addr : addr+CellSize])
		out = append(out, CellDump{
			Address:    addr,
			AddressHex: fmt.Sprintf("%016X", addr),
			Value:      int64(v),
			ValueHex:   fmt.Sprintf("%016X", v),
			Label:      c.Label,
			Code:       c.Code,
			Comment:    c.Comment,
		})
	}

	return out
}

// Dump renders the used cells as JSON: {"cells":[...]}.
func (m *Memory) Dump() (string, error) {
	b, err := json.Marshal(struct {
		Cells []CellDump `json:"cells"`
	}{Cells: m.Cells()})
	if err != nil {
		return "", fmt.Errorf("dump data memory: %w", err)
	}
	return string(b), nil
}
