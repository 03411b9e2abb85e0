package snapshot

import (
	"fmt"

	"github.com/sarchlab/m64sim/engine"
)

// Instruction is a value copy of one engine instruction.
type Instruction struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Comment string `json:"comment"`
	Label   string `json:"label"`
	Address uint64 `json:"address"`
	Line    int    `json:"line"`

	SerialNumber int `json:"serialNumber"`

	// BinaryRepresentation is the 32-bit encoding as a binary string.
	BinaryRepresentation string `json:"binaryRepresentation"`
	// Opcode is the top 6 bits of the encoding as a binary string.
	Opcode string `json:"opcode"`
}

// Copy returns a copy of inst, or nil for an empty slot.
func Copy(inst engine.Instruction) *Instruction {
	if inst == nil {
		return nil
	}

	enc := inst.Encoding()

	return &Instruction{
		Name:                 inst.Name(),
		Code:                 inst.Code(),
		Comment:              inst.Comment(),
		Label:                inst.Label(),
		Address:              inst.Address(),
		Line:                 inst.Line(),
		SerialNumber:         inst.Serial(),
		BinaryRepresentation: fmt.Sprintf("%032b", enc),
		Opcode:               fmt.Sprintf("%06b", enc>>26),
	}
}
