package snapshot

import "github.com/sarchlab/m64sim/engine"

// Pipeline is the occupancy of the five core stages and the twelve FP unit
// slots. A nil entry is an empty slot and serialises as null.
type Pipeline struct {
	IF  *Instruction `json:"IF"`
	ID  *Instruction `json:"ID"`
	EX  *Instruction `json:"EX"`
	MEM *Instruction `json:"MEM"`
	WB  *Instruction `json:"WB"`

	FPAdder1 *Instruction `json:"FPAdder1"`
	FPAdder2 *Instruction `json:"FPAdder2"`
	FPAdder3 *Instruction `json:"FPAdder3"`
	FPAdder4 *Instruction `json:"FPAdder4"`

	FPMultiplier1 *Instruction `json:"FPMultiplier1"`
	FPMultiplier2 *Instruction `json:"FPMultiplier2"`
	FPMultiplier3 *Instruction `json:"FPMultiplier3"`
	FPMultiplier4 *Instruction `json:"FPMultiplier4"`
	FPMultiplier5 *Instruction `json:"FPMultiplier5"`
	FPMultiplier6 *Instruction `json:"FPMultiplier6"`
	FPMultiplier7 *Instruction `json:"FPMultiplier7"`

	FPDivider *Instruction `json:"FPDivider"`
}

func (p *Pipeline) stage(s engine.Stage) **Instruction {
	switch s {
	case engine.StageIF:
		return &p.IF
	case engine.StageID:
		return &p.ID
	case engine.StageEX:
		return &p.EX
	case engine.StageMEM:
		return &p.MEM
	case engine.StageWB:
		return &p.WB
	default:
		return nil
	}
}

func (p *Pipeline) unit(kind engine.UnitKind) []**Instruction {
	switch kind {
	case engine.UnitAdder:
		return []**Instruction{&p.FPAdder1, &p.FPAdder2, &p.FPAdder3, &p.FPAdder4}
	case engine.UnitMultiplier:
		return []**Instruction{
			&p.FPMultiplier1, &p.FPMultiplier2, &p.FPMultiplier3, &p.FPMultiplier4,
			&p.FPMultiplier5, &p.FPMultiplier6, &p.FPMultiplier7,
		}
	case engine.UnitDivider:
		return []**Instruction{&p.FPDivider}
	default:
		return nil
	}
}

// Stage returns the occupant of a core stage.
func (p *Pipeline) Stage(s engine.Stage) *Instruction {
	if ptr := p.stage(s); ptr != nil {
		return *ptr
	}
	return nil
}

// Slot returns the occupant of a 0-based FP unit slot.
func (p *Pipeline) Slot(kind engine.UnitKind, slot int) *Instruction {
	slots := p.unit(kind)
	if slot < 0 || slot >= len(slots) {
		return nil
	}
	return *slots[slot]
}

// SetStage places inst in a core stage.
func (p *Pipeline) SetStage(s engine.Stage, inst *Instruction) {
	if ptr := p.stage(s); ptr != nil {
		*ptr = inst
	}
}

// SetSlot places inst in a 0-based FP unit slot.
func (p *Pipeline) SetSlot(kind engine.UnitKind, slot int, inst *Instruction) {
	slots := p.unit(kind)
	if slot >= 0 && slot < len(slots) {
		*slots[slot] = inst
	}
}

// Units lists the FP units in display order.
var Units = []engine.UnitKind{engine.UnitAdder, engine.UnitMultiplier, engine.UnitDivider}
