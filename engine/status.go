package engine

import "fmt"

// Status is the engine's fine-grained execution status.
type Status int

// Engine statuses.
const (
	// StatusReady means no program is running.
	StatusReady Status = iota
	// StatusRunning means a program is loaded and executing.
	StatusRunning
	// StatusStopping means a terminating instruction has been decoded and the
	// pipeline is draining.
	StatusStopping
	// StatusHalted means the program terminated.
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "READY"
	case StatusRunning:
		return "RUNNING"
	case StatusStopping:
		return "STOPPING"
	case StatusHalted:
		return "HALTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stage is one of the five core pipeline stages.
type Stage int

// Pipeline stages.
const (
	StageIF Stage = iota
	StageID
	StageEX
	StageMEM
	StageWB
)

// Stages lists the core stages in pipeline order.
var Stages = []Stage{StageIF, StageID, StageEX, StageMEM, StageWB}

func (s Stage) String() string {
	switch s {
	case StageIF:
		return "IF"
	case StageID:
		return "ID"
	case StageEX:
		return "EX"
	case StageMEM:
		return "MEM"
	case StageWB:
		return "WB"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// UnitKind identifies a floating-point functional unit.
type UnitKind int

// Functional units.
const (
	UnitAdder UnitKind = iota
	UnitMultiplier
	UnitDivider
)

// Number of slots of each functional unit.
const (
	AdderSlots      = 4
	MultiplierSlots = 7
	DividerSlots    = 1
)

// Slots returns the number of slots of the unit.
func (k UnitKind) Slots() int {
	switch k {
	case UnitAdder:
		return AdderSlots
	case UnitMultiplier:
		return MultiplierSlots
	case UnitDivider:
		return DividerSlots
	default:
		return 0
	}
}

func (k UnitKind) String() string {
	switch k {
	case UnitAdder:
		return "ADDER"
	case UnitMultiplier:
		return "MULTIPLIER"
	case UnitDivider:
		return "DIVIDER"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}
