package pipeline

import "github.com/sarchlab/m64sim/insts"

// StallReason says why the instruction in ID could not issue.
type StallReason int

const (
	// StallNone means the instruction may issue.
	StallNone StallReason = iota
	// StallRAW means a source register has a pending write.
	StallRAW
	// StallWAW means a destination register has a pending write.
	StallWAW
	// StallDivider means DIV.D found the divider busy.
	StallDivider
	// StallStructural means the target stage or unit slot is occupied.
	StallStructural
)

func (r StallReason) String() string {
	switch r {
	case StallNone:
		return "none"
	case StallRAW:
		return "RAW"
	case StallWAW:
		return "WAW"
	case StallDivider:
		return "divider"
	case StallStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// HazardUnit is the register scoreboard. Every issued instruction reserves
// its destinations until its results reach the register file.
type HazardUnit struct {
	pending [insts.NumRegs]int
	// released holds, per register, the cycle of the last write plus one.
	released [insts.NumRegs]uint64
}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// Reset clears all reservations.
func (h *HazardUnit) Reset() {
	h.pending = [insts.NumRegs]int{}
	h.released = [insts.NumRegs]uint64{}
}

// Reserve marks the destinations of inst as pending.
func (h *HazardUnit) Reserve(inst *insts.Instruction) {
	for _, r := range inst.Dests() {
		h.pending[r]++
	}
}

// Release clears the reservations of inst once its results were written in
// the given cycle.
func (h *HazardUnit) Release(inst *insts.Instruction, cycle uint64) {
	for _, r := range inst.Dests() {
		if h.pending[r] > 0 {
			h.pending[r]--
		}
		h.released[r] = cycle + 1
	}
}

// Pending reports whether r has an outstanding write.
func (h *HazardUnit) Pending(r insts.Reg) bool {
	return h.pending[r] > 0
}

// available reports whether r can be read by an instruction issuing in
// cycle. A value released in cycle t is usable from t+1: forwarded values
// reach EX one cycle after they are produced, and without forwarding the
// consumer reads the register file in the cycle after WB.
func (h *HazardUnit) available(r insts.Reg, cycle uint64) bool {
	if r.IsZero() {
		return true
	}
	if h.pending[r] > 0 {
		return false
	}
	if h.released[r] == cycle+1 {
		return false
	}
	return true
}

// Detect checks the data hazards of inst issuing in cycle. RAW hazards take
// precedence over WAW hazards.
func (h *HazardUnit) Detect(inst *insts.Instruction, cycle uint64) StallReason {
	for _, r := range inst.Sources() {
		if !h.available(r, cycle) {
			return StallRAW
		}
	}

	for _, r := range inst.Dests() {
		if h.pending[r] > 0 {
			return StallWAW
		}
	}

	return StallNone
}
