package pipeline

import "github.com/sarchlab/m64sim/engine"

// FPU holds the FP functional units: the pipelined adder and multiplier and
// the non-pipelined divider.
type FPU struct {
	adder      [engine.AdderSlots]*Instance
	multiplier [engine.MultiplierSlots]*Instance
	divider    *Instance
}

// NewFPU creates empty FP units.
func NewFPU() *FPU {
	return &FPU{}
}

// Reset empties every unit.
func (f *FPU) Reset() {
	*f = FPU{}
}

func (f *FPU) slots(kind engine.UnitKind) []*Instance {
	switch kind {
	case engine.UnitAdder:
		return f.adder[:]
	case engine.UnitMultiplier:
		return f.multiplier[:]
	default:
		return nil
	}
}

// Slot returns the occupant of a 0-based slot, or nil.
func (f *FPU) Slot(kind engine.UnitKind, slot int) *Instance {
	if kind == engine.UnitDivider {
		if slot == 0 {
			return f.divider
		}
		return nil
	}

	s := f.slots(kind)
	if slot < 0 || slot >= len(s) {
		return nil
	}
	return s[slot]
}

// CanIssue reports whether the first slot of the unit is free.
func (f *FPU) CanIssue(kind engine.UnitKind) bool {
	if kind == engine.UnitDivider {
		return f.divider == nil
	}
	return f.slots(kind)[0] == nil
}

// Issue places in in the first slot of the unit. The divider keeps it for
// latency cycles.
func (f *FPU) Issue(kind engine.UnitKind, in *Instance, latency uint64) {
	if kind == engine.UnitDivider {
		in.remaining = latency - 1
		f.divider = in
		return
	}
	f.slots(kind)[0] = in
}

// Done returns the instance that finished in the unit, or nil.
func (f *FPU) Done(kind engine.UnitKind) *Instance {
	if kind == engine.UnitDivider {
		if f.divider != nil && f.divider.remaining == 0 {
			return f.divider
		}
		return nil
	}
	s := f.slots(kind)
	return s[len(s)-1]
}

// Remove takes a finished instance out of its unit.
func (f *FPU) Remove(in *Instance) {
	if f.divider == in {
		f.divider = nil
		return
	}
	if f.adder[engine.AdderSlots-1] == in {
		f.adder[engine.AdderSlots-1] = nil
		return
	}
	if f.multiplier[engine.MultiplierSlots-1] == in {
		f.multiplier[engine.MultiplierSlots-1] = nil
	}
}

// Advance moves every pipelined instance one slot forward where the next
// slot is free, and counts down the divider.
func (f *FPU) Advance() {
	advance(f.adder[:])
	advance(f.multiplier[:])

	if f.divider != nil && f.divider.remaining > 0 {
		f.divider.remaining--
	}
}

func advance(s []*Instance) {
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != nil && s[i+1] == nil {
			s[i+1] = s[i]
			s[i] = nil
		}
	}
}

// Empty reports whether no unit holds an instance.
func (f *FPU) Empty() bool {
	if f.divider != nil {
		return false
	}
	for _, in := range f.adder {
		if in != nil {
			return false
		}
	}
	for _, in := range f.multiplier {
		if in != nil {
			return false
		}
	}
	return true
}
