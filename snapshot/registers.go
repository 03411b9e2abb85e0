package snapshot

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sarchlab/m64sim/engine"
)

// RegisterEntry is one register of the register dump.
type RegisterEntry struct {
	Name      string `json:"name"`
	Alias     string `json:"alias,omitempty"`
	HexString string `json:"hexString"`
	Value     string `json:"value"`
}

// RegisterDump is the JSON shape of the register banks. Special always holds
// LO, HI and FCSR in that order.
type RegisterDump struct {
	GPR     []RegisterEntry `json:"gpr"`
	FPU     []RegisterEntry `json:"fpu"`
	Special []RegisterEntry `json:"special"`
}

func registerEntry(r engine.Register) RegisterEntry {
	value := strconv.FormatInt(int64(r.Bits), 10)
	if r.Float {
		value = strconv.FormatFloat(math.Float64frombits(r.Bits), 'g', -1, 64)
	}

	return RegisterEntry{
		Name:      r.Name,
		Alias:     r.Alias,
		HexString: fmt.Sprintf("%016X", r.Bits),
		Value:     value,
	}
}

func registerEntries(regs []engine.Register) []RegisterEntry {
	out := make([]RegisterEntry, 0, len(regs))
	for _, r := range regs {
		out = append(out, registerEntry(r))
	}
	return out
}

func specialEntries(s engine.SpecialRegisters) []RegisterEntry {
	return []RegisterEntry{
		registerEntry(engine.Register{Name: "LO", Bits: s.LO}),
		registerEntry(engine.Register{Name: "HI", Bits: s.HI}),
		{
			Name:      "FCSR",
			HexString: fmt.Sprintf("%08X", s.FCSR),
			Value:     strconv.FormatUint(uint64(s.FCSR), 10),
		},
	}
}
