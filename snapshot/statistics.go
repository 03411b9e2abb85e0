package snapshot

import (
	"fmt"

	"github.com/sarchlab/m64sim/engine"
)

// InstructionWidth is the size of one instruction in bytes.
const InstructionWidth = 4

// StatisticsDump is the JSON shape of the execution counters.
type StatisticsDump struct {
	Cycles        uint64 `json:"cycles"`
	Instructions  uint64 `json:"instructions"`
	RAWStalls     uint64 `json:"rawStalls"`
	WAWStalls     uint64 `json:"wawStalls"`
	DividerStalls uint64 `json:"dividerStalls"`
	MemoryStalls  uint64 `json:"memoryStalls"`
	CodeSizeBytes int    `json:"codeSizeBytes"`
	// FCSR is the FP control/status register as a 32-digit binary string.
	FCSR string `json:"fcsr"`

	L1IReads       uint64 `json:"l1iReads"`
	L1IReadMisses  uint64 `json:"l1iReadMisses"`
	L1DReads       uint64 `json:"l1dReads"`
	L1DReadMisses  uint64 `json:"l1dReadMisses"`
	L1DWrites      uint64 `json:"l1dWrites"`
	L1DWriteMisses uint64 `json:"l1dWriteMisses"`
}

func newStatisticsDump(s engine.Statistics, instructionCount int, fcsr uint32) StatisticsDump {
	return StatisticsDump{
		Cycles:         s.Cycles,
		Instructions:   s.Instructions,
		RAWStalls:      s.RAWStalls,
		WAWStalls:      s.WAWStalls,
		DividerStalls:  s.DividerStalls,
		MemoryStalls:   s.MemoryStalls,
		CodeSizeBytes:  instructionCount * InstructionWidth,
		FCSR:           fmt.Sprintf("%032b", fcsr),
		L1IReads:       s.Cache.L1IReads,
		L1IReadMisses:  s.Cache.L1IReadMisses,
		L1DReads:       s.Cache.L1DReads,
		L1DReadMisses:  s.Cache.L1DReadMisses,
		L1DWrites:      s.Cache.L1DWrites,
		L1DWriteMisses: s.Cache.L1DWriteMisses,
	}
}
