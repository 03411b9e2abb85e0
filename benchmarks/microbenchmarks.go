package benchmarks

import (
	"fmt"
	"strings"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		fpPipeline(),
		dividerContention(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchTaken(),
		loadUse(),
		fpPipeline(),
	}
}

func program(lines ...string) string {
	return strings.Join(lines, "\n")
}

func repeat(n int, format string, args ...func(i int) any) []string {
	lines := make([]string, n)
	for i := range lines {
		vals := make([]any, len(args))
		for j, arg := range args {
			vals[j] = arg(i)
		}
		lines[i] = fmt.Sprintf(format, vals...)
	}
	return lines
}

// 1. Arithmetic Sequential - independent ALU operations, no hazards.
func arithmeticSequential() Benchmark {
	lines := repeat(20, "daddi r%d, r%d, 1",
		func(i int) any { return 3 + i%5 },
		func(i int) any { return 3 + i%5 },
	)
	lines = append(lines, "dadd r2, r3, r4", "halt")

	return Benchmark{
		Name:           "arithmetic_sequential",
		Description:    "20 independent DADDI operations - measures ALU throughput",
		Source:         program(lines...),
		ExpectedResult: 8,
	}
}

// 2. Dependency Chain - every instruction needs the previous result.
func dependencyChain() Benchmark {
	lines := repeat(20, "daddi r2, r2, 1")
	lines = append(lines, "halt")

	return Benchmark{
		Name:           "dependency_chain",
		Description:    "20 dependent DADDI operations - measures forwarding",
		Source:         program(lines...),
		ExpectedResult: 20,
	}
}

// 3. Load Use - every load feeds the next instruction.
func loadUse() Benchmark {
	return Benchmark{
		Name:        "load_use",
		Description: "Loads consumed by the next instruction - measures RAW stalls",
		Source: program(
			".data",
			"v: .word 3, 4, 5",
			".code",
			"ld r3, 0(r0)",
			"dadd r2, r2, r3",
			"ld r3, 8(r0)",
			"dadd r2, r2, r3",
			"ld r3, 16(r0)",
			"dadd r2, r2, r3",
			"halt",
		),
		ExpectedResult: 12,
	}
}

// 4. Memory Sequential - stores followed by loads.
func memorySequential() Benchmark {
	lines := []string{".data", "buf: .space 40", ".code", "daddi r3, r0, 42"}
	lines = append(lines, repeat(5, "sd r3, %d(r0)", func(i int) any { return i * 8 })...)
	lines = append(lines, repeat(5, "ld r2, %d(r0)", func(i int) any { return i * 8 })...)
	lines = append(lines, "halt")

	return Benchmark{
		Name:           "memory_sequential",
		Description:    "5 stores then 5 loads - measures L1D traffic",
		Source:         program(lines...),
		ExpectedResult: 42,
	}
}

// 5. Function Calls - JAL/JR pairs.
func functionCalls() Benchmark {
	lines := repeat(5, "jal inc")
	lines = append(lines,
		"halt",
		"inc: daddi r2, r2, 1",
		"jr r31",
	)

	return Benchmark{
		Name:           "function_calls",
		Description:    "5 calls to a leaf function - measures jump cost",
		Source:         program(lines...),
		ExpectedResult: 5,
	}
}

// 6. Branch Taken - a counted loop.
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "Loop of 5 iterations - measures taken branch cost",
		Source: program(
			"daddi r3, r0, 5",
			"loop: daddi r2, r2, 1",
			"daddi r3, r3, -1",
			"bnez r3, loop",
			"halt",
		),
		ExpectedResult: 5,
	}
}

// 7. FP Pipeline - adder, multiplier and divider in flight together.
func fpPipeline() Benchmark {
	return Benchmark{
		Name:        "fp_pipeline",
		Description: "ADD.D, MUL.D and DIV.D in parallel - measures MEM contention",
		Source: program(
			".data",
			"a: .double 6.0",
			"b: .double 2.0",
			"out: .space 8",
			".code",
			"l.d f0, a(r0)",
			"l.d f1, b(r0)",
			"div.d f4, f0, f1",
			"mul.d f3, f0, f1",
			"add.d f2, f0, f1",
			"s.d f3, out(r0)",
			"ld r2, out(r0)",
			"halt",
		),
		// Bits of 12.0.
		ExpectedResult: 0x4028000000000000,
	}
}

// 8. Divider Contention - back-to-back independent divisions.
func dividerContention() Benchmark {
	return Benchmark{
		Name:        "divider_contention",
		Description: "Independent DIV.D operations - measures divider stalls",
		Source: program(
			".data",
			"a: .double 9.0",
			".code",
			"l.d f0, a(r0)",
			"div.d f1, f0, f0",
			"div.d f2, f0, f0",
			"div.d f3, f0, f0",
			"daddi r2, r0, 3",
			"halt",
		),
		ExpectedResult: 3,
	}
}
