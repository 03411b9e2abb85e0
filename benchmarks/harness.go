// Package benchmarks provides MIPS64 microbenchmarks and a harness that
// runs them through a simulation session and reports their timing.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/sarchlab/m64sim/session"
	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/core"
)

// ResultRegister is the GPR a benchmark leaves its result in (v0).
const ResultRegister = 2

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`

	RAWStalls     uint64 `json:"raw_stalls"`
	WAWStalls     uint64 `json:"waw_stalls"`
	DividerStalls uint64 `json:"divider_stalls"`
	MemoryStalls  uint64 `json:"memory_stalls"`

	L1IReads      uint64 `json:"l1i_reads"`
	L1IReadMisses uint64 `json:"l1i_read_misses"`
	L1DReads      uint64 `json:"l1d_reads"`
	L1DMisses     uint64 `json:"l1d_misses"`

	// Result is the final value of ResultRegister.
	Result int64 `json:"result"`
	// FunctionalResult is the value the functional emulator computes.
	FunctionalResult int64 `json:"functional_result"`

	// Err is set when the benchmark did not run to its halt.
	Err string `json:"error,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	Name        string
	Description string

	// Source is the MIPS64 assembly program.
	Source string

	// ExpectedResult is the expected final value of ResultRegister.
	ExpectedResult int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the machine configuration. Nil selects the defaults.
	Machine *core.Config

	// MaxCycles bounds each run.
	MaxCycles int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Machine:   core.DefaultConfig(),
		MaxCycles: 100_000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	logger     *slog.Logger
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxCycles <= 0 {
		config.MaxCycles = DefaultConfig().MaxCycles
	}

	level := slog.LevelWarn
	if config.Verbose {
		level = slog.LevelDebug
	}

	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
		logger: slog.New(slog.NewTextHandler(config.Output,
			&slog.HandlerOptions{Level: level})),
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	m, err := core.NewMachine(h.config.Machine, core.WithLogger(h.logger))
	if err != nil {
		result.Err = err.Error()
		return result
	}
	s := session.FromMachine(m, session.WithLogger(h.logger))

	r := s.LoadProgram(bench.Source)
	if !r.Success {
		result.Err = r.ErrorMessage
		return result
	}

	start := time.Now()
	r = s.Step(h.config.MaxCycles)
	result.WallTime = time.Since(start)

	switch {
	case !r.Success:
		result.Err = r.ErrorMessage
	case r.Status != snapshot.StatusStopped:
		result.Err = fmt.Sprintf("no halt within %d cycles", h.config.MaxCycles)
	}

	c := r.Counters
	result.SimulatedCycles = c.Cycles
	result.InstructionsRetired = c.Instructions
	result.RAWStalls = c.RAWStalls
	result.WAWStalls = c.WAWStalls
	result.DividerStalls = c.DividerStalls
	result.MemoryStalls = c.MemoryStalls
	result.L1IReads = c.L1IReads
	result.L1IReadMisses = c.L1IReadMisses
	result.L1DReads = c.L1DReads + c.L1DWrites
	result.L1DMisses = c.L1DReadMisses + c.L1DWriteMisses
	if c.Instructions > 0 {
		result.CPI = float64(c.Cycles) / float64(c.Instructions)
	}

	if gpr := r.RegisterBanks.GPR; len(gpr) > ResultRegister {
		result.Result, _ = strconv.ParseInt(gpr[ResultRegister].Value, 10, 64)
	}

	ref, err := referenceResult(bench, h.config.Machine, h.config.MaxCycles, h.logger)
	switch {
	case err != nil:
		h.logger.Warn("functional reference failed", "name", bench.Name, "error", err)
	case result.Err == "" && ref != result.Result:
		result.Err = fmt.Sprintf("pipeline computed %d, functional emulator %d", result.Result, ref)
	}
	result.FunctionalResult = ref

	h.logger.Debug("benchmark finished",
		"name", bench.Name, "cycles", result.SimulatedCycles, "cpi", result.CPI)

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== M64Sim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result: %d\n", r.Result)
		if r.Err != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  RAW Stalls:           %d\n", r.RAWStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  WAW Stalls:           %d\n", r.WAWStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Divider Stalls:       %d\n", r.DividerStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Memory Stalls:        %d\n", r.MemoryStalls)
		_, _ = fmt.Fprintln(h.config.Output, "  --- L1 Caches ---")
		_, _ = fmt.Fprintf(h.config.Output, "  I Reads/Misses:       %d/%d\n", r.L1IReads, r.L1IReadMisses)
		_, _ = fmt.Fprintf(h.config.Output, "  D Accesses/Misses:    %d/%d\n", r.L1DReads, r.L1DMisses)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,raw_stalls,waw_stalls,divider_stalls,memory_stalls,l1i_reads,l1i_misses,l1d_accesses,l1d_misses,result")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.RAWStalls,
			r.WAWStalls,
			r.DividerStalls,
			r.MemoryStalls,
			r.L1IReads,
			r.L1IReadMisses,
			r.L1DReads,
			r.L1DMisses,
			r.Result,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp  string `json:"timestamp"`
	Forwarding bool   `json:"forwarding"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	forwarding := core.DefaultConfig().Timing.Forwarding
	if h.config.Machine != nil {
		forwarding = h.config.Machine.Timing.Forwarding
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Forwarding: forwarding,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
