// Package main provides the m64sim command, which assembles a MIPS64
// program, runs it on the cycle-accurate pipeline and prints the final
// machine state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/m64sim/render"
	"github.com/sarchlab/m64sim/session"
	"github.com/sarchlab/m64sim/snapshot"
	"github.com/sarchlab/m64sim/timing/core"
)

var (
	configPath = flag.String("config", "", "Path to machine configuration JSON file")
	steps      = flag.Int("steps", 0, "Number of cycles to run (0 runs to completion)")
	maxCycles  = flag.Int("max-cycles", 1_000_000, "Cycle limit when running to completion")
	tracePath  = flag.String("trace", "", "Write the Dinero cache trace to this file on exit")
	noForward  = flag.Bool("no-forwarding", false, "Disable operand forwarding")
	showMemory = flag.Bool("memory", false, "Print the data memory")
	logFormat  = flag.String("log-format", "text", "Log format: text or json")
	verbose    = flag.Bool("v", false, "Verbose output")
)

const chunk = 1000

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: m64sim [options] <program.s>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := newLogger(*logFormat, *verbose)
	slog.SetDefault(logger)

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading program: %v\n", err)
		os.Exit(1)
	}

	config := core.DefaultConfig()
	if *configPath != "" {
		config, err = core.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *noForward {
		config.Timing.Forwarding = false
	}

	machine, err := core.NewMachine(config, core.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating machine: %v\n", err)
		os.Exit(1)
	}

	if *tracePath != "" {
		atexit.Register(func() { writeTrace(machine, *tracePath) })
	}

	s := session.FromMachine(machine, session.WithLogger(logger))

	r := s.LoadProgram(string(source))
	if out := render.ParseErrors(r.ParsingErrors); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
	if !r.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", r.ErrorMessage)
		atexit.Exit(1)
	}

	r = run(s)

	if r.Stdout != "" {
		fmt.Println(r.Stdout)
	}
	fmt.Println(render.Pipeline(r.Pipeline))
	fmt.Println(render.Registers(r.RegisterBanks))
	fmt.Println(render.Statistics(r.Counters))

	if *showMemory {
		out, err := render.Memory(r.Memory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			fmt.Println(out)
		}
	}

	if !r.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", r.ErrorMessage)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// run steps the session as the flags ask. Breakpoints are reported and
// skipped when running to completion.
func run(s *session.Session) session.Result {
	if *steps > 0 {
		return s.Step(*steps)
	}

	var r session.Result
	limit := uint64(*maxCycles)
	for r.Counters.Cycles < limit {
		r = s.Step(int(min(chunk, limit-r.Counters.Cycles)))
		if r.EncounteredBreak {
			slog.Info("break", "cycle", r.Counters.Cycles)
			continue
		}
		if !r.Success || r.Status != snapshot.StatusRunning {
			return r
		}
	}

	slog.Warn("cycle limit reached", "limit", *maxCycles)
	return r
}

func writeTrace(m *core.Machine, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating trace: %v\n", err)
		return
	}
	defer f.Close()

	if err := m.WriteTrace(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing trace: %v\n", err)
	}
}

func newLogger(format string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
