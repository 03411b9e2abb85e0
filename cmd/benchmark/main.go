// Command benchmark runs the M64Sim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv            Output results in CSV format (default: human-readable)
//	-json           Output results in JSON format
//	-no-forwarding  Disable operand forwarding
//	-config         Machine configuration JSON file
//
// Example:
//
//	# Compare forwarding on and off
//	go run ./cmd/benchmark -csv > forwarding.csv
//	go run ./cmd/benchmark -csv -no-forwarding > stalls.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/m64sim/benchmarks"
	"github.com/sarchlab/m64sim/timing/core"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noForward := flag.Bool("no-forwarding", false, "Disable operand forwarding")
	configPath := flag.String("config", "", "Path to machine configuration JSON file")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	config.Verbose = *verbose

	if *configPath != "" {
		machine, err := core.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Machine = machine
	}
	if *noForward {
		config.Machine.Timing.Forwarding = false
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

	if !*csvOutput && !*jsonOutput {
		fmt.Println("M64Sim Timing Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("Forwarding:      %v\n", config.Machine.Timing.Forwarding)
		fmt.Printf("Divider latency: %d\n", config.Machine.Timing.DividerLatency)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Err != "" {
			os.Exit(1)
		}
	}
}
