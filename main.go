// Package main provides the entry point for M64Sim.
// M64Sim is a cycle-accurate simulator of a pipelined MIPS64 CPU with a
// session protocol for interactive front ends.
//
// For the full CLI, use: go run ./cmd/m64sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("M64Sim - MIPS64 Pipeline Simulator")
	fmt.Println("")
	fmt.Println("Usage: m64sim [options] <program.s>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  ./cmd/m64sim     Run a program and print the final state")
	fmt.Println("  ./cmd/m64worker  Serve a session as JSON lines on stdin/stdout")
	fmt.Println("  ./cmd/benchmark  Run the timing microbenchmarks")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/m64sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/m64sim' instead.")
	}
}
