package emu

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MIPS64 simulator syscall codes.
const (
	SyscallExit   uint64 = 0
	SyscallWrite  uint64 = 4
	SyscallPrintf uint64 = 5
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall terminates the program.
	Exited bool

	// Return is the value written back to R1.
	Return uint64

	// Err is set when the syscall could not be carried out.
	Err error
}

// SyscallHandler is the interface for handling SYSCALL instructions.
type SyscallHandler interface {
	// Handle executes syscall code. param is the value of R14, the address
	// of the parameter block in data memory.
	Handle(code, param uint64) SyscallResult
}

// DefaultSyscallHandler implements exit, write and printf over the data
// memory.
type DefaultSyscallHandler struct {
	memory *Memory
	stdout io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(memory *Memory, stdout io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		memory: memory,
		stdout: stdout,
	}
}

// Handle executes the syscall.
func (h *DefaultSyscallHandler) Handle(code, param uint64) SyscallResult {
	switch code {
	case SyscallExit:
		return SyscallResult{Exited: true}
	case SyscallWrite:
		return h.handleWrite(param)
	case SyscallPrintf:
		return h.handlePrintf(param)
	default:
		return SyscallResult{Err: fmt.Errorf("%w: %d", ErrUnknownSyscall, code)}
	}
}

// handleWrite writes count bytes at buf. The parameter block holds fd, buf
// and count; only fd 1 and 2 are accepted.
func (h *DefaultSyscallHandler) handleWrite(param uint64) SyscallResult {
	args, err := h.params(param, 3)
	if err != nil {
		return SyscallResult{Err: err}
	}

	fd, buf, count := args[0], args[1], args[2]
	if fd != 1 && fd != 2 {
		return SyscallResult{Return: ^uint64(0)}
	}

	data := make([]byte, count)
	for i := uint64(0); i < count; i++ {
		data[i] = h.memory.Read8(buf + i)
	}

	n, err := h.stdout.Write(data)
	if err != nil {
		return SyscallResult{Return: ^uint64(0)}
	}

	return SyscallResult{Return: uint64(n)}
}

// handlePrintf formats the string whose address is the first parameter,
// consuming one further parameter per %d, %i or %s.
func (h *DefaultSyscallHandler) handlePrintf(param uint64) SyscallResult {
	head, err := h.params(param, 1)
	if err != nil {
		return SyscallResult{Err: err}
	}

	format, err := h.memory.ReadString(head[0])
	if err != nil {
		return SyscallResult{Err: fmt.Errorf("printf: %w", err)}
	}

	var sb strings.Builder
	next := param + CellSize

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			sb.WriteByte(c)
			continue
		}

		i++
		switch format[i] {
		case '%':
			sb.WriteByte('%')
		case 'd', 'i':
			v, err := h.memory.Read(next, CellSize)
			if err != nil {
				return SyscallResult{Err: fmt.Errorf("printf: %w", err)}
			}
			sb.WriteString(strconv.FormatInt(int64(v), 10))
			next += CellSize
		case 's':
			addr, err := h.memory.Read(next, CellSize)
			if err != nil {
				return SyscallResult{Err: fmt.Errorf("printf: %w", err)}
			}
			s, err := h.memory.ReadString(addr)
			if err != nil {
				return SyscallResult{Err: fmt.Errorf("printf: %w", err)}
			}
			sb.WriteString(s)
			next += CellSize
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}

	n, err := io.WriteString(h.stdout, sb.String())
	if err != nil {
		return SyscallResult{Return: ^uint64(0)}
	}

	return SyscallResult{Return: uint64(n)}
}

func (h *DefaultSyscallHandler) params(addr uint64, n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := range out {
		v, err := h.memory.Read(addr+uint64(i*CellSize), CellSize)
		if err != nil {
			return nil, fmt.Errorf("syscall parameters: %w", err)
		}
		out[i] = v
	}
	return out, nil
}
