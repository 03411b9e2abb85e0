package emu

import "errors"

var (
	// ErrAddressOutOfRange is returned when a data access falls outside the
	// data memory.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrUnalignedAccess is returned when a data access is not aligned to its
	// size.
	ErrUnalignedAccess = errors.New("unaligned memory access")

	// ErrIntegerOverflow is raised by signed integer arithmetic when
	// synchronous exceptions are enabled.
	ErrIntegerOverflow = errors.New("integer overflow")

	// ErrDivisionByZero is raised by DDIV and DDIVU on a zero divisor when
	// synchronous exceptions are enabled.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownSyscall is returned for an unsupported SYSCALL code.
	ErrUnknownSyscall = errors.New("unknown syscall")

	// ErrDuplicateLabel is returned when a symbol is defined twice.
	ErrDuplicateLabel = errors.New("duplicate label")

	// ErrCodeMemoryFull is returned when no more instructions fit in code
	// memory.
	ErrCodeMemoryFull = errors.New("code memory full")
)
