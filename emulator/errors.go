package emulator

import "errors"

var (
	// ErrROMTooLarge is returned by LoadProgram when the ROM would overflow
	// the 4096-byte memory space from offset 0x200.
	ErrROMTooLarge = errors.New("rom too large")

	// ErrStackUnderflow is returned by Step when a return instruction (00EE)
	// executes with an empty call stack. It indicates a malformed ROM; the
	// machine state is unusable afterwards.
	ErrStackUnderflow = errors.New("return with empty call stack")
)
