// Package emulator implements the CHIP-8 virtual machine: the machine state
// and the interpreter that mutates it one instruction at a time. The package
// is host-free; pacing, video, input and audio are the caller's problem.
package emulator

import "fmt"

/*
The CHIP-8 has 4096 bytes of memory, meaning the address space is from 0x000 to 0xFFF.
The address space is segmented into three sections:

	0x000-0x1FF: Originally reserved for the CHIP-8 interpreter; our emulator only puts the font there.
	0x050-0x0A0: Storage space for the 16 built-in characters (0 through F), which ROMs rely on via Fx29.
	0x200-0xFFF: Instructions from the ROM are stored starting at 0x200, and anything left after the ROM's space is free to use.
*/
const (
	MemorySize   = 4096
	StartAddress = 0x200
	AddressMask  = 0x0FFF

	FontStartAddress = 0x050

	VideoWidth  = 64
	VideoHeight = 32
)

// Machine is the full state of one CHIP-8 instance. It owns no behavior beyond
// initialization and loading; the Interpreter mutates it. Multiple machines can
// coexist, nothing in this package is global.
type Machine struct {
	// 16 8-bit general-purpose registers. V[0xF] doubles as the carry /
	// borrow / collision flag but is an ordinary register otherwise; ROMs
	// may read and write it as data between flag-producing instructions.
	V [16]byte

	// The Program Counter holds the address of the next instruction to execute.
	// 16 bits because it has to be able to hold the maximum memory address (0xFFF).
	PC uint16

	// The Index Register stores memory addresses for sprite and memory operations.
	I uint16

	Memory [MemorySize]byte

	// Return addresses, pushed on 2nnn and popped on 00EE. Growable; the
	// original hardware had 12-16 levels but capping it buys nothing here.
	Stack []uint16

	// Row-major 64x32 framebuffer. Every pixel is either 0x00 or 0xFF.
	Video [VideoWidth * VideoHeight]byte

	// Set whenever the framebuffer content changes. The renderer clears it
	// after consuming a frame; the core never clears it itself.
	DrawFlag bool

	// One pressed-state per hexadecimal key. The input collaborator
	// overwrites the whole array once per polling cycle.
	Keys [16]bool

	// Both timers decrement at 60Hz, driven by Interpreter.StepTimers.
	DelayTimer byte
	SoundTimer byte
}

// NewMachine returns a reset machine with the font installed. ROMs still need
// to be loaded before stepping.
func NewMachine() *Machine {
	m := &Machine{}
	m.Reset()
	m.LoadFont()
	return m
}

// Reset restores power-on state: everything zeroed, stack empty, PC at the
// ROM start address. The font region is cleared too; call LoadFont afterwards.
func (m *Machine) Reset() {
	m.V = [16]byte{}
	m.PC = StartAddress
	m.I = 0
	m.Memory = [MemorySize]byte{}
	m.Stack = m.Stack[:0]
	m.Video = [VideoWidth * VideoHeight]byte{}
	m.DrawFlag = false
	m.Keys = [16]bool{}
	m.DelayTimer = 0
	m.SoundTimer = 0
}

// LoadFont copies the built-in hexadecimal font into memory at 0x050.
// Must run before any ROM that uses Fx29 executes.
func (m *Machine) LoadFont() {
	copy(m.Memory[FontStartAddress:], fontSet[:])
}

// LoadProgram copies rom into memory starting at 0x200. The size check happens
// before any byte is written, so a failed load leaves memory untouched.
func (m *Machine) LoadProgram(rom []byte) error {
	if StartAddress+len(rom) > MemorySize {
		return fmt.Errorf("%w: %d bytes, maximum from 0x%03X is %d",
			ErrROMTooLarge, len(rom), StartAddress, MemorySize-StartAddress)
	}
	copy(m.Memory[StartAddress:], rom)
	return nil
}
