package emulator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// loadOpcodes writes 16-bit opcodes big-endian into memory starting at 0x200.
func loadOpcodes(m *Machine, opcodes ...uint16) {
	addr := uint16(StartAddress)
	for _, op := range opcodes {
		m.Memory[addr] = byte(op >> 8)
		m.Memory[addr+1] = byte(op)
		addr += 2
	}
}

func newTestInterpreter(opcodes ...uint16) *Interpreter {
	c := NewInterpreter(NewMachine())
	loadOpcodes(c.Machine, opcodes...)
	return c
}

func step(t *testing.T, c *Interpreter) {
	t.Helper()
	assert.NoError(t, c.Step())
}

func TestFetchAdvancesPC(t *testing.T) {
	c := newTestInterpreter(0x6042) // LD V0, $42
	step(t, c)

	assert.Equal(t, uint16(StartAddress+2), c.PC)
	assert.Equal(t, byte(0x42), c.V[0])
}

func TestFetchWrapsAddressSpace(t *testing.T) {
	c := newTestInterpreter()

	// Opcode split across the very end of memory.
	c.Memory[0xFFE] = 0x12
	c.Memory[0xFFF] = 0x34
	c.PC = 0xFFE
	step(t, c)
	assert.Equal(t, uint16(0x234), c.PC)

	// Fetch at 0xFFF reads its second byte from address 0x000.
	c.Memory[0x000] = 0x00
	c.PC = 0xFFF
	step(t, c)
	assert.Equal(t, uint16(0x200), c.PC) // opcode 0x1200
}

func TestJump(t *testing.T) {
	c := newTestInterpreter(0x1234)
	step(t, c)
	assert.Equal(t, uint16(0x234), c.PC)
}

func TestJumpOffset(t *testing.T) {
	c := newTestInterpreter(0x6005, 0xB300) // LD V0, 5; JP V0, $300
	step(t, c)
	step(t, c)
	assert.Equal(t, uint16(0x305), c.PC)
}

func TestCallAndReturn(t *testing.T) {
	c := newTestInterpreter(0x2300) // CALL $300
	c.Memory[0x300] = 0x00         // RET
	c.Memory[0x301] = 0xEE

	step(t, c)
	assert.Equal(t, uint16(0x300), c.PC)
	assert.Equal(t, 1, len(c.Stack))
	assert.Equal(t, uint16(StartAddress+2), c.Stack[0])

	step(t, c)
	assert.Equal(t, uint16(StartAddress+2), c.PC)
	assert.Empty(t, c.Stack)
}

func TestNestedCalls(t *testing.T) {
	c := newTestInterpreter(0x2300)
	c.Memory[0x300] = 0x23 // CALL $400
	c.Memory[0x301] = 0x00
	c.Memory[0x400] = 0x00 // RET
	c.Memory[0x401] = 0xEE
	c.Memory[0x302] = 0x00 // RET
	c.Memory[0x303] = 0xEE

	for range 4 {
		step(t, c)
	}
	assert.Equal(t, uint16(StartAddress+2), c.PC)
	assert.Empty(t, c.Stack)
}

func TestReturnWithEmptyStack(t *testing.T) {
	c := newTestInterpreter(0x00EE)

	err := c.Step()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
}

func TestSkipInstructions(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		v2     byte
		v3     byte
		skip   bool
	}{
		{"SE Vx, byte taken", 0x3242, 0x42, 0, true},
		{"SE Vx, byte not taken", 0x3242, 0x41, 0, false},
		{"SNE Vx, byte taken", 0x4242, 0x41, 0, true},
		{"SNE Vx, byte not taken", 0x4242, 0x42, 0, false},
		{"SE Vx, Vy taken", 0x5230, 7, 7, true},
		{"SE Vx, Vy not taken", 0x5230, 7, 8, false},
		{"SNE Vx, Vy taken", 0x9230, 7, 8, true},
		{"SNE Vx, Vy not taken", 0x9230, 7, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(tt.opcode)
			c.V[2] = tt.v2
			c.V[3] = tt.v3
			step(t, c)

			want := uint16(StartAddress + 2)
			if tt.skip {
				want += 2
			}
			assert.Equal(t, want, c.PC)
		})
	}
}

func TestLoadAndAddImmediate(t *testing.T) {
	c := newTestInterpreter(0x65FA, 0x7510) // LD V5, $FA; ADD V5, $10
	c.V[0xF] = 9

	step(t, c)
	assert.Equal(t, byte(0xFA), c.V[5])

	step(t, c)
	assert.Equal(t, byte(0x0A), c.V[5]) // 8-bit wraparound

	// ADD Vx, byte never touches the flag register.
	assert.Equal(t, byte(9), c.V[0xF])
}

func TestLogicalOps(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		want   byte
	}{
		{"LD Vx, Vy", 0x8230, 0x0F},
		{"OR Vx, Vy", 0x8231, 0x3F},
		{"AND Vx, Vy", 0x8232, 0x03},
		{"XOR Vx, Vy", 0x8233, 0x3C},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(tt.opcode)
			c.V[2] = 0x33
			c.V[3] = 0x0F
			step(t, c)

			assert.Equal(t, tt.want, c.V[2])
			assert.Equal(t, byte(0x0F), c.V[3])
		})
	}
}

func TestAddWithCarry(t *testing.T) {
	tests := []struct {
		a, b     byte
		want     byte
		wantFlag byte
	}{
		{10, 20, 30, 0},
		{200, 55, 255, 0},
		{200, 56, 0, 1},
		{255, 255, 254, 1},
		{0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d+%d", tt.a, tt.b), func(t *testing.T) {
			c := newTestInterpreter(0x8234)
			c.V[2] = tt.a
			c.V[3] = tt.b
			c.V[0xF] = 0x77 // must be overwritten either way
			step(t, c)

			assert.Equal(t, tt.want, c.V[2])
			assert.Equal(t, tt.wantFlag, c.V[0xF])
		})
	}
}

func TestSubtractWithBorrow(t *testing.T) {
	tests := []struct {
		a, b     byte
		want     byte
		wantFlag byte
	}{
		{30, 10, 20, 1},
		{10, 30, 236, 0},
		{42, 42, 0, 1}, // equal values do not borrow
		{0, 1, 255, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.a, tt.b), func(t *testing.T) {
			c := newTestInterpreter(0x8235)
			c.V[2] = tt.a
			c.V[3] = tt.b
			step(t, c)

			assert.Equal(t, tt.want, c.V[2])
			assert.Equal(t, tt.wantFlag, c.V[0xF])
		})
	}
}

func TestSubtractReversedWithBorrow(t *testing.T) {
	tests := []struct {
		a, b     byte // Vx, Vy; result is Vy - Vx
		want     byte
		wantFlag byte
	}{
		{10, 30, 20, 1},
		{30, 10, 236, 0},
		{42, 42, 0, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.b, tt.a), func(t *testing.T) {
			c := newTestInterpreter(0x8237)
			c.V[2] = tt.a
			c.V[3] = tt.b
			step(t, c)

			assert.Equal(t, tt.want, c.V[2])
			assert.Equal(t, tt.wantFlag, c.V[0xF])
		})
	}
}

func TestShiftRight(t *testing.T) {
	c := newTestInterpreter(0x8236)
	c.V[2] = 0x0B
	step(t, c)
	assert.Equal(t, byte(0x05), c.V[2])
	assert.Equal(t, byte(1), c.V[0xF])

	c = newTestInterpreter(0x8236)
	c.V[2] = 0x02
	step(t, c)
	assert.Equal(t, byte(0x01), c.V[2])
	assert.Equal(t, byte(0), c.V[0xF])
}

func TestShiftLeft(t *testing.T) {
	c := newTestInterpreter(0x823E)
	c.V[2] = 0x81
	step(t, c)
	assert.Equal(t, byte(0x02), c.V[2])
	assert.Equal(t, byte(1), c.V[0xF])

	c = newTestInterpreter(0x823E)
	c.V[2] = 0x41
	step(t, c)
	assert.Equal(t, byte(0x82), c.V[2])
	assert.Equal(t, byte(0), c.V[0xF])
}

func TestRandom(t *testing.T) {
	c := newTestInterpreter(0xC50F)
	c.rand = func() byte { return 0xAA }
	step(t, c)

	assert.Equal(t, byte(0x0A), c.V[5])
}

func TestSetIndex(t *testing.T) {
	c := newTestInterpreter(0xA321)
	step(t, c)
	assert.Equal(t, uint16(0x321), c.I)
}

func TestAddToIndexWraps(t *testing.T) {
	c := newTestInterpreter(0xF41E)
	c.I = 0xFFFF
	c.V[4] = 2
	step(t, c)

	// 16-bit wraparound; memory accesses mask I to the 4096-byte space.
	assert.Equal(t, uint16(0x0001), c.I)
}

func TestClearScreen(t *testing.T) {
	c := newTestInterpreter(0x00E0)
	c.Video[0] = 0xFF
	c.Video[100] = 0xFF
	step(t, c)

	assert.True(t, c.DrawFlag)
	for i := range c.Video {
		assert.Equal(t, byte(0), c.Video[i])
	}
}

func TestDrawSprite(t *testing.T) {
	// Draw the font glyph for 0 at (10, 5).
	c := newTestInterpreter(0x620A, 0x6305, 0xF029, 0xD235)
	for range 4 {
		step(t, c)
	}

	assert.True(t, c.DrawFlag)
	assert.Equal(t, byte(0), c.V[0xF])

	// Glyph 0 is 0xF0 0x90 0x90 0x90 0xF0: 14 pixels on, nothing else.
	on := 0
	for i := range c.Video {
		if c.Video[i] == 0xFF {
			on++
		} else {
			assert.Equal(t, byte(0), c.Video[i])
		}
	}
	assert.Equal(t, 14, on)

	// Top-left corner of the glyph.
	assert.Equal(t, byte(0xFF), c.Video[5*VideoWidth+10])
	// Hollow center.
	assert.Equal(t, byte(0), c.Video[6*VideoWidth+11])
}

func TestDrawSpriteTwiceRestoresScreen(t *testing.T) {
	c := newTestInterpreter(0x620A, 0x6305, 0xF029, 0xD235, 0xD235)
	for range 4 {
		step(t, c)
	}
	assert.Equal(t, byte(0), c.V[0xF])

	c.DrawFlag = false
	step(t, c)

	// Every pixel collides and toggles back off.
	assert.Equal(t, byte(1), c.V[0xF])
	assert.True(t, c.DrawFlag)
	for i := range c.Video {
		assert.Equal(t, byte(0), c.Video[i])
	}
}

func TestDrawSpriteWrapsEdges(t *testing.T) {
	// Two full rows anchored at (62, 31): each pixel wraps independently,
	// the second row from its own vertical offset.
	c := newTestInterpreter(0xA300, 0x623E, 0x631F, 0xD232)
	c.Memory[0x300] = 0xFF
	c.Memory[0x301] = 0xFF
	for range 4 {
		step(t, c)
	}

	assert.Equal(t, byte(0), c.V[0xF])
	assert.Equal(t, byte(0xFF), c.Video[31*VideoWidth+62])
	assert.Equal(t, byte(0xFF), c.Video[31*VideoWidth+63])
	assert.Equal(t, byte(0xFF), c.Video[31*VideoWidth+5]) // wrapped horizontally
	assert.Equal(t, byte(0xFF), c.Video[0*VideoWidth+62]) // wrapped vertically
	assert.Equal(t, byte(0xFF), c.Video[0*VideoWidth+5])  // wrapped both ways
	assert.Equal(t, byte(0), c.Video[1*VideoWidth+62])
}

func TestDrawSpriteReadsMemoryMasked(t *testing.T) {
	c := newTestInterpreter(0x6200, 0x6300, 0xD231)
	c.I = 0xFFFF // sprite byte comes from (0xFFFF+0) & 0xFFF = 0xFFF
	c.Memory[0xFFF] = 0x80
	for range 3 {
		step(t, c)
	}

	assert.Equal(t, byte(0xFF), c.Video[0])
}

func TestSkipIfKey(t *testing.T) {
	tests := []struct {
		name    string
		opcode  uint16
		pressed bool
		skip    bool
	}{
		{"SKP pressed", 0xE29E, true, true},
		{"SKP released", 0xE29E, false, false},
		{"SKNP pressed", 0xE2A1, true, false},
		{"SKNP released", 0xE2A1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(tt.opcode)
			c.V[2] = 0x7
			c.Keys[0x7] = tt.pressed
			step(t, c)

			want := uint16(StartAddress + 2)
			if tt.skip {
				want += 2
			}
			assert.Equal(t, want, c.PC)
		})
	}
}

func TestWaitForKeyStallsPC(t *testing.T) {
	c := newTestInterpreter(0xF50A)

	// No key pressed: the same instruction re-runs every step.
	for range 3 {
		step(t, c)
		assert.Equal(t, uint16(StartAddress), c.PC)
	}

	// Two keys down: the lowest-indexed one wins and the PC advances.
	c.Keys[0x7] = true
	c.Keys[0x3] = true
	step(t, c)

	assert.Equal(t, byte(0x3), c.V[5])
	assert.Equal(t, uint16(StartAddress+2), c.PC)
}

func TestDelayTimerRoundTrip(t *testing.T) {
	c := newTestInterpreter(0x6520, 0xF515, 0xF607) // LD V5, $20; LD DT, V5; LD V6, DT
	for range 3 {
		step(t, c)
	}

	assert.Equal(t, byte(0x20), c.DelayTimer)
	assert.Equal(t, byte(0x20), c.V[6])
}

func TestSetSoundTimer(t *testing.T) {
	c := newTestInterpreter(0x6540, 0xF518)
	step(t, c)
	step(t, c)

	assert.Equal(t, byte(0x40), c.SoundTimer)
}

func TestStepTimers(t *testing.T) {
	c := newTestInterpreter()
	c.DelayTimer = 2
	c.SoundTimer = 1

	c.StepTimers()
	assert.Equal(t, byte(1), c.DelayTimer)
	assert.Equal(t, byte(0), c.SoundTimer)

	c.StepTimers()
	c.StepTimers()

	// Timers at zero never underflow.
	assert.Equal(t, byte(0), c.DelayTimer)
	assert.Equal(t, byte(0), c.SoundTimer)
}

func TestFontAddress(t *testing.T) {
	c := newTestInterpreter(0x650A, 0xF529) // LD V5, $0A; LD F, V5
	step(t, c)
	step(t, c)

	assert.Equal(t, uint16(FontStartAddress+0xA*5), c.I)
}

func TestBCD(t *testing.T) {
	tests := []struct {
		value byte
		want  [3]byte
	}{
		{234, [3]byte{2, 3, 4}},
		{7, [3]byte{0, 0, 7}},
		{0, [3]byte{0, 0, 0}},
		{255, [3]byte{2, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.value), func(t *testing.T) {
			c := newTestInterpreter(0xF533)
			c.V[5] = tt.value
			c.I = 0x400
			step(t, c)

			assert.Equal(t, tt.want[0], c.Memory[0x400])
			assert.Equal(t, tt.want[1], c.Memory[0x401])
			assert.Equal(t, tt.want[2], c.Memory[0x402])
		})
	}
}

func TestRegisterStoreLoadRoundTrip(t *testing.T) {
	for x := range 16 {
		t.Run(fmt.Sprintf("V0..V%X", x), func(t *testing.T) {
			store := uint16(0xF055 | x<<8)
			load := uint16(0xF065 | x<<8)
			c := newTestInterpreter(store, load)
			c.I = 0x500

			want := [16]byte{}
			for i := 0; i <= x; i++ {
				c.V[i] = byte(i*3 + 1)
				want[i] = byte(i*3 + 1)
			}

			step(t, c)
			c.V = [16]byte{}
			step(t, c)

			assert.Equal(t, want, c.V)
			// I is left unchanged by both operations.
			assert.Equal(t, uint16(0x500), c.I)
		})
	}
}

func TestRegisterStoreWrapsMemory(t *testing.T) {
	c := newTestInterpreter(0xF255)
	c.I = 0xFFE
	c.V[0] = 1
	c.V[1] = 2
	c.V[2] = 3
	step(t, c)

	assert.Equal(t, byte(1), c.Memory[0xFFE])
	assert.Equal(t, byte(2), c.Memory[0xFFF])
	assert.Equal(t, byte(3), c.Memory[0x000])
}

func TestUnknownOpcodesIgnored(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
	}{
		{"machine code call", 0x0123},
		{"all zero", 0x0000},
		{"8xy family gap", 0x8238},
		{"Ex family gap", 0xE255},
		{"Fx family gap", 0xF5FF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestInterpreter(tt.opcode)
			before := c.V
			step(t, c)

			assert.Equal(t, uint16(StartAddress+2), c.PC)
			assert.Equal(t, before, c.V)
			assert.False(t, c.DrawFlag)
		})
	}
}

func TestClearThenDrawLeavesOnlySprite(t *testing.T) {
	// Dirty screen, clear it, then draw a single row.
	c := newTestInterpreter(0x00E0, 0xA300, 0xD001)
	c.Video[777] = 0xFF
	c.Memory[0x300] = 0xC0
	for range 3 {
		step(t, c)
	}

	assert.True(t, c.DrawFlag)
	assert.Equal(t, byte(0xFF), c.Video[0])
	assert.Equal(t, byte(0xFF), c.Video[1])
	for i := 2; i < len(c.Video); i++ {
		assert.Equal(t, byte(0), c.Video[i])
	}
}
