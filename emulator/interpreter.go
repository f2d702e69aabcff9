package emulator

import "math/rand/v2"

// Interpreter executes instructions against a Machine. It holds no state of
// its own beyond the opcode latch and the random source, so the machine can be
// inspected or reloaded between steps.
type Interpreter struct {
	*Machine

	// Opcode latched by the most recent fetch.
	opcode uint16

	// Random byte source for Cxkk. Injectable for tests.
	rand func() byte
}

// NewInterpreter returns an interpreter bound to m, drawing Cxkk randomness
// from math/rand/v2.
func NewInterpreter(m *Machine) *Interpreter {
	return &Interpreter{
		Machine: m,
		rand:    randomByte,
	}
}

/*
Step performs exactly one cycle of this primitive CPU, doing three things:
  - Fetch the next instruction in the form of an opcode
  - Decode the instruction to determine what operation needs to occur
  - Execute the instruction

The PC is incremented by 2 before dispatch, so jump and call opcodes that set
the counter directly are unaffected, and skip opcodes just add a further 2.

The only failure is a return with an empty call stack (ErrStackUnderflow).
Unrecognized opcodes are ignored and execution continues.
*/
func (c *Interpreter) Step() error {
	// Fetch. Both byte addresses are masked to the 4096-byte space; a ROM
	// running off the end of memory wraps instead of faulting.
	c.opcode = uint16(c.Memory[c.PC&AddressMask])<<8 | uint16(c.Memory[(c.PC+1)&AddressMask])

	// Increment the PC before we execute anything
	c.PC += 2

	// Decode and Execute
	switch c.opcode & 0xF000 {
	case 0x0000:
		switch c.opcode & 0x00FF {
		case 0x00E0:
			c.op00E0()
		case 0x00EE:
			return c.op00EE()
		default:
			// 0nnn machine-code call on the original hardware; ignored.
		}
	case 0x1000:
		c.op1nnn()
	case 0x2000:
		c.op2nnn()
	case 0x3000:
		c.op3xkk()
	case 0x4000:
		c.op4xkk()
	case 0x5000:
		c.op5xy0()
	case 0x6000:
		c.op6xkk()
	case 0x7000:
		c.op7xkk()
	case 0x8000:
		switch c.opcode & 0x000F {
		case 0x0000:
			c.op8xy0()
		case 0x0001:
			c.op8xy1()
		case 0x0002:
			c.op8xy2()
		case 0x0003:
			c.op8xy3()
		case 0x0004:
			c.op8xy4()
		case 0x0005:
			c.op8xy5()
		case 0x0006:
			c.op8xy6()
		case 0x0007:
			c.op8xy7()
		case 0x000E:
			c.op8xyE()
		}
	case 0x9000:
		c.op9xy0()
	case 0xA000:
		c.opAnnn()
	case 0xB000:
		c.opBnnn()
	case 0xC000:
		c.opCxkk()
	case 0xD000:
		c.opDxyn()
	case 0xE000:
		switch c.opcode & 0x00FF {
		case 0x009E:
			c.opEx9E()
		case 0x00A1:
			c.opExA1()
		}
	case 0xF000:
		switch c.opcode & 0x00FF {
		case 0x0007:
			c.opFx07()
		case 0x000A:
			c.opFx0A()
		case 0x0015:
			c.opFx15()
		case 0x0018:
			c.opFx18()
		case 0x001E:
			c.opFx1E()
		case 0x0029:
			c.opFx29()
		case 0x0033:
			c.opFx33()
		case 0x0055:
			c.opFx55()
		case 0x0065:
			c.opFx65()
		}
	}

	return nil
}

// StepTimers decrements each timer that is above zero. Intended to run at a
// fixed 60Hz regardless of how fast Step is invoked; a timer at zero stays
// at zero.
func (c *Interpreter) StepTimers() {
	if c.DelayTimer > 0 {
		c.DelayTimer--
	}
	if c.SoundTimer > 0 {
		c.SoundTimer--
	}
}

/*
INSTRUCTIONS IMPLEMENTATION

The following section is a set of all instruction operations allowed to us in Chip8.
See this documentation for more details:
https://github.com/mattmikolay/chip-8/wiki/Mastering-CHIP%E2%80%908
https://github.com/mattmikolay/chip-8/wiki/CHIP%E2%80%908-Instruction-Set
*/

/*
00E0: CLS
Clear the display
*/
func (c *Interpreter) op00E0() {
	c.Video = [VideoWidth * VideoHeight]byte{}
	c.DrawFlag = true
}

/*
00EE: RET
Return from a subroutine. Popping an empty stack means the ROM returned
without a matching call; surfaced as an error rather than a crash so the
driver can decide what to do.
*/
func (c *Interpreter) op00EE() error {
	if len(c.Stack) == 0 {
		return ErrStackUnderflow
	}
	c.PC = c.Stack[len(c.Stack)-1]
	c.Stack = c.Stack[:len(c.Stack)-1]
	return nil
}

/*
1nnn: JP addr
Jump to location nnn.
A jump doesn't remember its origin, so no stack interaction required.
*/
func (c *Interpreter) op1nnn() {
	c.PC = c.opcode & 0x0FFF
}

/*
2nnn - CALL addr
Call subroutine at nnn. The already-incremented PC is the return address.
*/
func (c *Interpreter) op2nnn() {
	c.Stack = append(c.Stack, c.PC)
	c.PC = c.opcode & 0x0FFF
}

/*
3xkk - SE Vx, byte
Skip next instruction if Vx = kk.
Since our PC has already been incremented by 2 in Step(), we can just increment by 2 again to skip the next instruction.
*/
func (c *Interpreter) op3xkk() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	b := byte(c.opcode & 0x00FF)

	if c.V[vx] == b {
		c.PC += 2
	}
}

/*
4xkk - SNE Vx, byte
Skip next instruction if Vx != kk.
*/
func (c *Interpreter) op4xkk() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	b := byte(c.opcode & 0x00FF)

	if c.V[vx] != b {
		c.PC += 2
	}
}

/*
5xy0 - SE Vx, Vy
Skip next instruction if Vx = Vy.
*/
func (c *Interpreter) op5xy0() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	if c.V[vx] == c.V[vy] {
		c.PC += 2
	}
}

/*
6xkk - LD Vx, byte
Set Vx = kk.
*/
func (c *Interpreter) op6xkk() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.V[vx] = byte(c.opcode & 0x00FF)
}

/*
7xkk - ADD Vx, byte
Set Vx = Vx + kk. Wraps at 8 bits and never touches VF.
*/
func (c *Interpreter) op7xkk() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.V[vx] += byte(c.opcode & 0x00FF)
}

/*
8xy0 - LD Vx, Vy
Set Vx = Vy.
*/
func (c *Interpreter) op8xy0() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	c.V[vx] = c.V[vy]
}

/*
8xy1 - OR Vx, Vy
Set Vx = Vx OR Vy.
*/
func (c *Interpreter) op8xy1() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	c.V[vx] |= c.V[vy]
}

/*
8xy2 - AND Vx, Vy
Set Vx = Vx AND Vy.
*/
func (c *Interpreter) op8xy2() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	c.V[vx] &= c.V[vy]
}

/*
8xy3 - XOR Vx, Vy
Set Vx = Vx XOR Vy.
*/
func (c *Interpreter) op8xy3() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	c.V[vx] ^= c.V[vy]
}

/*
8xy4 - ADD Vx, Vy
Set Vx = Vx + Vy, set VF = carry.
If the sum is greater than what can fit into a byte (255), register VF is set
to 1 as a flag. Only the lowest 8 bits of the result are kept in Vx.
*/
func (c *Interpreter) op8xy4() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	sum := uint16(c.V[vx]) + uint16(c.V[vy])
	c.V[vx] = byte(sum)

	if sum > 255 {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
}

/*
8xy5 - SUB Vx, Vy
Set Vx = Vx - Vy, set VF = NOT borrow.
VF is 0 when the subtraction borrows (Vy > Vx before the wrap), 1 otherwise.
The flag is written after the subtraction so that VF used as an operand still
reads its old value.
*/
func (c *Interpreter) op8xy5() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	borrow := c.V[vy] > c.V[vx]
	c.V[vx] -= c.V[vy]

	if borrow {
		c.V[0xF] = 0
	} else {
		c.V[0xF] = 1
	}
}

/*
8xy6 - SHR Vx
Set Vx = Vx SHR 1.
The least significant bit, the one shifted out, is saved in register VF.
*/
func (c *Interpreter) op8xy6() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	lsb := c.V[vx] & 0x1
	c.V[vx] >>= 1
	c.V[0xF] = lsb
}

/*
8xy7 - SUBN Vx, Vy
Set Vx = Vy - Vx, set VF = NOT borrow.
Mirror image of 8xy5 with the operands swapped.
*/
func (c *Interpreter) op8xy7() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	borrow := c.V[vx] > c.V[vy]
	c.V[vx] = c.V[vy] - c.V[vx]

	if borrow {
		c.V[0xF] = 0
	} else {
		c.V[0xF] = 1
	}
}

/*
8xyE - SHL Vx
Set Vx = Vx SHL 1.
The most significant bit, the one shifted out, is saved in register VF.
*/
func (c *Interpreter) op8xyE() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	msb := (c.V[vx] & 0x80) >> 7
	c.V[vx] <<= 1
	c.V[0xF] = msb
}

/*
9xy0 - SNE Vx, Vy
Skip next instruction if Vx != Vy.
*/
func (c *Interpreter) op9xy0() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)

	if c.V[vx] != c.V[vy] {
		c.PC += 2
	}
}

/*
Annn - LD I, addr
Set I = nnn.
*/
func (c *Interpreter) opAnnn() {
	c.I = c.opcode & 0x0FFF
}

/*
Bnnn - JP V0, addr
Jump to location nnn + V0.
*/
func (c *Interpreter) opBnnn() {
	c.PC = (c.opcode & 0x0FFF) + uint16(c.V[0])
}

/*
Cxkk - RND Vx, byte
Set Vx = random byte AND kk.
*/
func (c *Interpreter) opCxkk() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	b := byte(c.opcode & 0x00FF)

	c.V[vx] = c.rand() & b
}

/*
Dxyn - DRW Vx, Vy, nibble
Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.

Each sprite byte is one 8-pixel row, most significant bit first. The anchor is
taken mod 64x32, and every pixel position is wrapped independently, so each
row wraps from its own vertical offset rather than the sprite moving as a
rigid block. Sprite bits XOR onto the screen: a set bit over an on pixel turns
it off and records the collision in VF. VF is reset first, and the draw flag
is always raised, even for an all-zero sprite.
*/
func (c *Interpreter) opDxyn() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	vy := byte((c.opcode & 0x00F0) >> 4)
	height := c.opcode & 0x000F

	x := uint16(c.V[vx]) % VideoWidth
	y := uint16(c.V[vy]) % VideoHeight

	c.V[0xF] = 0
	for row := uint16(0); row < height; row++ {
		sprite := c.Memory[(c.I+row)&AddressMask]
		py := (y + row) % VideoHeight

		for col := uint16(0); col < 8; col++ {
			if sprite&(0x80>>col) == 0 {
				continue
			}
			px := (x + col) % VideoWidth
			idx := py*VideoWidth + px

			if c.Video[idx] == 0xFF {
				c.V[0xF] = 1
				c.Video[idx] = 0x00
			} else {
				c.Video[idx] = 0xFF
			}
		}
	}

	c.DrawFlag = true
}

/*
Ex9E - SKP Vx
Skip next instruction if key with the value of Vx is pressed.
*/
func (c *Interpreter) opEx9E() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	if c.Keys[c.V[vx]&0x0F] {
		c.PC += 2
	}
}

/*
ExA1 - SKNP Vx
Skip next instruction if key with the value of Vx is not pressed.
*/
func (c *Interpreter) opExA1() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	if !c.Keys[c.V[vx]&0x0F] {
		c.PC += 2
	}
}

/*
Fx07 - LD Vx, DT
Set Vx = delay timer value.
*/
func (c *Interpreter) opFx07() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.V[vx] = c.DelayTimer
}

/*
Fx0A - LD Vx, K
Wait for a key press, store the value of the key in Vx.
The easiest way to "wait" is to decrement the PC by 2 whenever no pressed key
is observed, which re-runs this same instruction on the next step. The driver
keeps calling Step and mutates the key array between calls; the PC simply does
not advance until a key shows up. Keys are scanned in ascending order, so the
lowest-indexed pressed key wins.
*/
func (c *Interpreter) opFx0A() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	for k, pressed := range c.Keys {
		if pressed {
			c.V[vx] = byte(k)
			return
		}
	}

	c.PC -= 2
}

/*
Fx15 - LD DT, Vx
Set delay timer = Vx.
*/
func (c *Interpreter) opFx15() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.DelayTimer = c.V[vx]
}

/*
Fx18 - LD ST, Vx
Set sound timer = Vx.
*/
func (c *Interpreter) opFx18() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.SoundTimer = c.V[vx]
}

/*
Fx1E - ADD I, Vx
Set I = I + Vx, wrapping at 16 bits. Memory accesses through I are masked to
the 4096-byte space at the access site, so an out-of-range I is harmless until
a later opcode masks it back in.
*/
func (c *Interpreter) opFx1E() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	c.I += uint16(c.V[vx])
}

/*
Fx29 - LD F, Vx
Set I = location of sprite for digit Vx.
The font glyphs start at 0x050 and are five bytes each, so the address of any
digit is an offset from the start address.
*/
func (c *Interpreter) opFx29() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	digit := uint16(c.V[vx])

	c.I = FontStartAddress + digit*5
}

/*
Fx33 - LD B, Vx
Store BCD representation of Vx in memory locations I, I+1, and I+2:
hundreds digit at I, tens at I+1, ones at I+2.
*/
func (c *Interpreter) opFx33() {
	vx := byte((c.opcode & 0x0F00) >> 8)
	value := c.V[vx]

	c.Memory[c.I&AddressMask] = value / 100
	c.Memory[(c.I+1)&AddressMask] = (value % 100) / 10
	c.Memory[(c.I+2)&AddressMask] = value % 10
}

/*
Fx55 - LD [I], Vx
Store registers V0 through Vx inclusive in memory starting at location I.
I itself is left unchanged.
*/
func (c *Interpreter) opFx55() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	for i := uint16(0); i <= uint16(vx); i++ {
		c.Memory[(c.I+i)&AddressMask] = c.V[i]
	}
}

/*
Fx65 - LD Vx, [I]
Read registers V0 through Vx inclusive from memory starting at location I.
*/
func (c *Interpreter) opFx65() {
	vx := byte((c.opcode & 0x0F00) >> 8)

	for i := uint16(0); i <= uint16(vx); i++ {
		c.V[i] = c.Memory[(c.I+i)&AddressMask]
	}
}

func randomByte() byte {
	return byte(rand.UintN(256))
}
