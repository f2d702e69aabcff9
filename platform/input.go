package platform

import "github.com/veandco/go-sdl2/sdl"

/*
Key Mappings:
Keypad       Keyboard
+-+-+-+-+    +-+-+-+-+
|1|2|3|C|    |1|2|3|4|
+-+-+-+-+    +-+-+-+-+
|4|5|6|D|    |Q|W|E|R|
+-+-+-+-+ => +-+-+-+-+
|7|8|9|E|    |A|S|D|F|
+-+-+-+-+    +-+-+-+-+
|A|0|B|F|    |Z|X|C|V|
+-+-+-+-+    +-+-+-+-+
*/
var keyMap = [16]sdl.Scancode{
	0x0: sdl.SCANCODE_X,
	0x1: sdl.SCANCODE_1,
	0x2: sdl.SCANCODE_2,
	0x3: sdl.SCANCODE_3,
	0x4: sdl.SCANCODE_Q,
	0x5: sdl.SCANCODE_W,
	0x6: sdl.SCANCODE_E,
	0x7: sdl.SCANCODE_A,
	0x8: sdl.SCANCODE_S,
	0x9: sdl.SCANCODE_D,
	0xA: sdl.SCANCODE_Z,
	0xB: sdl.SCANCODE_C,
	0xC: sdl.SCANCODE_4,
	0xD: sdl.SCANCODE_R,
	0xE: sdl.SCANCODE_F,
	0xF: sdl.SCANCODE_V,
}

// Input polls the SDL event queue and mirrors the keyboard into the
// emulator's 16-key array.
type Input struct{}

// Poll drains pending SDL events and overwrites keys wholesale from the
// current keyboard state. Returns true when the user asked to quit, either by
// closing the window or pressing Escape. Rebuilding the whole array every
// poll keeps stale key state from surviving a missed event.
func (in *Input) Poll(keys *[16]bool) bool {
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch t := event.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			if t.Type == sdl.KEYDOWN && t.Keysym.Sym == sdl.K_ESCAPE {
				quit = true
			}
		}
	}

	state := sdl.GetKeyboardState()
	for k, sc := range keyMap {
		keys[k] = state[sc] != 0
	}

	return quit
}
