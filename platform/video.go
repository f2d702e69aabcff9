package platform

import (
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/chipeight/go-chip8/emulator"
)

// Video presents the 64x32 framebuffer in an SDL window. The renderer is set
// to a 64x32 logical size so SDL scales each CHIP-8 pixel to the window for
// us, exactly like passing the small texture straight through.
type Video struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	// Scratch RGBA buffer reused between frames.
	pixels [emulator.VideoWidth * emulator.VideoHeight * 4]byte
}

// NewVideo opens the emulator window at scale window pixels per CHIP-8 pixel.
func NewVideo(title string, scale int32) (*Video, error) {
	winWidth := emulator.VideoWidth * scale
	winHeight := emulator.VideoHeight * scale

	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		winWidth, winHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, err
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return nil, err
	}

	if err := renderer.SetLogicalSize(emulator.VideoWidth, emulator.VideoHeight); err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, err
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING, emulator.VideoWidth, emulator.VideoHeight)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, err
	}

	return &Video{
		window:   window,
		renderer: renderer,
		texture:  texture,
	}, nil
}

// Render pushes one frame to the screen. The framebuffer holds 0x00 or 0xFF
// per pixel; replicating the byte into all four texture channels gives black
// and white regardless of channel order. Blending is off, so alpha is moot.
func (v *Video) Render(fb *[emulator.VideoWidth * emulator.VideoHeight]byte) error {
	for i, p := range fb {
		v.pixels[i*4+0] = p
		v.pixels[i*4+1] = p
		v.pixels[i*4+2] = p
		v.pixels[i*4+3] = p
	}

	if err := v.texture.Update(nil, unsafe.Pointer(&v.pixels), emulator.VideoWidth*4); err != nil {
		return err
	}
	if err := v.renderer.Clear(); err != nil {
		return err
	}
	if err := v.renderer.Copy(v.texture, nil, nil); err != nil {
		return err
	}
	v.renderer.Present()
	return nil
}

// Destroy releases the window, renderer and texture.
func (v *Video) Destroy() {
	if v.texture != nil {
		v.texture.Destroy()
	}
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	if v.window != nil {
		v.window.Destroy()
	}
}
