// Package platform hosts the SDL collaborators around the emulator core:
// window and renderer, keypad polling and the sound-timer beeper. Nothing in
// here knows about opcodes; the core and this package meet only at the
// framebuffer, the key array and the sound timer value.
package platform

import "github.com/veandco/go-sdl2/sdl"

// Platform bundles the SDL subsystems for one emulator window.
type Platform struct {
	Video *Video
	Input *Input
	Audio *Audio
}

// Config controls window presentation.
type Config struct {
	Title string
	// Window pixels per CHIP-8 pixel.
	Scale int32
}

// New initializes SDL and creates the video, input and audio collaborators.
// Call Destroy when done.
func New(cfg Config) (*Platform, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, err
	}

	video, err := NewVideo(cfg.Title, cfg.Scale)
	if err != nil {
		sdl.Quit()
		return nil, err
	}

	audio, err := NewAudio()
	if err != nil {
		video.Destroy()
		sdl.Quit()
		return nil, err
	}

	return &Platform{
		Video: video,
		Input: &Input{},
		Audio: audio,
	}, nil
}

// Destroy releases all SDL resources and shuts SDL down.
func (p *Platform) Destroy() {
	p.Audio.Destroy()
	p.Video.Destroy()
	sdl.Quit()
}
