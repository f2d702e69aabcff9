package platform

import "github.com/veandco/go-sdl2/sdl"

const (
	audioFreq    = 44100
	audioSamples = 512

	// Tone of the beep. The sound hardware on a CHIP-8 is a single fixed
	// buzzer, so one tone is all we need.
	beepFreq = 440
)

// Audio plays the CHIP-8 buzzer: a fixed square wave that sounds exactly
// while the machine's sound timer is above zero. Samples are queued rather
// than generated in a callback; the wave never changes, so the loop only has
// to keep the queue topped up.
type Audio struct {
	device  sdl.AudioDeviceID
	spec    sdl.AudioSpec
	wave    []byte
	playing bool
}

// NewAudio opens a mono 8-bit audio device and pre-renders one chunk of
// square wave around the device's silence value.
func NewAudio() (*Audio, error) {
	want := &sdl.AudioSpec{
		Freq:     audioFreq,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  audioSamples,
	}

	a := &Audio{}
	var err error
	a.device, err = sdl.OpenAudioDevice("", false, want, &a.spec, 0)
	if err != nil {
		return nil, err
	}

	halfPeriod := int(a.spec.Freq) / beepFreq / 2
	a.wave = make([]byte, int(a.spec.Freq)/10) // 100ms of tone per chunk
	for i := range a.wave {
		if (i/halfPeriod)%2 == 0 {
			a.wave[i] = a.spec.Silence + 40
		} else {
			a.wave[i] = a.spec.Silence - 40
		}
	}

	sdl.PauseAudioDevice(a.device, true)
	return a, nil
}

// SetPlaying starts or stops the buzzer. Call it once per frame with
// soundTimer > 0; while playing, the queue is topped up so the tone is
// continuous across calls.
func (a *Audio) SetPlaying(on bool) {
	if on {
		if sdl.GetQueuedAudioSize(a.device) < uint32(len(a.wave)) {
			// Queue starvation just restarts the wave mid-cycle; at
			// 440Hz the click is inaudible.
			_ = sdl.QueueAudio(a.device, a.wave)
		}
		if !a.playing {
			sdl.PauseAudioDevice(a.device, false)
			a.playing = true
		}
		return
	}

	if a.playing {
		sdl.PauseAudioDevice(a.device, true)
		sdl.ClearQueuedAudio(a.device)
		a.playing = false
	}
}

// Destroy closes the audio device.
func (a *Audio) Destroy() {
	sdl.CloseAudioDevice(a.device)
}
