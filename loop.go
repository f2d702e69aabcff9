package main

import (
	"context"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/chipeight/go-chip8/emulator"
	"github.com/chipeight/go-chip8/platform"
)

const (
	// Historical CHIP-8 interpreters ran somewhere between 500 and 1000
	// instructions per second; 600 plays most ROMs at the intended speed.
	defaultCPUHz = 600

	// Timers and the display both run at a fixed 60Hz, independent of the
	// CPU rate.
	tickHz = 60

	// Upper bound on the catch-up work after a stall (window drag, debugger
	// pause). Anything older is dropped instead of replayed.
	maxFrameTime = 250 * time.Millisecond
)

// loop is the multi-rate scheduler around the core. Three logical rates run
// off one wall-clock accumulator each: CPU steps at a tunable Hz, timer
// decrements at 60Hz, frame consumption at 60Hz. The core itself is
// clock-free; correctness never depends on real time.
type loop struct {
	machine *emulator.Machine
	interp  *emulator.Interpreter
	p       *platform.Platform
	logger  *log.Logger

	cpuInterval  time.Duration
	tickInterval time.Duration
}

func newLoop(machine *emulator.Machine, p *platform.Platform, cpuHz int, logger *log.Logger) *loop {
	return &loop{
		machine:      machine,
		interp:       emulator.NewInterpreter(machine),
		p:            p,
		logger:       logger,
		cpuInterval:  time.Second / time.Duration(cpuHz),
		tickInterval: time.Second / tickHz,
	}
}

// run drives the machine until the user quits, the context is cancelled or
// the core reports an error. Input is polled once per iteration, rewriting
// the key array wholesale, so Fx0A and the key-skip opcodes always see a
// fresh snapshot between steps.
func (l *loop) run(ctx context.Context) error {
	last := time.Now()
	var cpuAcc, timerAcc, frameAcc time.Duration

	for ctx.Err() == nil {
		now := time.Now()
		dt := now.Sub(last)
		last = now
		if dt > maxFrameTime {
			dt = maxFrameTime
		}

		cpuAcc += dt
		timerAcc += dt
		frameAcc += dt

		if quit := l.p.Input.Poll(&l.machine.Keys); quit {
			return nil
		}

		// Run as many CPU cycles as the elapsed time allows.
		for cpuAcc >= l.cpuInterval {
			cpuAcc -= l.cpuInterval
			if err := l.interp.Step(); err != nil {
				return err
			}
		}

		// Timers at 60Hz.
		for timerAcc >= l.tickInterval {
			timerAcc -= l.tickInterval
			l.interp.StepTimers()
		}

		// Render at 60Hz, only when the framebuffer changed. The draw
		// flag belongs to the renderer to clear.
		for frameAcc >= l.tickInterval {
			frameAcc -= l.tickInterval
			if l.machine.DrawFlag {
				if err := l.p.Video.Render(&l.machine.Video); err != nil {
					l.logger.Error("rendering frame failed", log.Err(err))
				}
				l.machine.DrawFlag = false
			}
		}

		l.p.Audio.SetPlaying(l.machine.SoundTimer > 0)

		// Sleep until the earliest pending deadline instead of spinning.
		next := l.cpuInterval - cpuAcc
		if remaining := l.tickInterval - timerAcc; remaining < next {
			next = remaining
		}
		if next > 0 {
			time.Sleep(next)
		}
	}

	return ctx.Err()
}
