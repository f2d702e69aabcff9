// Package main implements a CHIP-8 emulator driven by SDL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"

	"github.com/chipeight/go-chip8/emulator"
	"github.com/chipeight/go-chip8/platform"
)

type optionFlags struct {
	rom string

	cpuHz int
	scale int

	debug bool
	quiet bool
}

func main() {
	options := readArguments()
	logger := createLogger(options.debug, options.quiet)

	if err := run(options, logger); err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Fatal(err.Error())
	}
}

func readArguments() optionFlags {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	options := optionFlags{}

	flags.IntVar(&options.cpuHz, "cpu", defaultCPUHz, "CPU instructions per second")
	flags.IntVar(&options.scale, "scale", 10, "window pixels per CHIP-8 pixel")
	flags.BoolVar(&options.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&options.quiet, "q", false, "perform operations quietly")

	err := flags.Parse(os.Args[1:])
	args := flags.Args()

	if err != nil || len(args) != 1 {
		fmt.Printf("usage: go-chip8 [options] <rom file>\n\n")
		flags.PrintDefaults()
		os.Exit(1)
	}
	options.rom = args[0]

	return options
}

func createLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func run(options optionFlags, logger *log.Logger) error {
	ctx := app.Context()

	rom, err := os.ReadFile(options.rom)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}

	machine := emulator.NewMachine()
	if err := machine.LoadProgram(rom); err != nil {
		return fmt.Errorf("loading rom %s: %w", options.rom, err)
	}
	logger.Info("ROM loaded",
		log.String("file", options.rom),
		log.Int("bytes", len(rom)))

	p, err := platform.New(platform.Config{
		Title: "go-chip8 - " + filepath.Base(options.rom),
		Scale: int32(options.scale),
	})
	if err != nil {
		return fmt.Errorf("initializing sdl: %w", err)
	}
	defer p.Destroy()

	loop := newLoop(machine, p, options.cpuHz, logger)
	return loop.run(ctx)
}
