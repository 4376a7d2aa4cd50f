// Command psxcore boots a BIOS image or a side-loaded PSX-EXE and runs it.
//
// Grounded on the teacher's main.go: immediate os.Exit(1) on setup failure,
// peripherals created and started before the CPU begins executing. Unlike
// the teacher's positional arguments, options are parsed with the flag
// package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/kamalan-labs/psxcore"
	"github.com/kamalan-labs/psxcore/internal/audiosink"
	"github.com/kamalan-labs/psxcore/internal/hostloop"
	"github.com/kamalan-labs/psxcore/internal/logx"
)

func main() {
	biosPath := flag.String("bios", "", "path to a PSX BIOS ROM image (required)")
	exePath := flag.String("exe", "", "path to a PS-X EXE to side-load after BIOS boot")
	pal := flag.Bool("pal", false, "boot in PAL mode (default NTSC)")
	headless := flag.Bool("headless", false, "run without an ebiten window (debug/CI use)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	log := logx.New(os.Stderr, *debug)

	if *biosPath == "" {
		fmt.Fprintln(os.Stderr, "psxcore: -bios is required")
		os.Exit(1)
	}

	settings := psxcore.DefaultSettings()
	if *pal {
		settings.Region = psxcore.RegionPAL
	}
	if *exePath != "" {
		settings.BootMode = psxcore.BootPSXEXE
		settings.ExePath = *exePath
	}

	m, err := psxcore.NewMachine(settings, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "psxcore: failed to build machine: %v\n", err)
		os.Exit(1)
	}

	bios, err := os.ReadFile(*biosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "psxcore: failed to read BIOS: %v\n", err)
		os.Exit(1)
	}
	m.LoadBIOS(bios)

	if settings.BootMode == psxcore.BootPSXEXE {
		exe, err := os.ReadFile(*exePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "psxcore: failed to read EXE: %v\n", err)
			os.Exit(1)
		}
		if err := m.LoadAndRunEXE(exe); err != nil {
			fmt.Fprintf(os.Stderr, "psxcore: failed to load EXE: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var drain func([]int16)
	if settings.AudioEnable {
		sink, err := audiosink.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "psxcore: audio disabled, failed to open sink: %v\n", err)
		} else {
			sink.Start()
			defer sink.Close()
			drain = sink.Push
		}
	}

	if *headless {
		if err := m.Run(ctx, drain); err != nil {
			fmt.Fprintf(os.Stderr, "psxcore: %v\n", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := m.Run(ctx, drain); err != nil {
			fmt.Fprintf(os.Stderr, "psxcore: %v\n", err)
		}
	}()

	game := hostloop.New(m, hostloop.NopGPUSink{}, cancel)
	title := fmt.Sprintf("psxcore (%s)", settings.Region.String())
	if err := hostloop.Run(game, title, settings.Region.RefreshHz()); err != nil {
		fmt.Fprintf(os.Stderr, "psxcore: %v\n", err)
		os.Exit(1)
	}
}
