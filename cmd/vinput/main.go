// vinput listens on the microphone, recognizes spoken commands and
// executes them against a virtual Xbox 360 controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Djarid/vinput/internal/app"
	"github.com/Djarid/vinput/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults apply when omitted)")
	commandsPath := flag.String("commands", "", "Path to commands file (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	audioBackend := flag.String("audio-backend", "", "Audio backend: auto, portaudio, mock (overrides config)")
	gamepadBackend := flag.String("gamepad-backend", "", "Gamepad backend: auto, uinput, mock (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *commandsPath != "" {
		cfg.CommandsFile = *commandsPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *audioBackend != "" {
		cfg.Audio.Backend = *audioBackend
	}
	if *gamepadBackend != "" {
		cfg.Gamepad.Backend = *gamepadBackend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "shutting down...")
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
