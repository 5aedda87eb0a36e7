package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"av-fc-core/utils"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "YAML config file; empty uses built-in defaults")
		replay   = flag.String("replay", "", "Replay datagrams from a pcap capture instead of listening")
		diagPath = flag.String("diag", "flight_computer.log", "Diagnostic log file")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger(*diagPath, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *diagPath + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	flightID := uuid.New()
	log.SetFlightID(flightID.String())

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		log.Critical("Config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, RunnerConfig{Config: cfg, ReplayPath: *replay}, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}

	err = runner.Run(ctx)
	runner.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
