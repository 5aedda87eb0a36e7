// send_adis plays a scenario file as sequenced ADIS datagrams, for bench
// testing the flight computer without the sensor board.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"av-fc-core/utils"
)

func main() {
	var (
		target   = flag.String("target", "127.0.0.1:36000", "Flight computer listen address")
		srcPort  = flag.Int("src-port", 35020, "Local port; the flight computer dispatches on it")
		scenPath = flag.String("scenario", "send_adis/boost_coast.json", "Scenario JSON file")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log := utils.NewLogger(os.Stdout, utils.ParseLevel(*logLevel))

	scen, err := LoadScenario(*scenPath)
	if err != nil {
		log.Critical("Scenario: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emitter, err := NewUDPEmitter(*target, uint16(*srcPort))
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer emitter.Close()

	player := NewPlayer(&scen, emitter, log)
	if err := player.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
