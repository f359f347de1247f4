package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/synapsefi/bridge-hub/internal/api"
	"github.com/synapsefi/bridge-hub/internal/hub"
	"github.com/synapsefi/bridge-hub/internal/hubconfig"
)

func main() {
	log.Println("Starting SYNAPSE-FI BRIDGE Hub...")

	cfg := hubconfig.Load()
	if err := hubconfig.Validate(cfg); err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	h := hub.New(cfg)

	streamHub := api.NewStreamHub()
	go streamHub.Run()
	h.OnAdvisory(streamHub.PushAdvisory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.RunPruner(ctx)

	r := api.SetupRouter(h, streamHub)

	srv := make(chan error, 1)
	go func() {
		log.Printf("Hub listening on :%s\n", strconv.Itoa(cfg.Port))
		srv <- r.Run(":" + strconv.Itoa(cfg.Port))
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srv:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-sigs:
		log.Printf("Received %v, shutting down pruner...\n", sig)
		cancel()
	}
}
