package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"terrainstream/internal/config"
	"terrainstream/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfgPath := flag.String("config", "", "path to terrain streamer configuration file (JSON or YAML)")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		log.Fatal(err)
	}
}

func run(cfgPath string) error {
	if wrote, err := writeConfigFromEnvironment(cfgPath); err != nil {
		return fmt.Errorf("sync config: %w", err)
	} else if wrote {
		log.Printf("wrote configuration from environment to %s", cfgPath)
	}

	cfg, notes, err := config.LoadWithNotes(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, note := range notes {
		log.Printf("config: %s", note)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("initialise terrain server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
		time.AfterFunc(shutdownGrace, func() {
			log.Printf("forced shutdown after %s", shutdownGrace)
			os.Exit(1)
		})
	}()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}
