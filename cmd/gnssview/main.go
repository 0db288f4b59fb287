package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"gnssview/internal/config"
	"gnssview/internal/web"
)

func main() {
	var configPath string
	var summaryPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML or TOML config")
	flag.StringVar(&summaryPath, "log-summary", "", "Print a summary of an NMEA capture log and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printLogSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("log summary failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(cfg.Web.LogLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session := uuid.NewString()
	log.Printf("gnssview starting session=%s config=%s", session, configPath)

	if err := run(ctx, cfg, session, logs); err != nil {
		log.Fatalf("gnssview failed: %v", err)
	}
	log.Printf("gnssview stopped")
}
