// ABOUTME: Entry point for the rstream server
// ABOUTME: Parses CLI flags, loads config and serves one audio file over TCP
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rstream-protocol/rstream-go/internal/config"
	"github.com/rstream-protocol/rstream-go/internal/discovery"
	"github.com/rstream-protocol/rstream-go/internal/server"
	"github.com/rstream-protocol/rstream-go/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to yaml config file")
	address    = flag.String("address", "", "Bind address (overrides config)")
	port       = flag.Int("port", 0, "Listen port (overrides config)")
	filePath   = flag.String("file", "", "Audio file to serve (WAV, MP3, FLAC; overrides config)")
	name       = flag.String("name", "", "Service name for mDNS (default: hostname-rstream-server)")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	logFile    = flag.String("log-file", "", "Log file path (default: stdout only)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}

	// Flags win over the config file.
	if *address != "" {
		cfg.Server.BindAddress = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *filePath != "" {
		cfg.Server.FilePath = *filePath
	}
	if *noMDNS {
		cfg.Discovery.Enabled = false
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}

	if cfg.Server.FilePath == "" {
		log.Fatalf("No audio file configured; use -file or a config file")
	}
	if _, err := os.Stat(cfg.Server.FilePath); err != nil {
		log.Fatalf("Audio file: %v", err)
	}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	serviceName := *name
	if serviceName == "" {
		if cfg.Discovery.Name != "" {
			serviceName = cfg.Discovery.Name
		} else {
			hostname, err := os.Hostname()
			if err != nil {
				hostname = "unknown"
			}
			serviceName = fmt.Sprintf("%s-rstream-server", hostname)
		}
	}

	log.Printf("Starting %s server %s: %s", version.Product, version.Version, serviceName)
	log.Printf("Serving %s on %s:%d", cfg.Server.FilePath, cfg.Server.BindAddress, cfg.Server.Port)
	log.Printf("Press Ctrl-C to stop")

	if cfg.Discovery.Enabled {
		adv, err := discovery.Advertise(serviceName, cfg.Server.Port)
		if err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		} else {
			defer adv.Stop()
			log.Printf("Advertising via mDNS as %s", serviceName)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		cancel()
	}()

	srv := server.New(server.Config{
		Address:  cfg.Server.BindAddress,
		Port:     cfg.Server.Port,
		FilePath: cfg.Server.FilePath,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Printf("Server stopped")
}
