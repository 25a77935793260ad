// ABOUTME: Entry point for the rstream client
// ABOUTME: Streams audio from a server to speakers and/or disk, or records from the microphone
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rstream-protocol/rstream-go/internal/client"
	"github.com/rstream-protocol/rstream-go/internal/discovery"
	"github.com/rstream-protocol/rstream-go/internal/player"
	"github.com/rstream-protocol/rstream-go/internal/version"
	"github.com/rstream-protocol/rstream-go/pkg/audio/input"
)

var (
	mode     = flag.String("mode", "stream", "Operating mode: stream or record")
	address  = flag.String("address", "", "Server address (skip mDNS discovery)")
	port     = flag.Int("port", 8080, "Server port")
	output   = flag.String("output", "", "WAV file to write received or recorded audio to")
	play     = flag.Bool("play", true, "Play received audio on the default output device (stream mode)")
	backend  = flag.String("backend", "", "Playback backend: malgo (default) or oto")
	bufferMs = flag.Int("buffer-ms", player.DefaultBufferMs, "Playback buffer size in milliseconds")
	duration = flag.Duration("duration", 5*time.Second, "Recording length (record mode)")
)

func main() {
	flag.Parse()

	log.Printf("Starting %s client %s", version.Product, version.Version)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, stopping...", sig)
		cancel()
	}()

	switch *mode {
	case "stream":
		runStream(ctx)
	case "record":
		runRecord(ctx)
	default:
		log.Fatalf("Unknown mode %q (want stream or record)", *mode)
	}
}

func runStream(ctx context.Context) {
	addr := *address
	serverPort := *port
	if addr == "" {
		log.Printf("No server address given, browsing mDNS...")
		info, err := discovery.Browse(ctx)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		addr = info.Host
		serverPort = info.Port
		log.Printf("Discovered %s at %s:%d", info.Name, addr, serverPort)
	}

	c, err := client.Connect(addr, serverPort)
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}

	if *play {
		sink, err := player.NewPlaybackSink(*backend, *bufferMs)
		if err != nil {
			log.Fatalf("Playback device: %v", err)
		}
		c.AddSink(sink)
	}
	if *output != "" {
		c.AddSink(player.NewFileSink(*output))
		log.Printf("Writing received audio to %s", *output)
	}
	if !*play && *output == "" {
		log.Fatalf("Nothing to do: enable -play or give -output")
	}

	if err := c.Run(); err != nil {
		log.Fatalf("Stream failed: %v", err)
	}
	log.Printf("Stream complete")
}

func runRecord(ctx context.Context) {
	if *output == "" {
		log.Fatalf("Record mode requires -output")
	}
	log.Printf("Recording %s of audio to %s", *duration, *output)
	if err := input.Record(ctx, *output, *duration, input.DefaultFormat); err != nil {
		log.Fatalf("Recording failed: %v", err)
	}
	log.Printf("Recording complete")
}
