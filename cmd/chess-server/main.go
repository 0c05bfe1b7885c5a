// Package main runs the chess engine server: the JSON API over the game
// service and the engine worker pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessai/cmd/chess-server/cli"
	"chessai/internal/server/http"
	"chessai/internal/server/processor"
	"chessai/internal/server/service"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	// Offline engine tools
	if len(os.Args) > 1 && (os.Args[1] == "search" || os.Args[1] == "bench") {
		if err := cli.Run(os.Args[1:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	var (
		apiHost   = flag.String("api-host", "localhost", "API server host")
		apiPort   = flag.Int("api-port", 8080, "API server port")
		dev       = flag.Bool("dev", false, "Development mode (relaxed rate limits)")
		workers   = flag.Int("workers", 2, "Engine worker count")
		queueSize = flag.Int("queue-size", 100, "Pending engine requests before QUEUE_FULL")
		seed      = flag.Uint64("seed", 0, "Engine random seed, 0 picks one per worker")
		pidPath   = flag.String("pid", "", "Optional path to write PID file")
		pidLock   = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	if *pidLock && *pidPath == "" {
		log.Fatal("Error: -pid-lock flag requires the -pid flag to be set")
	}
	if *workers < 1 {
		log.Fatalf("Error: -workers must be at least 1, got %d", *workers)
	}

	if *pidPath != "" {
		pf, err := acquirePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer pf.Release()
		log.Printf("PID file created at: %s (lock: %v)", *pidPath, *pidLock)
	}

	svc := service.New()
	proc := processor.New(svc, processor.Config{
		Workers:   *workers,
		QueueSize: *queueSize,
		Seed:      *seed,
	})
	app := http.NewFiberApp(proc, svc, *dev)

	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)

	go func() {
		log.Printf("Chess API Server starting...")
		log.Printf("API Listening on: http://%s", apiAddr)
		log.Printf("Engine: %d workers, queue %d", *workers, *queueSize)
		if *seed != 0 {
			log.Printf("Engine seed: %d (reproducible play)", *seed)
		}
		if *dev {
			log.Printf("Rate Limit: 20 requests/second per IP (DEV MODE)")
		} else {
			log.Printf("Rate Limit: 10 requests/second per IP")
		}
		log.Printf("Search: http://%s/api/v1/search", apiAddr)
		log.Printf("Games: http://%s/api/v1/games", apiAddr)
		log.Printf("Health: http://%s/health", apiAddr)

		if err := app.Listen(apiAddr); err != nil {
			log.Printf("API server listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	// Release long polls first so the HTTP shutdown is not held by them
	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Printf("Service shutdown error: %v", err)
	}

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := proc.Close(); err != nil {
		log.Printf("Processor close error: %v", err)
	}

	log.Println("Server exited")
}
