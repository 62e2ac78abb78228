package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mi-lab/backend/internal/api"
	"github.com/mi-lab/backend/internal/config"
	"github.com/mi-lab/backend/internal/discovery"
	"github.com/mi-lab/backend/internal/docstore"
	"github.com/mi-lab/backend/internal/history"
	"github.com/mi-lab/backend/internal/mock"
	"github.com/mi-lab/backend/internal/supervisor"
	"github.com/mi-lab/backend/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Simulate a session instead of spawning the real processes")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	runtimeDir := flag.String("runtime", "", "Override runtime directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *runtimeDir != "" {
		cfg.RuntimeDir = *runtimeDir
	}

	store, err := docstore.New(cfg.RuntimeDir)
	if err != nil {
		log.Fatalf("Failed to create runtime dir: %v", err)
	}

	// History is best-effort: a broken sqlite file should not keep the
	// lab from running a session.
	var hist *history.Store
	var rec supervisor.Recorder
	if h, err := history.Open(cfg.HistoryDB); err != nil {
		log.Printf("session history disabled: %v", err)
	} else {
		hist = h
		rec = h
		defer hist.Close()
	}

	sup := supervisor.New(cfg.Processes, store, rec)
	prober := discovery.NewProber(cfg.Processes.Python, cfg.Discovery.Script, cfg.Discovery.Timeout)
	broadcaster := ws.NewBroadcaster(store, cfg.Broadcast.SnapshotInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go broadcaster.Run(ctx)

	if *mockMode {
		log.Println("starting in mock mode, simulating a session")
		sim := mock.NewSimulator(store, mock.DemoConfig())
		sim.Start(ctx)
	}

	server := api.NewServer(sup, store, prober, hist, broadcaster)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down, stopping session processes")
		if err := sup.Stop(); err != nil {
			log.Printf("stop on shutdown: %v", err)
		}
		cancel()
		os.Exit(0)
	}()

	if err := api.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
