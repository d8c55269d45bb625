package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
	"github.com/silvestred/nba-team-ats-trends-scrape/httputil"
	"github.com/silvestred/nba-team-ats-trends-scrape/logging"
	"github.com/silvestred/nba-team-ats-trends-scrape/scheduler"
	"github.com/silvestred/nba-team-ats-trends-scrape/scraper"
	"github.com/silvestred/nba-team-ats-trends-scrape/server"
	"github.com/silvestred/nba-team-ats-trends-scrape/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run ingestion once and exit")
	leagueID  = flag.String("league", "", "Restrict -scrape to one league")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting ats-trends ingestion...")
	log.Printf("Loaded %d league configs", len(cfg.Leagues))
	for id, league := range cfg.Leagues {
		log.Printf("  - %s (%s) mapping v%d enabled=%v", id, league.Name, league.Mapping.Version, league.IsEnabled())
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	client := httputil.NewScrapingClient(&cfg.Fetch)
	orchestrator := scraper.NewOrchestrator(cfg, store, client)

	if cfg.Archive.Enabled() {
		archiver, err := storage.NewArchiver(ctx, &cfg.Archive)
		if err != nil {
			log.Printf("Warning: raw page archiving disabled: %v", err)
		} else {
			orchestrator.SetArchiver(archiver)
			log.Printf("Raw page archiving to s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
		}
	}

	if *scrapeNow {
		runOnce(ctx, orchestrator, *leagueID)
		return
	}

	// Daemon mode: scheduled ingestion plus the read-only ops facade.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, orchestrator)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	ops := server.New(&cfg.Server, store)
	go ops.Start()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ops server shutdown: %v", err)
	}
	log.Println("Goodbye!")
}

func runOnce(ctx context.Context, orchestrator *scraper.Orchestrator, league string) {
	log.Println("Running ingestion...")

	var err error
	if league != "" {
		err = orchestrator.RunLeague(ctx, league)
	} else {
		err = orchestrator.RunAll(ctx)
	}
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}
	log.Println("Ingestion complete!")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		log.Printf("SQLite store: %s", cfg.Storage.SQLitePath)
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	default:
		log.Printf("Postgres store: %s", maskConnectionString(cfg.Storage.DatabaseURL))
		return storage.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
	}
}

// maskConnectionString masks the password in a connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
