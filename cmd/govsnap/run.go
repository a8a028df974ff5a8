package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/govsnap/internal/duckdb"
	"github.com/tinytelemetry/govsnap/internal/graphql"
	"github.com/tinytelemetry/govsnap/internal/httpserver"
	"github.com/tinytelemetry/govsnap/internal/model"
	"github.com/tinytelemetry/govsnap/internal/publish"
	"github.com/tinytelemetry/govsnap/internal/snapshot"
)

// runExport performs one export run and, when the API is enabled, keeps
// serving the staged tables until interrupted.
func runExport(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	client := graphql.NewClient(cfg.Endpoint,
		graphql.WithTimeout(cfg.RequestTimeout),
		graphql.WithRetryConfig(cfg.retryConfig()),
	)
	fetcher := snapshot.NewFetcher(client, snapshot.FetcherConfig{
		ProposalPageSize: cfg.ProposalPageSize,
		VotePageSize:     cfg.VotePageSize,
	})
	orchestrator, err := snapshot.NewOrchestrator(fetcher, store, snapshot.Config{
		Spaces:         cfg.Spaces,
		NamespaceDelay: cfg.NamespaceDelay,
		OutputDir:      cfg.OutputDir,
	})
	if err != nil {
		return err
	}

	publisher, err := publish.NewManager(publish.Config{
		Dir:            cfg.OutputDir,
		KeepLast:       cfg.KeepLast,
		BucketURL:      cfg.BucketURL,
		S3Endpoint:     cfg.S3Endpoint,
		S3Region:       cfg.S3Region,
		S3AccessKey:    cfg.S3AccessKey,
		S3SecretKey:    cfg.S3SecretKey,
		S3SessionToken: cfg.S3SessionToken,
		S3UseSSL:       cfg.S3UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)
	log.Printf("govsnap: starting run for %d spaces against %s", len(cfg.Spaces), client.Endpoint())

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		log.Printf("govsnap: run failed: %v", err)
		return err
	}

	files := []string{summary.ProposalsPath, summary.VotesPath}
	if cfg.DBSnapshot {
		dst := filepath.Join(cfg.OutputDir, model.StagingFilePrefix+summary.Stamp+".duckdb")
		if err := store.SnapshotTo(dst); err != nil {
			return fmt.Errorf("snapshot staging database: %w", err)
		}
		files = append(files, dst)
	}

	if publisher != nil {
		if err := publisher.Publish(ctx, files...); err != nil {
			return fmt.Errorf("publish exports: %w", err)
		}
	}

	printRunSummary(summary, files)
	log.Printf("govsnap: run %s finished in %s", summary.RunID, summary.Duration.Round(time.Millisecond))

	if !cfg.APIEnabled {
		return nil
	}
	return serveAPI(ctx, cfg, store, summary.RunID)
}

// serveAPI exposes the staged tables until ctx is cancelled.
func serveAPI(ctx context.Context, cfg appConfig, store *duckdb.Store, runID string) error {
	apiServer := httpserver.NewServer(cfg.APIAddr, store, runID)
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	fmt.Println(dimStyle.Render("    Serving read API on ") + cyanStyle.Render(apiServer.Addr()) +
		dimStyle.Render(", press ") + yellowStyle.Render("Ctrl+C") + dimStyle.Render(" to stop"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Serve)
	g.Go(func() error {
		<-gctx.Done()
		return apiServer.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Printf("govsnap: API server: %v", err)
		return err
	}
	return nil
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "govsnap")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "govsnap.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
