package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/liquideth/vaultstat/internal/api"
	"github.com/liquideth/vaultstat/internal/category"
	"github.com/liquideth/vaultstat/internal/config"
	"github.com/liquideth/vaultstat/internal/database"
	"github.com/liquideth/vaultstat/internal/debank"
	"github.com/liquideth/vaultstat/internal/domain"
	"github.com/liquideth/vaultstat/internal/export"
	"github.com/liquideth/vaultstat/internal/fetcher"
	"github.com/liquideth/vaultstat/internal/offchain"
	"github.com/liquideth/vaultstat/internal/oracle"
	"github.com/liquideth/vaultstat/internal/pipeline"
	"github.com/liquideth/vaultstat/internal/registry"
	"github.com/liquideth/vaultstat/internal/sheets"
	"github.com/liquideth/vaultstat/internal/snapshot"
	"github.com/liquideth/vaultstat/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "vaultstat",
		Usage: "aggregates vault positions across chains and protocols",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the periodic refresh worker",
				Action: runServe,
			},
			{
				Name:  "refresh",
				Usage: "run one refresh cycle and print the result as JSON",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "chain", Usage: "filter by chain display name"},
					&cli.StringSliceFlag{Name: "wallet", Usage: "filter wallets by substring"},
					&cli.StringSliceFlag{Name: "token", Usage: "filter tokens by substring"},
				},
				Action: runRefresh,
			},
			{
				Name:  "export",
				Usage: "write a day's wallet snapshot to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "snapshot day (YYYY-MM-DD)", Required: true},
					&cli.StringFlag{Name: "out", Usage: "output path (.csv or .xlsx)", Required: true},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// services bundles everything the commands share.
type services struct {
	pipeline  *pipeline.Service
	snapshots *snapshot.Service
	cleanup   func()
}

func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	if cfg.SpreadsheetID == "" || cfg.GoogleCredentials == "" {
		return nil, fmt.Errorf("SHEET_ID and GOOGLE_CREDENTIALS_JSON are required")
	}

	sheetClient, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	cleanup := func() {}
	var repo snapshot.Repository
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		repo = snapshot.NewPgRepository(pool)
		cleanup = pool.Close
	} else {
		slog.Info("DATABASE_URL not set, storing snapshots in the spreadsheet")
		repo, err = snapshot.NewSheetsRepository(ctx, sheetClient, cfg.HistorySheet, cfg.WalletHistorySheet)
		if err != nil {
			return nil, fmt.Errorf("creating sheets snapshot repository: %w", err)
		}
	}

	debankClient := debank.NewClient(cfg.DebankURL, cfg.DebankAccessKey, cfg.DebankRetryMax, cfg.DebankRetryBaseDelay)
	fetchSvc := fetcher.NewService(debankClient, domain.SupportedChainIDs(), cfg.FetchCacheTTL)

	walletLoader := registry.NewLoader(sheetClient, cfg.WalletSheet)
	ruleLoader := category.NewRuleLoader(sheetClient, cfg.CategorySheet)

	var offchainLoader pipeline.OffChainSource
	if cfg.DuneAPIKey != "" && cfg.DuneQueryID != "" {
		dune := oracle.NewDuneClient(cfg.DuneURL, cfg.DuneAPIKey, cfg.DuneQueryID)
		offchainLoader = offchain.NewLoader(sheetClient, dune, cfg.OffChainSheet)
	} else {
		slog.Info("Dune credentials not set, skipping off-chain balances")
	}

	snapshotSvc := snapshot.NewService(repo)
	pipelineSvc := pipeline.NewService(fetchSvc, walletLoader, ruleLoader, offchainLoader, snapshotSvc)

	return &services{
		pipeline:  pipelineSvc,
		snapshots: snapshotSvc,
		cleanup:   cleanup,
	}, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.cleanup()

	refreshWorker := worker.NewRefreshWorker(svcs.pipeline, cfg.RefreshInterval)
	go refreshWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, svcs.pipeline, svcs.snapshots, cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runRefresh(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.cleanup()

	res, err := svcs.pipeline.Refresh(ctx, pipeline.Options{
		Chains:  c.StringSlice("chain"),
		Wallets: c.StringSlice("wallet"),
		Tokens:  c.StringSlice("token"),
	})
	if err != nil {
		return fmt.Errorf("refreshing: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runExport(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	day, err := time.Parse("2006-01-02", c.String("date"))
	if err != nil {
		return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
	}
	out := c.String("out")

	cfg := config.Load()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.cleanup()

	rows, err := svcs.snapshots.LoadWalletSnapshot(ctx, day)
	if err != nil {
		return fmt.Errorf("loading wallet snapshot: %w", err)
	}
	if rows == nil {
		return fmt.Errorf("no wallet snapshot for %s", c.String("date"))
	}

	var data []byte
	switch {
	case len(out) > 5 && out[len(out)-5:] == ".xlsx":
		data, err = export.WalletXLSX(rows)
	default:
		data, err = export.WalletCSV(rows)
	}
	if err != nil {
		return fmt.Errorf("rendering export: %w", err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	log.Printf("wrote %d rows to %s", len(rows), out)
	return nil
}
