package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"feed_importer/api"
	"feed_importer/config"
	"feed_importer/contracts"
	"feed_importer/countries"
	"feed_importer/feeds"
	"feed_importer/httputil"
	"feed_importer/logging"
	"feed_importer/models"
	"feed_importer/services"
	"feed_importer/storage"
)

var (
	input   = flag.String("input", "", "Feed file path, - for stdin, or a URL")
	country = flag.String("country", "", "Country code, name or alias hint")
	format  = flag.String("format", "", "Force a format (generic, reaxml, tr_xml, jsonld, wordpress)")
	tenant  = flag.String("tenant", "default", "Tenant that owns the imported rows")
	dryRun  = flag.Bool("dry-run", false, "Parse and reconcile against an in-memory store")
	serve   = flag.Bool("serve", false, "Run the HTTP API instead of a one-shot import")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout carries the import result, so console logs go to stderr
	logger, closeLogs, err := logging.Setup(logging.Config{
		Level:         cfg.Log.Level,
		File:          cfg.Log.File,
		FileMaxSizeMB: cfg.Log.MaxSizeMB,
		JSON:          cfg.Log.JSON,
		FluentHost:    cfg.Fluent.Host,
		FluentPort:    cfg.Fluent.Port,
		FluentTag:     cfg.Fluent.Tag,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closeLogs()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles := countries.Default()
	if cfg.CountryProfiles != "" {
		if profiles, err = countries.Load(cfg.CountryProfiles); err != nil {
			return err
		}
		logger.Info("loaded country profiles", "path", cfg.CountryProfiles, "count", len(profiles.Profiles()))
	}

	fetcher := httputil.NewFetcher(httputil.FetcherConfig{
		Timeout:    cfg.HTTP.Timeout,
		Retries:    cfg.HTTP.Retries,
		RetryDelay: cfg.HTTP.RetryDelay,
		UserAgent:  cfg.HTTP.UserAgent,
		// URLs submitted over the API come from remote callers
		BlockPrivate: *serve && !cfg.HTTP.AllowPrivate,
	}, logger.With("component", "fetcher"))

	registry := feeds.NewDefaultRegistry(feeds.Options{
		Profiles:       profiles,
		DefaultCountry: cfg.DefaultCountry,
		Fetcher:        fetcher,
		Logger:         logger.With("component", "feeds"),
	})

	validator, err := contracts.NewValidator()
	if err != nil {
		return err
	}

	opts := services.ImporterOptions{
		Concurrency: cfg.ImportConcurrency,
		Validator:   validator,
		Logger:      logger.With("component", "importer"),
	}

	var store services.CatalogStore
	if !*dryRun {
		s, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s

		if cfg.S3.Enabled() {
			archive, err := storage.NewS3Archive(ctx, storage.S3Config{
				Bucket:          cfg.S3.Bucket,
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				Prefix:          cfg.S3.Prefix,
			})
			if err != nil {
				return fmt.Errorf("set up raw archive: %w", err)
			}
			opts.Archive = archive
			logger.Info("raw feeds archived to s3", "bucket", cfg.S3.Bucket)
		}
	}

	importer := services.NewImporter(registry, store, opts)

	if *serve {
		return serveAPI(ctx, cfg, importer, store, profiles, logger)
	}

	content, err := readInput(*input, os.Stdin)
	if err != nil {
		return err
	}

	result, err := importer.Import(ctx, services.ImportRequest{
		TenantID: *tenant,
		Content:  content,
		Country:  *country,
		Format:   models.Format(strings.ToLower(strings.TrimSpace(*format))),
		DryRun:   *dryRun,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// openStore picks Postgres when DATABASE_URL is set and SQLite otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.CatalogStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to postgres", "url", maskConnectionString(cfg.DatabaseURL))
		return pg, pg.Close, nil
	}

	lite, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	logger.Info("using sqlite catalog", "path", cfg.DBPath)
	return lite, func() { lite.Close() }, nil
}

func serveAPI(ctx context.Context, cfg *config.Config, importer *services.Importer, store services.CatalogStore, profiles *countries.Table, logger *slog.Logger) error {
	srvCfg := api.ServerConfig{
		Addr:           cfg.API.Addr,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}
	if p, ok := store.(api.Pinger); ok {
		srvCfg.Health = p
	}
	srv := api.NewServer(srvCfg, importer, profiles, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// readInput returns URLs untouched; strategies fetch them themselves.
func readInput(src string, stdin io.Reader) (string, error) {
	switch {
	case src == "":
		return "", errors.New("-input is required (file path, - for stdin, or URL)")
	case src == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		return src, nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

// maskConnectionString hides the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	return u.Redacted()
}
