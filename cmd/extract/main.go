package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xde719/pandaflow/internal/api"
	"github.com/xde719/pandaflow/internal/columnar"
	"github.com/xde719/pandaflow/internal/config"
	"github.com/xde719/pandaflow/internal/logger"
	"github.com/xde719/pandaflow/internal/ratelimit"
	"github.com/xde719/pandaflow/internal/retry"
	"github.com/xde719/pandaflow/internal/service"
	"github.com/xde719/pandaflow/internal/storage"
	"github.com/xde719/pandaflow/internal/uploader"
)

// main delegates to run so deferred cleanup executes before the process
// exits; os.Exit would skip it.
func main() {
	os.Exit(run())
}

func run() int {
	appLogger := logger.New(logger.FromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	cities := flag.String("cities", "", "Comma-separated city ids, overrides the configured list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Error("Failed to load config")
		return 1
	}

	cityList := cfg.Cities
	if *cities != "" {
		cityList = splitCities(*cities)
		if len(cityList) == 0 {
			appLogger.Error("No city ids in -cities override")
			return 1
		}
	}

	store, err := storage.NewStore(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize storage")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.EnsureBucket(ctx, storage.StorageType(cfg.Storage.Type)); err != nil {
		appLogger.WithError(err).Error("Failed to ensure storage bucket")
		return 1
	}

	policy := retry.Policy{
		MaxRetries: cfg.Pipeline.MaxRetries,
		BaseDelay:  cfg.Pipeline.BaseDelay,
		MaxDelay:   cfg.Pipeline.MaxDelay,
	}
	limiter := ratelimit.New(cfg.Pipeline.MaxConcurrent, cfg.Pipeline.MaxRequestsPerWindow, cfg.Pipeline.Window)

	apiClient := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Headers:        cfg.API.Headers,
		PageSize:       cfg.API.PageSize,
		AttemptTimeout: cfg.API.AttemptTimeout,
	}, limiter, policy)

	extractService := service.NewExtractService(
		apiClient,
		columnar.NewWriter(cfg.Pipeline.OutputDir),
		uploader.New(store, policy, cfg.Pipeline.UploadAttemptTimeout),
		appLogger,
		&service.ExtractConfig{
			Workers:         cfg.Pipeline.Workers,
			MaxDropFraction: cfg.Pipeline.MaxDropFraction,
			RawSnapshots:    cfg.Pipeline.RawSnapshots,
		},
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	summary := extractService.Run(ctx, cityList)

	for _, job := range summary.Jobs {
		entry := appLogger.WithFields(logger.Fields{
			logger.FieldCityID:  job.CityID,
			logger.FieldStatus:  string(job.Status),
			logger.FieldRows:    job.RowCount,
			logger.FieldDropped: job.DroppedCount,
		})
		if job.LastError != nil {
			entry.WithError(job.LastError).Error("City job failed")
		} else {
			entry.Info("City job succeeded")
		}
	}

	if !summary.AllSucceeded() {
		return 1
	}
	return 0
}

// splitCities parses a comma-separated city list, trimming whitespace and
// dropping empty entries.
func splitCities(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
