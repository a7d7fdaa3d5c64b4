// Package service drives the per-city extract-transform-load pipeline:
// fetch all listing pages, map records to the columnar schema, write one
// Parquet file, upload it into the partitioned layout. Cities are
// independent units of work; one city failing never stops another.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xde719/pandaflow/internal/api"
	"github.com/xde719/pandaflow/internal/columnar"
	"github.com/xde719/pandaflow/internal/domain"
	"github.com/xde719/pandaflow/internal/logger"
	"github.com/xde719/pandaflow/internal/transform"
	"github.com/xde719/pandaflow/internal/uploader"
)

// ExtractService orchestrates city jobs for one run.
type ExtractService struct {
	api      *api.Client
	writer   *columnar.Writer
	uploader *uploader.Uploader
	logger   *logger.Logger

	workers         int
	maxDropFraction float64
	rawSnapshots    bool
}

// ExtractConfig holds orchestrator settings.
type ExtractConfig struct {
	Workers         int
	MaxDropFraction float64
	RawSnapshots    bool
}

// NewExtractService wires the pipeline stages together.
func NewExtractService(
	apiClient *api.Client,
	writer *columnar.Writer,
	up *uploader.Uploader,
	log *logger.Logger,
	cfg *ExtractConfig,
) *ExtractService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &ExtractService{
		api:             apiClient,
		writer:          writer,
		uploader:        up,
		logger:          log,
		workers:         workers,
		maxDropFraction: cfg.MaxDropFraction,
		rawSnapshots:    cfg.RawSnapshots,
	}
}

// RunSummary aggregates the terminal state of every city job in a run.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Succeeded      int
	Failed         int
	DroppedRecords int
	Jobs           []*domain.CityJob
}

// AllSucceeded reports whether every city reached Done.
func (s *RunSummary) AllSucceeded() bool {
	return s.Failed == 0
}

// Run processes every configured city and drains all jobs to a terminal
// state before returning, even when ctx is cancelled mid-run. The summary
// always covers every city.
func (s *ExtractService) Run(ctx context.Context, cities []string) *RunSummary {
	runID := uuid.New().String()
	runStart := time.Now().UTC()

	ctx = logger.SetRunID(s.logger.WithContext(ctx), runID)
	log := logger.FromContext(ctx)

	log.WithFields(logger.Fields{
		"cities":  len(cities),
		"workers": s.workers,
	}).Info("Starting extraction run")

	jobsChan := make(chan string)
	resultsChan := make(chan *domain.CityJob, len(cities))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cityID := range jobsChan {
				resultsChan <- s.processCity(ctx, cityID, runStart)
			}
		}()
	}

	for _, cityID := range cities {
		jobsChan <- cityID
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	summary := &RunSummary{
		RunID:     runID,
		StartedAt: runStart,
	}
	for job := range resultsChan {
		summary.Jobs = append(summary.Jobs, job)
		summary.DroppedRecords += job.DroppedCount
		if job.Status == domain.JobDone {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.FinishedAt = time.Now().UTC()

	log.WithFields(logger.Fields{
		"succeeded":            summary.Succeeded,
		"failed":               summary.Failed,
		logger.FieldDropped:    summary.DroppedRecords,
		logger.FieldDurationMs: summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	}).Info("Extraction run completed")

	return summary
}

// processCity runs one city job through all pipeline stages and always
// returns a job in a terminal state.
func (s *ExtractService) processCity(ctx context.Context, cityID string, runStart time.Time) *domain.CityJob {
	job := domain.NewCityJob(cityID)
	ctx = logger.SetCityID(ctx, cityID)
	log := logger.FromContext(ctx)

	// Fetch all pages in cursor order; pagination is stateful upstream.
	job.Status = domain.JobFetching
	var records []domain.VendorRecord
	var fetchTimes []time.Time
	cursor := ""
	for {
		page, attempts, err := s.api.FetchPage(ctx, cityID, cursor)
		job.AttemptCount += attempts
		if err != nil {
			log.WithError(err).Error("City fetch failed")
			job.Fail(err)
			return job
		}
		records = append(records, page.Vendors...)
		for range page.Vendors {
			fetchTimes = append(fetchTimes, page.FetchedAt)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	log.WithField("vendors", len(records)).Info("City fetch completed")

	// Transform each record; invalid records are dropped and counted.
	job.Status = domain.JobTransforming
	rows := make([]domain.VendorRow, 0, len(records))
	for i, record := range records {
		row, err := transform.Vendor(record, cityID, fetchTimes[i])
		if err != nil {
			job.DroppedCount++
			log.WithError(err).Debug("Dropped vendor record")
			continue
		}
		rows = append(rows, row)
	}

	// A high drop rate means the upstream schema moved under us; shipping
	// a near-empty partition would silently poison downstream queries.
	if len(records) > 0 {
		fraction := float64(job.DroppedCount) / float64(len(records))
		if fraction > s.maxDropFraction {
			err := fmt.Errorf("systemic transform failure: dropped %d of %d records (%.0f%%)",
				job.DroppedCount, len(records), fraction*100)
			log.WithError(err).Error("City transform failed")
			job.Fail(err)
			return job
		}
	}
	job.RowCount = len(rows)

	localPath, err := s.writer.WriteCity(cityID, runStart, rows)
	if err != nil {
		log.WithError(err).Error("City columnar write failed")
		job.Fail(err)
		return job
	}
	job.LocalPath = localPath

	// Upload into the partition derived from the run start, so a fetch loop
	// crossing midnight stays in one partition. Local files are retained on
	// failure for manual recovery.
	job.Status = domain.JobUploading
	partition := uploader.NewPartitionKey(cityID, runStart)
	objectKey, err := s.uploader.Upload(ctx, localPath, partition, runStart, "parquet", "application/x-parquet")
	if err != nil {
		log.WithError(err).Error("City upload failed")
		job.Fail(err)
		return job
	}
	job.ObjectKey = objectKey

	if s.rawSnapshots {
		s.uploadRawSnapshot(ctx, cityID, partition, runStart, records)
	}

	job.Complete()
	log.WithFields(logger.Fields{
		logger.FieldRows:    job.RowCount,
		logger.FieldDropped: job.DroppedCount,
		"object_key":        job.ObjectKey,
	}).Info("City job completed")

	return job
}

// uploadRawSnapshot writes and uploads the raw JSON sidecar. Best effort:
// the parquet object is already durable, so a sidecar failure only warns.
func (s *ExtractService) uploadRawSnapshot(ctx context.Context, cityID string, partition uploader.PartitionKey, runStart time.Time, records []domain.VendorRecord) {
	log := logger.FromContext(ctx)

	path, err := s.writer.WriteRawJSON(cityID, runStart, records)
	if err != nil {
		log.WithError(err).Warn("Raw snapshot write failed")
		return
	}
	if _, err := s.uploader.Upload(ctx, path, partition, runStart, "json", "application/json"); err != nil {
		log.WithError(err).Warn("Raw snapshot upload failed")
	}
}
