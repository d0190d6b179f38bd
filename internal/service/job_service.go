package service

import (
	"context"
	"errors"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxJobErrors bounds the errors inlined in a job response
const maxJobErrors = 100

// ImportRequest describes an uploaded export file
type ImportRequest struct {
	FileName       string
	FilePath       string
	IdempotencyKey string
}

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo  repository.JobRepository
	importer ImportService
	log      zerolog.Logger
}

// newJobService creates a JobService that runs imports in the caller's goroutine
func newJobService(jobRepo repository.JobRepository, importer ImportService, log zerolog.Logger) *jobService {
	return &jobService{
		jobRepo:  jobRepo,
		importer: importer,
		log:      log.With().Str("service", "job").Logger(),
	}
}

// CreateAndRun records a job for the file and imports it. A repeated
// idempotency key returns the earlier job without importing again.
func (s *jobService) CreateAndRun(ctx context.Context, req ImportRequest) (*models.ImportJob, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.jobRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Info().Str("job_id", existing.ID).Str("idempotency_key", req.IdempotencyKey).Msg("Returning existing job")
			return existing, nil
		}
	}

	job := &models.ImportJob{
		ID:             uuid.New().String(),
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FileName:       req.FileName,
		FilePath:       req.FilePath,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicate) && req.IdempotencyKey != "" {
			return s.jobRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	s.log.Info().Str("job_id", job.ID).Str("file", job.FileName).Msg("Import job created")
	s.run(ctx, job)
	return job, nil
}

// run processes the job and persists its outcome
func (s *jobService) run(ctx context.Context, job *models.ImportJob) {
	startTime := time.Now()
	started := startTime.UTC()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &started
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job as processing")
	}

	report, err := s.importer.ImportFile(ctx, job.FilePath)
	if report != nil {
		job.ApplyReport(report, report.ItemCount())
	}

	job.DurationMs = time.Since(startTime).Milliseconds()
	completed := time.Now().UTC()
	job.CompletedAt = &completed

	if err != nil {
		job.Status = models.JobStatusFailed
		job.Failure = err.Error()
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("total", job.TotalItems).
			Int("created", job.CreatedCount).
			Int("skipped", job.SkippedCount).
			Int("errored", job.ErroredCount).
			Int("ignored", job.IgnoredCount).
			Int64("duration_ms", job.DurationMs).
			Msg("Import job completed")
	}

	if report != nil && len(report.Errors) > 0 {
		if err := s.jobRepo.AddErrors(ctx, job.ID, report.Errors); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to store job errors")
		}
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to store job result")
	}
}

// GetJob retrieves a job by ID
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}

	response := &models.JobResponse{ImportJob: *job}
	if job.ErroredCount > 0 {
		response.ErrorReport = "/v1/imports/" + job.ID + "/errors"
	}
	if response.Report != nil && len(response.Report.Errors) > maxJobErrors {
		trimmed := *response.Report
		trimmed.Errors = trimmed.Errors[:maxJobErrors]
		response.Report = &trimmed
	}
	return response, nil
}

// GetJobByIdempotencyKey returns nil when no job used the key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors returns every recorded error for the job
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.ImportError, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return s.jobRepo.GetErrors(ctx, id, 0)
}
