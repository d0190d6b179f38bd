package models

import (
	"fmt"
	"time"
)

// JobStatus represents the status of an import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// EntityKind names a kind of imported record
type EntityKind string

const (
	KindPost     EntityKind = "post"
	KindPage     EntityKind = "page"
	KindComment  EntityKind = "comment"
	KindCategory EntityKind = "category"
	KindTag      EntityKind = "tag"
)

// EntityCounts tallies outcomes for one entity kind
type EntityCounts struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// ImportError describes one record that could not be imported
type ImportError struct {
	Kind    EntityKind `json:"kind"`
	Ref     string     `json:"ref"`
	Message string     `json:"message"`
}

func (e ImportError) String() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Ref, e.Message)
}

// ImportReport is the outcome of importing one export document
type ImportReport struct {
	Posts      EntityCounts `json:"posts"`
	Pages      EntityCounts `json:"pages"`
	Comments   EntityCounts `json:"comments"`
	Categories EntityCounts `json:"categories"`
	Tags       EntityCounts `json:"tags"`
	// Ignored counts items of unsupported kinds such as attachments.
	Ignored int `json:"ignored"`
	// Notified aggregates fan-outs for newly published posts, when enabled.
	Notified DispatchResult `json:"notified"`
	Errors   []ImportError  `json:"errors"`
}

// Counts returns the tally for a kind
func (r *ImportReport) Counts(kind EntityKind) *EntityCounts {
	switch kind {
	case KindPost:
		return &r.Posts
	case KindPage:
		return &r.Pages
	case KindComment:
		return &r.Comments
	case KindCategory:
		return &r.Categories
	case KindTag:
		return &r.Tags
	}
	return nil
}

// Created increments the created count for kind
func (r *ImportReport) Created(kind EntityKind) {
	r.Counts(kind).Created++
}

// Skipped increments the skipped count for kind
func (r *ImportReport) Skipped(kind EntityKind) {
	r.Counts(kind).Skipped++
}

// Fail records a per-record failure
func (r *ImportReport) Fail(kind EntityKind, ref string, err error) {
	r.Counts(kind).Errored++
	r.Errors = append(r.Errors, ImportError{Kind: kind, Ref: ref, Message: err.Error()})
}

// Totals sums every entity kind
func (r *ImportReport) Totals() EntityCounts {
	var t EntityCounts
	for _, c := range []EntityCounts{r.Posts, r.Pages, r.Comments, r.Categories, r.Tags} {
		t.Created += c.Created
		t.Skipped += c.Skipped
		t.Errored += c.Errored
	}
	return t
}

// ItemCount is the number of document items the report accounts for
func (r *ImportReport) ItemCount() int {
	n := r.Ignored
	for _, c := range []EntityCounts{r.Posts, r.Pages} {
		n += c.Created + c.Skipped + c.Errored
	}
	return n
}

// ImportJob tracks an uploaded export document through import
type ImportJob struct {
	ID             string        `json:"job_id" db:"id"`
	Status         JobStatus     `json:"status" db:"status"`
	IdempotencyKey string        `json:"idempotency_key,omitempty" db:"idempotency_key"`
	FileName       string        `json:"file_name" db:"file_name"`
	FilePath       string        `json:"-" db:"file_path"`
	TotalItems     int           `json:"total_items" db:"total_items"`
	CreatedCount   int           `json:"created" db:"created_count"`
	SkippedCount   int           `json:"skipped" db:"skipped_count"`
	ErroredCount   int           `json:"errored" db:"errored_count"`
	IgnoredCount   int           `json:"ignored" db:"ignored_count"`
	DurationMs     int64         `json:"duration_ms,omitempty" db:"duration_ms"`
	Report         *ImportReport `json:"report,omitempty" db:"report"`
	Failure        string        `json:"failure,omitempty" db:"failure"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// ApplyReport copies report totals onto the job counters
func (j *ImportJob) ApplyReport(r *ImportReport, totalItems int) {
	t := r.Totals()
	j.Report = r
	j.TotalItems = totalItems
	j.CreatedCount = t.Created
	j.SkippedCount = t.Skipped
	j.ErroredCount = t.Errored
	j.IgnoredCount = r.Ignored
}

// JobResponse is the API response for job status
type JobResponse struct {
	ImportJob
	ErrorReport string `json:"error_report_url,omitempty"`
}
