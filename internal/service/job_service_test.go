package service_test

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/google/uuid"
)

func writeExport(t *testing.T, dir, name string, items ...testItem) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(wxrXML(items...)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJobService_CreateAndRun(t *testing.T) {
	h := newHarness(t)
	path := writeExport(t, t.TempDir(), "export.xml",
		helloWorld(), aboutPage(), attachment(),
		testItem{ID: "bad", Title: "Broken"},
	)

	job, err := h.svc.Job.CreateAndRun(context.Background(), service.ImportRequest{
		FileName: "export.xml",
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("CreateAndRun failed: %v", err)
	}

	if job.Status != models.JobStatusCompleted {
		t.Fatalf("Expected completed, got %s (%s)", job.Status, job.Failure)
	}
	if job.TotalItems != 4 {
		t.Errorf("Expected 4 items, got %d", job.TotalItems)
	}
	// post, page, two comments, two categories, one tag
	if job.CreatedCount != 7 {
		t.Errorf("Expected 7 created, got %d", job.CreatedCount)
	}
	if job.ErroredCount != 1 || job.IgnoredCount != 1 {
		t.Errorf("Expected 1 errored and 1 ignored, got %d and %d", job.ErroredCount, job.IgnoredCount)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("Expected start and completion timestamps")
	}
	if got := h.store.Jobs.Errors[job.ID]; len(got) != 1 || got[0].Ref != `bad "Broken"` {
		t.Errorf("Expected stored error for bad item, got %v", got)
	}

	resp, err := h.svc.Job.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if resp.ErrorReport != "/v1/imports/"+job.ID+"/errors" {
		t.Errorf("Unexpected error report url %q", resp.ErrorReport)
	}

	errs, err := h.svc.Job.GetJobErrors(context.Background(), job.ID)
	if err != nil || len(errs) != 1 {
		t.Errorf("Expected 1 job error, got %d (%v)", len(errs), err)
	}
}

func TestJobService_Idempotency(t *testing.T) {
	h := newHarness(t)
	path := writeExport(t, t.TempDir(), "export.xml", helloWorld())
	req := service.ImportRequest{FileName: "export.xml", FilePath: path, IdempotencyKey: "upload-1"}

	first, err := h.svc.Job.CreateAndRun(context.Background(), req)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := h.svc.Job.CreateAndRun(context.Background(), req)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same job for repeated key, got %s and %s", first.ID, second.ID)
	}
	if len(h.store.Jobs.Jobs) != 1 {
		t.Errorf("Expected 1 job, got %d", len(h.store.Jobs.Jobs))
	}

	found, err := h.svc.Job.GetJobByIdempotencyKey(context.Background(), "upload-1")
	if err != nil || found == nil || found.ID != first.ID {
		t.Errorf("Expected lookup by key to find the job, got %v (%v)", found, err)
	}
}

func TestJobService_MalformedFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "broken.xml")
	if err := os.WriteFile(path, []byte("<rss><channel>"), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := h.svc.Job.CreateAndRun(context.Background(), service.ImportRequest{FileName: "broken.xml", FilePath: path})
	if err != nil {
		t.Fatalf("CreateAndRun should record failure on the job, got %v", err)
	}
	if job.Status != models.JobStatusFailed || job.Failure == "" {
		t.Errorf("Expected failed job with reason, got %s %q", job.Status, job.Failure)
	}
	if job.CreatedCount != 0 {
		t.Errorf("Nothing should be created, got %d", job.CreatedCount)
	}
}

func TestJobService_GetJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", uuid.New().String()} {
		if _, err := h.svc.Job.GetJob(ctx, id); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("GetJob(%q): expected ErrNotFound, got %v", id, err)
		}
		if _, err := h.svc.Job.GetJobErrors(ctx, id); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("GetJobErrors(%q): expected ErrNotFound, got %v", id, err)
		}
	}

	report := &models.ImportReport{}
	for i := 0; i < 150; i++ {
		report.Fail(models.KindPost, fmt.Sprint(i), errors.New("bad"))
	}
	job := &models.ImportJob{ID: uuid.New().String(), Status: models.JobStatusCompleted, CreatedAt: time.Now()}
	job.ApplyReport(report, 150)
	h.store.Jobs.Jobs[job.ID] = job

	resp, err := h.svc.Job.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if len(resp.Report.Errors) != 100 {
		t.Errorf("Expected inline errors capped at 100, got %d", len(resp.Report.Errors))
	}
	if len(job.Report.Errors) != 150 {
		t.Error("Stored report must not be trimmed")
	}
}

func TestExportService_SubscribersCSV(t *testing.T) {
	h := newHarness(t)
	h.subscriber("b@example.com", true, models.TopicTech)
	h.subscriber("a@example.com", false, models.TopicLife, models.TopicSpirit)

	w := httptest.NewRecorder()
	if err := h.svc.Export.StreamSubscribers(context.Background(), w, "csv"); err != nil {
		t.Fatalf("StreamSubscribers failed: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	rows, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "email" || rows[1][1] != "a@example.com" {
		t.Errorf("Unexpected rows: %v", rows[:2])
	}
	if rows[1][2] != "false" || rows[1][3] != "true" || rows[1][5] != "false" {
		t.Errorf("Unexpected flags for a@example.com: %v", rows[1])
	}
}

func TestExportService_PostsNDJSON(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.post(fmt.Sprintf("Post %d", i), models.PostStatusPublished)
	}

	w := httptest.NewRecorder()
	if err := h.svc.Export.StreamPosts(context.Background(), w, "ndjson"); err != nil {
		t.Fatalf("StreamPosts failed: %v", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	count := 0
	for scanner.Scan() {
		var p models.Post
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			t.Fatalf("Line %d is not JSON: %v", count+1, err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("Expected 3 lines, got %d", count)
	}
}

func TestExportService_CommentsJSON(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.Import.ImportDocument(context.Background(), parseDoc(t, helloWorld())); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	if err := h.svc.Export.StreamComments(context.Background(), w, "json"); err != nil {
		t.Fatalf("StreamComments failed: %v", err)
	}
	var comments []models.Comment
	if err := json.Unmarshal(w.Body.Bytes(), &comments); err != nil {
		t.Fatalf("Invalid JSON array: %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("Expected 2 comments, got %d", len(comments))
	}
}

func TestExportService_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.svc.Export.StreamPosts(ctx, httptest.NewRecorder(), "csv"); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for posts csv, got %v", err)
	}
	if _, err := h.svc.Export.GetCount(ctx, "users"); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown resource, got %v", err)
	}

	h.subscriber("a@example.com", true, models.TopicTech)
	if n, err := h.svc.Export.GetCount(ctx, "subscribers"); err != nil || n != 1 {
		t.Errorf("Expected 1 subscriber, got %d (%v)", n, err)
	}
}
