package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/rs/zerolog"
)

// flushEvery controls how often streamed exports flush to the client
const flushEvery = 100

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamSubscribers streams subscribers as csv, ndjson or json
func (s *exportService) StreamSubscribers(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting subscribers export")

	stream := func(fn func(*models.Subscriber) error) error {
		return s.repos.Subscriber.StreamAll(ctx, fn)
	}
	switch format {
	case "csv":
		return s.streamSubscribersCSV(w, stream)
	case "ndjson":
		return streamNDJSON(s.log, w, "subscribers", stream)
	case "json":
		return streamJSON(w, "subscribers", stream)
	default:
		return fmt.Errorf("%w: unsupported format %s", ErrInvalidInput, format)
	}
}

// StreamPosts streams posts as ndjson or json
func (s *exportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting posts export")

	stream := func(fn func(*models.Post) error) error {
		return s.repos.Post.StreamAll(ctx, fn)
	}
	switch format {
	case "ndjson":
		return streamNDJSON(s.log, w, "posts", stream)
	case "json":
		return streamJSON(w, "posts", stream)
	default:
		return fmt.Errorf("%w: unsupported format %s", ErrInvalidInput, format)
	}
}

// StreamComments streams comments as ndjson or json
func (s *exportService) StreamComments(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting comments export")

	stream := func(fn func(*models.Comment) error) error {
		return s.repos.Comment.StreamAll(ctx, fn)
	}
	switch format {
	case "ndjson":
		return streamNDJSON(s.log, w, "comments", stream)
	case "json":
		return streamJSON(w, "comments", stream)
	default:
		return fmt.Errorf("%w: unsupported format %s", ErrInvalidInput, format)
	}
}

func (s *exportService) streamSubscribersCSV(w http.ResponseWriter, stream func(func(*models.Subscriber) error) error) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=subscribers.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"id", "email", "tech", "life", "spirit", "active", "subscribed_at", "confirmed_at"})

	return stream(func(sub *models.Subscriber) error {
		confirmed := ""
		if sub.ConfirmedAt != nil {
			confirmed = sub.ConfirmedAt.UTC().Format(time.RFC3339)
		}
		return writer.Write([]string{
			sub.ID,
			sub.Email,
			strconv.FormatBool(sub.Tech),
			strconv.FormatBool(sub.Life),
			strconv.FormatBool(sub.Spirit),
			strconv.FormatBool(sub.Active),
			sub.SubscribedAt.UTC().Format(time.RFC3339),
			confirmed,
		})
	})
}

func streamNDJSON[T any](log zerolog.Logger, w http.ResponseWriter, name string, stream func(func(T) error) error) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := stream(func(record T) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		if count%flushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	log.Info().Str("resource", name).Int("count", count).Msg("Export completed")
	return err
}

func streamJSON[T any](w http.ResponseWriter, name string, stream func(func(T) error) error) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".json")

	w.Write([]byte("["))
	first := true

	err := stream(func(record T) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "posts":
		return s.repos.Post.Count(ctx)
	case "pages":
		return s.repos.Page.Count(ctx)
	case "comments":
		return s.repos.Comment.Count(ctx)
	case "subscribers":
		return s.repos.Subscriber.Count(ctx)
	default:
		return 0, fmt.Errorf("%w: unknown resource %s", ErrInvalidInput, resource)
	}
}
