package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/rs/zerolog"
)

// StaticUploadsPrefix is where rewritten upload links point
const StaticUploadsPrefix = "/static/uploads/"

const downloadTimeout = 30 * time.Second

// LinkFixOptions controls a link fixing run
type LinkFixOptions struct {
	// DryRun reports changes without saving bodies or downloading files.
	DryRun bool
	// Download fetches each referenced file into the static uploads directory.
	Download bool
	// Hosts overrides the configured legacy hosts.
	Hosts []string
}

// LinkRewrite describes one post or page whose body has legacy links
type LinkRewrite struct {
	Kind  models.EntityKind `json:"kind"`
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Links int               `json:"links"`
	Saved bool              `json:"saved"`
}

// LinkFixReport summarizes a link fixing run
type LinkFixReport struct {
	PostsScanned   int           `json:"posts_scanned"`
	PagesScanned   int           `json:"pages_scanned"`
	Rewrites       []LinkRewrite `json:"rewrites"`
	Downloaded     int           `json:"downloaded"`
	AlreadyPresent int           `json:"already_present"`
	Errors         []string      `json:"errors"`
}

type linkFixService struct {
	repos     *repository.Repositories
	hosts     []string
	staticDir string
	client    *http.Client
	log       zerolog.Logger
}

func newLinkFixService(repos *repository.Repositories, cfg config.ImportConfig, log zerolog.Logger) *linkFixService {
	return &linkFixService{
		repos:     repos,
		hosts:     cfg.LegacyHosts,
		staticDir: cfg.StaticDir,
		client:    &http.Client{Timeout: downloadTimeout},
		log:       log.With().Str("service", "linkfix").Logger(),
	}
}

// uploadPattern matches wp-content upload URLs on the given hosts. The
// first group is the YYYY/MM/file path.
func uploadPattern(hosts []string) *regexp.Regexp {
	quoted := make([]string, 0, len(hosts))
	for _, h := range hosts {
		quoted = append(quoted, regexp.QuoteMeta(h))
	}
	return regexp.MustCompile(`https?://(?:` + strings.Join(quoted, "|") + `)/wp-content/uploads/([0-9]{4}/[0-9]{2}/[^?\s"']+)`)
}

// RewriteUploadLinks replaces legacy upload URLs with static paths. It
// returns the new body and the matched URLs with their upload paths.
func RewriteUploadLinks(pattern *regexp.Regexp, body string) (string, map[string]string) {
	found := make(map[string]string)
	out := pattern.ReplaceAllStringFunc(body, func(url string) string {
		path := pattern.FindStringSubmatch(url)[1]
		found[url] = path
		return StaticUploadsPrefix + path
	})
	return out, found
}

type pendingRewrite struct {
	rewrite LinkRewrite
	body    string
}

// FixLinks scans every post and page body for legacy upload links
func (s *linkFixService) FixLinks(ctx context.Context, opts LinkFixOptions) (*LinkFixReport, error) {
	hosts := opts.Hosts
	if len(hosts) == 0 {
		hosts = s.hosts
	}
	if len(hosts) == 0 {
		return nil, invalid(errors.New("no legacy upload hosts configured"))
	}
	pattern := uploadPattern(hosts)

	report := &LinkFixReport{Rewrites: []LinkRewrite{}, Errors: []string{}}
	downloads := make(map[string]string)
	var pending []pendingRewrite

	collect := func(kind models.EntityKind, id, title, body string) {
		updated, found := RewriteUploadLinks(pattern, body)
		if len(found) == 0 {
			return
		}
		for url, path := range found {
			downloads[url] = path
		}
		pending = append(pending, pendingRewrite{
			rewrite: LinkRewrite{Kind: kind, ID: id, Title: title, Links: len(found)},
			body:    updated,
		})
	}

	err := s.repos.Post.StreamAll(ctx, func(p *models.Post) error {
		report.PostsScanned++
		collect(models.KindPost, p.ID, p.Title, p.Body)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	err = s.repos.Page.StreamAll(ctx, func(p *models.Page) error {
		report.PagesScanned++
		collect(models.KindPage, p.ID, p.Title, p.Body)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}

	if opts.Download && !opts.DryRun {
		for url, path := range downloads {
			s.download(ctx, url, path, report)
		}
	}

	for _, p := range pending {
		rw := p.rewrite
		if !opts.DryRun {
			// Bodies are saved directly so fixing links never re-notifies subscribers.
			var err error
			if rw.Kind == models.KindPost {
				err = s.repos.Post.UpdateBody(ctx, rw.ID, p.body)
			} else {
				err = s.repos.Page.UpdateBody(ctx, rw.ID, p.body)
			}
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", rw.Kind, rw.ID, err))
			} else {
				rw.Saved = true
			}
		}
		report.Rewrites = append(report.Rewrites, rw)
	}

	s.log.Info().
		Bool("dry_run", opts.DryRun).
		Int("posts", report.PostsScanned).
		Int("pages", report.PagesScanned).
		Int("rewritten", len(report.Rewrites)).
		Int("downloaded", report.Downloaded).
		Msg("Link fix completed")

	return report, nil
}

// download stores url under the static uploads directory, skipping files
// that already exist
func (s *linkFixService) download(ctx context.Context, url, path string, report *LinkFixReport) {
	root := filepath.Join(s.staticDir, "uploads")
	dest := filepath.Join(root, filepath.FromSlash(path))
	if !strings.HasPrefix(dest, filepath.Clean(root)+string(os.PathSeparator)) {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: path escapes uploads directory", url))
		return
	}
	if _, err := os.Stat(dest); err == nil {
		report.AlreadyPresent++
		return
	}

	if err := s.fetch(ctx, url, dest); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("Download failed")
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", url, err))
		return
	}
	report.Downloaded++
}

func (s *linkFixService) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
