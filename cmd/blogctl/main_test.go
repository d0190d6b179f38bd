package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mocks"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/rs/zerolog"
)

const cliWXR = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
	<title>Field Notes</title>
	<item>
		<title>Hello World</title>
		<pubDate>Tue, 02 Apr 2019 14:03:11 +0000</pubDate>
		<content:encoded><![CDATA[<p>See <img src="https://old.example.com/wp-content/uploads/2019/04/cat.jpg"></p>]]></content:encoded>
		<wp:post_id>42</wp:post_id>
		<wp:status>publish</wp:status>
		<wp:post_type>post</wp:post_type>
		<category domain="category" nicename="tech"><![CDATA[Tech]]></category>
	</item>
	<item>
		<title>Logo</title>
		<wp:post_id>43</wp:post_id>
		<wp:post_type>attachment</wp:post_type>
	</item>
</channel>
</rss>
`

type cliTestEnv struct {
	store  *mocks.Store
	sender *mocks.MockSender
	cfg    *config.Config
	ctx    *commandContext
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := &config.Config{
		Import: config.ImportConfig{
			UploadDir:   t.TempDir(),
			StaticDir:   t.TempDir(),
			LegacyHosts: []string{"old.example.com"},
		},
		Mail: config.MailConfig{From: "blog@example.com", SendTimeout: time.Second},
		Site: config.SiteConfig{Name: "Field Notes", Domain: "example.com"},
	}
	repos, store := mocks.NewRepositories()
	sender := mocks.NewMockSender()
	log := zerolog.Nop()
	services := service.NewServices(repos, sender, cfg, log)

	env := &cliTestEnv{store: store, sender: sender, cfg: cfg}
	env.ctx = newCommandContext(func() (*app, error) {
		return &app{cfg: cfg, log: log, services: services}, nil
	})
	return env
}

func runCLI(t *testing.T, ctx *commandContext, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func writeWXR(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xml")
	if err := os.WriteFile(path, []byte(cliWXR), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func TestImportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeWXR(t)

	out, _, err := runCLI(t, env.ctx, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "Ignored 1 items")
	if len(env.store.Posts.ExternalToPost) != 1 {
		t.Errorf("expected 1 imported post, got %d", len(env.store.Posts.ExternalToPost))
	}

	// Second run skips everything
	out, _, err = runCLI(t, setupReuse(env), "import", path)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	requireContains(t, out, "completed")
	if len(env.store.Jobs.Jobs) != 2 {
		t.Errorf("expected a job per run, got %d", len(env.store.Jobs.Jobs))
	}
	if len(env.store.Posts.Posts) != 1 {
		t.Errorf("re-import created duplicates: %d posts", len(env.store.Posts.Posts))
	}
}

// setupReuse returns a fresh command context over the same services
func setupReuse(env *cliTestEnv) *commandContext {
	a, _ := env.ctx.ensureApp()
	return newCommandContext(func() (*app, error) { return a, nil })
}

func TestImportCommand_MissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.ctx, "import", filepath.Join(t.TempDir(), "missing.xml"))
	if err == nil || !strings.Contains(err.Error(), "import failed") {
		t.Fatalf("expected import failure, got %v", err)
	}
}

func TestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	tech := &models.Category{ID: "c1", Name: "Tech", Slug: "tech"}
	env.store.Categories.Categories[tech.ID] = tech
	env.store.Subscribers.Subscribers["s1"] = &models.Subscriber{ID: "s1", Email: "alice@example.com", Tech: true, Active: true}

	published := time.Now()
	post := &models.Post{
		ID:          "11111111-1111-1111-1111-111111111111",
		Title:       "Hello",
		Slug:        "hello",
		Status:      models.PostStatusPublished,
		PublishedAt: &published,
		Categories:  []models.Category{*tech},
	}
	env.store.Posts.Posts[post.ID] = post
	env.store.Posts.SlugToPost[post.Slug] = post

	out, _, err := runCLI(t, env.ctx, "notify", post.ID, "22222222-2222-2222-2222-222222222222")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	requireContains(t, out, "Hello")
	requireContains(t, out, "not found")
	requireContains(t, out, "1 sent, 0 failed, 1 skipped")

	if got := env.sender.SentTo(); len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("unexpected recipients %v", got)
	}

	if _, _, err := runCLI(t, env.ctx, "notify"); err == nil {
		t.Error("notify without ids should fail")
	}
}

func TestTestEmailCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.ctx, "test-email", "--to", "me@example.com")
	if err != nil {
		t.Fatalf("test-email: %v", err)
	}
	requireContains(t, out, "Test email sent to me@example.com")

	if _, _, err := runCLI(t, env.ctx, "test-email"); err == nil {
		t.Error("expected error without --to")
	}

	env.sender.FailFor["down@example.com"] = errors.New("connection refused")
	if _, _, err := runCLI(t, env.ctx, "test-email", "--to", "down@example.com"); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected send failure, got %v", err)
	}
}

func TestFixLinksCommand_DryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	post := &models.Post{
		ID:    "p1",
		Title: "Cats",
		Slug:  "cats",
		Body:  `<img src="https://old.example.com/wp-content/uploads/2019/04/cat.jpg">`,
	}
	env.store.Posts.Posts[post.ID] = post

	out, _, err := runCLI(t, env.ctx, "fix-links", "--dry-run")
	if err != nil {
		t.Fatalf("fix-links: %v", err)
	}
	requireContains(t, out, "Dry run")
	requireContains(t, out, "Cats")
	requireContains(t, out, "1 need rewriting")
	if !strings.Contains(post.Body, "old.example.com") {
		t.Error("dry run must not change the body")
	}

	if _, _, err := runCLI(t, env.ctx, "fix-links", "--host", "other.example.com"); err != nil {
		t.Fatalf("fix-links with host: %v", err)
	}
}

func TestSubscribersCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.Subscribers.Subscribers["s1"] = &models.Subscriber{ID: "s1", Email: "alice@example.com", Tech: true, Life: true, Active: true}
	env.store.Subscribers.Subscribers["s2"] = &models.Subscriber{ID: "s2", Email: "bob@example.com", Spirit: true}

	out, _, err := runCLI(t, env.ctx, "subscribers", "--active")
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	requireContains(t, out, "alice@example.com")
	requireContains(t, out, "tech, life")
	requireContains(t, out, "2 subscribers, 1 active")
	if strings.Contains(out, "bob@example.com") {
		t.Error("inactive subscriber listed with --active")
	}
}

func TestMigrateCommand_NoDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.ctx, "migrate", "version")
	if !errors.Is(err, errNoDatabase) {
		t.Fatalf("expected errNoDatabase, got %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Kind", "Created"}, [][]string{{"post", "3"}, {"page"}}, []columnAlignment{alignLeft, alignRight})

	for _, want := range []string{"KIND", "CREATED", "post", "page"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}
