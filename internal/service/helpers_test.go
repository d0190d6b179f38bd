package service_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mocks"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/blog-cms-api/internal/wxr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type harness struct {
	svc    *service.Services
	store  *mocks.Store
	sender *mocks.MockSender
	cfg    *config.Config
}

func newHarness(t testing.TB, opts ...func(*config.Config)) *harness {
	t.Helper()

	cfg := &config.Config{
		Mail: config.MailConfig{
			From:        "blog@example.com",
			SendTimeout: time.Second,
		},
		Site: config.SiteConfig{
			Name:   "Field Notes",
			Domain: "example.com",
			Author: "Greg",
		},
		Import: config.ImportConfig{
			UploadDir: t.TempDir(),
			StaticDir: t.TempDir(),
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	repos, store := mocks.NewRepositories()
	sender := mocks.NewMockSender()
	return &harness{
		svc:    service.NewServices(repos, sender, cfg, zerolog.Nop()),
		store:  store,
		sender: sender,
		cfg:    cfg,
	}
}

func (h *harness) category(name string) models.Category {
	c := &models.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      strings.ToLower(name),
		CreatedAt: time.Now().UTC(),
	}
	h.store.Categories.Categories[c.ID] = c
	return *c
}

func (h *harness) subscriber(email string, active bool, topics ...models.Topic) *models.Subscriber {
	s := &models.Subscriber{
		ID:                uuid.New().String(),
		Email:             email,
		Active:            active,
		SubscribedAt:      time.Now().UTC(),
		ConfirmationToken: strings.ReplaceAll(uuid.New().String(), "-", ""),
	}
	for _, t := range topics {
		switch t {
		case models.TopicTech:
			s.Tech = true
		case models.TopicLife:
			s.Life = true
		case models.TopicSpirit:
			s.Spirit = true
		}
	}
	h.store.Subscribers.Subscribers[s.ID] = s
	return s
}

func (h *harness) post(title string, status models.PostStatus, categories ...models.Category) *models.Post {
	now := time.Now().UTC()
	p := &models.Post{
		ID:         uuid.New().String(),
		Title:      title,
		Slug:       strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Body:       "Body of " + title,
		Status:     status,
		Categories: categories,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	p.MarkPublished(now)
	h.store.Posts.Posts[p.ID] = p
	h.store.Posts.SlugToPost[p.Slug] = p
	return p
}

// testItem renders one WXR item
type testItem struct {
	ID         string
	Title      string
	Name       string
	Status     string
	Type       string
	PubDate    string
	Order      string
	Content    string
	Categories []string
	Tags       []string
	Comments   []testComment
}

type testComment struct {
	ID       string
	Author   string
	Date     string
	Approved *string
	Content  string
}

func strPtr(s string) *string { return &s }

func (it testItem) render() string {
	var b strings.Builder
	b.WriteString("<item>\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", it.Title)
	if it.PubDate != "" {
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>\n", it.PubDate)
	}
	fmt.Fprintf(&b, "<content:encoded><![CDATA[%s]]></content:encoded>\n", it.Content)
	b.WriteString("<excerpt:encoded><![CDATA[]]></excerpt:encoded>\n")
	fmt.Fprintf(&b, "<wp:post_id>%s</wp:post_id>\n", it.ID)
	fmt.Fprintf(&b, "<wp:post_name>%s</wp:post_name>\n", it.Name)
	fmt.Fprintf(&b, "<wp:status>%s</wp:status>\n", it.Status)
	typ := it.Type
	if typ == "" {
		typ = wxr.TypePost
	}
	fmt.Fprintf(&b, "<wp:post_type>%s</wp:post_type>\n", typ)
	if it.Order != "" {
		fmt.Fprintf(&b, "<wp:menu_order>%s</wp:menu_order>\n", it.Order)
	}
	for _, c := range it.Categories {
		fmt.Fprintf(&b, "<category domain=\"category\" nicename=\"%s\"><![CDATA[%s]]></category>\n", strings.ToLower(c), c)
	}
	for _, tag := range it.Tags {
		fmt.Fprintf(&b, "<category domain=\"post_tag\" nicename=\"%s\"><![CDATA[%s]]></category>\n", strings.ToLower(tag), tag)
	}
	for _, c := range it.Comments {
		b.WriteString("<wp:comment>\n")
		fmt.Fprintf(&b, "<wp:comment_id>%s</wp:comment_id>\n", c.ID)
		fmt.Fprintf(&b, "<wp:comment_author><![CDATA[%s]]></wp:comment_author>\n", c.Author)
		if c.Date != "" {
			fmt.Fprintf(&b, "<wp:comment_date>%s</wp:comment_date>\n", c.Date)
		}
		fmt.Fprintf(&b, "<wp:comment_content><![CDATA[%s]]></wp:comment_content>\n", c.Content)
		if c.Approved != nil {
			fmt.Fprintf(&b, "<wp:comment_approved>%s</wp:comment_approved>\n", *c.Approved)
		}
		b.WriteString("</wp:comment>\n")
	}
	b.WriteString("</item>\n")
	return b.String()
}

const wxrHead = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0"
	xmlns:excerpt="http://wordpress.org/export/1.2/excerpt/"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:dc="http://purl.org/dc/elements/1.1/"
	xmlns:wp="http://wordpress.org/export/1.2/"
>
<channel>
<title>Field Notes</title>
<link>https://oldblog.example.com</link>
<wp:category><wp:category_nicename>tech</wp:category_nicename><wp:cat_name><![CDATA[Tech]]></wp:cat_name></wp:category>
<wp:category><wp:category_nicename>life</wp:category_nicename><wp:cat_name><![CDATA[Life]]></wp:cat_name></wp:category>
<wp:tag><wp:tag_slug>golang</wp:tag_slug><wp:tag_name><![CDATA[Golang]]></wp:tag_name></wp:tag>
`

func wxrXML(items ...testItem) string {
	var b strings.Builder
	b.WriteString(wxrHead)
	for _, it := range items {
		b.WriteString(it.render())
	}
	b.WriteString("</channel>\n</rss>\n")
	return b.String()
}

func parseDoc(t testing.TB, items ...testItem) *wxr.Document {
	t.Helper()
	doc, err := wxr.Parse(strings.NewReader(wxrXML(items...)))
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	return doc
}

// helloWorld is post 42 with two comments, the first of them id 7
func helloWorld() testItem {
	return testItem{
		ID:         "42",
		Title:      "Hello World",
		Status:     "publish",
		PubDate:    "Tue, 02 Apr 2019 14:03:11 +0000",
		Content:    "<p>First post.</p>",
		Categories: []string{"Tech", "Unknown"},
		Tags:       []string{"Golang"},
		Comments: []testComment{
			{ID: "7", Author: "Ann", Date: "2019-04-03 10:00:00", Approved: strPtr("1"), Content: "Nice"},
			{ID: "8", Author: "Spammer", Date: "2019-04-03 11:00:00", Approved: strPtr("spam"), Content: "Buy now"},
		},
	}
}

func aboutPage() testItem {
	return testItem{
		ID:      "2",
		Title:   "About",
		Name:    "about",
		Status:  "draft",
		Type:    wxr.TypePage,
		PubDate: "Mon, 01 Apr 2019 08:00:00 +0000",
		Order:   "3",
		Content: "About me",
	}
}

func attachment() testItem {
	return testItem{
		ID:      "99",
		Title:   "photo",
		Status:  "inherit",
		Type:    wxr.TypeAttachment,
		PubDate: "Mon, 01 Apr 2019 08:00:00 +0000",
	}
}
