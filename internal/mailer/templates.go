package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// SummaryLength bounds the body snippet used when a post has no excerpt.
const SummaryLength = 300

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Templates renders every email the blog sends
type Templates struct {
	site config.SiteConfig
}

// NewTemplates creates a renderer for the given site
func NewTemplates(site config.SiteConfig) *Templates {
	return &Templates{site: site}
}

type postData struct {
	SiteName       string
	Author         string
	Title          string
	URL            string
	Summary        string
	SummaryHTML    template.HTML
	Topics         string
	UnsubscribeURL string
}

// PostNotification renders the new-post email for one subscriber
func (t *Templates) PostNotification(post *models.Post, sub *models.Subscriber) (Message, error) {
	summary := Summary(post)
	summaryHTML, err := RenderMarkdown(summary)
	if err != nil {
		return Message{}, err
	}

	data := postData{
		SiteName:       t.site.Name,
		Author:         t.site.Author,
		Title:          post.Title,
		URL:            t.url("/blog/" + post.Slug + "/"),
		Summary:        summary,
		SummaryHTML:    summaryHTML,
		Topics:         topicList(sub.Topics()),
		UnsubscribeURL: t.unsubscribeURL(sub),
	}
	return t.render(sub.Email, "New post: "+post.Title, postText, postHTML, data)
}

type subscriberData struct {
	SiteName       string
	Author         string
	Email          string
	Topics         string
	ConfirmURL     string
	UnsubscribeURL string
	SubscribedAt   string
}

func (t *Templates) subscriberData(sub *models.Subscriber) subscriberData {
	d := subscriberData{
		SiteName:       t.site.Name,
		Author:         t.site.Author,
		Email:          sub.Email,
		Topics:         topicList(sub.Topics()),
		UnsubscribeURL: t.unsubscribeURL(sub),
		SubscribedAt:   sub.SubscribedAt.Format(time.RFC1123),
	}
	if sub.ConfirmationToken != "" {
		d.ConfirmURL = t.url("/v1/subscribers/confirm?token=" + sub.ConfirmationToken)
	}
	return d
}

// Welcome renders the email sent to a new subscriber
func (t *Templates) Welcome(sub *models.Subscriber) (Message, error) {
	subject := fmt.Sprintf("Welcome to %s!", t.site.Name)
	return t.render(sub.Email, subject, welcomeText, welcomeHTML, t.subscriberData(sub))
}

// AdminNotice renders the new-subscription notice for the site owner
func (t *Templates) AdminNotice(adminEmail string, sub *models.Subscriber) (Message, error) {
	subject := fmt.Sprintf("New Blog Subscription: %s (%s)", sub.Email, topicList(sub.Topics()))
	return t.render(adminEmail, subject, adminText, adminHTML, t.subscriberData(sub))
}

// TestEmail renders the delivery check sent by the CLI
func (t *Templates) TestEmail(to string) (Message, error) {
	data := struct {
		SiteName string
		SentAt   string
	}{t.site.Name, time.Now().Format(time.RFC1123)}
	return t.render(to, fmt.Sprintf("Test email from %s", t.site.Name), testText, testHTML, data)
}

func (t *Templates) render(to, subject, textTpl, htmlTpl string, data interface{}) (Message, error) {
	text, err := renderText(textTpl, data)
	if err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	html, err := renderHTML(htmlTpl, data)
	if err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html}, nil
}

func (t *Templates) url(path string) string {
	domain := strings.TrimSuffix(t.site.Domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + path
	}
	return "https://" + domain + path
}

func (t *Templates) unsubscribeURL(sub *models.Subscriber) string {
	if sub.ConfirmationToken == "" {
		return t.url("/v1/subscribers/unsubscribe")
	}
	return t.url("/v1/subscribers/unsubscribe?token=" + sub.ConfirmationToken)
}

// Summary returns the post excerpt, or a plain-text snippet of the body
func Summary(post *models.Post) string {
	if s := strings.TrimSpace(post.Excerpt); s != "" {
		return s
	}
	plain := strings.TrimSpace(spacePattern.ReplaceAllString(tagPattern.ReplaceAllString(post.Body, " "), " "))
	if utf8.RuneCountInString(plain) <= SummaryLength {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:SummaryLength])) + "…"
}

// RenderMarkdown converts Markdown to HTML. Raw HTML in the source is escaped.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func topicList(topics []models.Topic) string {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		s := string(t)
		names = append(names, strings.ToUpper(s[:1])+s[1:])
	}
	return strings.Join(names, ", ")
}

var funcs = map[string]interface{}{
	"year": func() int { return time.Now().Year() },
}

func renderHTML(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap(funcs)).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(tpl string, data interface{}) (string, error) {
	t, err := texttemplate.New("").Funcs(texttemplate.FuncMap(funcs)).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const postText = `A new post was just published on {{.SiteName}}:

{{.Title}}

{{.Summary}}

Read it here: {{.URL}}

You are receiving this because you subscribed to: {{.Topics}}
Unsubscribe: {{.UnsubscribeURL}}
`

const postHTML = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <p style="color:#666;font-size:14px">New on {{.SiteName}}</p>
  <h1 style="font-size:22px;color:#222">{{.Title}}</h1>
  <div style="font-size:15px;line-height:1.6;color:#333">{{.SummaryHTML}}</div>
  <p style="margin-top:24px">
    <a href="{{.URL}}" style="background:#2563eb;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px">Read the full post</a>
  </p>
  <hr style="border:none;border-top:1px solid #eee;margin:24px 0" />
  <p style="color:#999;font-size:12px">You subscribed to {{.Topics}}. <a href="{{.UnsubscribeURL}}" style="color:#999">Unsubscribe</a></p>
  <p style="color:#bbb;font-size:11px;text-align:center">&copy;{{year}} {{.SiteName}}{{if .Author}} · {{.Author}}{{end}}</p>
</div>
</body>
</html>`

const welcomeText = `Hi there!

Thank you for subscribing to {{.SiteName}}!

You've subscribed to receive updates for: {{.Topics}}

You'll receive notifications when new content is published in your selected categories.
{{if .ConfirmURL}}
Please confirm your address: {{.ConfirmURL}}
{{end}}
Best regards,
{{if .Author}}{{.Author}}{{else}}{{.SiteName}}{{end}}

---
To unsubscribe, visit: {{.UnsubscribeURL}}
`

const welcomeHTML = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Welcome to {{.SiteName}}!</h2>
  <p>You've subscribed to receive updates for: <strong>{{.Topics}}</strong>.</p>
  <p>You'll receive a note whenever new content is published in your selected categories.</p>
  {{if .ConfirmURL}}
  <p style="margin-top:24px">
    <a href="{{.ConfirmURL}}" style="background:#2563eb;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Confirm subscription</a>
  </p>
  {{end}}
  <p style="color:#999;font-size:12px"><a href="{{.UnsubscribeURL}}" style="color:#999">Unsubscribe</a></p>
</div>
</body>
</html>`

const adminText = `New subscription on {{.SiteName}}

Email:      {{.Email}}
Topics:     {{.Topics}}
Subscribed: {{.SubscribedAt}}
`

const adminHTML = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;padding:20px">
  <h2>New subscription on {{.SiteName}}</h2>
  <table cellpadding="4">
    <tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>
    <tr><td><strong>Topics</strong></td><td>{{.Topics}}</td></tr>
    <tr><td><strong>Subscribed</strong></td><td>{{.SubscribedAt}}</td></tr>
  </table>
</body>
</html>`

const testText = `This is a test email from {{.SiteName}}.

If you received this, outbound mail is configured correctly.

Sent at {{.SentAt}}
`

const testHTML = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;padding:20px">
  <h2>Test email from {{.SiteName}}</h2>
  <p>If you received this, outbound mail is configured correctly.</p>
  <p style="color:#999;font-size:12px">Sent at {{.SentAt}}</p>
</body>
</html>`
