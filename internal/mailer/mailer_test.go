package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/rs/zerolog"
)

func TestComposeMultipart(t *testing.T) {
	raw, err := Compose("Blog <noreply@example.com>", Message{
		To:      "reader@example.com",
		Subject: "New post: Café",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Composed message does not parse: %v", err)
	}

	dec := new(mime.WordDecoder)
	subject, _ := dec.DecodeHeader(msg.Header.Get("Subject"))
	if subject != "New post: Café" {
		t.Errorf("Unexpected subject %q", subject)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/alternative" {
		t.Fatalf("Expected multipart/alternative, got %q (%v)", mediaType, err)
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart failed: %v", err)
		}
		b, _ := io.ReadAll(p)
		bodies = append(bodies, string(b))
	}
	if len(bodies) != 2 || bodies[0] != "plain body" || bodies[1] != "<p>html body</p>" {
		t.Errorf("Unexpected parts %q", bodies)
	}
}

func TestComposeTextOnly(t *testing.T) {
	raw, err := Compose("noreply@example.com", Message{To: "a@example.com", Subject: "hi", Text: "only text"}, time.Now())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if !strings.Contains(string(raw), "Content-Type: text/plain; charset=UTF-8") {
		t.Errorf("Expected text/plain message, got %s", raw)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender("noreply@example.com", zerolog.New(&buf))

	if err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "Hello"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"a@example.com"`) {
		t.Errorf("Expected recipient in log, got %s", buf.String())
	}

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("Expected ErrNoRecipient, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Message{To: "a@example.com"}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := New(config.MailConfig{}, zerolog.Nop()).(*LogSender); !ok {
		t.Error("Expected console backend without EMAIL_HOST_USER")
	}
	if _, ok := New(config.MailConfig{User: "u"}, zerolog.Nop()).(*SMTPSender); !ok {
		t.Error("Expected SMTP backend with EMAIL_HOST_USER")
	}
}

// fakeSMTP accepts one session and records the DATA payload.
func fakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	data := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }

		reply("220 localhost ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				reply("250-localhost")
				reply("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				data <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 OK")
			}
		}
	}()
	return ln.Addr().String(), data
}

func TestSMTPSenderDelivers(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	s := NewSMTPSender(config.MailConfig{Host: host, Port: port, From: "noreply@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Send(ctx, Message{To: "reader@example.com", Subject: "Hi", Text: "hello", HTML: "<b>hello</b>"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case body := <-data:
		if !strings.Contains(body, "To: reader@example.com") {
			t.Errorf("Expected To header in payload, got %q", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never received DATA")
	}
}

func TestSMTPSenderRequiresSTARTTLS(t *testing.T) {
	addr, _ := fakeSMTP(t)
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	s := NewSMTPSender(config.MailConfig{Host: host, Port: port, UseTLS: true})
	err := s.Send(context.Background(), Message{To: "reader@example.com", Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "STARTTLS") {
		t.Errorf("Expected STARTTLS error, got %v", err)
	}
}

func TestTemplatesPostNotification(t *testing.T) {
	tpl := NewTemplates(config.SiteConfig{Name: "Field Notes", Domain: "blog.example.com", Author: "Greg"})
	post := &models.Post{Title: "Hello World", Slug: "hello-world", Excerpt: "Some **bold** news"}
	sub := &models.Subscriber{Email: "a@example.com", Tech: true, Life: true, ConfirmationToken: "tok"}

	msg, err := tpl.PostNotification(post, sub)
	if err != nil {
		t.Fatalf("PostNotification failed: %v", err)
	}
	if msg.To != "a@example.com" || msg.Subject != "New post: Hello World" {
		t.Errorf("Unexpected envelope %+v", msg)
	}
	if !strings.Contains(msg.Text, "https://blog.example.com/blog/hello-world/") {
		t.Errorf("Text body missing post URL: %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "Tech, Life") {
		t.Errorf("Text body missing topics: %s", msg.Text)
	}
	if !strings.Contains(msg.HTML, "<strong>bold</strong>") {
		t.Errorf("HTML body should render markdown, got %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "unsubscribe?token=tok") {
		t.Errorf("HTML body missing unsubscribe link: %s", msg.HTML)
	}
}

func TestTemplatesSubscriberMails(t *testing.T) {
	tpl := NewTemplates(config.SiteConfig{Name: "Field Notes", Domain: "http://localhost:8080"})
	sub := &models.Subscriber{Email: "a@example.com", Spirit: true, ConfirmationToken: "abc"}

	welcome, err := tpl.Welcome(sub)
	if err != nil {
		t.Fatalf("Welcome failed: %v", err)
	}
	if welcome.Subject != "Welcome to Field Notes!" {
		t.Errorf("Unexpected subject %q", welcome.Subject)
	}
	if !strings.Contains(welcome.Text, "http://localhost:8080/v1/subscribers/confirm?token=abc") {
		t.Errorf("Welcome missing confirm link: %s", welcome.Text)
	}

	notice, err := tpl.AdminNotice("owner@example.com", sub)
	if err != nil {
		t.Fatalf("AdminNotice failed: %v", err)
	}
	if notice.To != "owner@example.com" || !strings.Contains(notice.Subject, "a@example.com (Spirit)") {
		t.Errorf("Unexpected admin notice %+v", notice)
	}

	test, err := tpl.TestEmail("ops@example.com")
	if err != nil || test.To != "ops@example.com" {
		t.Errorf("TestEmail failed: %+v %v", test, err)
	}
}

func TestSummary(t *testing.T) {
	post := &models.Post{Body: "<p>Hello   <em>there</em></p>\n<p>friend</p>"}
	if got := Summary(post); got != "Hello there friend" {
		t.Errorf("Unexpected summary %q", got)
	}

	long := &models.Post{Body: strings.Repeat("a", SummaryLength+50)}
	got := Summary(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != SummaryLength+1 {
		t.Errorf("Expected truncated summary, got %d runes", len([]rune(got)))
	}
}
