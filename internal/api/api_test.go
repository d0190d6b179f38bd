package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/api"
	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mocks"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sampleWXR = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0"
	xmlns:excerpt="http://wordpress.org/export/1.2/excerpt/"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
	<title>Field Notes</title>
	<wp:category><wp:category_nicename>tech</wp:category_nicename><wp:cat_name><![CDATA[Tech]]></wp:cat_name></wp:category>
	<item>
		<title>Hello World</title>
		<pubDate>Tue, 02 Apr 2019 14:03:11 +0000</pubDate>
		<content:encoded><![CDATA[<p>First post.</p>]]></content:encoded>
		<excerpt:encoded><![CDATA[]]></excerpt:encoded>
		<wp:post_id>42</wp:post_id>
		<wp:status>publish</wp:status>
		<wp:post_type>post</wp:post_type>
		<category domain="category" nicename="tech"><![CDATA[Tech]]></category>
		<wp:comment>
			<wp:comment_id>7</wp:comment_id>
			<wp:comment_author><![CDATA[Ann]]></wp:comment_author>
			<wp:comment_date>2019-04-03 10:00:00</wp:comment_date>
			<wp:comment_content><![CDATA[Nice]]></wp:comment_content>
			<wp:comment_approved>1</wp:comment_approved>
		</wp:comment>
	</item>
	<item>
		<title>Broken</title>
		<wp:post_id>oops</wp:post_id>
		<wp:status>publish</wp:status>
		<wp:post_type>post</wp:post_type>
	</item>
</channel>
</rss>
`

type testEnv struct {
	router   *gin.Engine
	services *service.Services
	store    *mocks.Store
	sender   *mocks.MockSender
}

func setupTestRouter(t *testing.T, adminToken string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Import: config.ImportConfig{
			MaxUploadSize: 10 * 1024 * 1024,
			UploadDir:     t.TempDir(),
			StaticDir:     t.TempDir(),
		},
		Mail:  config.MailConfig{From: "blog@example.com", SendTimeout: time.Second},
		Site:  config.SiteConfig{Name: "Field Notes", Domain: "example.com"},
		Admin: config.AdminConfig{Token: adminToken},
	}

	repos, store := mocks.NewRepositories()
	sender := mocks.NewMockSender()
	log := zerolog.Nop()
	services := service.NewServices(repos, sender, cfg, log)

	return &testEnv{
		router:   api.NewRouter(services, cfg, log),
		services: services,
		store:    store,
		sender:   sender,
	}
}

func (e *testEnv) do(method, url string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	writer.Close()

	req := httptest.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do("GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "blog-cms-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t, "")
	mockExport := mocks.NewMockExportService()
	mockExport.Counts["posts"] = 120
	mockExport.Counts["subscribers"] = 42
	env.services.Export = mockExport

	w := env.do("GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	db := response["database"].(map[string]interface{})
	if db["posts"].(float64) != 120 || db["subscribers"].(float64) != 42 {
		t.Errorf("Unexpected counts: %v", db)
	}
}

func TestAdminAuth(t *testing.T) {
	env := setupTestRouter(t, "s3cret")

	tests := []struct {
		name           string
		method         string
		url            string
		headers        []string
		expectedStatus int
	}{
		{"admin route without token", "GET", "/v1/posts", nil, http.StatusUnauthorized},
		{"admin route with wrong token", "GET", "/v1/posts", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"admin route with token", "GET", "/v1/posts", []string{"Authorization", "Bearer s3cret"}, http.StatusOK},
		{"subscriber list is admin", "GET", "/v1/subscribers", nil, http.StatusUnauthorized},
		{"confirm is public", "GET", "/v1/subscribers/confirm?token=unknown", nil, http.StatusBadRequest},
		{"health is public", "GET", "/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.url, nil, tt.headers...)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestPostLifecycle(t *testing.T) {
	env := setupTestRouter(t, "")
	tech := &models.Category{ID: uuid.New().String(), Name: "Tech", Slug: "tech"}
	env.store.Categories.Categories[tech.ID] = tech
	env.store.Subscribers.Subscribers["s1"] = &models.Subscriber{ID: "s1", Email: "alice@example.com", Tech: true, Active: true}

	w := env.do("POST", "/v1/posts", map[string]interface{}{
		"title":        "Hello API",
		"body":         "Body",
		"category_ids": []string{tech.ID},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	var created models.Post
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Slug != "hello-api" || created.Status != models.PostStatusDraft {
		t.Errorf("Unexpected post: %+v", created)
	}

	w = env.do("PUT", "/v1/posts/"+created.ID, map[string]interface{}{
		"title":  "Hello API",
		"body":   "Body",
		"status": "published",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	if got := env.sender.SentTo(); len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("Publishing should notify subscribers, got %v", got)
	}

	w = env.do("GET", "/v1/posts/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = env.do("GET", "/v1/posts?status=published", nil)
	var list struct {
		Posts []models.Post `json:"posts"`
		Count int           `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Errorf("Expected 1 published post, got %d", list.Count)
	}
}

func TestPostErrors(t *testing.T) {
	env := setupTestRouter(t, "")

	tests := []struct {
		name           string
		method         string
		url            string
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{"missing post", "GET", "/v1/posts/" + uuid.New().String(), nil, http.StatusNotFound, "not found"},
		{"bad id", "GET", "/v1/posts/123", nil, http.StatusNotFound, "not found"},
		{"missing title", "POST", "/v1/posts", map[string]interface{}{"body": "x"}, http.StatusBadRequest, "validation failed"},
		{"unknown status filter", "GET", "/v1/posts?status=archived", nil, http.StatusBadRequest, "unknown status"},
		{"bad limit", "GET", "/v1/posts?limit=ten", nil, http.StatusBadRequest, "limit must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.url, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedError) {
				t.Errorf("Expected error '%s' in response, got: %s", tt.expectedError, w.Body.String())
			}
		})
	}
}

func TestBulkNotify(t *testing.T) {
	env := setupTestRouter(t, "")
	mockNotify := mocks.NewMockNotificationService()
	env.services.Notification = mockNotify

	w := env.do("POST", "/v1/posts/notify", map[string]interface{}{"post_ids": []string{"a", "b"}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	var report models.BulkNotifyReport
	json.Unmarshal(w.Body.Bytes(), &report)
	if report.Sent != 2 || len(report.Items) != 2 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if len(mockNotify.NotifyCalls) != 1 {
		t.Errorf("Expected one bulk call, got %d", len(mockNotify.NotifyCalls))
	}

	w = env.do("POST", "/v1/posts/notify", map[string]interface{}{"post_ids": []string{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty id list, got %d", w.Code)
	}

	mockNotify.NotifyPostsFunc = func(ctx context.Context, ids []string) (*models.BulkNotifyReport, error) {
		return nil, errors.New("database unavailable")
	}
	w = env.do("POST", "/v1/posts/notify", map[string]interface{}{"post_ids": []string{"a"}})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestTaxonomyAndPages(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do("POST", "/v1/categories", map[string]interface{}{"name": "Tech"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	w = env.do("POST", "/v1/categories", map[string]interface{}{"name": "Tech"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate, got %d", w.Code)
	}

	w = env.do("POST", "/v1/page-categories", map[string]interface{}{"name": "Guides"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var group models.PageCategory
	json.Unmarshal(w.Body.Bytes(), &group)

	w = env.do("POST", "/v1/pages", map[string]interface{}{"title": "Start Here", "category_id": group.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/v1/pages", nil)
	if !strings.Contains(w.Body.String(), "start-here") {
		t.Errorf("Expected page in listing, got %s", w.Body.String())
	}

	w = env.do("POST", "/v1/tags", map[string]interface{}{"name": "Go"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
}

func TestSubscribeFlow(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do("POST", "/v1/subscribers", map[string]interface{}{"email": "reader@example.com", "tech": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "confirmation_token") {
		t.Error("Token must not be exposed in the response")
	}

	var sub *models.Subscriber
	for _, s := range env.store.Subscribers.Subscribers {
		sub = s
	}
	if sub == nil {
		t.Fatal("Subscriber should be stored")
	}

	w = env.do("GET", "/v1/subscribers/confirm?token="+sub.ConfirmationToken, nil)
	if w.Code != http.StatusOK || sub.ConfirmedAt == nil {
		t.Errorf("Expected confirmation, got %d", w.Code)
	}

	w = env.do("GET", "/v1/subscribers/unsubscribe?token="+sub.ConfirmationToken, nil)
	if w.Code != http.StatusOK || sub.Active {
		t.Errorf("Expected unsubscribe via link, got %d", w.Code)
	}

	w = env.do("POST", "/v1/subscribers/unsubscribe", map[string]interface{}{"email": "nobody@example.com"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown email, got %d", w.Code)
	}

	w = env.do("POST", "/v1/subscribers", map[string]interface{}{"email": "reader@example.com"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "topics") {
		t.Errorf("Expected topic validation error, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/v1/subscribers", nil)
	var list struct {
		Count  int `json:"count"`
		Active int `json:"active"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Active != 0 {
		t.Errorf("Expected 1 inactive subscriber, got %+v", list)
	}
}

func TestImportUpload(t *testing.T) {
	env := setupTestRouter(t, "")

	req := uploadRequest(t, "export.xml", sampleWXR)
	req.Header.Set("Idempotency-Key", "upload-1")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	var job models.JobResponse
	json.Unmarshal(w.Body.Bytes(), &job)
	if job.Status != models.JobStatusCompleted {
		t.Errorf("Expected completed job, got %s", job.Status)
	}
	if job.ErroredCount != 1 || job.ErrorReport == "" {
		t.Errorf("Expected one error with report url, got %d %q", job.ErroredCount, job.ErrorReport)
	}
	if len(env.store.Posts.ExternalToPost) != 1 {
		t.Errorf("Expected post 42 imported, got %d posts", len(env.store.Posts.ExternalToPost))
	}

	// Same key returns the existing job without importing again
	req = uploadRequest(t, "export.xml", sampleWXR)
	req.Header.Set("Idempotency-Key", "upload-1")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 (existing job), got %d", w.Code)
	}

	w = env.do("GET", "/v1/imports/"+job.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = env.do("GET", "/v1/imports/"+job.ID+"/errors", nil)
	var errs map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &errs)
	if errs["error_count"].(float64) != 1 {
		t.Errorf("Expected 1 error, got %v", errs["error_count"])
	}

	w = env.do("GET", "/v1/imports/"+job.ID+"/errors?format=csv", nil)
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "kind,ref,message") || !strings.Contains(w.Body.String(), "oops") {
		t.Errorf("Unexpected CSV: %s", w.Body.String())
	}
}

func TestImportValidation(t *testing.T) {
	env := setupTestRouter(t, "")

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
	}{
		{"wrong extension", "export.csv", "id,email\n", http.StatusBadRequest},
		{"malformed export", "export.xml", "<rss><channel>", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, uploadRequest(t, tt.filename, tt.content))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest("POST", "/v1/imports", strings.NewReader(""))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a file, got %d", w.Code)
	}

	w = env.do("GET", "/v1/imports/nonexistent-job", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestExportStream_ValidationErrors(t *testing.T) {
	env := setupTestRouter(t, "")

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedError  string
	}{
		{"missing resource", "/v1/exports", http.StatusBadRequest, "resource parameter is required"},
		{"invalid resource", "/v1/exports?resource=users", http.StatusBadRequest, "resource must be one of"},
		{"invalid format", "/v1/exports?resource=posts&format=xml", http.StatusBadRequest, "format must be one of"},
		{"csv not supported for posts", "/v1/exports?resource=posts&format=csv", http.StatusBadRequest, "CSV format only supported for subscribers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("GET", tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tt.expectedError)) {
				t.Errorf("Expected error '%s' in response, got: %s", tt.expectedError, w.Body.String())
			}
		})
	}
}

func TestExportStream_Subscribers(t *testing.T) {
	env := setupTestRouter(t, "")
	env.store.Subscribers.Subscribers["s1"] = &models.Subscriber{ID: "s1", Email: "alice@example.com", Tech: true, Active: true}

	w := env.do("GET", "/v1/exports?resource=subscribers&format=csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "alice@example.com,true,false,false,true") {
		t.Errorf("Unexpected CSV: %s", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	env := setupTestRouter(t, "")

	w := env.do("OPTIONS", "/v1/posts", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("Expected Authorization in allowed headers")
	}
}
