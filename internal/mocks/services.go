package mocks

import (
	"context"
	"net/http"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/service"
)

// MockNotificationService records dispatches without sending anything
type MockNotificationService struct {
	DispatchFunc    func(ctx context.Context, post *models.Post) models.DispatchResult
	NotifyPostsFunc func(ctx context.Context, ids []string) (*models.BulkNotifyReport, error)
	TestEmailError  error
	Dispatched      []*models.Post
	NotifyCalls     [][]string
	TestEmails      []string
}

// Verify interface compliance
var _ service.NotificationService = (*MockNotificationService)(nil)

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) Dispatch(ctx context.Context, post *models.Post) models.DispatchResult {
	m.Dispatched = append(m.Dispatched, post)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, post)
	}
	return models.DispatchResult{Errors: []string{}}
}

func (m *MockNotificationService) NotifyPosts(ctx context.Context, ids []string) (*models.BulkNotifyReport, error) {
	m.NotifyCalls = append(m.NotifyCalls, ids)
	if m.NotifyPostsFunc != nil {
		return m.NotifyPostsFunc(ctx, ids)
	}
	report := &models.BulkNotifyReport{Items: []models.BulkNotifyItem{}}
	for _, id := range ids {
		report.Append(models.BulkNotifyItem{PostID: id, Result: models.DispatchResult{Sent: 1, Errors: []string{}}})
	}
	return report, nil
}

func (m *MockNotificationService) SendTestEmail(ctx context.Context, to string) error {
	m.TestEmails = append(m.TestEmails, to)
	return m.TestEmailError
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamSubscribersFunc func(ctx context.Context, w http.ResponseWriter, format string) error
	StreamPostsFunc       func(ctx context.Context, w http.ResponseWriter, format string) error
	StreamCommentsFunc    func(ctx context.Context, w http.ResponseWriter, format string) error
	Counts                map[string]int
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[string]int{
			"posts":       0,
			"pages":       0,
			"comments":    0,
			"subscribers": 0,
		},
	}
}

func (m *MockExportService) StreamSubscribers(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamSubscribersFunc != nil {
		return m.StreamSubscribersFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamPostsFunc != nil {
		return m.StreamPostsFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) StreamComments(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamCommentsFunc != nil {
		return m.StreamCommentsFunc(ctx, w, format)
	}
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	return m.Counts[resource], nil
}
