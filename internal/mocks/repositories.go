package mocks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
)

// NewRepositories wires a full set of in-memory repositories
func NewRepositories() (*repository.Repositories, *Store) {
	s := &Store{
		Posts:          NewMockPostRepository(),
		Pages:          NewMockPageRepository(),
		Categories:     NewMockCategoryRepository(),
		Tags:           NewMockTagRepository(),
		PageCategories: NewMockPageCategoryRepository(),
		Comments:       NewMockCommentRepository(),
		Subscribers:    NewMockSubscriberRepository(),
		Jobs:           NewMockJobRepository(),
	}
	return &repository.Repositories{
		Post:         s.Posts,
		Page:         s.Pages,
		Category:     s.Categories,
		Tag:          s.Tags,
		PageCategory: s.PageCategories,
		Comment:      s.Comments,
		Subscriber:   s.Subscribers,
		Job:          s.Jobs,
	}, s
}

// Store exposes the concrete mocks behind NewRepositories
type Store struct {
	Posts          *MockPostRepository
	Pages          *MockPageRepository
	Categories     *MockCategoryRepository
	Tags           *MockTagRepository
	PageCategories *MockPageCategoryRepository
	Comments       *MockCommentRepository
	Subscribers    *MockSubscriberRepository
	Jobs           *MockJobRepository
}

// MockPostRepository is a mock implementation of PostRepository
type MockPostRepository struct {
	Posts           map[string]*models.Post
	SlugToPost      map[string]*models.Post
	ExternalToPost  map[int64]*models.Post
	InsertError     error
	GetError        error
	CreateFunc      func(ctx context.Context, post *models.Post) error
	UpdateBodyCalls int
}

var _ repository.PostRepository = (*MockPostRepository)(nil)

func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		Posts:          make(map[string]*models.Post),
		SlugToPost:     make(map[string]*models.Post),
		ExternalToPost: make(map[int64]*models.Post),
	}
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, post); err != nil {
			return err
		}
	}
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, taken := m.SlugToPost[post.Slug]; taken {
		return repository.ErrDuplicate
	}
	if post.WPPostID != nil {
		if _, taken := m.ExternalToPost[*post.WPPostID]; taken {
			return repository.ErrDuplicate
		}
		m.ExternalToPost[*post.WPPostID] = post
	}
	m.Posts[post.ID] = post
	m.SlugToPost[post.Slug] = post
	return nil
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, ok := m.Posts[post.ID]; !ok {
		return nil
	}
	if other, taken := m.SlugToPost[post.Slug]; taken && other.ID != post.ID {
		return repository.ErrDuplicate
	}
	for s, p := range m.SlugToPost {
		if p.ID == post.ID {
			delete(m.SlugToPost, s)
		}
	}
	m.Posts[post.ID] = post
	m.SlugToPost[post.Slug] = post
	if post.WPPostID != nil {
		m.ExternalToPost[*post.WPPostID] = post
	}
	return nil
}

func (m *MockPostRepository) UpdateBody(ctx context.Context, id, body string) error {
	m.UpdateBodyCalls++
	if post, ok := m.Posts[id]; ok {
		post.Body = body
	}
	return nil
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Posts[id], nil
}

func (m *MockPostRepository) GetByExternalID(ctx context.Context, wpPostID int64) (*models.Post, error) {
	return m.ExternalToPost[wpPostID], nil
}

func (m *MockPostRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, exists := m.SlugToPost[slug]
	return exists, nil
}

func (m *MockPostRepository) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, error) {
	var posts []*models.Post
	for _, p := range m.Posts {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return sortTime(posts[i]).After(sortTime(posts[j]))
	})

	if filter.Offset >= len(posts) {
		return nil, nil
	}
	posts = posts[filter.Offset:]
	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (m *MockPostRepository) Count(ctx context.Context) (int, error) {
	return len(m.Posts), nil
}

func (m *MockPostRepository) StreamAll(ctx context.Context, callback func(*models.Post) error) error {
	posts := make([]*models.Post, 0, len(m.Posts))
	for _, p := range m.Posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
	for _, post := range posts {
		if err := callback(post); err != nil {
			return err
		}
	}
	return nil
}

// MockPageRepository is a mock implementation of PageRepository
type MockPageRepository struct {
	Pages           map[string]*models.Page
	SlugToPage      map[string]*models.Page
	ExternalToPage  map[int64]*models.Page
	InsertError     error
	CreateFunc      func(ctx context.Context, page *models.Page) error
	UpdateBodyCalls int
}

var _ repository.PageRepository = (*MockPageRepository)(nil)

func NewMockPageRepository() *MockPageRepository {
	return &MockPageRepository{
		Pages:          make(map[string]*models.Page),
		SlugToPage:     make(map[string]*models.Page),
		ExternalToPage: make(map[int64]*models.Page),
	}
}

func (m *MockPageRepository) Create(ctx context.Context, page *models.Page) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, page); err != nil {
			return err
		}
	}
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, taken := m.SlugToPage[page.Slug]; taken {
		return repository.ErrDuplicate
	}
	if page.WPPageID != nil {
		m.ExternalToPage[*page.WPPageID] = page
	}
	m.Pages[page.ID] = page
	m.SlugToPage[page.Slug] = page
	return nil
}

func (m *MockPageRepository) Update(ctx context.Context, page *models.Page) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, ok := m.Pages[page.ID]; !ok {
		return nil
	}
	if other, taken := m.SlugToPage[page.Slug]; taken && other.ID != page.ID {
		return repository.ErrDuplicate
	}
	for s, p := range m.SlugToPage {
		if p.ID == page.ID {
			delete(m.SlugToPage, s)
		}
	}
	m.Pages[page.ID] = page
	m.SlugToPage[page.Slug] = page
	return nil
}

func (m *MockPageRepository) UpdateBody(ctx context.Context, id, body string) error {
	m.UpdateBodyCalls++
	if page, ok := m.Pages[id]; ok {
		page.Body = body
	}
	return nil
}

func (m *MockPageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	return m.Pages[id], nil
}

func (m *MockPageRepository) GetByExternalID(ctx context.Context, wpPageID int64) (*models.Page, error) {
	return m.ExternalToPage[wpPageID], nil
}

func (m *MockPageRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, exists := m.SlugToPage[slug]
	return exists, nil
}

// List orders by TOC order then title. Page category order is not modelled.
func (m *MockPageRepository) List(ctx context.Context) ([]*models.Page, error) {
	pages := make([]*models.Page, 0, len(m.Pages))
	for _, p := range m.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].TOCOrder != pages[j].TOCOrder {
			return pages[i].TOCOrder < pages[j].TOCOrder
		}
		return pages[i].Title < pages[j].Title
	})
	return pages, nil
}

func (m *MockPageRepository) Count(ctx context.Context) (int, error) {
	return len(m.Pages), nil
}

func (m *MockPageRepository) StreamAll(ctx context.Context, callback func(*models.Page) error) error {
	pages, _ := m.List(ctx)
	for _, page := range pages {
		if err := callback(page); err != nil {
			return err
		}
	}
	return nil
}

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	Categories  map[string]*models.Category
	InsertError error
}

var _ repository.CategoryRepository = (*MockCategoryRepository)(nil)

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[string]*models.Category)}
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, existing := range m.Categories {
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return repository.ErrDuplicate
		}
	}
	m.Categories[c.ID] = c
	return nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return m.Categories[id], nil
}

func (m *MockCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	for _, c := range m.Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockCategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, c := range m.Categories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	out := make([]*models.Category, 0, len(m.Categories))
	for _, c := range m.Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MockTagRepository is a mock implementation of TagRepository
type MockTagRepository struct {
	Tags        map[string]*models.Tag
	InsertError error
}

var _ repository.TagRepository = (*MockTagRepository)(nil)

func NewMockTagRepository() *MockTagRepository {
	return &MockTagRepository{Tags: make(map[string]*models.Tag)}
}

func (m *MockTagRepository) Create(ctx context.Context, t *models.Tag) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, existing := range m.Tags {
		if existing.Name == t.Name || existing.Slug == t.Slug {
			return repository.ErrDuplicate
		}
	}
	m.Tags[t.ID] = t
	return nil
}

func (m *MockTagRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	return m.Tags[id], nil
}

func (m *MockTagRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	for _, t := range m.Tags {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *MockTagRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, t := range m.Tags {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTagRepository) List(ctx context.Context) ([]*models.Tag, error) {
	out := make([]*models.Tag, 0, len(m.Tags))
	for _, t := range m.Tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MockPageCategoryRepository is a mock implementation of PageCategoryRepository
type MockPageCategoryRepository struct {
	PageCategories map[string]*models.PageCategory
	InsertError    error
}

var _ repository.PageCategoryRepository = (*MockPageCategoryRepository)(nil)

func NewMockPageCategoryRepository() *MockPageCategoryRepository {
	return &MockPageCategoryRepository{PageCategories: make(map[string]*models.PageCategory)}
}

func (m *MockPageCategoryRepository) Create(ctx context.Context, c *models.PageCategory) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, existing := range m.PageCategories {
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return repository.ErrDuplicate
		}
	}
	m.PageCategories[c.ID] = c
	return nil
}

func (m *MockPageCategoryRepository) GetByID(ctx context.Context, id string) (*models.PageCategory, error) {
	return m.PageCategories[id], nil
}

func (m *MockPageCategoryRepository) GetByName(ctx context.Context, name string) (*models.PageCategory, error) {
	for _, c := range m.PageCategories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockPageCategoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	for _, c := range m.PageCategories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPageCategoryRepository) List(ctx context.Context) ([]*models.PageCategory, error) {
	out := make([]*models.PageCategory, 0, len(m.PageCategories))
	for _, c := range m.PageCategories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	Comments    map[string]*models.Comment
	ExternalIDs map[int64]bool
	InsertError error
	CreateFunc  func(ctx context.Context, comment *models.Comment) error
}

var _ repository.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		Comments:    make(map[string]*models.Comment),
		ExternalIDs: make(map[int64]bool),
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, comment); err != nil {
			return err
		}
	}
	if m.InsertError != nil {
		return m.InsertError
	}
	if comment.WPCommentID != nil {
		if m.ExternalIDs[*comment.WPCommentID] {
			return repository.ErrDuplicate
		}
		m.ExternalIDs[*comment.WPCommentID] = true
	}
	m.Comments[comment.ID] = comment
	return nil
}

func (m *MockCommentRepository) ExistsByExternalID(ctx context.Context, wpCommentID int64) (bool, error) {
	return m.ExternalIDs[wpCommentID], nil
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range m.Comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	return len(m.Comments), nil
}

func (m *MockCommentRepository) StreamAll(ctx context.Context, callback func(*models.Comment) error) error {
	out := make([]*models.Comment, 0, len(m.Comments))
	for _, c := range m.Comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	for _, comment := range out {
		if err := callback(comment); err != nil {
			return err
		}
	}
	return nil
}

// MockSubscriberRepository is a mock implementation of SubscriberRepository
type MockSubscriberRepository struct {
	Subscribers map[string]*models.Subscriber
	InsertError error
	FindError   error
	// FindCalls records every topic set the audience query was asked for.
	FindCalls [][]models.Topic
}

var _ repository.SubscriberRepository = (*MockSubscriberRepository)(nil)

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{Subscribers: make(map[string]*models.Subscriber)}
}

func (m *MockSubscriberRepository) Create(ctx context.Context, sub *models.Subscriber) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	if existing, _ := m.GetByEmail(ctx, sub.Email); existing != nil {
		return repository.ErrDuplicate
	}
	m.Subscribers[sub.ID] = sub
	return nil
}

func (m *MockSubscriberRepository) Update(ctx context.Context, sub *models.Subscriber) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.Subscribers[sub.ID] = sub
	return nil
}

func (m *MockSubscriberRepository) GetByID(ctx context.Context, id string) (*models.Subscriber, error) {
	return m.Subscribers[id], nil
}

func (m *MockSubscriberRepository) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	for _, s := range m.Subscribers {
		if strings.EqualFold(s.Email, email) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockSubscriberRepository) GetByToken(ctx context.Context, token string) (*models.Subscriber, error) {
	if token == "" {
		return nil, nil
	}
	for _, s := range m.Subscribers {
		if s.ConfirmationToken == token {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockSubscriberRepository) FindActiveByTopics(ctx context.Context, topics []models.Topic) ([]*models.Subscriber, error) {
	m.FindCalls = append(m.FindCalls, topics)
	if m.FindError != nil {
		return nil, m.FindError
	}
	var out []*models.Subscriber
	for _, s := range m.Subscribers {
		if !s.Active {
			continue
		}
		for _, t := range topics {
			if s.Wants(t) {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MockSubscriberRepository) List(ctx context.Context) ([]*models.Subscriber, error) {
	out := make([]*models.Subscriber, 0, len(m.Subscribers))
	for _, s := range m.Subscribers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscribedAt.After(out[j].SubscribedAt) })
	return out, nil
}

func (m *MockSubscriberRepository) Count(ctx context.Context) (int, error) {
	return len(m.Subscribers), nil
}

func (m *MockSubscriberRepository) StreamAll(ctx context.Context, callback func(*models.Subscriber) error) error {
	out := make([]*models.Subscriber, 0, len(m.Subscribers))
	for _, s := range m.Subscribers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	for _, sub := range out {
		if err := callback(sub); err != nil {
			return err
		}
	}
	return nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	Jobs            map[string]*models.ImportJob
	IdempotencyJobs map[string]*models.ImportJob
	Errors          map[string][]models.ImportError
	CreateError     error
	UpdateError     error
}

var _ repository.JobRepository = (*MockJobRepository)(nil)

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.ImportJob),
		IdempotencyJobs: make(map[string]*models.ImportJob),
		Errors:          make(map[string][]models.ImportError),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if job.IdempotencyKey != "" {
		if _, taken := m.IdempotencyJobs[job.IdempotencyKey]; taken {
			return repository.ErrDuplicate
		}
		m.IdempotencyJobs[job.IdempotencyKey] = job
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	return m.Jobs[id], nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	return m.IdempotencyJobs[key], nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.ImportError) error {
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ImportError, error) {
	errors := m.Errors[jobID]
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}

func sortTime(p *models.Post) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}
