// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
)

var _ core.DbClient = (*MemDB)(nil)

// MemDB is an in-memory core.DbClient. It mimics the constraints the real
// schema enforces (unique emails, profile trigger) and answers (nil, nil)
// for missing single rows.
type MemDB struct {
	mu sync.Mutex

	Users       map[string]*models.User
	Profiles    map[string]*models.ProfileRow
	Products    map[string]*models.ProductRow
	Blogs       map[string]*models.BlogRow
	Contacts    map[string]*models.ContactRow
	Subscribers map[string]*models.SubscriberRow
	Chunks      map[string][]models.BlogChunk

	// Err, when set, is returned by every call.
	Err error
	// ProfileErr, when set, is returned by GetProfile only.
	ProfileErr error

	BlogInserts int
	clock       time.Time
}

func NewMemDB() *MemDB {
	return &MemDB{
		Users:       map[string]*models.User{},
		Profiles:    map[string]*models.ProfileRow{},
		Products:    map[string]*models.ProductRow{},
		Blogs:       map[string]*models.BlogRow{},
		Contacts:    map[string]*models.ContactRow{},
		Subscribers: map[string]*models.SubscriberRow{},
		Chunks:      map[string][]models.BlogChunk{},
		clock:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// tick returns strictly increasing times so "newest first" is deterministic.
func (m *MemDB) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

// SetRole sets the profile role of an existing user.
func (m *MemDB) SetRole(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Profiles[userID]; ok {
		p.Role = role
	}
}

func (m *MemDB) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.Users {
		if strings.EqualFold(existing.Email, u.Email) {
			return uniqueViolation("users_email_key")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := m.tick()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.Users[u.ID] = &cp
	m.Profiles[u.ID] = &models.ProfileRow{ID: u.ID, Role: models.RoleUser, DisplayName: u.DisplayName, CreatedAt: now}
	return nil
}

func (m *MemDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.Users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemDB) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if u, ok := m.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemDB) GetProfile(_ context.Context, userID string) (*models.ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	if p, ok := m.Profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MemDB) ListProducts(_ context.Context) ([]models.ProductRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.ProductRow, 0, len(m.Products))
	for _, p := range m.Products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemDB) InsertProduct(_ context.Context, p *models.ProductRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = m.tick()
	cp := *p
	m.Products[p.ID] = &cp
	return nil
}

func (m *MemDB) UpdateProduct(_ context.Context, p *models.ProductRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cur, ok := m.Products[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	p.CreatedAt = cur.CreatedAt
	cp := *p
	m.Products[p.ID] = &cp
	return nil
}

func (m *MemDB) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Products, id)
	return nil
}

func (m *MemDB) ListBlogs(_ context.Context) ([]models.BlogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.BlogRow, 0, len(m.Blogs))
	for _, b := range m.Blogs {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (m *MemDB) GetBlogByTitle(_ context.Context, title string) (*models.BlogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var found *models.BlogRow
	for _, b := range m.Blogs {
		if b.Title == title && (found == nil || b.PublishedAt.After(found.PublishedAt)) {
			found = b
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (m *MemDB) GetBlogByID(_ context.Context, id string) (*models.BlogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if b, ok := m.Blogs[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *MemDB) InsertBlog(_ context.Context, b *models.BlogRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.BlogInserts++
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := m.tick()
	b.PublishedAt, b.CreatedAt = now, now
	cp := *b
	m.Blogs[b.ID] = &cp
	return nil
}

func (m *MemDB) UpdateBlog(_ context.Context, b *models.BlogRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cur, ok := m.Blogs[b.ID]
	if !ok {
		return sql.ErrNoRows
	}
	b.PublishedAt, b.CreatedAt = cur.PublishedAt, cur.CreatedAt
	cp := *b
	m.Blogs[b.ID] = &cp
	return nil
}

func (m *MemDB) DeleteBlog(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Blogs, id)
	delete(m.Chunks, id)
	return nil
}

func (m *MemDB) InsertContact(_ context.Context, c *models.ContactRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = m.tick()
	cp := *c
	m.Contacts[c.ID] = &cp
	return nil
}

func (m *MemDB) ListContacts(_ context.Context) ([]models.ContactRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.ContactRow, 0, len(m.Contacts))
	for _, c := range m.Contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemDB) DeleteContact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Contacts, id)
	return nil
}

func (m *MemDB) InsertSubscriber(_ context.Context, s *models.SubscriberRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.Subscribers {
		if existing.Email == s.Email {
			return uniqueViolation("subscribers_email_key")
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = m.tick()
	cp := *s
	m.Subscribers[s.ID] = &cp
	return nil
}

func (m *MemDB) ListSubscribers(_ context.Context) ([]models.SubscriberRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.SubscriberRow, 0, len(m.Subscribers))
	for _, s := range m.Subscribers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemDB) DeleteSubscriber(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Subscribers, id)
	return nil
}

func (m *MemDB) ReplaceBlogChunks(_ context.Context, blogID string, chunks []models.BlogChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Chunks[blogID] = append([]models.BlogChunk(nil), chunks...)
	return nil
}

// SearchBlogChunks returns chunks in post order; similarity is not modeled.
func (m *MemDB) SearchBlogChunks(_ context.Context, _ []float32, limit int) ([]models.BlogChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]string, 0, len(m.Chunks))
	for id := range m.Chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []models.BlogChunk
	for _, id := range ids {
		for _, c := range m.Chunks[id] {
			if len(out) == limit {
				return out, nil
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemDB) Close() error { return nil }

// ErrBackend is a convenient generic backend failure for tests.
var ErrBackend = errors.New("backend unavailable")
