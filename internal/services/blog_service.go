package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/editor"
	"github.com/markdave123-py/Shopvora/internal/models"
)

// IndexQueue accepts posts whose assistant chunks need rebuilding.
type IndexQueue interface {
	Enqueue(blogID string)
}

type BlogService struct {
	db      core.DbClient
	indexer IndexQueue
	log     zerolog.Logger
}

// NewBlogService builds the service; indexer may be nil when the assistant
// is not configured.
func NewBlogService(db core.DbClient, indexer IndexQueue, logger zerolog.Logger) *BlogService {
	return &BlogService{db: db, indexer: indexer, log: logger}
}

// GetBlogPosts lists posts by publish date, newest first.
func (s *BlogService) GetBlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	rows, err := s.db.ListBlogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	out := make([]models.BlogPost, 0, len(rows))
	for i := range rows {
		out = append(out, toBlogPost(&rows[i]))
	}
	return out, nil
}

// GetBlogPost looks a post up by its exact title.
func (s *BlogService) GetBlogPost(ctx context.Context, title string) (*models.BlogPost, error) {
	row, err := s.db.GetBlogByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("get blog: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	p := toBlogPost(row)
	return &p, nil
}

func (s *BlogService) CheckBlogPostExists(ctx context.Context, title string) (bool, error) {
	row, err := s.db.GetBlogByTitle(ctx, strings.TrimSpace(title))
	if err != nil {
		return false, fmt.Errorf("check blog title: %w", err)
	}
	return row != nil, nil
}

// CreateBlogPost refuses a title that is already taken before writing anything.
func (s *BlogService) CreateBlogPost(ctx context.Context, in models.BlogPostInput) (*models.BlogPost, error) {
	row, err := toBlogRow(in)
	if err != nil {
		return nil, err
	}
	exists, err := s.CheckBlogPostExists(ctx, row.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateTitle
	}
	if err := s.db.InsertBlog(ctx, row); err != nil {
		return nil, fmt.Errorf("insert blog: %w", err)
	}
	s.index(row.ID)
	p := toBlogPost(row)
	return &p, nil
}

func (s *BlogService) UpdateBlogPost(ctx context.Context, id string, in models.BlogPostInput) (*models.BlogPost, error) {
	row, err := toBlogRow(in)
	if err != nil {
		return nil, err
	}
	current, err := s.db.GetBlogByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get blog: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if row.Title != current.Title {
		other, err := s.db.GetBlogByTitle(ctx, row.Title)
		if err != nil {
			return nil, fmt.Errorf("check blog title: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, ErrDuplicateTitle
		}
	}
	row.ID = id
	row.PublishedAt = current.PublishedAt
	row.CreatedAt = current.CreatedAt
	if err := s.db.UpdateBlog(ctx, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update blog: %w", err)
	}
	s.index(id)
	p := toBlogPost(row)
	return &p, nil
}

// DeleteBlogPost removes the post; its chunks go with it.
func (s *BlogService) DeleteBlogPost(ctx context.Context, id string) error {
	if err := s.db.DeleteBlog(ctx, id); err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	return nil
}

func (s *BlogService) index(id string) {
	if s.indexer == nil {
		return
	}
	s.indexer.Enqueue(id)
	s.log.Debug().Str("blog_id", id).Msg("queued for indexing")
}

// FilterPosts narrows posts to a category (empty or "All" keeps every
// category) and a case-insensitive search over title and excerpt.
func FilterPosts(posts []models.BlogPost, category, query string) []models.BlogPost {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		if category != "" && category != "All" && p.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Excerpt), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func toBlogPost(r *models.BlogRow) models.BlogPost {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.BlogPost{
		ID:              r.ID,
		Title:           r.Title,
		Slug:            r.Slug,
		Excerpt:         Excerpt(r.Content),
		Content:         r.Content,
		Date:            FormatDate(r.PublishedAt),
		Category:        r.Category,
		Tags:            tags,
		Image:           r.ImageURL,
		ReadTime:        ReadTime(r.ReadTime),
		RelatedProducts: []string{},
	}
}

func toBlogRow(in models.BlogPostInput) (*models.BlogRow, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Invalid("title", "Title is required.")
	}
	if !models.IsBlogCategory(in.Category) {
		return nil, Invalid("category", "Please choose a category.")
	}
	content := editor.Sanitize(in.Content)
	if strings.TrimSpace(PlainText(content)) == "" {
		return nil, Invalid("content", "Content is required.")
	}
	if in.ReadTime < 1 {
		return nil, Invalid("read_time", "Read time must be at least 1 minute.")
	}
	return &models.BlogRow{
		Title:    title,
		Slug:     Slug(title),
		Content:  content,
		Category: in.Category,
		Tags:     cleanTags(in.Tags),
		ImageURL: strings.TrimSpace(in.ImageURL),
		ReadTime: in.ReadTime,
	}, nil
}
