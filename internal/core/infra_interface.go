package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Shopvora/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
// Single-row lookups return (nil, nil) when nothing matches.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.ProfileRow, error)

	ListProducts(ctx context.Context) ([]models.ProductRow, error)
	InsertProduct(ctx context.Context, p *models.ProductRow) error
	UpdateProduct(ctx context.Context, p *models.ProductRow) error
	DeleteProduct(ctx context.Context, id string) error

	ListBlogs(ctx context.Context) ([]models.BlogRow, error)
	GetBlogByTitle(ctx context.Context, title string) (*models.BlogRow, error)
	GetBlogByID(ctx context.Context, id string) (*models.BlogRow, error)
	InsertBlog(ctx context.Context, b *models.BlogRow) error
	UpdateBlog(ctx context.Context, b *models.BlogRow) error
	DeleteBlog(ctx context.Context, id string) error

	InsertContact(ctx context.Context, c *models.ContactRow) error
	ListContacts(ctx context.Context) ([]models.ContactRow, error)
	DeleteContact(ctx context.Context, id string) error

	InsertSubscriber(ctx context.Context, s *models.SubscriberRow) error
	ListSubscribers(ctx context.Context) ([]models.SubscriberRow, error)
	DeleteSubscriber(ctx context.Context, id string) error

	ReplaceBlogChunks(ctx context.Context, blogID string, chunks []models.BlogChunk) error
	SearchBlogChunks(ctx context.Context, queryVec []float32, limit int) ([]models.BlogChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	// Key maps a URL returned by UploadFile back to its key.
	Key(publicURL string) (string, error)
}
