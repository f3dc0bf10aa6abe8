package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		var err error
		if dsn, err = withSSL(dsn, cfg.SslCertPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// withSSL appends certificate verification params to the DSN.
func withSSL(dsn, certPath string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// textArray adapts a []string destination for database/sql scanning of text[] columns.
func textArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// exec runs a write and maps "no rows touched" to sql.ErrNoRows.
func (c *DatabaseClient) exec(ctx context.Context, q string, args ...any) error {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Users and profiles

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q, user.ID, user.Email, user.DisplayName, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, email))
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) GetProfile(ctx context.Context, userID string) (*models.ProfileRow, error) {
	const q = `SELECT id, role, display_name, created_at FROM profiles WHERE id = $1`
	var p models.ProfileRow
	err := c.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.Role, &p.DisplayName, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Products

func (c *DatabaseClient) ListProducts(ctx context.Context) ([]models.ProductRow, error) {
	const q = `
		SELECT id, name, brand, price::float8, image_url, description, tags, product_url, created_at
		FROM products
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProductRow
	for rows.Next() {
		var p models.ProductRow
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Brand, &p.Price, &p.ImageURL, &p.Description, textArray(&p.Tags), &p.ProductURL, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) InsertProduct(ctx context.Context, p *models.ProductRow) error {
	if p == nil {
		return errors.New("nil product")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO products (id, name, brand, price, image_url, description, tags, product_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		p.ID, p.Name, p.Brand, p.Price, p.ImageURL, p.Description, nonNil(p.Tags), p.ProductURL,
	).Scan(&p.CreatedAt)
}

func (c *DatabaseClient) UpdateProduct(ctx context.Context, p *models.ProductRow) error {
	if p == nil {
		return errors.New("nil product")
	}
	const q = `
		UPDATE products
		SET name = $2, brand = $3, price = $4, image_url = $5, description = $6, tags = $7, product_url = $8
		WHERE id = $1
	`
	return c.exec(ctx, q, p.ID, p.Name, p.Brand, p.Price, p.ImageURL, p.Description, nonNil(p.Tags), p.ProductURL)
}

// DeleteProduct is unconditional; deleting a missing id is not an error.
func (c *DatabaseClient) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

// Blogs

const blogColumns = `id, title, slug, content, category, tags, image_url, read_time, published_at, created_at`

func (c *DatabaseClient) ListBlogs(ctx context.Context) ([]models.BlogRow, error) {
	q := `SELECT ` + blogColumns + ` FROM blogs ORDER BY published_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BlogRow
	for rows.Next() {
		var b models.BlogRow
		if err := rows.Scan(blogDest(&b)...); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func blogDest(b *models.BlogRow) []any {
	return []any{
		&b.ID, &b.Title, &b.Slug, &b.Content, &b.Category, textArray(&b.Tags),
		&b.ImageURL, &b.ReadTime, &b.PublishedAt, &b.CreatedAt,
	}
}

// GetBlogByTitle matches the title exactly. When several posts share a title
// the most recently published one wins.
func (c *DatabaseClient) GetBlogByTitle(ctx context.Context, title string) (*models.BlogRow, error) {
	q := `SELECT ` + blogColumns + ` FROM blogs WHERE title = $1 ORDER BY published_at DESC LIMIT 1`
	return c.scanBlog(c.db.QueryRowContext(ctx, q, title))
}

func (c *DatabaseClient) GetBlogByID(ctx context.Context, id string) (*models.BlogRow, error) {
	q := `SELECT ` + blogColumns + ` FROM blogs WHERE id = $1`
	return c.scanBlog(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) scanBlog(row *sql.Row) (*models.BlogRow, error) {
	var b models.BlogRow
	err := row.Scan(blogDest(&b)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *DatabaseClient) InsertBlog(ctx context.Context, b *models.BlogRow) error {
	if b == nil {
		return errors.New("nil blog")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO blogs (id, title, slug, content, category, tags, image_url, read_time, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING published_at, created_at
	`
	return c.db.QueryRowContext(ctx, q,
		b.ID, b.Title, b.Slug, b.Content, b.Category, nonNil(b.Tags), b.ImageURL, b.ReadTime,
	).Scan(&b.PublishedAt, &b.CreatedAt)
}

func (c *DatabaseClient) UpdateBlog(ctx context.Context, b *models.BlogRow) error {
	if b == nil {
		return errors.New("nil blog")
	}
	const q = `
		UPDATE blogs
		SET title = $2, content = $3, category = $4, tags = $5, image_url = $6, read_time = $7, slug = $8
		WHERE id = $1
	`
	return c.exec(ctx, q, b.ID, b.Title, b.Content, b.Category, nonNil(b.Tags), b.ImageURL, b.ReadTime, b.Slug)
}

func (c *DatabaseClient) DeleteBlog(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	return err
}

// Contacts

func (c *DatabaseClient) InsertContact(ctx context.Context, m *models.ContactRow) error {
	if m == nil {
		return errors.New("nil contact")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO contacts (id, name, email, subject, message, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q, m.ID, m.Name, m.Email, m.Subject, m.Message).Scan(&m.CreatedAt)
}

func (c *DatabaseClient) ListContacts(ctx context.Context) ([]models.ContactRow, error) {
	const q = `SELECT id, name, email, subject, message, created_at FROM contacts ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContactRow
	for rows.Next() {
		var m models.ContactRow
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteContact(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}

// Subscribers

// InsertSubscriber surfaces the driver error untouched so callers can detect
// unique violations on email.
func (c *DatabaseClient) InsertSubscriber(ctx context.Context, s *models.SubscriberRow) error {
	if s == nil {
		return errors.New("nil subscriber")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO subscribers (id, email, source, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q, s.ID, s.Email, s.Source).Scan(&s.CreatedAt)
}

func (c *DatabaseClient) ListSubscribers(ctx context.Context) ([]models.SubscriberRow, error) {
	const q = `SELECT id, email, source, created_at FROM subscribers ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SubscriberRow
	for rows.Next() {
		var s models.SubscriberRow
		if err := rows.Scan(&s.ID, &s.Email, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteSubscriber(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	return err
}

// Blog chunks

// ReplaceBlogChunks swaps a post's chunks in one transaction.
func (c *DatabaseClient) ReplaceBlogChunks(ctx context.Context, blogID string, chunks []models.BlogChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_chunks WHERE blog_id = $1`, blogID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO blog_chunks
			(id, blog_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, blogID, ch.Position, ch.Text, pgvector.NewVector(ch.Embedding), ch.TokenCount,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchBlogChunks finds the top-k chunks closest to the query embedding (cosine distance).
func (c *DatabaseClient) SearchBlogChunks(ctx context.Context, queryVec []float32, limit int) ([]models.BlogChunk, error) {
	const q = `
		SELECT id, blog_id, position, text, token_count
		FROM blog_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BlogChunk
	for rows.Next() {
		var ch models.BlogChunk
		if err := rows.Scan(&ch.ID, &ch.BlogID, &ch.Position, &ch.Text, &ch.TokenCount); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
