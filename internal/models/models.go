package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProductRow is the stored shape of a catalog product.
type ProductRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Brand       string    `db:"brand"`
	Price       float64   `db:"price"`
	ImageURL    string    `db:"image_url"`
	Description string    `db:"description"`
	Tags        []string  `db:"tags"`
	ProductURL  string    `db:"product_url"` // affiliate link, currently amazon only
	CreatedAt   time.Time `db:"created_at"`
}

// BlogRow is the stored shape of a blog post.
type BlogRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Content     string    `db:"content"` // HTML from the editor
	Category    string    `db:"category"`
	Tags        []string  `db:"tags"`
	ImageURL    string    `db:"image_url"`
	ReadTime    int       `db:"read_time"` // minutes
	PublishedAt time.Time `db:"published_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// ContactRow is a message left through the contact form.
type ContactRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Subject   string    `db:"subject"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// SubscriberRow is a newsletter signup.
type SubscriberRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// ProfileRow is created by the database when a user row is inserted.
type ProfileRow struct {
	ID          string    `db:"id"`
	Role        string    `db:"role"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
}

// BlogChunk represents one text chunk of a blog post used to ground the assistant.
type BlogChunk struct {
	ID         string    `db:"id" json:"id"`
	BlogID     string    `db:"blog_id" json:"blog_id"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column
	Position   int       `db:"position" json:"position"`
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
