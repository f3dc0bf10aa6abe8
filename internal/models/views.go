package models

import "time"

// Roles attached to a profile.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MarketplaceAmazon is the only affiliate marketplace the catalog stores.
const MarketplaceAmazon = "amazon"

// Blog categories offered by the editor and the blog filter.
var BlogCategories = []string{
	"Acne Care",
	"Anti-Aging",
	"K-Beauty",
	"Routines",
	"Ingredient Explanations",
	"Product Reviews",
}

// DefaultContactSubject is used when the form leaves the subject empty.
const DefaultContactSubject = "General Inquiry"

// ContactSubjects lists the subjects the contact form accepts.
var ContactSubjects = []string{
	DefaultContactSubject,
	"Product Question",
	"Collaboration",
	"Other",
}

// IsBlogCategory reports whether c is one of BlogCategories.
func IsBlogCategory(c string) bool {
	return contains(BlogCategories, c)
}

// IsContactSubject reports whether s is one of ContactSubjects.
func IsContactSubject(s string) bool {
	return contains(ContactSubjects, s)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Product is the catalog entry as pages and the API present it.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Brand          string            `json:"brand"`
	Price          string            `json:"price"` // "$24.99"
	Image          string            `json:"image"`
	Description    string            `json:"description,omitempty"`
	Tags           []string          `json:"tags"`
	AffiliateLinks map[string]string `json:"affiliateLinks"`
}

// ProductInput is what the admin submits to create or edit a product.
type ProductInput struct {
	Name           string            `json:"name"`
	Brand          string            `json:"brand"`
	Price          string            `json:"price"`
	Image          string            `json:"image"`
	Description    string            `json:"description"`
	Tags           []string          `json:"tags"`
	AffiliateLinks map[string]string `json:"affiliateLinks"`
}

// BlogPost is a published article as pages and the API present it.
type BlogPost struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Excerpt         string   `json:"excerpt"`
	Content         string   `json:"content"`
	Date            string   `json:"date"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Image           string   `json:"image"`
	ReadTime        string   `json:"readTime"`
	RelatedProducts []string `json:"relatedProducts"`
}

// BlogPostInput is what the admin submits to create or edit a post.
type BlogPostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	ImageURL string   `json:"image_url"`
	ReadTime int      `json:"read_time"`
	Tags     []string `json:"tags"`
}

// ContactMessage is a submitted contact form.
type ContactMessage struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscriber is a newsletter signup as the admin sees it.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile carries the role used by route guards.
type UserProfile struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}
