// Package client talks to a running Shopvora site over its JSON API and
// keeps the terminal user's session token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/session"
)

const httpTimeout = 30 * time.Second

// APIError is a non-2xx answer from the site.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the site.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	store   TokenStore

	mu        sync.Mutex
	listeners map[int]func(session.Event)
	nextID    int
}

var (
	_ session.Source         = (*Client)(nil)
	_ session.ProfileFetcher = (*Client)(nil)
)

func New(cfg *config.ClientConfig, store TokenStore) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: httpTimeout},
		store:     store,
		listeners: map[int]func(session.Event){},
	}
}

// BaseURL is the site root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Subscribe registers fn for session changes.
func (c *Client) Subscribe(fn func(session.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) emit(u *session.User) {
	c.mu.Lock()
	fns := make([]func(session.Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(session.Event{User: u})
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// CurrentSession validates the stored token; a rejected token is forgotten.
func (c *Client) CurrentSession(ctx context.Context) (*session.User, error) {
	token, err := c.store.Load()
	if err != nil || token == "" {
		return nil, err
	}
	var u session.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &u); err != nil {
		if IsUnauthorized(err) {
			return nil, c.store.Clear()
		}
		return nil, err
	}
	return &u, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/signin", body)
}

func (c *Client) SignUp(ctx context.Context, email, password, confirm, displayName string) error {
	body := map[string]string{
		"email":            email,
		"password":         password,
		"confirm_password": confirm,
		"display_name":     displayName,
	}
	return c.authenticate(ctx, "/api/auth/signup", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) error {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return err
	}
	if err := c.store.Save(resp.Token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.emit(&resp.User)
	return nil
}

// SignOut forgets the local token; the site keeps no server-side session.
func (c *Client) SignOut(_ context.Context) error {
	err := c.store.Clear()
	c.emit(nil)
	return err
}

// FetchRole reads the signed-in user's profile.
func (c *Client) FetchRole(ctx context.Context, _ string) (string, error) {
	p, err := c.Profile(ctx)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	token, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/profile", token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := c.do(ctx, http.MethodGet, "/api/products", "", nil, &out)
	return out, err
}

func (c *Client) BlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	var out []models.BlogPost
	err := c.do(ctx, http.MethodGet, "/api/blogs", "", nil, &out)
	return out, err
}

func (c *Client) BlogPost(ctx context.Context, title string) (*models.BlogPost, error) {
	var out models.BlogPost
	if err := c.do(ctx, http.MethodGet, "/api/blogs/"+url.PathEscape(title), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinNewsletter signs email up for the newsletter.
func (c *Client) JoinNewsletter(ctx context.Context, email, source string) error {
	body := map[string]string{"email": email, "source": source}
	return c.do(ctx, http.MethodPost, "/api/newsletter", "", body, nil)
}

func (c *Client) SubmitContact(ctx context.Context, m models.ContactMessage) error {
	return c.do(ctx, http.MethodPost, "/api/contact", "", m, nil)
}

// do sends an API request; the public key is sent when no session token is.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
