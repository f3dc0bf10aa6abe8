package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/markdave123-py/Shopvora/internal/api/middlewares"
	"github.com/markdave123-py/Shopvora/internal/chat"
	"github.com/markdave123-py/Shopvora/internal/config"
	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/services"
	"github.com/markdave123-py/Shopvora/internal/testutil"
)

type fakeLLM struct {
	chunks  []string
	err     error
	history []core.Turn
	prompt  string
}

func (f *fakeLLM) StreamChat(_ context.Context, prompt string, history []core.Turn, emit func(string) error) error {
	f.prompt, f.history = prompt, history
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type site struct {
	*httptest.Server
	db  *testutil.MemDB
	llm *fakeLLM
}

func newSite(t *testing.T) *site {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:    "test-secret",
		PublicAPIKey: "pk-test",
		Origins:      []string{"http://localhost:5173"},
	}
	mem := testutil.NewMemDB()
	llm := &fakeLLM{chunks: []string{"Use ", "sunscreen ", "daily."}}
	logger := zerolog.Nop()

	svc := NewServices(cfg, mem, nil, nil, logger)
	router, err := NewRouter(cfg, svc, mem, fakeEmbedder{}, llm, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &site{Server: srv, db: mem, llm: llm}
}

// noRedirect lets tests inspect 303 answers.
func (s *site) noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func (s *site) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.noRedirect().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *site) page(t *testing.T, path, token string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: appMiddleware.CookieName, Value: token})
	}
	resp, err := s.noRedirect().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func (s *site) postForm(t *testing.T, path, token string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: appMiddleware.CookieName, Value: token})
	}
	resp, err := s.noRedirect().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// signup creates an account through the API and returns its token and id.
func (s *site) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/signup", "", services.SignUpInput{
		Email: email, Password: "secret1", ConfirmPassword: "secret1", DisplayName: "Ada",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token, sess.User.ID
}

func (s *site) admin(t *testing.T) string {
	t.Helper()
	token, id := s.signup(t, "admin@example.com")
	s.db.SetRole(id, models.RoleAdmin)
	return token
}

func TestHealthz(t *testing.T) {
	s := newSite(t)
	resp := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	s := newSite(t)
	token, id := s.signup(t, "Ada@Example.com")

	resp := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "ada@example.com", me.Email)

	resp = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prof models.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prof))
	assert.Equal(t, models.RoleUser, prof.Role)

	resp = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/auth/signup", "", services.SignUpInput{
		Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignupRejectsMismatchedPasswords(t *testing.T) {
	s := newSite(t)
	resp := s.do(t, http.MethodPost, "/api/auth/signup", "", services.SignUpInput{
		Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret2",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Passwords do not match", body["error"])
}

func TestAdminPageAccess(t *testing.T) {
	s := newSite(t)

	resp, _ := s.page(t, "/admin", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fadmin", resp.Header.Get("Location"))

	userToken, _ := s.signup(t, "user@example.com")
	resp, _ = s.page(t, "/admin", userToken)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	adminToken := s.admin(t)
	resp, body := s.page(t, "/admin", adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Admin Dashboard")
}

func TestAdminAPIRequiresAdmin(t *testing.T) {
	s := newSite(t)
	userToken, _ := s.signup(t, "user@example.com")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/contacts", "", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/contacts", userToken, nil).StatusCode)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/contacts", s.admin(t), nil).StatusCode)
}

func TestProductLifecycle(t *testing.T) {
	s := newSite(t)
	token := s.admin(t)

	resp := s.do(t, http.MethodPost, "/api/admin/products", token, models.ProductInput{
		Name: "Gentle Cleanser", Brand: "CeraVe", Price: "14.5",
		AffiliateLinks: map[string]string{models.MarketplaceAmazon: "https://amazon.com/dp/x"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "$14.50", created.Price)

	resp = s.do(t, http.MethodPost, "/api/admin/products", token, models.ProductInput{Name: "X", Brand: "Y", Price: "free"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/products", "", nil)
	var list []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)

	resp = s.do(t, http.MethodDelete, "/api/admin/products/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, s.db.Products)
}

func TestBlogPublishing(t *testing.T) {
	s := newSite(t)
	token := s.admin(t)
	in := models.BlogPostInput{
		Title:    "Acne Basics",
		Content:  "<p>Start <strong>simple</strong>.</p><script>alert(1)</script>",
		Category: models.BlogCategories[0],
		ReadTime: 4,
	}

	resp := s.do(t, http.MethodPost, "/api/admin/blogs", token, in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/admin/blogs", token, in)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/blogs/exists?title=Acne%20Basics", "", nil)
	var exists map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exists))
	assert.True(t, exists["exists"])

	resp = s.do(t, http.MethodGet, "/api/blogs/Acne%20Basics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var post models.BlogPost
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	assert.Equal(t, "4 min read", post.ReadTime)
	assert.NotContains(t, post.Content, "script")

	page, body := s.page(t, "/blog/Acne%20Basics", "")
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, body, "<strong>simple</strong>")

	page, _ = s.page(t, "/blog/Missing%20Post", "")
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/blogs/Missing%20Post", "", nil).StatusCode)
}

func TestBlogTitlesWithReservedCharacters(t *testing.T) {
	s := newSite(t)
	token := s.admin(t)
	for _, title := range []string{"Retinol 1%ECO Review", "AC/DC Serum", "Niacinamide 10% + Zinc"} {
		t.Run(title, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/api/admin/blogs", token, models.BlogPostInput{
				Title: title, Content: "<p>Notes.</p>", Category: models.BlogCategories[0], ReadTime: 3,
			})
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			escaped := url.PathEscape(title)
			resp = s.do(t, http.MethodGet, "/api/blogs/"+escaped, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var post models.BlogPost
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
			assert.Equal(t, title, post.Title)

			page, _ := s.page(t, "/blog/"+escaped, "")
			assert.Equal(t, http.StatusOK, page.StatusCode)
		})
	}
}

func TestPostPageShowsRelatedProductsAndMeta(t *testing.T) {
	s := newSite(t)
	token := s.admin(t)
	for _, in := range []models.ProductInput{
		{Name: "Clarifying Gel", Brand: "Paula", Price: "12", Tags: []string{"acne", "cleanser"}},
		{Name: "Barrier Cream", Brand: "Cera", Price: "18", Tags: []string{"dry-skin"}},
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/admin/products", token, in).StatusCode)
	}
	resp := s.do(t, http.MethodPost, "/api/admin/blogs", token, models.BlogPostInput{
		Title:    "Fighting Acne",
		Content:  "<p>Gentle cleansing helps.</p>",
		Category: models.BlogCategories[0],
		ImageURL: "https://cdn.example.com/acne.jpg",
		ReadTime: 5,
		Tags:     []string{"acne"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	page, body := s.page(t, "/blog/Fighting%20Acne", "")
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, body, "Shop This Post")
	assert.Contains(t, body, "Clarifying Gel")
	assert.NotContains(t, body, "Barrier Cream")
	assert.Contains(t, body, `<meta property="og:title" content="Fighting Acne">`)
	assert.Contains(t, body, `<meta name="twitter:image" content="https://cdn.example.com/acne.jpg">`)
	assert.Contains(t, body, `<meta name="twitter:card" content="summary_large_image">`)
	assert.Contains(t, body, "https://wa.me/918595813226")

	_, body = s.page(t, "/about", "")
	assert.Contains(t, body, `<meta name="description" content="Your ultimate guide to skincare, beauty trends, and product reviews.">`)
}

func TestNewsletterForm(t *testing.T) {
	s := newSite(t)
	form := url.Values{"email": {"fan@example.com"}, "source": {"home-page"}, "next": {"/blog"}}

	resp := s.postForm(t, "/newsletter", "", form)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/blog?newsletter=ok", resp.Header.Get("Location"))

	resp = s.postForm(t, "/newsletter", "", form)
	assert.Equal(t, "/blog?newsletter=exists", resp.Header.Get("Location"))

	form.Set("next", "https://evil.example")
	form.Set("email", "nope")
	resp = s.postForm(t, "/newsletter", "", form)
	assert.Equal(t, "/?newsletter=invalid", resp.Header.Get("Location"))

	require.Len(t, s.db.Subscribers, 1)
	for _, sub := range s.db.Subscribers {
		assert.Equal(t, "home-page", sub.Source)
	}
}

func TestContactForm(t *testing.T) {
	s := newSite(t)
	resp := s.postForm(t, "/contact", "", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hello there"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/contact?sent=1", resp.Header.Get("Location"))
	require.Len(t, s.db.Contacts, 1)

	resp = s.do(t, http.MethodPost, "/api/contact", "", models.ContactMessage{Name: "Ada", Email: "bad", Message: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPagesRender(t *testing.T) {
	s := newSite(t)
	for _, path := range []string{"/", "/about", "/guide", "/blog", "/contact", "/login", "/signup", "/privacy", "/terms"} {
		t.Run(path, func(t *testing.T) {
			resp, body := s.page(t, path, "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "ShopVora")
		})
	}

	resp, body := s.page(t, "/no/such/page", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "404")
}

func TestProfileRequiresSession(t *testing.T) {
	s := newSite(t)
	resp, _ := s.page(t, "/profile", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	token, _ := s.signup(t, "ada@example.com")
	resp, body := s.page(t, "/profile", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ada@example.com")
}

func TestSmartTaskStreams(t *testing.T) {
	s := newSite(t)
	body := map[string]any{"messages": []core.Turn{
		{Role: "assistant", Content: "Hi!"},
		{Role: "user", Content: "What should I use in the morning?"},
	}}

	resp := s.do(t, http.MethodPost, "/functions/v1/smart-task", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/functions/v1/smart-task", "pk-test", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Use sunscreen daily.", string(text))
	require.Len(t, s.llm.history, 2)
	assert.Contains(t, s.llm.prompt, "skincare assistant")

	resp = s.do(t, http.MethodPost, "/functions/v1/smart-task", "pk-test", map[string]any{"messages": []core.Turn{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSmartTaskFailureMidStream(t *testing.T) {
	s := newSite(t)
	s.llm.chunks = []string{"Use sun"}
	s.llm.err = errors.New("model overloaded")

	conv := chat.New(s.URL, "pk-test")
	err := conv.Send(context.Background(), "Hello")
	require.Error(t, err)

	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.Apology, last.Content)
	assert.False(t, last.Streaming)
	assert.False(t, conv.Loading())
}

func TestUploadsWithoutStorage(t *testing.T) {
	s := newSite(t)
	resp := s.do(t, http.MethodPost, "/api/admin/uploads", s.admin(t), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
