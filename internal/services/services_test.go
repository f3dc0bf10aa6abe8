package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Shopvora/internal/auth"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/testutil"
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

func validPost(title string) models.BlogPostInput {
	return models.BlogPostInput{
		Title:    title,
		Content:  "<p>Start with an oil cleanser.</p>",
		Category: "Routines",
		ReadTime: 5,
		Tags:     []string{"cleansing", "routine"},
	}
}

func TestGetProductsMapsRows(t *testing.T) {
	db := testutil.NewMemDB()
	ctx := context.Background()
	require.NoError(t, db.InsertProduct(ctx, &models.ProductRow{Name: "Serum", Brand: "Glow", Price: 24.99, ProductURL: "https://amzn.to/s"}))
	require.NoError(t, db.InsertProduct(ctx, &models.ProductRow{Name: "Toner", Brand: "Calm", Price: 12}))

	products, err := NewProductService(db).GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Toner", products[0].Name)
	assert.Equal(t, "$12.00", products[0].Price)
	assert.Empty(t, products[0].AffiliateLinks)
	assert.NotNil(t, products[0].Tags)

	assert.Equal(t, "$24.99", products[1].Price)
	assert.Equal(t, map[string]string{"amazon": "https://amzn.to/s"}, products[1].AffiliateLinks)
}

func TestGetProductsPropagatesBackendError(t *testing.T) {
	db := testutil.NewMemDB()
	db.Err = testutil.ErrBackend

	_, err := NewProductService(db).GetProducts(context.Background())
	assert.ErrorIs(t, err, testutil.ErrBackend)
}

func TestCreateProductParsesPrice(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewProductService(db)

	p, err := svc.CreateProduct(context.Background(), models.ProductInput{
		Name: "Sunscreen", Brand: "Sol", Price: "$1,024.50", Tags: []string{" spf ", ""},
		AffiliateLinks: map[string]string{"amazon": "https://amzn.to/x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "$1024.50", p.Price)
	assert.Equal(t, []string{"spf"}, p.Tags)
	assert.Equal(t, 1024.50, db.Products[p.ID].Price)
	assert.Equal(t, "https://amzn.to/x", db.Products[p.ID].ProductURL)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewProductService(testutil.NewMemDB())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, models.ProductInput{Name: "x", Brand: "y", Price: "cheap"})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.CreateProduct(ctx, models.ProductInput{Brand: "y", Price: "1"})
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "name", ve.Field)

	_, err = svc.CreateProduct(ctx, models.ProductInput{Name: "x", Brand: "y", Price: "1",
		AffiliateLinks: map[string]string{"ebay": "https://ebay.com"}})
	_, ok = AsValidation(err)
	assert.True(t, ok)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewProductService(db)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, models.ProductInput{Name: "Mask", Brand: "Clay", Price: "9"})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, models.ProductInput{Name: "Mask", Brand: "Clay", Price: "11.5"})
	require.NoError(t, err)
	assert.Equal(t, "$11.50", updated.Price)

	_, err = svc.UpdateProduct(ctx, "missing", models.ProductInput{Name: "Mask", Brand: "Clay", Price: "1"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Empty(t, db.Products)
}

func TestCreateBlogPost(t *testing.T) {
	db := testutil.NewMemDB()
	q := &recordingQueue{}
	svc := NewBlogService(db, q, zerolog.Nop())

	post, err := svc.CreateBlogPost(context.Background(), validPost("Double Cleansing 101"))
	require.NoError(t, err)

	assert.Equal(t, "double-cleansing-101", post.Slug)
	assert.Equal(t, "5 min read", post.ReadTime)
	assert.Equal(t, "Start with an oil cleanser....", post.Excerpt)
	assert.Equal(t, []string{}, post.RelatedProducts)
	assert.Equal(t, []string{post.ID}, q.ids)
}

func TestCreateBlogPostRejectsDuplicateBeforeInsert(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewBlogService(db, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.CreateBlogPost(ctx, validPost("Retinol Basics"))
	require.NoError(t, err)
	require.Equal(t, 1, db.BlogInserts)

	_, err = svc.CreateBlogPost(ctx, validPost("Retinol Basics"))
	assert.ErrorIs(t, err, ErrDuplicateTitle)
	assert.Equal(t, 1, db.BlogInserts)
}

func TestCreateBlogPostSanitizesContent(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewBlogService(db, nil, zerolog.Nop())

	in := validPost("Safe")
	in.Content = `<p onclick="steal()">Hi</p><script>alert(1)</script>`
	post, err := svc.CreateBlogPost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>", post.Content)
}

func TestCreateBlogPostValidation(t *testing.T) {
	svc := NewBlogService(testutil.NewMemDB(), nil, zerolog.Nop())
	ctx := context.Background()

	bad := validPost("x")
	bad.Category = "Haircare"
	_, err := svc.CreateBlogPost(ctx, bad)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "category", ve.Field)

	bad = validPost("x")
	bad.Content = "<script>only()</script>"
	_, err = svc.CreateBlogPost(ctx, bad)
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "content", ve.Field)
}

func TestCheckBlogPostExists(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewBlogService(db, nil, zerolog.Nop())
	ctx := context.Background()

	ok, err := svc.CheckBlogPostExists(ctx, "Nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CreateBlogPost(ctx, validPost("Yes"))
	require.NoError(t, err)
	ok, err = svc.CheckBlogPostExists(ctx, "Yes")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetBlogPost(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewBlogService(db, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.GetBlogPost(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateBlogPost(ctx, validPost("Niacinamide"))
	require.NoError(t, err)
	post, err := svc.GetBlogPost(ctx, "Niacinamide")
	require.NoError(t, err)
	assert.Equal(t, "Niacinamide", post.Title)
	assert.Equal(t, "1/15/2024", post.Date)
}

func TestGetBlogPostsNewestFirst(t *testing.T) {
	svc := NewBlogService(testutil.NewMemDB(), nil, zerolog.Nop())
	ctx := context.Background()
	for _, title := range []string{"First", "Second", "Third"} {
		_, err := svc.CreateBlogPost(ctx, validPost(title))
		require.NoError(t, err)
	}

	posts, err := svc.GetBlogPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "Third", posts[0].Title)
	assert.Equal(t, "First", posts[2].Title)
}

func TestUpdateBlogPost(t *testing.T) {
	db := testutil.NewMemDB()
	q := &recordingQueue{}
	svc := NewBlogService(db, q, zerolog.Nop())
	ctx := context.Background()

	a, err := svc.CreateBlogPost(ctx, validPost("A"))
	require.NoError(t, err)
	_, err = svc.CreateBlogPost(ctx, validPost("B"))
	require.NoError(t, err)

	_, err = svc.UpdateBlogPost(ctx, a.ID, validPost("B"))
	assert.ErrorIs(t, err, ErrDuplicateTitle)

	updated, err := svc.UpdateBlogPost(ctx, a.ID, validPost("A Renamed"))
	require.NoError(t, err)
	assert.Equal(t, "a-renamed", updated.Slug)
	assert.Equal(t, a.Date, updated.Date)
	assert.Len(t, q.ids, 3)

	_, err = svc.UpdateBlogPost(ctx, "missing", validPost("C"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteBlogPost(ctx, a.ID))
	assert.NotContains(t, db.Blogs, a.ID)
}

func TestFilterPosts(t *testing.T) {
	posts := []models.BlogPost{
		{Title: "Acne 101", Category: "Acne Care", Excerpt: "spots..."},
		{Title: "Retinol", Category: "Anti-Aging", Excerpt: "Wrinkles and acne..."},
		{Title: "Snail mucin", Category: "K-Beauty", Excerpt: "goo..."},
	}

	assert.Len(t, FilterPosts(posts, "", ""), 3)
	assert.Len(t, FilterPosts(posts, "All", ""), 3)
	assert.Len(t, FilterPosts(posts, "K-Beauty", ""), 1)
	assert.Len(t, FilterPosts(posts, "", "ACNE"), 2)
	assert.Len(t, FilterPosts(posts, "Acne Care", "wrinkles"), 0)
}

func TestRelatedProducts(t *testing.T) {
	products := []models.Product{
		{ID: "1", Name: "Gel Cleanser", Tags: []string{"acne", "cleanser"}},
		{ID: "2", Name: "Night Cream", Tags: []string{"dry-skin"}},
		{ID: "3", Name: "BHA Toner", Tags: []string{"exfoliant", "acne"}},
		{ID: "4", Name: "Lip Balm"},
	}

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{"shared tag", []string{"acne"}, []string{"1", "3"}},
		{"any of several", []string{"dry-skin", "cleanser"}, []string{"1", "2"}},
		{"no overlap", []string{"sunscreen"}, nil},
		{"untagged post", nil, nil},
		{"case sensitive", []string{"Acne"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelatedProducts(products, tt.tags)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSubscribeToNewsletter(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewNewsletterService(db)
	ctx := context.Background()

	require.NoError(t, svc.SubscribeToNewsletter(ctx, "ada@example.com", "footer"))

	err := svc.SubscribeToNewsletter(ctx, "ADA@example.com", "home-page")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.Equal(t, "This email is already subscribed to our newsletter.", err.Error())

	subs, err := svc.GetSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "footer", subs[0].Source)

	require.NoError(t, svc.DeleteSubscriber(ctx, subs[0].ID))
	subs, err = svc.GetSubscribers(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscribeToNewsletterDefaultsAndErrors(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewNewsletterService(db)
	ctx := context.Background()

	require.NoError(t, svc.SubscribeToNewsletter(ctx, "b@example.com", ""))
	subs, err := svc.GetSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSubscriberSource, subs[0].Source)

	_, ok := AsValidation(svc.SubscribeToNewsletter(ctx, "not-an-email", "footer"))
	assert.True(t, ok)

	db.Err = testutil.ErrBackend
	err = svc.SubscribeToNewsletter(ctx, "c@example.com", "footer")
	assert.ErrorIs(t, err, testutil.ErrBackend)
	assert.False(t, errors.Is(err, ErrAlreadySubscribed))
}

func TestSubmitContact(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewContactService(db)
	ctx := context.Background()

	require.NoError(t, svc.SubmitContact(ctx, models.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Hi"}))
	msgs, err := svc.GetContactMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DefaultContactSubject, msgs[0].Subject)

	err = svc.SubmitContact(ctx, models.ContactMessage{Name: "Ada", Email: "ada@example.com", Subject: "Spam", Message: "Hi"})
	_, ok := AsValidation(err)
	assert.True(t, ok)

	require.NoError(t, svc.DeleteContactMessage(ctx, msgs[0].ID))
	assert.Empty(t, db.Contacts)
}

func TestSignUpAndSignIn(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewUserService(db, auth.NewTokens("secret"), zerolog.Nop())
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Email: "Ada@example.com", Password: "hunter22", ConfirmPassword: "hunter22", DisplayName: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ada@example.com", sess.User.Email)

	prof, err := svc.GetProfile(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, prof.Role)

	in, err := svc.SignIn(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	user, err := svc.Authenticate(ctx, in.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)

	_, err = svc.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewUserService(db, auth.NewTokens("secret"), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "hunter22", ConfirmPassword: "hunter23"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, "Passwords do not match", err.Error())

	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "abc", ConfirmPassword: "abc"})
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "password", ve.Field)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "hunter22", ConfirmPassword: "hunter22"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "hunter22", ConfirmPassword: "hunter22"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestResolveRole(t *testing.T) {
	db := testutil.NewMemDB()
	svc := NewUserService(db, auth.NewTokens("secret"), zerolog.Nop())
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, SignUpInput{Email: "admin@example.com", Password: "hunter22", ConfirmPassword: "hunter22"})
	require.NoError(t, err)
	db.SetRole(sess.User.ID, models.RoleAdmin)
	assert.Equal(t, models.RoleAdmin, svc.ResolveRole(ctx, sess.User.ID))

	assert.Equal(t, models.RoleUser, svc.ResolveRole(ctx, "no-profile"))

	db.ProfileErr = testutil.ErrBackend
	assert.Equal(t, models.RoleUser, svc.ResolveRole(ctx, sess.User.ID))

	_, err = svc.GetProfile(ctx, sess.User.ID)
	assert.ErrorIs(t, err, testutil.ErrBackend)
}

type memStorage struct {
	keys    []string
	deleted []string
}

func (m *memStorage) UploadFile(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	m.keys = append(m.keys, key)
	return "https://cdn.example/" + key, nil
}

func (m *memStorage) DeleteFile(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) Key(publicURL string) (string, error) {
	key, ok := strings.CutPrefix(publicURL, "https://cdn.example/")
	if !ok {
		return "", errors.New("foreign url")
	}
	return key, nil
}

func TestMediaUpload(t *testing.T) {
	store := &memStorage{}
	svc := NewMediaService(store)

	url, err := svc.Upload(context.Background(), "my photo.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.Regexp(t, `^media/[0-9a-f-]{36}/my_photo\.png$`, store.keys[0])
	assert.Equal(t, "https://cdn.example/"+store.keys[0], url)

	_, err = svc.Upload(context.Background(), "run.sh", "text/x-sh", strings.NewReader("#!"))
	_, ok := AsValidation(err)
	assert.True(t, ok)
}

func TestMediaDelete(t *testing.T) {
	store := &memStorage{}
	svc := NewMediaService(store)

	require.NoError(t, svc.Delete(context.Background(), "https://cdn.example/media/id/a.png"))
	assert.Equal(t, []string{"media/id/a.png"}, store.deleted)

	for _, raw := range []string{"https://elsewhere.example/a.png", "https://cdn.example/secrets/db.sql"} {
		_, ok := AsValidation(svc.Delete(context.Background(), raw))
		assert.True(t, ok, raw)
	}
	assert.Len(t, store.deleted, 1)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "media/id/evil.png", objectKey("id", "../../evil.png"))
	assert.Equal(t, "media/id/c.png", objectKey("id", `C:\a\c.png`))
	assert.Equal(t, "media/id/upload", objectKey("id", ""))
}
