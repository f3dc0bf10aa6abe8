package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	middleware "github.com/markdave123-py/Shopvora/internal/api/middlewares"
	"github.com/markdave123-py/Shopvora/internal/editor"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/services"
	"github.com/markdave123-py/Shopvora/web"
)

const loadFailed = "We couldn't load this content right now. Please try again later."

var pageNames = []string{
	"home", "about", "blog", "post", "guide", "contact", "login", "signup",
	"profile", "admin", "legal", "notfound",
}

// Admin tabs in display order.
var adminTabs = []string{"products", "blogs", "contacts", "subscribers"}

var adminNotices = map[string]string{
	"product-created":    "Product created successfully!",
	"product-updated":    "Product updated successfully!",
	"product-deleted":    "Product deleted.",
	"post-created":       "Blog post created successfully!",
	"post-updated":       "Blog post updated successfully!",
	"post-deleted":       "Blog post deleted.",
	"contact-deleted":    "Message deleted.",
	"subscriber-deleted": "Subscriber removed.",
}

var newsletterNotices = map[string]string{
	"ok":      "🎉 Successfully subscribed!",
	"exists":  services.ErrAlreadySubscribed.Message,
	"invalid": "Please enter a valid email address.",
	"failed":  "Something went wrong. Please try again.",
}

type PageDeps struct {
	Products   *services.ProductService
	Blogs      *services.BlogService
	Contacts   *services.ContactService
	Newsletter *services.NewsletterService
	Users      *services.UserService
	Auth       *AuthHandler
	PublicKey  string
}

// Pages renders the server-side views of the site.
type Pages struct {
	PageDeps
	views   map[string]*template.Template
	legal   map[string]template.HTML
	toolbar template.JS
}

// view is the data every page template receives.
type view struct {
	Title       string
	Description string
	Image       string
	Identity    *middleware.Identity
	PublicKey   string
	Path        string
	Notice      string
	Error       string
	Field       string
	Form        url.Values
	Newsletter  string

	Products    []models.Product
	Related     []models.Product
	Posts       []models.BlogPost
	Post        *models.BlogPost
	Categories  []string
	Category    string
	Query       string
	Subjects    []string
	Contacts    []models.ContactMessage
	Subscribers []models.Subscriber
	Profile     *models.UserProfile
	Tab         string
	Tabs        []string
	EditID      string
	Legal       template.HTML
	Toolbar     template.JS
	Next        string
}

func NewPages(deps PageDeps) (*Pages, error) {
	funcs := template.FuncMap{
		"join":       strings.Join,
		"pathEscape": url.PathEscape,
		"content":    func(s string) template.HTML { return template.HTML(editor.Sanitize(s)) },
		"date":       func(t time.Time) string { return t.Format("Jan 2, 2006") },
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
	p := &Pages{
		PageDeps: deps,
		views:    make(map[string]*template.Template, len(pageNames)),
		legal:    map[string]template.HTML{},
	}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(web.FS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.views[name] = t
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	for _, name := range []string{"privacy", "terms"} {
		src, err := fs.ReadFile(web.FS, "content/"+name+".md")
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := md.Convert(src, &buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		p.legal[name] = template.HTML(buf.String())
	}

	cfg, err := editor.Toolbar().JSON()
	if err != nil {
		return nil, err
	}
	p.toolbar = template.JS(cfg)
	return p, nil
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, v *view) {
	v.Identity = middleware.FromContext(r.Context())
	v.PublicKey = p.PublicKey
	v.Path = r.URL.Path
	if msg, ok := newsletterNotices[r.URL.Query().Get("newsletter")]; ok {
		v.Newsletter = msg
	}

	var buf bytes.Buffer
	if err := p.views[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formError shows a validation problem inline, and anything else as the
// generic failure banner.
func formError(r *http.Request, v *view, err error) int {
	if ve, ok := services.AsValidation(err); ok {
		v.Error, v.Field = ve.Message, ve.Field
		return http.StatusBadRequest
	}
	if errors.Is(err, services.ErrInvalidCredentials) {
		v.Error = "Invalid email or password."
		return http.StatusUnauthorized
	}
	hlog.FromRequest(r).Error().Err(err).Msg("form submission failed")
	v.Error = "Something went wrong. Please try again."
	return http.StatusInternalServerError
}

func (p *Pages) loadFailed(r *http.Request, v *view, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("page data failed to load")
	v.Error = loadFailed
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "Skincare made simple"}
	posts, err := p.Blogs.GetBlogPosts(r.Context())
	if err != nil {
		p.loadFailed(r, v, err)
	}
	products, err := p.Products.GetProducts(r.Context())
	if err != nil {
		p.loadFailed(r, v, err)
	}
	v.Posts = firstN(posts, 3)
	v.Products = firstN(products, 4)
	p.render(w, r, http.StatusOK, "home", v)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (p *Pages) About(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "about", &view{Title: "Our Story"})
}

func (p *Pages) Guide(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "The Ultimate Skincare Guide"}
	products, err := p.Products.GetProducts(r.Context())
	if err != nil {
		p.loadFailed(r, v, err)
	}
	v.Products = firstN(products, 3)
	p.render(w, r, http.StatusOK, "guide", v)
}

func (p *Pages) Blog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := &view{
		Title:      "Blog",
		Categories: append([]string{"All"}, models.BlogCategories...),
		Category:   q.Get("category"),
		Query:      q.Get("q"),
	}
	if v.Category == "" {
		v.Category = "All"
	}
	posts, err := p.Blogs.GetBlogPosts(r.Context())
	if err != nil {
		p.loadFailed(r, v, err)
	}
	v.Posts = services.FilterPosts(posts, v.Category, v.Query)
	p.render(w, r, http.StatusOK, "blog", v)
}

func (p *Pages) Post(w http.ResponseWriter, r *http.Request) {
	post, err := p.Blogs.GetBlogPost(r.Context(), titleParam(r))
	if errors.Is(err, services.ErrNotFound) {
		p.NotFound(w, r)
		return
	}
	v := &view{Title: "Blog"}
	if err != nil {
		p.loadFailed(r, v, err)
		p.render(w, r, http.StatusInternalServerError, "post", v)
		return
	}
	v.Title, v.Post = post.Title, post
	v.Description, v.Image = post.Excerpt, post.Image
	products, err := p.Products.GetProducts(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("related products failed to load")
	}
	v.Related = services.RelatedProducts(products, post.Tags)
	p.render(w, r, http.StatusOK, "post", v)
}

// titleParam reads the {title} segment. chi routes on RawPath when the
// request has one, and only then is the segment still escaped.
func titleParam(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if r.URL.RawPath == "" {
		return raw
	}
	if t, err := url.PathUnescape(raw); err == nil {
		return t
	}
	return raw
}

func (p *Pages) Contact(w http.ResponseWriter, r *http.Request) {
	v := &view{Title: "Contact Us", Subjects: models.ContactSubjects}
	if r.URL.Query().Get("sent") == "1" {
		v.Notice = "Thanks for reaching out! We'll get back to you soon."
	}
	p.render(w, r, http.StatusOK, "contact", v)
}

func (p *Pages) SubmitContact(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	msg := models.ContactMessage{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Message: r.PostForm.Get("message"),
	}
	if err := p.Contacts.SubmitContact(r.Context(), msg); err != nil {
		v := &view{Title: "Contact Us", Subjects: models.ContactSubjects, Form: r.PostForm}
		p.render(w, r, formError(r, v, err), "contact", v)
		return
	}
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

// Subscribe handles the newsletter forms and returns to the page they sit on.
func (p *Pages) Subscribe(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	back := safeNext(r.PostForm.Get("next"), "/")
	status := "ok"
	err := p.Newsletter.SubscribeToNewsletter(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("source"))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrAlreadySubscribed):
		status = "exists"
	default:
		if _, ok := services.AsValidation(err); ok {
			status = "invalid"
		} else {
			hlog.FromRequest(r).Error().Err(err).Msg("newsletter signup failed")
			status = "failed"
		}
	}
	http.Redirect(w, r, withQuery(back, "newsletter", status), http.StatusSeeOther)
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		return "/"
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"), "/")
	if middleware.FromContext(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	p.render(w, r, http.StatusOK, "login", &view{Title: "Sign In", Next: next})
}

func (p *Pages) SubmitLogin(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	next := safeNext(r.PostForm.Get("next"), "/")
	sess, err := p.Users.SignIn(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		v := &view{Title: "Sign In", Next: next, Form: r.PostForm}
		v.Form.Del("password")
		p.render(w, r, formError(r, v, err), "login", v)
		return
	}
	p.Auth.setCookie(w, sess.Token)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (p *Pages) Signup(w http.ResponseWriter, r *http.Request) {
	if middleware.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	p.render(w, r, http.StatusOK, "signup", &view{Title: "Create Account"})
}

func (p *Pages) SubmitSignup(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	sess, err := p.Users.SignUp(r.Context(), services.SignUpInput{
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
		DisplayName:     r.PostForm.Get("display_name"),
	})
	if err != nil {
		v := &view{Title: "Create Account", Form: r.PostForm}
		v.Form.Del("password")
		v.Form.Del("confirm_password")
		p.render(w, r, formError(r, v, err), "signup", v)
		return
	}
	p.Auth.setCookie(w, sess.Token)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (p *Pages) Logout(w http.ResponseWriter, r *http.Request) {
	p.Auth.clearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) Profile(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	v := &view{Title: "Your Profile"}
	prof, err := p.Users.GetProfile(r.Context(), id.User.ID)
	if err != nil {
		p.loadFailed(r, v, err)
	}
	v.Profile = prof
	p.render(w, r, http.StatusOK, "profile", v)
}

func (p *Pages) Privacy(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "legal", &view{Title: "Privacy Policy", Legal: p.legal["privacy"]})
}

func (p *Pages) Terms(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "legal", &view{Title: "Terms and Conditions", Legal: p.legal["terms"]})
}

func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, "notfound", &view{Title: "Page Not Found"})
}

// Admin dashboard

func (p *Pages) Admin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := p.adminView(q.Get("tab"))
	v.Notice = adminNotices[q.Get("notice")]
	p.loadAdmin(r, v)
	if edit := q.Get("edit"); edit != "" {
		p.prefill(v, edit)
	}
	p.render(w, r, http.StatusOK, "admin", v)
}

func (p *Pages) adminView(tab string) *view {
	valid := false
	for _, t := range adminTabs {
		valid = valid || t == tab
	}
	if !valid {
		tab = adminTabs[0]
	}
	return &view{
		Title:      "Admin Dashboard",
		Tab:        tab,
		Tabs:       adminTabs,
		Categories: models.BlogCategories,
		Toolbar:    p.toolbar,
	}
}

func (p *Pages) loadAdmin(r *http.Request, v *view) {
	var err error
	switch v.Tab {
	case "products":
		v.Products, err = p.Products.GetProducts(r.Context())
	case "blogs":
		v.Posts, err = p.Blogs.GetBlogPosts(r.Context())
	case "contacts":
		v.Contacts, err = p.Contacts.GetContactMessages(r.Context())
	case "subscribers":
		v.Subscribers, err = p.Newsletter.GetSubscribers(r.Context())
	}
	if err != nil {
		p.loadFailed(r, v, err)
	}
}

// prefill copies the item being edited into the form.
func (p *Pages) prefill(v *view, id string) {
	switch v.Tab {
	case "products":
		for _, pr := range v.Products {
			if pr.ID == id {
				v.EditID = id
				v.Form = url.Values{
					"name":        {pr.Name},
					"brand":       {pr.Brand},
					"price":       {strings.TrimPrefix(pr.Price, "$")},
					"image":       {pr.Image},
					"description": {pr.Description},
					"tags":        {strings.Join(pr.Tags, ", ")},
					"amazon_url":  {pr.AffiliateLinks[models.MarketplaceAmazon]},
				}
			}
		}
	case "blogs":
		for _, post := range v.Posts {
			if post.ID == id {
				v.EditID = id
				v.Form = url.Values{
					"title":     {post.Title},
					"content":   {post.Content},
					"category":  {post.Category},
					"image_url": {post.Image},
					"read_time": {strings.TrimSuffix(post.ReadTime, " min read")},
					"tags":      {strings.Join(post.Tags, ", ")},
				}
			}
		}
	}
}

// adminFailed re-renders the dashboard with the submitted form.
func (p *Pages) adminFailed(w http.ResponseWriter, r *http.Request, tab, editID string, err error) {
	v := p.adminView(tab)
	p.loadAdmin(r, v)
	status := formError(r, v, err)
	v.Form, v.EditID = r.PostForm, editID
	p.render(w, r, status, "admin", v)
}

func adminDone(w http.ResponseWriter, r *http.Request, tab, notice string) {
	http.Redirect(w, r, "/admin?tab="+tab+"&notice="+notice, http.StatusSeeOther)
}

func productForm(f url.Values) models.ProductInput {
	in := models.ProductInput{
		Name:        f.Get("name"),
		Brand:       f.Get("brand"),
		Price:       f.Get("price"),
		Image:       f.Get("image"),
		Description: f.Get("description"),
		Tags:        services.SplitTags(f.Get("tags")),
	}
	if link := strings.TrimSpace(f.Get("amazon_url")); link != "" {
		in.AffiliateLinks = map[string]string{models.MarketplaceAmazon: link}
	}
	return in
}

func blogForm(f url.Values) models.BlogPostInput {
	readTime, _ := strconv.Atoi(strings.TrimSpace(f.Get("read_time")))
	return models.BlogPostInput{
		Title:    f.Get("title"),
		Content:  f.Get("content"),
		Category: f.Get("category"),
		ImageURL: f.Get("image_url"),
		ReadTime: readTime,
		Tags:     services.SplitTags(f.Get("tags")),
	}
}

func (p *Pages) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if _, err := p.Products.CreateProduct(r.Context(), productForm(r.PostForm)); err != nil {
		p.adminFailed(w, r, "products", "", err)
		return
	}
	adminDone(w, r, "products", "product-created")
}

func (p *Pages) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	id := chi.URLParam(r, "id")
	if _, err := p.Products.UpdateProduct(r.Context(), id, productForm(r.PostForm)); err != nil {
		p.adminFailed(w, r, "products", id, err)
		return
	}
	adminDone(w, r, "products", "product-updated")
}

func (p *Pages) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := p.Products.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		p.adminFailed(w, r, "products", "", err)
		return
	}
	adminDone(w, r, "products", "product-deleted")
}

func (p *Pages) AdminCreatePost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if _, err := p.Blogs.CreateBlogPost(r.Context(), blogForm(r.PostForm)); err != nil {
		p.adminFailed(w, r, "blogs", "", err)
		return
	}
	adminDone(w, r, "blogs", "post-created")
}

func (p *Pages) AdminUpdatePost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	id := chi.URLParam(r, "id")
	if _, err := p.Blogs.UpdateBlogPost(r.Context(), id, blogForm(r.PostForm)); err != nil {
		p.adminFailed(w, r, "blogs", id, err)
		return
	}
	adminDone(w, r, "blogs", "post-updated")
}

func (p *Pages) AdminDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := p.Blogs.DeleteBlogPost(r.Context(), chi.URLParam(r, "id")); err != nil {
		p.adminFailed(w, r, "blogs", "", err)
		return
	}
	adminDone(w, r, "blogs", "post-deleted")
}

func (p *Pages) AdminDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := p.Contacts.DeleteContactMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		p.adminFailed(w, r, "contacts", "", err)
		return
	}
	adminDone(w, r, "contacts", "contact-deleted")
}

func (p *Pages) AdminDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := p.Newsletter.DeleteSubscriber(r.Context(), chi.URLParam(r, "id")); err != nil {
		p.adminFailed(w, r, "subscribers", "", err)
		return
	}
	adminDone(w, r, "subscribers", "subscriber-deleted")
}
