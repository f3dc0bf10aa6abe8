package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/services"
)

type BlogHandler struct {
	blogs *services.BlogService
}

func NewBlogHandler(blogs *services.BlogService) *BlogHandler {
	return &BlogHandler{blogs: blogs}
}

// List supports the same ?category= and ?q= filters as the blog page.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blogs.GetBlogPosts(r.Context())
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	q := r.URL.Query()
	respond.JSON(w, http.StatusOK, services.FilterPosts(posts, q.Get("category"), q.Get("q")))
}

func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogs.GetBlogPost(r.Context(), titleParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Exists lets the editor warn about a taken title before submitting.
func (h *BlogHandler) Exists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.blogs.CheckBlogPostExists(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"exists": ok})
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.BlogPostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	post, err := h.blogs.CreateBlogPost(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, post)
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.BlogPostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	post, err := h.blogs.UpdateBlogPost(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.blogs.DeleteBlogPost(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Internal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
