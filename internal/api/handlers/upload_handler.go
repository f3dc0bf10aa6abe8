package handlers

import (
	"net/http"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/services"
)

type UploadHandler struct {
	media *services.MediaService
}

// NewUploadHandler builds the handler; a nil media service answers 503.
func NewUploadHandler(media *services.MediaService) *UploadHandler {
	return &UploadHandler{media: media}
}

// Upload stores the multipart "file" field and returns its public URL.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		respond.Error(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(services.MaxUploadBytes); err != nil {
		respond.FieldError(w, http.StatusBadRequest, "file", "File is missing or too large.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.FieldError(w, http.StatusBadRequest, "file", "File is missing.")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := h.media.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Delete removes the upload named by the "url" query parameter.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		respond.Error(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	if err := h.media.Delete(r.Context(), r.URL.Query().Get("url")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
