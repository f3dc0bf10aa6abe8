package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	"github.com/markdave123-py/Shopvora/internal/models"
	"github.com/markdave123-py/Shopvora/internal/services"
)

type ContactHandler struct {
	contacts   *services.ContactService
	newsletter *services.NewsletterService
}

func NewContactHandler(contacts *services.ContactService, newsletter *services.NewsletterService) *ContactHandler {
	return &ContactHandler{contacts: contacts, newsletter: newsletter}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in models.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.contacts.SubmitContact(r.Context(), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.contacts.GetContactMessages(r.Context())
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.DeleteContactMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Internal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *ContactHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.newsletter.SubscribeToNewsletter(r.Context(), in.Email, in.Source); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *ContactHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	out, err := h.newsletter.GetSubscribers(r.Context())
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *ContactHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.newsletter.DeleteSubscriber(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Internal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
