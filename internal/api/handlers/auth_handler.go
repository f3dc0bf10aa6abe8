package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
	middleware "github.com/markdave123-py/Shopvora/internal/api/middlewares"
	"github.com/markdave123-py/Shopvora/internal/auth"
	"github.com/markdave123-py/Shopvora/internal/services"
)

type AuthHandler struct {
	users        *services.UserService
	cookieSecure bool
}

func NewAuthHandler(users *services.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{users: users, cookieSecure: cookieSecure}
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignUpInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess, err := h.users.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setCookie(w, sess.Token)
	respond.JSON(w, http.StatusCreated, sess)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess, err := h.users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.setCookie(w, sess.Token)
	respond.JSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, middleware.FromContext(r.Context()).User)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id := middleware.FromContext(r.Context())
	p, err := h.users.GetProfile(r.Context(), id.User.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.TokenTTL),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeServiceError maps service errors onto API statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadySubscribed), errors.Is(err, services.ErrDuplicateTitle),
		errors.Is(err, services.ErrEmailTaken):
		ve, _ := services.AsValidation(err)
		respond.FieldError(w, http.StatusConflict, ve.Field, ve.Message)
	case errors.Is(err, services.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	default:
		if ve, ok := services.AsValidation(err); ok {
			respond.FieldError(w, http.StatusBadRequest, ve.Field, ve.Message)
			return
		}
		respond.Internal(w, r, err)
	}
}
