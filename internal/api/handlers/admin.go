package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lazvid/backend/internal/api/middleware"
	"github.com/lazvid/backend/internal/auth"
	"github.com/lazvid/backend/internal/db"
	"github.com/lazvid/backend/internal/db/models"
)

type AdminHandler struct {
	db      *db.Database
	limiter *middleware.RateLimiter
}

func NewAdminHandler(db *db.Database, limiter *middleware.RateLimiter) *AdminHandler {
	return &AdminHandler{db: db, limiter: limiter}
}

// RateLimitStatus shows which IPs are being throttled on login
func (h *AdminHandler) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.limiter.Status(), http.StatusOK)
}

// ClearRateLimit lifts all login throttles
func (h *AdminHandler) ClearRateLimit(w http.ResponseWriter, r *http.Request) {
	h.limiter.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns all users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		jsonError(w, "failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, users, http.StatusOK)
}

// CreateUser creates a new user
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleViewer
	}
	if !models.ValidRole(req.Role) {
		jsonError(w, "role must be one of: admin, editor, viewer", http.StatusBadRequest)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	id, err := h.db.CreateUser(req.Username, hashed, req.Role)
	if err != nil {
		jsonError(w, "failed to create user (username may already exist)", http.StatusConflict)
		return
	}

	jsonResponse(w, map[string]interface{}{"id": id, "username": req.Username, "role": req.Role}, http.StatusCreated)
}

// DeleteUser removes a user. Admins cannot delete themselves or the last admin.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	if claims := middleware.GetClaims(r); claims != nil && claims.UserID == id {
		jsonError(w, "cannot delete yourself", http.StatusBadRequest)
		return
	}

	err = h.db.DeleteUser(id)
	switch {
	case errors.Is(err, db.ErrLastAdmin):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		jsonError(w, "user not found", http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
