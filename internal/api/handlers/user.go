package handlers

import (
	"net/http"

	"github.com/lazvid/backend/internal/api/middleware"
	"github.com/lazvid/backend/internal/auth"
	"github.com/lazvid/backend/internal/db"
)

const minPasswordLen = 6

type UserHandler struct {
	db *db.Database
}

func NewUserHandler(db *db.Database) *UserHandler {
	return &UserHandler{db: db}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword lets the caller replace their own password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		jsonError(w, "new password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		jsonError(w, "current password is incorrect", http.StatusForbidden)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		jsonError(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.db.UpdatePassword(user.ID, hash); err != nil {
		jsonError(w, "failed to update password", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
