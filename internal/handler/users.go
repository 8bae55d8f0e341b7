package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateAccountRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword,omitempty"`
}

type accountResponse struct {
	Message  string    `json:"message"`
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	APIKey   string    `json:"apiKey,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	user, err := h.Users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Message:  "Registration successful!",
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		APIKey:   user.APIKey,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	user, err := h.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Message:  "Login successful!",
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		APIKey:   user.APIKey,
	})
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	updated, err := h.Users.UpdateAccount(r.Context(), user, req.Username, req.Email, req.NewPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Message:  "Account updated successfully.",
		ID:       updated.ID,
		Username: updated.Username,
		Email:    updated.Email,
	})
}
