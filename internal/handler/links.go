package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

func (h *Handler) shortURL(r *http.Request, code string) string {
	if h.BaseURL != "" {
		return h.BaseURL + "/" + code
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, r.Host, code)
}

// CreateShort accepts both anonymous and authenticated submissions; an
// attached identity becomes the link's owner.
func (h *Handler) CreateShort(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var ownerID *uuid.UUID
	if user := currentUser(r); user != nil {
		ownerID = &user.ID
	}

	link, err := h.Links.CreateShort(r.Context(), req.URL, ownerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shortenResponse{
		ShortURL:  h.shortURL(r, link.ShortCode),
		ShortCode: link.ShortCode,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	links, err := h.Links.History(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *Handler) DeleteShort(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	linkID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "URL not found")
		return
	}

	if err := h.Links.DeleteOne(r.Context(), linkID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Short URL deleted."})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	deleted, err := h.Links.DeleteAll(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All history deleted.",
		"deleted": deleted,
	})
}

// Redirect is the unauthenticated hot path: count the click and send a
// temporary redirect so clients keep coming back through the counter.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		writeError(w, http.StatusNotFound, "link not found")
		return
	}

	link, err := h.Links.Resolve(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}
