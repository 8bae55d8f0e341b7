package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"urlshort/internal/service"
)

type Handler struct {
	Links *service.Links
	Users *service.Users

	// BaseURL overrides the short-URL prefix in responses; when empty it
	// is derived from the incoming request.
	BaseURL string
}

func NewHandler(links *service.Links, users *service.Users, baseURL string) *Handler {
	return &Handler{Links: links, Users: users, BaseURL: baseURL}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.withAPIKeyUser)
	api.HandleFunc("/auth/register", h.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/account", h.UpdateAccount).Methods("PUT")
	api.HandleFunc("/url", h.CreateShort).Methods("POST")
	api.HandleFunc("/url/history", h.History).Methods("GET")
	api.HandleFunc("/url/history", h.ClearHistory).Methods("DELETE")
	api.HandleFunc("/url/history/{id}", h.DeleteShort).Methods("DELETE")

	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/{code}", h.Redirect).Methods("GET")

	r.Use(requestLogger)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		log.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
