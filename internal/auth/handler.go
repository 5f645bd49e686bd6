package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shramsetu/backend/internal/middleware"
)

type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Company  string `json:"company"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Register handles POST /auth/register. The body shape is checked by the register schema.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Phone == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		http.Error(w, `{"error":"missing required fields"}`, http.StatusBadRequest)
		return
	}
	acc, err := h.svc.Register(r.Context(), req.Phone, req.Password, req.Name, req.Role, req.Company)
	switch {
	case errors.Is(err, ErrDuplicatePhone):
		http.Error(w, `{"error":"phone already registered"}`, http.StatusConflict)
		return
	case errors.Is(err, ErrInvalidRole):
		http.Error(w, `{"error":"role must be worker or employer"}`, http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error("register failed", "error", err)
		http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Phone == "" || req.Password == "" {
		http.Error(w, `{"error":"missing phone or password"}`, http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Phone, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Error("login failed", "error", err)
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// Logout handles POST /auth/logout. The session is gone after this even if the JWT has not expired.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
		return
	}
	if err := h.svc.Logout(r.Context(), token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		h.log.Error("logout failed", "error", err)
		http.Error(w, `{"error":"logout failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

