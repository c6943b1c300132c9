package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	JWTSecret string
	AdminHash []byte
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/auth/login. The credential is the configured admin
// token; a successful login returns a Bearer session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.AdminHash == nil {
		jsonError(w, http.StatusServiceUnavailable, "admin access is not configured")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" {
		jsonError(w, http.StatusBadRequest, "token required")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.AdminHash, []byte(req.Token)); err != nil {
		slog.Warn("api login failed", "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session, err := auth.GenerateToken(h.JWTSecret)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("admin logged in via api")
	jsonResponse(w, http.StatusOK, loginResponse{Token: session})
}
