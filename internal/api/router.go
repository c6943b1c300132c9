package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/artifact"
	"github.com/erazemk/najdeno/internal/imaging"
)

// Options holds the dependencies for the API router.
type Options struct {
	DB             *sql.DB
	Uploads        *artifact.Store
	Pipeline       *imaging.Pipeline
	JWTSecret      string
	AdminHash      []byte // nil when no admin token is configured
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{JWTSecret: opts.JWTSecret, AdminHash: opts.AdminHash}
	itemsHandler := &ItemsHandler{
		DB:             opts.DB,
		Uploads:        opts.Uploads,
		Pipeline:       opts.Pipeline,
		JWTSecret:      opts.JWTSecret,
		MaxUploadBytes: opts.MaxUploadBytes,
	}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)

	// Public: login, browsing, reporting, claiming.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("POST /api/items/{id}/claim", itemsHandler.Claim)

	// Admin: moderation.
	mux.Handle("POST /api/items/{id}/restore", authMW(http.HandlerFunc(itemsHandler.Restore)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))

	return mux
}
