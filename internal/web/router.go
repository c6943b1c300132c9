package web

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/artifact"
	"github.com/erazemk/najdeno/internal/imaging"
	webembed "github.com/erazemk/najdeno/web"
)

// Options holds the dependencies for the web router.
type Options struct {
	DB             *sql.DB
	Uploads        *artifact.Store
	Pipeline       *imaging.Pipeline
	JWTSecret      string
	AdminHash      []byte // nil when no admin token is configured
	MaxUploadBytes int64
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:             opts.DB,
		Templates:      templates,
		Uploads:        opts.Uploads,
		Pipeline:       opts.Pipeline,
		JWTSecret:      opts.JWTSecret,
		AdminHash:      opts.AdminHash,
		MaxUploadBytes: opts.MaxUploadBytes,
	}

	mux := http.NewServeMux()

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /{$}", s.IndexPage)
	mux.HandleFunc("GET /report", s.ReportPage)
	mux.HandleFunc("POST /report", s.ReportSubmit)
	mux.HandleFunc("GET /items/{id}", s.ItemDetailPage)
	mux.HandleFunc("POST /items/{id}/claim", s.ClaimSubmit)
	mux.HandleFunc("GET /uploads/{name}", s.UploadGet)

	// Admin routes. With no admin token configured the whole subtree answers
	// 503 instead of offering a login form nobody can pass.
	if s.AdminHash == nil {
		mux.HandleFunc("/admin", s.AdminDisabled)
		mux.HandleFunc("/admin/", s.AdminDisabled)
		return mux, nil
	}

	cookieAuth := CookieAuthMiddleware(opts.JWTSecret, opts.DB)

	mux.HandleFunc("GET /admin/login", s.AdminLoginPage)
	mux.HandleFunc("POST /admin/login", s.AdminLoginSubmit)
	mux.HandleFunc("POST /admin/logout", s.AdminLogout)

	mux.Handle("GET /admin", cookieAuth(http.HandlerFunc(s.AdminPage)))
	mux.Handle("POST /admin/items/{id}/restore", cookieAuth(http.HandlerFunc(s.AdminRestoreSubmit)))
	mux.Handle("POST /admin/items/{id}/delete", cookieAuth(http.HandlerFunc(s.AdminDeleteSubmit)))

	return mux, nil
}
