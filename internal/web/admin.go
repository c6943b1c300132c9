package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

type adminLoginData struct {
	PageData
	Next string
}

// AdminLoginPage handles GET /admin/login.
func (s *Server) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "admin_login.html", &adminLoginData{
		PageData: PageData{Title: "Admin login"},
		Next:     r.URL.Query().Get("next"),
	})
}

// AdminLoginSubmit handles POST /admin/login.
func (s *Server) AdminLoginSubmit(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	next := r.FormValue("next")

	if token == "" || bcrypt.CompareHashAndPassword(s.AdminHash, []byte(token)) != nil {
		slog.Warn("admin login failed", "remote", r.RemoteAddr)
		s.Templates.Render(w, "admin_login.html", &adminLoginData{
			PageData: PageData{Title: "Admin login", Error: "Incorrect admin token."},
			Next:     next,
		})
		return
	}

	session, err := auth.GenerateToken(s.JWTSecret)
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		s.Templates.Render(w, "admin_login.html", &adminLoginData{
			PageData: PageData{Title: "Admin login", Error: "Login failed. Please try again."},
			Next:     next,
		})
		return
	}

	setAuthCookie(w, session)
	slog.Info("admin logged in", "remote", r.RemoteAddr)
	http.Redirect(w, r, safeNext(next, "/admin"), http.StatusSeeOther)
}

// AdminLogout handles POST /admin/logout. The session's JTI is revoked so the
// cookie value is dead even if copied.
func (s *Server) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("admin_token"); err == nil && cookie.Value != "" {
		if claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value); err == nil && claims.ID != "" {
			if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				slog.Error("failed to revoke session token", "error", err)
			}
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// AdminPage handles GET /admin and lists every item regardless of status.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), s.DB, store.ViewAdmin)
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}

	s.Templates.Render(w, "admin.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: s.pageData(r, "Moderation"),
		Items:    items,
	})
}

// AdminRestoreSubmit handles POST /admin/items/{id}/restore and puts a
// claimed item back in the public listing.
func (s *Server) AdminRestoreSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/admin?msg=notfound", http.StatusSeeOther)
		return
	}

	changed, err := store.SetItemStatus(r.Context(), s.DB, id, model.ItemStatusAvailable)
	if err != nil {
		slog.Error("failed to restore item", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !changed {
		http.Redirect(w, r, "/admin?msg=notfound", http.StatusSeeOther)
		return
	}

	slog.Info("item restored", "id", id)
	http.Redirect(w, r, "/admin?msg=restored", http.StatusSeeOther)
}

// AdminDeleteSubmit handles POST /admin/items/{id}/delete. The row goes first;
// the artifact follows, and a failed artifact removal is logged, not surfaced.
func (s *Server) AdminDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/admin?msg=notfound", http.StatusSeeOther)
		return
	}

	filename, err := store.DeleteItem(r.Context(), s.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		http.Redirect(w, r, "/admin?msg=notfound", http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("failed to delete item", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if filename != "" {
		if err := s.Uploads.Delete(filename); err != nil {
			slog.Error("failed to delete artifact", "name", filename, "error", err)
		}
	}

	slog.Info("item deleted", "id", id)
	http.Redirect(w, r, "/admin?msg=deleted", http.StatusSeeOther)
}

// AdminDisabled answers admin routes when no admin token is configured.
func (s *Server) AdminDisabled(w http.ResponseWriter, r *http.Request) {
	slog.Warn("admin route hit with no admin token configured", "path", r.URL.Path)
	http.Error(w, "admin access is not configured", http.StatusServiceUnavailable)
}
