package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// pageData builds the base template data, picking up any banner code from the
// msg query parameter set by a preceding redirect.
func (s *Server) pageData(r *http.Request, title string) PageData {
	pd := PageData{Title: title, Admin: IsAdmin(r.Context())}
	if code := r.URL.Query().Get("msg"); code != "" {
		if m, ok := bannerMessages[code]; ok {
			pd.Success = m
		} else if m, ok := errorBanners[code]; ok {
			pd.Error = m
		}
	}
	return pd
}

// IndexPage handles GET /.
func (s *Server) IndexPage(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), s.DB, store.ViewPublic)
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}

	s.Templates.Render(w, "index.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: s.pageData(r, "Lost & Found"),
		Items:    items,
	})
}

// reportForm carries entered values back to a redisplayed report form.
type reportForm struct {
	Name        string
	Description string
	DateFound   string
	Location    string
}

func (s *Server) renderReport(w http.ResponseWriter, form reportForm, errMsg string) {
	s.Templates.Render(w, "report.html", &struct {
		PageData
		Form reportForm
	}{
		PageData: PageData{Title: "Report a found item", Error: errMsg},
		Form:     form,
	})
}

// ReportPage handles GET /report.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "report.html", &struct {
		PageData
		Form reportForm
	}{
		PageData: s.pageData(r, "Report a found item"),
	})
}

// ReportSubmit handles POST /report. Validation failures redisplay the form
// with the entered values; only a fully successful report redirects.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			s.renderReport(w, reportForm{}, uploadTooLargeMessage(s.MaxUploadBytes))
			return
		}
		s.renderReport(w, reportForm{}, "Image upload failed. Please choose the photo again.")
		return
	}

	form := reportForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		DateFound:   strings.TrimSpace(r.FormValue("date_found")),
		Location:    strings.TrimSpace(r.FormValue("location")),
	}

	if form.Name == "" {
		s.renderReport(w, form, "Item name is required.")
		return
	}
	if form.DateFound != "" && !model.ValidDate(form.DateFound) {
		// Malformed dates fall back to today rather than blocking the report.
		form.DateFound = ""
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.renderReport(w, form, "Image file is required.")
		return
	}
	defer file.Close()

	// Advisory only: the sniffed format decides what the payload is.
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		slog.Warn("upload declared non-image content type", "content_type", ct, "filename", header.Filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		s.renderReport(w, form, "Image upload failed. Please choose the photo again.")
		return
	}

	filename, err := s.Pipeline.Ingest(data)
	if err != nil {
		slog.Warn("image ingestion failed", "error", err)
		s.renderReport(w, form, pipelineErrorMessage(err))
		return
	}

	item, err := store.CreateItem(r.Context(), s.DB, store.ItemParams{
		Name:          form.Name,
		Description:   form.Description,
		DateFound:     form.DateFound,
		Location:      form.Location,
		ImageFilename: filename,
	})
	if err != nil {
		// The artifact must not outlive a failed insert.
		if derr := s.Uploads.Delete(filename); derr != nil {
			slog.Error("failed to remove artifact after insert failure", "name", filename, "error", derr)
		}
		if errors.Is(err, store.ErrValidation) {
			s.renderReport(w, form, "Item name is required.")
			return
		}
		slog.Error("failed to create item", "error", err)
		s.renderReport(w, form, "Could not save the item. Please try again.")
		return
	}

	slog.Info("item reported", "id", item.ID, "name", item.Name)
	http.Redirect(w, r, "/?msg=reported", http.StatusSeeOther)
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.NotFoundPage(w, r)
		return
	}

	item, err := store.GetItem(r.Context(), s.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		s.NotFoundPage(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to get item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item *model.Item
	}{
		PageData: s.pageData(r, item.Name),
		Item:     item,
	})
}

// ClaimSubmit handles POST /items/{id}/claim.
func (s *Server) ClaimSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/?msg=notfound", http.StatusSeeOther)
		return
	}

	changed, err := store.SetItemStatus(r.Context(), s.DB, id, model.ItemStatusClaimed)
	if err != nil {
		slog.Error("failed to claim item", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !changed {
		http.Redirect(w, r, "/?msg=notfound", http.StatusSeeOther)
		return
	}

	slog.Info("item claimed", "id", id)
	http.Redirect(w, r, fmt.Sprintf("/items/%d?msg=claimed", id), http.StatusSeeOther)
}

// UploadGet handles GET /uploads/{name} and serves stored image artifacts.
func (s *Server) UploadGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	f, err := s.Uploads.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// NotFoundPage renders the 404 page.
func (s *Server) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	s.Templates.Render(w, "notfound.html", &struct {
		PageData
	}{
		PageData: PageData{Title: "Not found"},
	})
}
