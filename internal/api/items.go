package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/najdeno/internal/artifact"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB             *sql.DB
	Uploads        *artifact.Store
	Pipeline       *imaging.Pipeline
	JWTSecret      string
	MaxUploadBytes int64
}

// List handles GET /api/items. The public view is open; ?view=admin requires
// a Bearer admin session and includes every status.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	view := store.ViewPublic
	if r.URL.Query().Get("view") == "admin" {
		if bearerClaims(r, h.JWTSecret, h.DB) == nil {
			jsonError(w, http.StatusUnauthorized, "admin view requires authentication")
			return
		}
		view = store.ViewAdmin
	}

	items, err := store.ListItems(r.Context(), h.DB, view)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items: a multipart report with the same fields and
// image pipeline as the web form.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	dateFound := strings.TrimSpace(r.FormValue("date_found"))
	if dateFound != "" && !model.ValidDate(dateFound) {
		jsonError(w, http.StatusBadRequest, "date_found must be YYYY-MM-DD")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		slog.Warn("upload declared non-image content type", "content_type", ct, "filename", header.Filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	filename, err := h.Pipeline.Ingest(data)
	if err != nil {
		status, message := pipelineError(err)
		jsonError(w, status, message)
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, store.ItemParams{
		Name:          name,
		Description:   strings.TrimSpace(r.FormValue("description")),
		DateFound:     dateFound,
		Location:      strings.TrimSpace(r.FormValue("location")),
		ImageFilename: filename,
	})
	if err != nil {
		if derr := h.Uploads.Delete(filename); derr != nil {
			slog.Error("failed to remove artifact after insert failure", "name", filename, "error", derr)
		}
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Claim handles POST /api/items/{id}/claim.
func (h *ItemsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.ItemStatusClaimed, "item claimed")
}

// Restore handles POST /api/items/{id}/restore (admin only, via middleware).
func (h *ItemsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.ItemStatusAvailable, "item restored")
}

func (h *ItemsHandler) setStatus(w http.ResponseWriter, r *http.Request, status, message string) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	changed, err := store.SetItemStatus(r.Context(), h.DB, id, status)
	if err != nil {
		slog.Error("failed to set item status", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if !changed {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// Delete handles DELETE /api/items/{id} (admin only, via middleware). The row
// is removed first; a failed artifact removal is logged, not surfaced.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	filename, err := store.DeleteItem(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete item", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	if filename != "" {
		if err := h.Uploads.Delete(filename); err != nil {
			slog.Error("failed to delete artifact", "name", filename, "error", err)
		}
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// pipelineError maps a classified pipeline failure to an HTTP status and message.
func pipelineError(err error) (int, string) {
	switch {
	case errors.Is(err, imaging.ErrEmptyPayload):
		return http.StatusBadRequest, "image file is required"
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported image type"
	case errors.Is(err, imaging.ErrCorruptImage):
		return http.StatusBadRequest, "corrupt image data"
	case errors.Is(err, imaging.ErrTranscodeFailed):
		return http.StatusUnprocessableEntity, "unable to process HEIC image"
	case errors.Is(err, imaging.ErrBudgetExceeded):
		return http.StatusRequestEntityTooLarge, "image too large even after compression"
	default:
		return http.StatusInternalServerError, "failed to save image"
	}
}
