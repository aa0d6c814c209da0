package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"hairstudio/internal/domain"
)

type galleryListResponse struct {
	Items []domain.GalleryItem `json:"items"`
}

func (a *App) GalleryList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	items, err := a.Gallery.List(r.Context(), userID, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("uid", userID).Msg("gallery list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load gallery")
		return
	}
	if items == nil {
		items = []domain.GalleryItem{}
	}
	a.json(w, http.StatusOK, galleryListResponse{Items: items})
}

// GalleryExport returns the caller's saved images as one zip archive.
func (a *App) GalleryExport(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var buf bytes.Buffer
	n, err := a.Gallery.Export(r.Context(), userID, &buf)
	if err != nil {
		a.Logger.Error().Err(err).Str("uid", userID).Msg("gallery export failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=hairstudio-gallery.zip")
	w.Header().Set("X-Item-Count", strconv.Itoa(n))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
