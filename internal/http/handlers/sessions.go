package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"hairstudio/internal/domain"
	"hairstudio/internal/middleware"
	"hairstudio/internal/workflow"
)

type profileRequest struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

type refineSessionRequest struct {
	Text string `json:"text"`
}

type uploadAccepted struct {
	Key        domain.AssetKey `json:"key"`
	Generation uint64          `json:"generation"`
}

func (a *App) loadSession(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return nil, false
	}
	s, err := a.Sessions.Get(r.Context(), id, userID)
	if err != nil {
		a.sessionError(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	s := a.Sessions.Create(r.Context(), userID, middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusCreated, s.Snapshot())
}

// SessionDelete ends the caller's session and drops its stored snapshot.
func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Sessions.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		a.sessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

// SessionNext advances the phase. Loading phases answer immediately; the
// result arrives through the events stream or a later GET.
func (a *App) SessionNext(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if err := s.Next(r.Context()); err != nil {
		a.sessionError(w, r, err)
		return
	}
	snap := s.Snapshot()
	status := http.StatusOK
	if snap.Phase.Loading() {
		status = http.StatusAccepted
	}
	a.json(w, status, snap)
}

func (a *App) SessionBack(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if err := s.Back(); err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SessionProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.SetProfile(domain.Profile{Name: req.Name, Gender: req.Gender}); err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

// SessionUpload takes the raw file as the request body and starts the
// upload in the background.
func (a *App) SessionUpload(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	key, ok := domain.ParseAssetKey(chi.URLParam(r, "key"))
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown asset key")
		return
	}
	body := r.Body
	if a.UploadMaxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, a.UploadMaxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "file is empty")
		return
	}
	filename := path.Base(strings.TrimSpace(r.URL.Query().Get("filename")))
	if filename == "" || filename == "." || filename == "/" {
		filename = string(key)
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	task, err := s.Upload(r.Context(), key, filename, contentType, data)
	if err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, uploadAccepted{Key: task.Key, Generation: task.Generation})
}

// SessionUploadDelete only applies to the optional inspiration photo.
func (a *App) SessionUploadDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	if domain.AssetKey(chi.URLParam(r, "key")) != domain.KeyInspirationPhoto {
		a.error(w, http.StatusBadRequest, "bad_request", "only the inspiration photo can be skipped")
		return
	}
	if err := s.SkipInspiration(); err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SessionSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var sel workflow.Selection
	if err := decodeJSON(r, &sel); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := s.SetSelection(sel); err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) SessionRefine(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	var req refineSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	img, err := s.Refine(r.Context(), req.Text)
	if err != nil {
		a.editError(w, r, s, err, "refinement_failed")
		return
	}
	a.json(w, http.StatusOK, imageResponse{Message: "Image refined successfully.", ImageBase64: img.Base64, MimeType: img.MimeType})
}

func (a *App) SessionSwitchColor(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	img, err := s.SwitchColor(r.Context())
	if err != nil {
		a.editError(w, r, s, err, "refinement_failed")
		return
	}
	a.json(w, http.StatusOK, imageResponse{Message: "Image refined successfully.", ImageBase64: img.Base64, MimeType: img.MimeType})
}

func (a *App) SessionSaveGallery(w http.ResponseWriter, r *http.Request) {
	s, ok := a.loadSession(w, r)
	if !ok {
		return
	}
	item, err := s.SaveToGallery(r.Context())
	if err != nil {
		a.editError(w, r, s, err, "save_failed")
		return
	}
	a.json(w, http.StatusCreated, item)
}

// editError reports a failed remote edit with the failure message the
// session recorded; workflow rejections keep their usual mapping.
func (a *App) editError(w http.ResponseWriter, r *http.Request, s *workflow.Session, err error, code string) {
	var phaseErr *workflow.PhaseError
	if errors.As(err, &phaseErr) || errors.Is(err, workflow.ErrStale) {
		a.sessionError(w, r, err)
		return
	}
	snap := s.Snapshot()
	if snap.Failure == nil {
		a.sessionError(w, r, err)
		return
	}
	a.Logger.Warn().Err(err).Str("session", s.ID()).Msg(code)
	a.error(w, http.StatusBadGateway, code, snap.Failure.Message)
}
