package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hairstudio/internal/diagnosis"
	"hairstudio/internal/domain"
	"hairstudio/internal/i18n"
	"hairstudio/internal/imagegen"
	"hairstudio/internal/infra"
	"hairstudio/internal/infra/line"
	"hairstudio/internal/middleware"
	"hairstudio/internal/workflow"
)

type Diagnoser interface {
	Diagnose(ctx context.Context, req diagnosis.Request) (*diagnosis.Response, error)
}

type Imager interface {
	Synthesize(ctx context.Context, req imagegen.SynthesisRequest) (*imagegen.Image, error)
	Refine(ctx context.Context, req imagegen.RefineRequest) (*imagegen.Image, error)
}

type ProfileVerifier interface {
	Profile(ctx context.Context, accessToken string) (*line.Profile, error)
}

type GalleryService interface {
	List(ctx context.Context, owner string, limit int) ([]domain.GalleryItem, error)
	Export(ctx context.Context, owner string, w io.Writer) (int, error)
}

type SessionManager interface {
	Create(ctx context.Context, owner, locale string) *workflow.Session
	Get(ctx context.Context, id, owner string) (*workflow.Session, error)
	Delete(ctx context.Context, id, owner string) error
}

// App holds the collaborators shared by every handler.
type App struct {
	Logger         infra.Logger
	JWTSecret      string
	TokenTTL       time.Duration
	UploadMaxBytes int64
	Diagnosis      Diagnoser
	Images         Imager
	LINE           ProfileVerifier
	Gallery        GalleryService
	Sessions       SessionManager
	Now            func() time.Time

	// CheckOrigin guards websocket upgrades; nil accepts same-origin only.
	CheckOrigin func(r *http.Request) bool
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errCode, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     a.CheckOrigin,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 32<<20))
	return dec.Decode(dst)
}

// sessionError maps workflow and domain errors to a response. PhaseError
// messages are localized for the caller.
func (a *App) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	var (
		phaseErr *workflow.PhaseError
		valErr   *domain.ValidationError
	)
	switch {
	case errors.As(err, &phaseErr):
		code := "invalid_transition"
		if phaseErr.Message == i18n.MsgBusy {
			code = "busy"
		}
		a.error(w, http.StatusConflict, code, phaseErr.Localize(locale))
	case errors.Is(err, workflow.ErrStale):
		a.error(w, http.StatusConflict, "stale", "the session moved on before the result arrived")
	case errors.As(err, &valErr):
		a.error(w, http.StatusBadRequest, "bad_request", valErr.Error())
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "session belongs to another user")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "session not found")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("session operation failed")
		a.error(w, http.StatusInternalServerError, "internal", i18n.T(locale, i18n.MsgInternal))
	}
}
