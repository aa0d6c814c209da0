package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"hairstudio/internal/i18n"
	"hairstudio/internal/infra/line"
	"hairstudio/internal/middleware"
)

type tokenRequest struct {
	AccessToken string `json:"accessToken"`
}

type tokenResponse struct {
	CustomToken string `json:"customToken"`
}

// AuthToken exchanges a LINE access token for a custom token whose subject
// is the LINE user id.
func (a *App) AuthToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Access token is missing.")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	profile, err := a.LINE.Profile(ctx, req.AccessToken)
	if err != nil {
		var statusErr *line.StatusError
		switch {
		case errors.Is(err, line.ErrInvalidToken):
			a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid access token.")
		case errors.As(err, &statusErr):
			a.Logger.Warn().Int("status", statusErr.Status).Msg("line profile rejected token")
			a.error(w, statusErr.Status, "line_error", "Failed to verify access token.")
		default:
			a.Logger.Error().Err(err).Msg("line verify failed")
			a.error(w, http.StatusInternalServerError, "internal", "Failed to verify access token.")
		}
		return
	}

	locale := i18n.Match(profile.Language)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	token, err := middleware.SignToken(a.JWTSecret, profile.UserID, locale, a.TokenTTL, a.now())
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.Logger.Info().Str("uid", profile.UserID).Msg("custom token issued")
	a.json(w, http.StatusOK, tokenResponse{CustomToken: token})
}
