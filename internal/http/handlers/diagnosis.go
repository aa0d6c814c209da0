package handlers

import (
	"errors"
	"net/http"
	"strings"

	"hairstudio/internal/diagnosis"
	"hairstudio/internal/domain"
	"hairstudio/internal/i18n"
	"hairstudio/internal/middleware"
)

type diagnosisRequest struct {
	FileURLs    map[string]string `json:"fileUrls"`
	UserProfile *struct {
		FirebaseUID string `json:"firebaseUid"`
		UserID      string `json:"userId"`
	} `json:"userProfile"`
	Gender string `json:"gender"`
}

// Diagnose runs one stateless diagnosis over already-uploaded media.
func (a *App) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnosisRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.FileURLs == nil || req.UserProfile == nil || strings.TrimSpace(req.Gender) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing required data (fileUrls, userProfile, gender).")
		return
	}
	urls := make(map[domain.AssetKey]string, len(req.FileURLs))
	for raw, url := range req.FileURLs {
		if key, ok := domain.ParseAssetKey(raw); ok {
			urls[key] = url
		}
	}
	owner := req.UserProfile.FirebaseUID
	if owner == "" {
		owner = req.UserProfile.UserID
	}
	locale := middleware.LocaleFromContext(r.Context())

	resp, err := a.Diagnosis.Diagnose(r.Context(), diagnosis.Request{
		FileURLs: urls,
		Owner:    owner,
		Gender:   req.Gender,
		Language: locale,
	})
	if err != nil {
		var valErr *domain.ValidationError
		if errors.As(err, &valErr) {
			a.error(w, http.StatusBadRequest, "bad_request", valErr.Reason)
			return
		}
		a.Logger.Error().Err(err).Str("owner", owner).Msg("diagnosis failed")
		a.error(w, http.StatusInternalServerError, "diagnosis_failed", i18n.T(locale, i18n.MsgDiagnosisFailed, err.Error()))
		return
	}
	a.json(w, http.StatusOK, resp)
}
