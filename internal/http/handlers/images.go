package handlers

import (
	"errors"
	"net/http"
	"strings"

	"hairstudio/internal/domain"
	"hairstudio/internal/i18n"
	"hairstudio/internal/imagegen"
	"hairstudio/internal/middleware"
)

type imageResponse struct {
	Message     string `json:"message"`
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

type refineRequest struct {
	GeneratedImageURL string `json:"generatedImageUrl"`
	FirebaseUID       string `json:"firebaseUid"`
	RefinementText    string `json:"refinementText"`
}

// HairstyleImage renders the selected style and color onto the customer's front photo.
func (a *App) HairstyleImage(w http.ResponseWriter, r *http.Request) {
	var req imagegen.SynthesisRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	img, err := a.Images.Synthesize(r.Context(), req)
	if err != nil {
		a.imageError(w, r, err, i18n.MsgSynthesisFailed)
		return
	}
	a.json(w, http.StatusOK, imageResponse{Message: "Image generated successfully.", ImageBase64: img.Base64, MimeType: img.MimeType})
}

// HairstyleImageRefine edits a previously generated image passed as a data URL.
func (a *App) HairstyleImageRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.GeneratedImageURL == "" || strings.TrimSpace(req.FirebaseUID) == "" || strings.TrimSpace(req.RefinementText) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing required data (generatedImageUrl, firebaseUid, refinementText).")
		return
	}
	base, err := imagegen.ParseDataURL(req.GeneratedImageURL)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "generatedImageUrl must be a base64 image data URL")
		return
	}
	img, err := a.Images.Refine(r.Context(), imagegen.RefineRequest{
		Owner: req.FirebaseUID,
		Base:  base,
		Text:  req.RefinementText,
	})
	if err != nil {
		a.imageError(w, r, err, i18n.MsgRefinementFailed)
		return
	}
	a.json(w, http.StatusOK, imageResponse{Message: "Image refined successfully.", ImageBase64: img.Base64, MimeType: img.MimeType})
}

func (a *App) imageError(w http.ResponseWriter, r *http.Request, err error, key i18n.Key) {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		a.error(w, http.StatusBadRequest, "bad_request", valErr.Error())
		return
	}
	if errors.Is(err, domain.ErrSourceNotAllowed) {
		a.error(w, http.StatusBadRequest, "bad_request", "image source host is not allowed")
		return
	}
	a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("image generation failed")
	a.error(w, http.StatusInternalServerError, "image_generation_failed", i18n.T(middleware.LocaleFromContext(r.Context()), key, err.Error()))
}
