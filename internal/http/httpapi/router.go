package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"hairstudio/internal/http/handlers"
	"hairstudio/internal/infra"
	"hairstudio/internal/middleware"
)

type Options struct {
	Logger          infra.Logger
	JWTSecret       string
	CORSOrigins     []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	// Static serves stored objects under /static when the filesystem backend is used.
	Static http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	r.NotFound(jsonStatus(http.StatusNotFound, "not_found", "Not Found"))
	r.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed"))

	r.Get("/v1/healthz", app.Health)

	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", opts.Static))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/v1/auth/token", app.AuthToken)
		r.Post("/v1/diagnosis", app.Diagnose)
		r.Post("/v1/hairstyle-image", app.HairstyleImage)
		r.Post("/v1/hairstyle-image/refine", app.HairstyleImageRefine)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.SessionCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.SessionGet)
				r.Delete("/", app.SessionDelete)
				r.Get("/events", app.SessionEvents)
				r.Post("/next", app.SessionNext)
				r.Post("/back", app.SessionBack)
				r.Put("/profile", app.SessionProfile)
				r.Put("/uploads/{key}", app.SessionUpload)
				r.Delete("/uploads/{key}", app.SessionUploadDelete)
				r.Put("/selection", app.SessionSelection)
				r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/refine", app.SessionRefine)
				r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/switch-color", app.SessionSwitchColor)
				r.Post("/gallery", app.SessionSaveGallery)
			})
		})

		r.Get("/v1/gallery", app.GalleryList)
		r.Get("/v1/gallery/export", app.GalleryExport)
	})

	return r
}

func jsonStatus(status int, code, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
	}
}
