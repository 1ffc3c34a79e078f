package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"estate_api/internal/app"
	"estate_api/internal/domain"
)

type Handlers struct {
	*app.Services

	Limiter *Limiter
	// Ready reports storage health for /healthz.
	Ready func(r *http.Request) error
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.health)

	authn := Authenticate(h.Auth)
	optional := OptionalAuth(h.Auth)
	lister := RequireRole(domain.RoleAgent, domain.RoleAdmin)
	limited := func(next http.Handler) http.Handler { return next }
	if h.Limiter != nil {
		limited = h.Limiter.Middleware
	}

	s.mux.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", h.register)
			r.With(limited).Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/me", h.me)
				r.Put("/me", h.updateMe)
				r.Put("/password", h.changePassword)
			})
		})

		api.Route("/properties", func(r chi.Router) {
			r.With(optional).Get("/", h.searchProperties)
			r.Get("/featured", h.featuredProperties)
			r.With(authn, lister).Get("/mine", h.myProperties)
			r.With(optional).Get("/{id}", h.getProperty)
			r.With(optional).Get("/{id}/similar", h.similarProperties)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.With(lister).Post("/", h.createProperty)
				r.Put("/{id}", h.updateProperty)
				r.Delete("/{id}", h.deleteProperty)
			})
		})

		api.Route("/leads", func(r chi.Router) {
			r.With(limited, optional).Post("/", h.createLead)
			r.Group(func(r chi.Router) {
				r.Use(authn, lister)
				r.Get("/", h.listLeads)
				r.Get("/{id}", h.getLead)
				r.Patch("/{id}", h.updateLeadStatus)
				r.With(RequireRole(domain.RoleAdmin)).Delete("/{id}", h.deleteLead)
			})
		})

		api.Route("/wishlist", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", h.listWishlist)
			r.Post("/", h.addWishlist)
			r.Delete("/{propertyId}", h.removeWishlist)
			r.Get("/{propertyId}/status", h.wishlistStatus)
		})

		api.Route("/reviews", func(r chi.Router) {
			r.With(optional).Get("/property/{id}", h.listReviews)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/", h.createReview)
				r.Put("/{id}", h.updateReview)
				r.Delete("/{id}", h.deleteReview)
			})
		})

		api.Route("/amenities", func(r chi.Router) {
			r.Get("/", h.listAmenities)
			r.Group(func(r chi.Router) {
				r.Use(authn, RequireRole(domain.RoleAdmin))
				r.Post("/", h.createAmenity)
				r.Put("/{id}", h.updateAmenity)
				r.Delete("/{id}", h.deleteAmenity)
			})
		})

		api.Route("/drafts", func(r chi.Router) {
			r.Use(authn, lister)
			r.Get("/", h.listDrafts)
			r.Post("/", h.createDraft)
			r.Get("/{id}", h.getDraft)
			r.Put("/{id}", h.updateDraft)
			r.Delete("/{id}", h.deleteDraft)
			r.Post("/{id}/publish", h.publishDraft)
		})

		api.Route("/admin", func(r chi.Router) {
			r.Use(authn, RequireRole(domain.RoleAdmin))
			r.Get("/stats", h.adminStats)
			r.Get("/users", h.adminUsers)
			r.Patch("/users/{id}/role", h.adminSetRole)
			r.Delete("/users/{id}", h.adminDeleteUser)
			r.Get("/properties", h.adminProperties)
			r.Patch("/properties/{id}/status", h.adminSetStatus)
			r.Patch("/properties/{id}/featured", h.adminSetFeatured)
			r.Get("/analytics", h.adminAnalytics)
			r.Get("/settings", h.getSettings)
			r.Put("/settings", h.putSettings)
		})

		api.With(limited, optional).Post("/analytics/track", h.track)

		api.Route("/media", func(r chi.Router) {
			r.Use(authn, lister)
			r.Post("/upload", h.uploadMedia)
			r.Delete("/{fileId}", h.deleteMedia)
		})

		api.Route("/locations", func(r chi.Router) {
			r.Get("/", h.listLocations)
			r.Get("/search", h.searchLocations)
		})
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r); err != nil {
			log.Error().Err(err).Msg("health check failed")
			writeMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ---- responses ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// publicMessage drops the sentinel prefix added by fmt.Errorf("%w: ...").
func publicMessage(err error) string {
	msg := err.Error()
	for _, s := range []error{domain.ErrInvalid, domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrNotFound, domain.ErrConflict, domain.ErrUnavailable} {
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

// writeError maps err to a status and a {"error": ...} body. Internal errors
// are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: publicMessage(err)}
	var ve *app.ValidationError
	if errors.As(err, &ve) {
		body = errorBody{Error: "validation failed", Fields: ve.Fields}
	}
	if status == http.StatusInternalServerError {
		body = errorBody{Error: "internal server error"}
		log.Error().Err(err).Str("route", routeOf(r)).Str("method", r.Method).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Str("route", routeOf(r)).Msg("request rejected")
	}
	writeJSON(w, status, body)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- requests ----

const maxBody = 1 << 20

// decode reads a single JSON object into dst, rejecting unknown trailing data.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return domain.Invalid("request body too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid("request body is required")
		}
		return domain.Invalid("malformed JSON: " + err.Error())
	}
	if dec.More() {
		return domain.Invalid("request body must be a single JSON object")
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name + " must be a positive integer")
	}
	return id, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.Invalid(name + " must be an integer")
	}
	return n, nil
}

// mustPrincipal is for routes behind Authenticate.
func mustPrincipal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
