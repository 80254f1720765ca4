package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"semaphore/learning/internal/auth"
	"semaphore/learning/internal/config"
	"semaphore/learning/internal/directory"
	"semaphore/learning/internal/logger"
	"semaphore/learning/internal/progress"
)

type Server struct {
	cfg       config.Config
	directory *directory.Service
	tracker   *progress.Tracker
	validate  *validator.Validate
	log       *logger.Logger
}

func NewServer(cfg config.Config, dir *directory.Service, tracker *progress.Tracker, log *logger.Logger) *Server {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		cfg:       cfg,
		directory: dir,
		tracker:   tracker,
		validate:  validate,
		log:       log.With("component", "http"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(s.recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/get-user", s.handleGetUser)
	r.Get("/getAllstudents", s.handleListUsers)
	r.With(s.authMiddleware).Get("/users/me", s.handleGetMe)

	r.Post("/enrollCourse", s.handleEnroll)
	r.Post("/removeEnroll", s.handleRemoveEnrollment)
	r.Post("/updateProgress", s.handleUpdateProgress)
	r.Post("/getProgress", s.handleGetProgress)

	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", "Missing bearer token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Requests

// bind decodes the body into out and validates it. On failure it writes the
// response itself and returns false; missing is the message used when a
// required field is absent.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, out interface{}, missing string) bool {
	if err := decodeJSON(r, out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON")
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			if fieldErrs[0].Tag() == "required" {
				writeError(w, http.StatusBadRequest, "missing_fields", missing)
				return false
			}
			writeError(w, http.StatusBadRequest, "invalid_field", fieldErrs[0].Field()+" is invalid")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// Responses

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("Handler panic", "panic", rec, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
				writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
