package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Version is reported by the info endpoint.
const Version = "0.1.0"

// RouterConfig holds the settings for the HTTP surface.
type RouterConfig struct {
	ServiceName     string
	HealthcheckPath string
	FrontendURL     string
	RequestTimeout  time.Duration
	Logger          *slog.Logger
}

type errorBody struct {
	Message string `json:"message"`
}

// NewRouter wires middleware, the task API and the catch-all handlers.
func NewRouter(cfg RouterConfig, tasks *TaskHandler) chi.Router {
	if cfg.HealthcheckPath == "" {
		cfg.HealthcheckPath = "/health"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(Recoverer(cfg.Logger))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.FrontendURL != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{cfg.FrontendURL},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "Accept", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get(cfg.HealthcheckPath, Health)
	r.Get("/", Info(cfg.ServiceName, cfg.HealthcheckPath))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/tasks", tasks.Routes())
		r.NotFound(NotFound)
	})

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}

// Health returns a health check response.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info describes the service.
func Info(name, healthPath string) http.HandlerFunc {
	body := map[string]string{
		"name":     name,
		"version":  Version,
		"api_base": "/api",
		"health":   healthPath,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, body)
	}
}

// NotFound answers unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, errorBody{Message: "Not Found"})
}

// MethodNotAllowed answers known paths hit with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method Not Allowed"})
}

// Recoverer turns panics into a JSON 500 and logs the stack.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				if logger != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.String("panic", fmt.Sprint(rvr)),
						slog.String("request_id", middleware.GetReqID(r.Context())),
						slog.String("stack", string(debug.Stack())),
					)
				}
				respondJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal Server Error"})
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
