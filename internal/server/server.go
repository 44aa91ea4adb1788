// Package server exposes scoring and the stored leaderboard over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/merlin/internal/enrich"
	"github.com/sells-group/merlin/internal/model"
	"github.com/sells-group/merlin/internal/pipeline"
	"github.com/sells-group/merlin/internal/scorer"
	"github.com/sells-group/merlin/internal/store"
)

const maxBodyBytes = 10 << 20

// Server holds the dependencies shared by the HTTP handlers. A nil store
// disables the leaderboard endpoints.
type Server struct {
	store       store.Store
	weights     scorer.Weights
	corsOrigins []string
}

// New creates a Server scoring with w.
func New(st store.Store, w scorer.Weights, corsOrigins []string) *Server {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Server{store: st, weights: w, corsOrigins: corsOrigins}
}

// ScoreRequest is the body of POST /v1/score. Payload is the vendor response
// envelope and may be omitted.
type ScoreRequest struct {
	Company model.CompanyRecord `json:"company"`
	Payload json.RawMessage     `json:"payload,omitempty"`
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Get("/weights", s.handleWeights)
		r.Get("/companies", s.handleListCompanies)
		r.Get("/companies/{domain}", s.handleGetCompany)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			zap.L().Warn("server: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := pipeline.ProcessPayload(req.Company, req.Payload, s.weights)
	if err != nil {
		if errors.Is(err, enrich.ErrNotObject) || errors.Is(err, pipeline.ErrMissingName) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		zap.L().Error("server: score company", zap.String("company", req.Company.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleWeights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hash":    scorer.ConfigHash(s.weights),
		"weights": s.weights,
	})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}

	q := r.URL.Query()
	filter := store.ScoreFilter{RunID: q.Get("run_id")}
	if v := q.Get("min_total"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_total must be a number")
			return
		}
		filter.MinTotal = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	scores, err := s.store.ListScores(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list scores", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if scores == nil {
		scores = []store.StoredScore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(scores), "companies": scores})
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}

	domain := chi.URLParam(r, "domain")
	sc, err := s.store.GetScore(r.Context(), domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		zap.L().Error("server: get score", zap.String("domain", domain), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
