package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/gobwas/variant"
	"github.com/gobwas/variant/internal/config"
	"github.com/gobwas/variant/internal/metrics"
)

const (
	serviceName = "variant-api"
	version     = "1.0.0"
)

// Server serves assignment API on top of an assigner cache.
type Server struct {
	cache    *variant.Cache
	log      *zap.Logger
	defaults config.DefaultsConfig
	limits   config.LimitsConfig
	origins  []string
	frontend string
}

func New(cfg config.Config, cache *variant.Cache, log *zap.Logger) *Server {
	return &Server{
		cache:    cache,
		log:      log,
		defaults: cfg.Defaults,
		limits:   cfg.Limits,
		origins:  cfg.Server.CORSOrigins,
		frontend: cfg.Server.FrontendDir,
	}
}

// Handler returns http handler serving all API routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	route := func(name, pattern string, fn http.HandlerFunc, methods ...string) {
		r.Handle(pattern, instrument(name, fn)).Methods(methods...)
	}
	route("info", "/", s.handleInfo, http.MethodGet)
	route("health", "/health", s.handleHealth, http.MethodGet)
	route("randomise", "/randomise", s.handleRandomise, http.MethodPost)
	route("details", "/randomise/details", s.handleDetails, http.MethodPost)
	route("frontend", "/app", s.handleFrontend, http.MethodGet)
	route("frontend", "/app/{path:.*}", s.handleFrontend, http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if len(s.origins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	h = promhttp.InstrumentHandlerDuration(metrics.RequestDuration.MustCurryWith(labels), h)
	h = promhttp.InstrumentHandlerCounter(metrics.Requests.MustCurryWith(labels), h)
	return h
}

type randomiseRequest struct {
	UserID       string    `json:"userid"`
	Seed         string    `json:"seed"`
	Weights      []float64 `json:"weights"`
	Algorithm    *string   `json:"algorithm"`
	Distribution *string   `json:"distribution"`
	TableSize    *int      `json:"table_size"`
}

type randomiseResponse struct {
	Variant     uint32 `json:"variant"`
	UserID      string `json:"userid"`
	Seed        string `json:"seed"`
	NumVariants int    `json:"num_variants"`
}

type detailsResponse struct {
	UserID       string    `json:"userid"`
	Seed         string    `json:"seed"`
	Algorithm    string    `json:"algorithm"`
	Distribution string    `json:"distribution"`
	HashValue    uint32    `json:"hash_value"`
	TableSize    int       `json:"table_size"`
	TableIndex   uint32    `json:"table_index"`
	Boundaries   []uint32  `json:"boundaries"`
	Weights      []float64 `json:"weights"`
	Variant      uint32    `json:"variant"`
	NumVariants  int       `json:"num_variants"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// badRequest is an error caused by the request content.
type badRequest struct {
	msg string
}

func (e badRequest) Error() string { return e.msg }

func badRequestf(f string, args ...interface{}) error {
	return badRequest{msg: fmt.Sprintf(f, args...)}
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "Variant API",
		"status":  "healthy",
		"version": version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (s *Server) handleRandomise(w http.ResponseWriter, r *http.Request) {
	req, a, err := s.assigner(w, r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	v, err := a.Assign(req.UserID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.observe(a, req, v)

	writeJSON(w, http.StatusOK, randomiseResponse{
		Variant:     v,
		UserID:      req.UserID,
		Seed:        req.Seed,
		NumVariants: a.NumVariants(),
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	req, a, err := s.assigner(w, r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	d, err := a.AssignWithDetails(req.UserID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.observe(a, req, d.Variant)

	c := a.Config()
	writeJSON(w, http.StatusOK, detailsResponse{
		UserID:       req.UserID,
		Seed:         req.Seed,
		Algorithm:    c.Algorithm.String(),
		Distribution: c.Distribution.String(),
		HashValue:    d.Hash,
		TableSize:    c.TableSize,
		TableIndex:   d.Index,
		Boundaries:   a.Boundaries(),
		Weights:      c.Weights,
		Variant:      d.Variant,
		NumVariants:  a.NumVariants(),
	})
}

func (s *Server) handleFrontend(w http.ResponseWriter, r *http.Request) {
	if s.frontend == "" {
		writeError(w, http.StatusNotFound, "frontend is not configured")
		return
	}
	p := mux.Vars(r)["path"]
	name := filepath.Join(s.frontend, filepath.FromSlash(path.Clean("/"+p)))
	if isFile(name) {
		http.ServeFile(w, r, name)
		return
	}
	if strings.HasPrefix(p, "assets/") {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	// Paths which are not files belong to client side routing.
	index := filepath.Join(s.frontend, "index.html")
	if !isFile(index) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, index)
}

func isFile(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular()
}

// assigner decodes and validates request and returns assigner for it.
func (s *Server) assigner(w http.ResponseWriter, r *http.Request) (req randomiseRequest, a *variant.Assigner, err error) {
	body := http.MaxBytesReader(w, r.Body, int64(s.limits.MaxBodyBytes))
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, nil, badRequestf("malformed request body: %v", err)
	}
	cfg, err := s.config(req)
	if err != nil {
		return req, nil, err
	}
	a, err = s.cache.Get(cfg)
	if err != nil {
		return req, nil, err
	}
	return req, a, nil
}

func (s *Server) config(req randomiseRequest) (variant.Config, error) {
	if n := utf8.RuneCountInString(req.UserID); n == 0 || n > s.limits.MaxIdentifierLength {
		return variant.Config{}, badRequestf(
			"userid must be from 1 to %d characters long", s.limits.MaxIdentifierLength,
		)
	}
	if n := utf8.RuneCountInString(req.Seed); n == 0 || n > s.limits.MaxSeedLength {
		return variant.Config{}, badRequestf(
			"seed must be from 1 to %d characters long", s.limits.MaxSeedLength,
		)
	}
	cfg := variant.Config{
		Seed:         req.Seed,
		Weights:      req.Weights,
		TableSize:    s.defaults.TableSize,
		Algorithm:    s.defaults.Algorithm,
		Distribution: s.defaults.Distribution,
	}
	if req.TableSize != nil {
		n := *req.TableSize
		if n < s.limits.MinTableSize || n > s.limits.MaxTableSize {
			return variant.Config{}, badRequestf(
				"table_size must be within [%d, %d]",
				s.limits.MinTableSize, s.limits.MaxTableSize,
			)
		}
		cfg.TableSize = n
	}
	if req.Algorithm != nil {
		a, err := variant.ParseAlgorithm(*req.Algorithm)
		if err != nil {
			return variant.Config{}, err
		}
		cfg.Algorithm = a
	}
	if req.Distribution != nil {
		d, err := variant.ParseDistribution(*req.Distribution)
		if err != nil {
			return variant.Config{}, err
		}
		cfg.Distribution = d
	}
	return cfg, nil
}

func (s *Server) observe(a *variant.Assigner, req randomiseRequest, v uint32) {
	c := a.Config()
	metrics.Assignments.WithLabelValues(c.Algorithm.String(), c.Distribution.String()).Inc()
	if ce := s.log.Check(zap.DebugLevel, "assigned"); ce != nil {
		ce.Write(
			zap.String("userid", req.UserID),
			zap.String("seed", req.Seed),
			zap.Stringer("algorithm", c.Algorithm),
			zap.Stringer("distribution", c.Distribution),
			zap.Int("table_size", c.TableSize),
			zap.Uint32("variant", v),
		)
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br), variant.IsConfigError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("assignment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error: "+err.Error())
	}
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
