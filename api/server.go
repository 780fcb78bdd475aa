package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reliefworks/go-planner/config"
	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/retrieval"
)

// Server exposes the retrieval façade over HTTP for the planning pipeline.
type Server struct {
	engine  *retrieval.Engine
	cfg     config.RetrievalConfig
	logger  *logrus.Logger
	handler http.Handler
}

var errEmptyQuery = errors.New("query cannot be empty")

type errorResponse struct {
	Error string `json:"error"`
}

type retrieveRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	TopK  int    `json:"top_k"`
}

type hybridRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	UseRRF         *bool    `json:"use_rrf"`
	UseMMR         *bool    `json:"use_mmr"`
	IncludeContent bool     `json:"include_content"`
	GraphWeight    *float64 `json:"graph_weight"`
	VectorWeight   *float64 `json:"vector_weight"`
}

type expandRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k"`
	ExpansionDepth int    `json:"expansion_depth"`
}

type resultsResponse struct {
	QueryID string             `json:"query_id"`
	Count   int                `json:"count"`
	Results []retrieval.Result `json:"results"`
}

func New(engine *retrieval.Engine, cfg config.RetrievalConfig, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{engine: engine, cfg: cfg, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/retrieve", s.handleRetrieve)
	r.Post("/v1/hybrid", s.handleHybrid)
	r.Post("/v1/hybrid/expand", s.handleHybridExpand)
	r.Get("/v1/nodes/{nodeID}/context", s.handleNodeContext)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, errEmptyQuery)
		return
	}

	mode := retrieval.ModeAutomatic
	if req.Mode != "" {
		parsed, err := retrieval.ParseMode(req.Mode)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		mode = parsed
	}

	results, err := s.engine.Retrieve(r.Context(), req.Query, mode, req.TopK)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResults(w, results)
}

func (s *Server) handleHybrid(w http.ResponseWriter, r *http.Request) {
	var req hybridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, errEmptyQuery)
		return
	}

	opts := &retrieval.HybridOptions{
		UseRRF:         s.cfg.UseRRF,
		UseMMR:         s.cfg.UseMMR,
		IncludeContent: req.IncludeContent,
		GraphWeight:    s.cfg.GraphWeight,
		VectorWeight:   s.cfg.VectorWeight,
	}
	if req.UseRRF != nil {
		opts.UseRRF = *req.UseRRF
	}
	if req.UseMMR != nil {
		opts.UseMMR = *req.UseMMR
	}
	if req.GraphWeight != nil {
		opts.GraphWeight = *req.GraphWeight
	}
	if req.VectorWeight != nil {
		opts.VectorWeight = *req.VectorWeight
	}

	results, err := s.engine.HybridRetrieve(r.Context(), req.Query, req.TopK, opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResults(w, results)
}

func (s *Server) handleHybridExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, errEmptyQuery)
		return
	}

	results, err := s.engine.HybridRetrieveWithGraphExpansion(r.Context(), req.Query, req.TopK, req.ExpansionDepth)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeResults(w, results)
}

func (s *Server) handleNodeContext(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	includeParent := r.URL.Query().Get("parent") != "false"
	includeChildren := r.URL.Query().Get("children") != "false"

	nodeCtx, err := s.engine.NodeContext(r.Context(), nodeID, includeParent, includeChildren)
	if err != nil {
		if errors.Is(err, graph.ErrNodeNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nodeCtx)
}

func (s *Server) writeResults(w http.ResponseWriter, results []retrieval.Result) {
	if results == nil {
		results = []retrieval.Result{}
	}
	s.writeJSON(w, http.StatusOK, resultsResponse{
		QueryID: uuid.NewString(),
		Count:   len(results),
		Results: results,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
