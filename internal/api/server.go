package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/rs/cors"

	"conflict-signal/internal/bus"
	"conflict-signal/internal/domain"
	"conflict-signal/internal/extract"
	"conflict-signal/internal/ingest"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/predict"
	"conflict-signal/internal/refdata"
	"conflict-signal/internal/storage"
)

// Server exposes the admin HTTP surface: scheduler control, pipeline
// status, signal queries, simulation and the websocket feed.
type Server struct {
	articles  storage.ArticleStore
	events    storage.EventStore
	signals   storage.SignalStore
	economic  storage.EconomicStore
	series    storage.RiskTimeseriesStore
	scheduler *ingest.Scheduler
	extractor *extract.Processor
	predictor *predict.Processor
	artifacts ArtifactReader
	ref       *refdata.Set
	mq        bus.Bus
	pingDB    func(context.Context) error
	hub       *Hub
	logger    *log.Logger

	// baseCtx parents processor start/stop so their lifetime is not
	// bound to a single HTTP request.
	baseCtx context.Context

	allowedOrigins []string
}

// ArtifactReader is the slice of the artifact store the API reads.
type ArtifactReader interface {
	AutomationLogs() ([]domain.AutomationLog, error)
	HighRiskAlerts() ([]domain.HighRiskAlert, error)
}

// Options contains configuration for creating a Server.
type Options struct {
	Articles  storage.ArticleStore
	Events    storage.EventStore
	Signals   storage.SignalStore
	Economic  storage.EconomicStore
	Scheduler *ingest.Scheduler
	Extractor *extract.Processor
	Predictor *predict.Processor
	Artifacts ArtifactReader
	Reference *refdata.Set
	Bus       bus.Bus
	Hub       *Hub

	// Series is optional; intelligence stats fall back to store counts
	// without it.
	Series storage.RiskTimeseriesStore

	// PingDB verifies document store connectivity for /health. Optional;
	// memory mode passes nil and reports "ok".
	PingDB func(context.Context) error

	// BaseCtx parents the lifecycle of processors started over HTTP.
	// Defaults to context.Background().
	BaseCtx context.Context

	// AllowedOrigins for CORS. Empty allows none.
	AllowedOrigins []string

	Logger *log.Logger
}

// NewServer creates the admin API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	baseCtx := opts.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		articles:       opts.Articles,
		events:         opts.Events,
		signals:        opts.Signals,
		economic:       opts.Economic,
		series:         opts.Series,
		scheduler:      opts.Scheduler,
		extractor:      opts.Extractor,
		predictor:      opts.Predictor,
		artifacts:      opts.Artifacts,
		ref:            opts.Reference,
		mq:             opts.Bus,
		pingDB:         opts.PingDB,
		hub:            hub,
		logger:         logger,
		baseCtx:        baseCtx,
		allowedOrigins: opts.AllowedOrigins,
	}
}

// Hub returns the websocket broadcast hub so the scoring service can be
// wired to it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the routed HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/ws/signals", s.hub)

	mux.HandleFunc("/api/v1/scheduler/status", s.handleSchedulerStatus)
	mux.HandleFunc("/api/v1/automation/logs", s.handleAutomationLogs)
	mux.HandleFunc("/api/v1/articles", s.handleArticles)
	mux.HandleFunc("/api/v1/scrape", s.handleScrape)

	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/start-processor", s.handleStartProcessor)
	mux.HandleFunc("/api/v1/stop-processor", s.handleStopProcessor)

	mux.HandleFunc("/api/v1/predict", s.handlePredict)
	mux.HandleFunc("/api/v1/signals", s.handleSignals)
	mux.HandleFunc("/api/v1/simulate", s.handleSimulate)
	mux.HandleFunc("/api/v1/initialize-economic-data", s.handleInitializeEconomicData)

	mux.HandleFunc("/api/v1/stats/ingestion", s.handleIngestionStats)
	mux.HandleFunc("/api/v1/stats/intelligence", s.handleIntelligenceStats)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// apiError is the structured error body for every non-2xx response.
type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("[api] write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, apiError{ErrorCode: code, Message: message})
}
