package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/ingest"
)

func limitParam(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// handleHealth reports readiness: document store, message bus and any
// reference files missing at load time.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type checks struct {
		DB               string   `json:"db"`
		MQ               string   `json:"mq"`
		ReferenceMissing []string `json:"reference_data_missing,omitempty"`
	}
	type health struct {
		Status    string    `json:"status"`
		Checks    checks    `json:"checks"`
		Timestamp time.Time `json:"timestamp"`
	}

	h := health{
		Status:    "ok",
		Checks:    checks{DB: "ok", MQ: "ok"},
		Timestamp: time.Now().UTC(),
	}
	if s.pingDB != nil {
		if err := s.pingDB(r.Context()); err != nil {
			h.Checks.DB = "unreachable"
			h.Status = "degraded"
		}
	}
	if s.mq != nil {
		if err := s.mq.Ping(r.Context()); err != nil {
			h.Checks.MQ = "unreachable"
			h.Status = "degraded"
		}
	}
	if s.ref != nil && len(s.ref.Missing) > 0 {
		h.Checks.ReferenceMissing = s.ref.Missing
		h.Status = "degraded"
	}

	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, s.scheduler.Status())
}

func (s *Server) handleAutomationLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	logs, err := s.artifacts.AutomationLogs()
	if err != nil {
		s.logger.Printf("[api] automation logs: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to read automation logs")
		return
	}
	total := len(logs)
	if limit := limitParam(r, total, total); limit < total {
		logs = logs[:limit]
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"logs":        logs,
		"total_count": total,
	})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_parameters", "since must be RFC3339")
			return
		}
		since = parsed
	}
	articles, err := s.articles.ListRecent(r.Context(), since, limitParam(r, 50, 500))
	if err != nil {
		s.logger.Printf("[api] list articles: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to list articles")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"articles": articles,
		"count":    len(articles),
	})
}

// handleScrape triggers an on-demand collection run. A run already in
// flight is a conflict, not an error.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	result, err := s.scheduler.TriggerRun(r.Context())
	if err != nil {
		if errors.Is(err, ingest.ErrSchedulerBusy) {
			s.writeError(w, http.StatusConflict, "scheduler_busy", "a collection run is already in progress")
			return
		}
		s.logger.Printf("[api] scrape: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "collection run failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	processed, failed, err := s.extractor.Analyze(r.Context(), limitParam(r, 50, 500))
	if err != nil {
		s.logger.Printf("[api] analyze: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "analysis failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"processed": processed,
		"failed":    failed,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	events, err := s.events.ListRecent(r.Context(), limitParam(r, 50, 500))
	if err != nil {
		s.logger.Printf("[api] list events: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleStatus reports the pipeline's moving parts in one object.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"scheduler":         s.scheduler.Status(),
		"extractor_running": s.extractor.Running(),
		"predictor_running": s.predictor.Running(),
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleStartProcessor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	if err := s.extractor.Start(s.baseCtx); err != nil {
		s.writeError(w, http.StatusConflict, "processor_running", "extraction processor is already running")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "started"})
}

func (s *Server) handleStopProcessor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	s.extractor.Stop()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "stopped"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	scored, err := s.predictor.Predict(r.Context(), limitParam(r, 100, 1000))
	if err != nil {
		s.logger.Printf("[api] predict: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "batch scoring failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"scored": scored})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	limit := limitParam(r, 50, 500)
	state := r.URL.Query().Get("state")
	lga := r.URL.Query().Get("lga")

	var (
		signals []*domain.RiskSignal
		err     error
	)
	if state != "" && lga != "" {
		signals, err = s.signals.ListByLocation(r.Context(), state, lga, limit)
	} else {
		signals, err = s.signals.ListRecent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Printf("[api] list signals: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to list signals")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"count":   len(signals),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	var params domain.SimulationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "body must be JSON simulation parameters")
		return
	}
	if err := params.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}
	fc, err := s.predictor.Simulate(r.Context(), params)
	if err != nil {
		s.logger.Printf("[api] simulate: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "simulation failed")
		return
	}
	s.writeJSON(w, http.StatusOK, fc)
}

// handleInitializeEconomicData upserts economic rows into the store.
// A JSON array body takes precedence; otherwise the loaded reference
// CSV is used.
func (s *Server) handleInitializeEconomicData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	// An empty body falls back to the loaded reference CSV.
	var rows []domain.EconomicRecord
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON array of economic records")
		return
	}
	if len(rows) == 0 && s.ref != nil {
		rows = s.ref.Economic
	}
	if len(rows) == 0 {
		s.writeError(w, http.StatusBadRequest, "no_data", "no economic rows in body or reference data")
		return
	}

	loaded := 0
	for i := range rows {
		if err := s.economic.Upsert(r.Context(), &rows[i]); err != nil {
			s.logger.Printf("[api] economic upsert %s/%s: %v", rows[i].State, rows[i].LGA, err)
			continue
		}
		loaded++
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"loaded": loaded})
}

// handleIngestionStats reports collection volume over a window.
func (s *Server) handleIngestionStats(w http.ResponseWriter, r *http.Request) {
	hours := limitHours(r, 24)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	count, err := s.articles.CountSince(r.Context(), since)
	if err != nil {
		s.logger.Printf("[api] ingestion stats: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to aggregate stats")
		return
	}
	byType, err := s.events.CountByTypeSince(r.Context(), since)
	if err != nil {
		s.logger.Printf("[api] ingestion stats: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to aggregate stats")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"window_hours":     hours,
		"articles_scraped": count,
		"events_by_type":   byType,
	})
}

// handleIntelligenceStats reports scoring depth over a window.
func (s *Server) handleIntelligenceStats(w http.ResponseWriter, r *http.Request) {
	hours := limitHours(r, 24)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	byLevel, err := s.signals.CountByLevelSince(r.Context(), since)
	if err != nil {
		s.logger.Printf("[api] intelligence stats: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", "failed to aggregate stats")
		return
	}
	resp := map[string]any{
		"window_hours":     hours,
		"signals_by_level": byLevel,
	}
	if s.series != nil {
		if avg, err := s.series.AverageScoreByState(r.Context(), since); err == nil {
			resp["average_score_by_state"] = avg
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func limitHours(r *http.Request, def int) int {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 720 {
		return def
	}
	return n
}
