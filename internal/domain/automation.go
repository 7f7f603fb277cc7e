package domain

import "time"

// RunStatus is the terminal state of one scheduled ingestion run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// RunDetails are the per-run counters recorded by the scheduler.
type RunDetails struct {
	SourcesAttempted int      `json:"sources_attempted"`
	SourcesSucceeded int      `json:"sources_succeeded"`
	ArticlesFound    int      `json:"articles_found"`
	ArticlesNew      int      `json:"articles_new"`
	Duplicates       int      `json:"duplicates"`
	HighRiskCount    int      `json:"high_risk_count"`
	Errors           []string `json:"errors,omitempty"`
}

// AutomationLog is one entry in the bounded automation_logs.json artifact.
type AutomationLog struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Status     RunStatus  `json:"status"`
	Trigger    string     `json:"trigger"` // "schedule" or "manual"
	Details    RunDetails `json:"details"`
}

// AlertArticle is a trimmed article reference carried inside an alert.
type AlertArticle struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Source    string   `json:"source"`
	RiskScore *float64 `json:"risk_score,omitempty"`
}

// HighRiskAlert is one entry in the bounded high_risk_alerts.json artifact,
// emitted when a run surfaces articles scoring above the high-risk threshold.
type HighRiskAlert struct {
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Threshold float64        `json:"threshold"`
	Count     int            `json:"count"`
	Articles  []AlertArticle `json:"articles"` // top entries by score, capped
}
