package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"conflict-signal/internal/domain"
)

// File names under the artifact directory.
const (
	AutomationLogsFile = "automation_logs.json"
	HighRiskAlertsFile = "high_risk_alerts.json"
)

// Default retention bounds.
const (
	DefaultMaxLogs   = 100
	DefaultMaxAlerts = 20
)

// Options configures the artifact store.
type Options struct {
	// MaxLogs bounds automation_logs.json. Default 100.
	MaxLogs int

	// MaxAlerts bounds high_risk_alerts.json. Default 20.
	MaxAlerts int
}

// Store persists bounded JSON artifacts. On disk the arrays run
// oldest-to-newest, trimmed from the front; readers return them newest
// first. Every write goes through a temp file and rename so a crash
// never leaves a torn file.
type Store struct {
	mu        sync.Mutex
	dir       string
	maxLogs   int
	maxAlerts int
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if opts.MaxLogs <= 0 {
		opts.MaxLogs = DefaultMaxLogs
	}
	if opts.MaxAlerts <= 0 {
		opts.MaxAlerts = DefaultMaxAlerts
	}
	return &Store{dir: dir, maxLogs: opts.MaxLogs, maxAlerts: opts.MaxAlerts}, nil
}

// AppendAutomationLog appends a run log, trimming the oldest entries
// past the bound.
func (s *Store) AppendAutomationLog(entry domain.AutomationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []domain.AutomationLog
	if err := s.read(AutomationLogsFile, &logs); err != nil {
		return err
	}

	logs = append(logs, entry)
	if len(logs) > s.maxLogs {
		logs = logs[len(logs)-s.maxLogs:]
	}
	return s.write(AutomationLogsFile, logs)
}

// AutomationLogs returns all run logs, newest first.
func (s *Store) AutomationLogs() ([]domain.AutomationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []domain.AutomationLog
	if err := s.read(AutomationLogsFile, &logs); err != nil {
		return nil, err
	}
	reverse(logs)
	return logs, nil
}

// AppendHighRiskAlert appends an alert, trimming the oldest entries
// past the bound.
func (s *Store) AppendHighRiskAlert(alert domain.HighRiskAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []domain.HighRiskAlert
	if err := s.read(HighRiskAlertsFile, &alerts); err != nil {
		return err
	}

	alerts = append(alerts, alert)
	if len(alerts) > s.maxAlerts {
		alerts = alerts[len(alerts)-s.maxAlerts:]
	}
	return s.write(HighRiskAlertsFile, alerts)
}

// HighRiskAlerts returns all alerts, newest first.
func (s *Store) HighRiskAlerts() ([]domain.HighRiskAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []domain.HighRiskAlert
	if err := s.read(HighRiskAlertsFile, &alerts); err != nil {
		return nil, err
	}
	reverse(alerts)
	return alerts, nil
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// read loads a JSON artifact. A missing file yields an empty slice; a
// corrupt file is treated the same so one bad write cannot poison every
// future run.
func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil
	}
	return nil
}

// write atomically replaces a JSON artifact via temp file and rename.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
