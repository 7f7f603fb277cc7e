package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/domain"
)

func TestStore_AutomationLogsNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir(), Options{})
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		err := store.AppendAutomationLog(domain.AutomationLog{
			RunID:      fmt.Sprintf("run-%d", i),
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			Status:     domain.RunSuccess,
			Trigger:    "schedule",
		})
		require.NoError(t, err)
	}

	logs, err := store.AutomationLogs()
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "run-3", logs[0].RunID)
	assert.Equal(t, "run-1", logs[2].RunID)
}

func TestStore_TrimsToBounds(t *testing.T) {
	store, err := NewStore(t.TempDir(), Options{MaxLogs: 5, MaxAlerts: 2})
	require.NoError(t, err)

	for i := 1; i <= 8; i++ {
		require.NoError(t, store.AppendAutomationLog(domain.AutomationLog{
			RunID: fmt.Sprintf("run-%d", i), Status: domain.RunSuccess,
		}))
		require.NoError(t, store.AppendHighRiskAlert(domain.HighRiskAlert{
			RunID: fmt.Sprintf("run-%d", i), Threshold: 85,
		}))
	}

	logs, err := store.AutomationLogs()
	require.NoError(t, err)
	require.Len(t, logs, 5)
	assert.Equal(t, "run-8", logs[0].RunID)
	assert.Equal(t, "run-4", logs[4].RunID)

	alerts, err := store.HighRiskAlerts()
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "run-8", alerts[0].RunID)
}

func TestStore_FileArrayIsNewestLast(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, Options{})
	require.NoError(t, err)

	require.NoError(t, store.AppendAutomationLog(domain.AutomationLog{RunID: "run-1"}))
	require.NoError(t, store.AppendAutomationLog(domain.AutomationLog{RunID: "run-2"}))

	data, err := os.ReadFile(filepath.Join(dir, AutomationLogsFile))
	require.NoError(t, err)
	var onDisk []domain.AutomationLog
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 2)
	assert.Equal(t, "run-1", onDisk[0].RunID)
	assert.Equal(t, "run-2", onDisk[1].RunID)
}

func TestStore_EmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, Options{})
	require.NoError(t, err)

	// Missing file reads as empty
	logs, err := store.AutomationLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)

	// Corrupt file is ignored, next append starts fresh
	require.NoError(t, os.WriteFile(filepath.Join(dir, AutomationLogsFile), []byte("{not json"), 0o644))
	require.NoError(t, store.AppendAutomationLog(domain.AutomationLog{RunID: "run-1"}))

	logs, err = store.AutomationLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, Options{})
	require.NoError(t, err)

	require.NoError(t, store.AppendHighRiskAlert(domain.HighRiskAlert{
		RunID:     "run-1",
		CreatedAt: time.Now(),
		Threshold: 85,
		Count:     3,
		Articles: []domain.AlertArticle{
			{Title: "Gunmen attack village", URL: "https://example.ng/1", Source: "example.ng"},
		},
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, filepath.Ext(e.Name()), ".json", "unexpected file %s", e.Name())
	}
}
