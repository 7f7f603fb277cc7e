package main

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/refdata"
	"conflict-signal/internal/storage/memory"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CS_TEST_STR", "hello")
	t.Setenv("CS_TEST_INT", "7")
	t.Setenv("CS_TEST_FLOAT", "82.5")
	t.Setenv("CS_TEST_SECS", "45")
	t.Setenv("CS_TEST_DUR", "3m")
	t.Setenv("CS_TEST_BAD", "not-a-number")

	assert.Equal(t, "hello", envOr("CS_TEST_STR", "def"))
	assert.Equal(t, "def", envOr("CS_TEST_UNSET", "def"))

	assert.Equal(t, 7, envInt("CS_TEST_INT", 5))
	assert.Equal(t, 5, envInt("CS_TEST_BAD", 5))
	assert.Equal(t, 5, envInt("CS_TEST_UNSET", 5))

	assert.Equal(t, 82.5, envFloat("CS_TEST_FLOAT", 85))
	assert.Equal(t, 85.0, envFloat("CS_TEST_BAD", 85))

	assert.Equal(t, 45*time.Second, envSeconds("CS_TEST_SECS", 30*time.Second))
	assert.Equal(t, 30*time.Second, envSeconds("CS_TEST_BAD", 30*time.Second))

	assert.Equal(t, 3*time.Minute, envDuration("CS_TEST_DUR", 5*time.Minute))
	assert.Equal(t, 5*time.Minute, envDuration("CS_TEST_BAD", 5*time.Minute))
}

func TestScheduleInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, scheduleInterval("*/15 * * * *", time.Hour))
	assert.Equal(t, 5*time.Minute, scheduleInterval("*/5 * * * *", time.Hour))
	assert.Equal(t, time.Hour, scheduleInterval("0 3 * * *", time.Hour))
	assert.Equal(t, time.Hour, scheduleInterval("*/0 * * * *", time.Hour))
	assert.Equal(t, time.Hour, scheduleInterval("garbage", time.Hour))
}

func TestSyncStrategicData(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStrategicStore()

	// Row present only in the store, not in the reference CSV
	require.NoError(t, store.Upsert(ctx, &domain.StrategicIndicators{State: "Taraba", MigrationPressure: 0.7}))

	ref := &refdata.Set{Strategic: map[string]domain.StrategicIndicators{
		"zamfara": {State: "Zamfara", MiningDensity: 0.74, ClimateVulnerability: 0.82},
	}}
	syncStrategicData(ctx, store, ref, log.New(io.Discard, "", 0))

	got, err := store.GetByState(ctx, "Zamfara")
	require.NoError(t, err)
	assert.Equal(t, 0.74, got.MiningDensity)

	ind := ref.StrategicFor("Taraba")
	require.NotNil(t, ind)
	assert.Equal(t, 0.7, ind.MigrationPressure)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList("http://a, http://b"))
	assert.Nil(t, splitList(" , "))
}
