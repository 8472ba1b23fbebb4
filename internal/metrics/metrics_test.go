package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baby-meal-planner/internal/database"
	"baby-meal-planner/internal/llm"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL).WithClock(func() time.Time { return now })
}

func TestDailyUsage(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Record(ExecutionMetric{AgentName: "a", Model: "m", PromptTokens: 10, CompletionTokens: 5, LatencyMS: 100}))
	require.NoError(t, s.Record(ExecutionMetric{AgentName: "a", Model: "m", PromptTokens: 20, CompletionTokens: 5, LatencyMS: 200, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, s.Record(ExecutionMetric{AgentName: "a", Model: "m", PromptTokens: 7, LatencyMS: 300, Timestamp: now.AddDate(0, 0, -2)}))
	require.NoError(t, s.Record(ExecutionMetric{AgentName: "a", Model: "m", PromptTokens: 99, LatencyMS: 400, Timestamp: now.AddDate(0, 0, -30)}))

	usage, err := s.GetDailyUsage(7)
	require.NoError(t, err)
	assert.Equal(t, []DailyUsage{
		{Date: "2024-05-20", TotalPrompt: 30, TotalCompletion: 10, TotalExecution: 2},
		{Date: "2024-05-18", TotalPrompt: 7, TotalCompletion: 0, TotalExecution: 1},
	}, usage)

	t.Run("LatencySummary", func(t *testing.T) {
		sum, err := s.GetLatencySummary(60)
		require.NoError(t, err)
		assert.Equal(t, 4, sum.Count)
		assert.InDelta(t, 250, sum.MeanMS, 0.001)
		assert.InDelta(t, 250, sum.MedianMS, 0.001)
		assert.GreaterOrEqual(t, sum.P95MS, 300.0)
		assert.LessOrEqual(t, sum.P95MS, 400.0)
	})

	t.Run("Cleanup", func(t *testing.T) {
		removed, err := s.Cleanup(10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		sum, err := s.GetLatencySummary(60)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Count)
	})
}

func TestLatencySummaryEmpty(t *testing.T) {
	sum, err := newStore(t).GetLatencySummary(7)
	require.NoError(t, err)
	assert.Equal(t, LatencySummary{}, sum)
}

func TestRecordMeta(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.RecordMeta(llm.AgentMeta{AgentName: "idle"}), "zero usage is skipped")
	require.NoError(t, s.RecordMeta(llm.AgentMeta{
		AgentName: "translator",
		Usage:     llm.TokenUsage{PromptTokens: 12, CompletionTokens: 4, Model: "gemini"},
		Latency:   1500 * time.Millisecond,
	}))

	var rows []ExecutionMetric
	require.NoError(t, s.db.Select(&rows, `SELECT agent_name, model, prompt_tokens, completion_tokens, latency_ms FROM execution_metrics`))
	require.Len(t, rows, 1)
	assert.Equal(t, "translator", rows[0].AgentName)
	assert.Equal(t, int64(1500), rows[0].LatencyMS)
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), make([]byte, 2048), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.json"), make([]byte, 1024), 0644))

	h := GetSysHealth(dir)
	assert.Equal(t, "3.0 KiB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)

	assert.Equal(t, "0 B", GetSysHealth(filepath.Join(dir, "missing")).DataDiskSize)
}
