package metrics

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/montanaflynn/stats"

	"baby-meal-planner/internal/llm"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single LLM call.
type ExecutionMetric struct {
	AgentName        string `db:"agent_name"`
	Model            string `db:"model"`
	PromptTokens     int    `db:"prompt_tokens"`
	CompletionTokens int    `db:"completion_tokens"`
	LatencyMS        int64  `db:"latency_ms"`
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the store's clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Record saves a metric to the database.
func (s *Store) Record(m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.Exec(`
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from llm.AgentMeta.
func (s *Store) RecordMeta(meta llm.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string `db:"day"`
	TotalPrompt     int    `db:"total_prompt"`
	TotalCompletion int    `db:"total_completion"`
	TotalExecution  int    `db:"total_execution"`
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Format(timestampLayout)

	var rows []DailyUsage
	err := s.db.Select(&rows, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COALESCE(SUM(prompt_tokens), 0) AS total_prompt,
		       COALESCE(SUM(completion_tokens), 0) AS total_completion,
		       COUNT(*) AS total_execution
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	return rows, nil
}

// LatencySummary describes the latency distribution of recent calls.
type LatencySummary struct {
	Count    int
	MeanMS   float64
	MedianMS float64
	P95MS    float64
}

// GetLatencySummary aggregates latencies recorded in the last N days.
func (s *Store) GetLatencySummary(days int) (LatencySummary, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Format(timestampLayout)

	var latencies []float64
	if err := s.db.Select(&latencies, `SELECT latency_ms FROM execution_metrics WHERE timestamp >= ?`, since); err != nil {
		return LatencySummary{}, fmt.Errorf("failed to query latencies: %w", err)
	}
	if len(latencies) == 0 {
		return LatencySummary{}, nil
	}

	data := stats.Float64Data(latencies)
	mean, err := stats.Mean(data)
	if err != nil {
		return LatencySummary{}, fmt.Errorf("failed to compute mean latency: %w", err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return LatencySummary{}, fmt.Errorf("failed to compute median latency: %w", err)
	}
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		return LatencySummary{}, fmt.Errorf("failed to compute p95 latency: %w", err)
	}
	return LatencySummary{Count: len(latencies), MeanMS: mean, MedianMS: median, P95MS: p95}, nil
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := s.now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.Exec(`DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage helper to convert llm.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage llm.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
	}
}
