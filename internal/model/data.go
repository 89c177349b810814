package model

import "time"

// AggregatedResult represents one group produced by an aggregate step
type AggregatedResult struct {
	GroupKey    string                 `json:"group_key"`
	GroupValue  interface{}            `json:"group_value"`
	Metrics     map[string]interface{} `json:"metrics"`
	RecordCount int                    `json:"record_count"`
}

// PipelineResult is the immutable outcome of one run.
// Success is false exactly when Error is set and OutputLocation is empty.
type PipelineResult struct {
	PipelineID     string         `json:"pipeline_id"`
	RunID          string         `json:"run_id"`
	UserID         string         `json:"user_id,omitempty"`
	Success        bool           `json:"success"`
	StartedAt      time.Time      `json:"started_at"`
	EndedAt        time.Time      `json:"ended_at"`
	DurationMs     int64          `json:"duration_ms"`
	OutputLocation string         `json:"output_location,omitempty"`
	OutputKind     OutputKind     `json:"output_kind,omitempty"`
	Result         any            `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	Logs           []string       `json:"logs"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
