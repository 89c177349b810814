package model

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// PipelineContext is the per-run state threaded through every step.
// It belongs to a single run and is not safe for concurrent use.
type PipelineContext struct {
	UserID     string
	PipelineID string
	RunID      string
	StartedAt  time.Time

	logs      []string
	metadata  map[string]any
	tempFiles []string
}

func NewPipelineContext(userID, pipelineID, runID string) *PipelineContext {
	return &PipelineContext{
		UserID:     userID,
		PipelineID: pipelineID,
		RunID:      runID,
		StartedAt:  time.Now(),
		metadata:   make(map[string]any),
	}
}

// Log appends a trace line.
func (pc *PipelineContext) Log(format string, args ...any) {
	pc.logs = append(pc.logs, fmt.Sprintf(format, args...))
}

func (pc *PipelineContext) Logs() []string {
	return slices.Clone(pc.logs)
}

func (pc *PipelineContext) SetMetadata(key string, value any) {
	if pc.metadata == nil {
		pc.metadata = make(map[string]any)
	}
	pc.metadata[key] = value
}

func (pc *PipelineContext) GetMetadata(key string) (any, bool) {
	v, ok := pc.metadata[key]
	return v, ok
}

func (pc *PipelineContext) Metadata() map[string]any {
	return maps.Clone(pc.metadata)
}

// RegisterTempFile adds a scratch path to be removed when the run ends.
func (pc *PipelineContext) RegisterTempFile(path string) {
	pc.tempFiles = append(pc.tempFiles, path)
}

func (pc *PipelineContext) TempFiles() []string {
	return slices.Clone(pc.tempFiles)
}
