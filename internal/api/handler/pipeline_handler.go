package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/pipeline"
	"go-pipeline-engine/internal/store"
	"go-pipeline-engine/pkg/router"
)

// RunStore reads recorded runs. *store.DB implements it.
type RunStore interface {
	GetRun(ctx context.Context, id string) (*model.PipelineResult, error)
	ListRuns(ctx context.Context, pipelineID string, limit int) ([]*model.PipelineResult, error)
}

type Handler struct {
	registry *pipeline.Registry
	executor *pipeline.Executor
	runs     RunStore
	logger   *zap.Logger
}

func New(registry *pipeline.Registry, executor *pipeline.Executor, runs RunStore, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		executor: executor,
		runs:     runs,
		logger:   logger.Named("api"),
	}
}

// RunRequest is the body of a run request.
type RunRequest struct {
	UserID string `json:"user_id"`
	Input  any    `json:"input"`
}

// ListPipelines lists the registered pipelines
// @Summary List pipelines
// @Description Get every registered pipeline with its steps and input/output contracts
// @Tags pipelines
// @Produce json
// @Success 200 {array} model.PipelineInfo
// @Router /pipelines [get]
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	list := h.registry.List()
	out := make([]model.PipelineInfo, 0, len(list))
	for _, p := range list {
		out = append(out, p.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPipeline retrieves one pipeline
// @Summary Get pipeline
// @Tags pipelines
// @Produce json
// @Param id path string true "Pipeline ID"
// @Success 200 {object} model.PipelineInfo
// @Failure 404 {object} ErrorResponse
// @Router /pipelines/{id} [get]
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, 0)
	p, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p.Info())
}

// RunPipeline executes a pipeline synchronously
// @Summary Run pipeline
// @Description Run a pipeline against the given input. A failed run is still returned with status 200 and success=false.
// @Tags pipelines
// @Accept json
// @Produce json
// @Param id path string true "Pipeline ID"
// @Param run body RunRequest true "Run input"
// @Success 200 {object} model.PipelineResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /pipelines/{id}/runs [post]
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	id := router.Param(r, 0)
	res, err := h.executor.Execute(r.Context(), id, req.UserID, req.Input)
	if errors.Is(err, pipeline.ErrPipelineNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("run failed to start", zap.String("pipeline", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to run pipeline")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetRun retrieves a recorded run
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.PipelineResult
// @Failure 404 {object} ErrorResponse
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, 0)
	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}
	if err != nil {
		h.logger.Error("failed to load run", zap.String("run", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns lists recorded runs, newest first
// @Summary List runs
// @Tags runs
// @Produce json
// @Param pipeline query string false "Only runs of this pipeline"
// @Param limit query int false "Maximum number of runs" default(50)
// @Success 200 {array} model.PipelineResult
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.runs.ListRuns(r.Context(), r.URL.Query().Get("pipeline"), limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*model.PipelineResult{}
	}
	writeJSON(w, http.StatusOK, runs)
}
