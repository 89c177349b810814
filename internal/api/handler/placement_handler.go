package handler

import (
	"encoding/json"
	"net/http"

	"go-pipeline-engine/internal/resource"
)

// PlacementRequest asks where a work item should run.
type PlacementRequest struct {
	Size       string   `json:"size"`
	Complexity string   `json:"complexity"`
	Candidates []string `json:"candidates,omitempty"`
}

// Placement recommends an execution tier
// @Summary Recommend a tier
// @Description Pick the most constrained candidate tier that can run the work. qualified=false means no candidate fits and the most capable one was returned.
// @Tags placement
// @Accept json
// @Produce json
// @Param request body PlacementRequest true "Work item"
// @Success 200 {object} resource.Placement
// @Failure 400 {object} ErrorResponse
// @Router /placement [post]
func (h *Handler) Placement(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	size, err := resource.ParseSizeClass(req.Size)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	complexity, err := resource.ParseComplexityClass(req.Complexity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	candidates, err := resource.ParseTiers(req.Candidates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resource.Advise(size, complexity, candidates))
}

// Tiers lists the execution tiers and their constraints
// @Summary List tiers
// @Tags placement
// @Produce json
// @Success 200 {array} resource.TierConstraints
// @Router /tiers [get]
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	out := make([]resource.TierConstraints, 0, len(resource.AllTiers()))
	for _, t := range resource.AllTiers() {
		out = append(out, resource.Constraints(t))
	}
	writeJSON(w, http.StatusOK, out)
}
