package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pipeline-engine/internal/bridge"
	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/resource"
	"go-pipeline-engine/pkg/metrics"
	"go-pipeline-engine/pkg/utils"
)

type scriptConfig struct {
	Script     string            `json:"script"`
	Tier       string            `json:"tier"`
	Size       string            `json:"size"`
	Complexity string            `json:"complexity"`
	Candidates []string          `json:"candidates"`
	Timeout    string            `json:"timeout"`
	Env        map[string]string `json:"env"`
}

// Script hands its input to an external script through the bridge. Without
// a fixed tier it places the work with the placement advisor first.
type Script struct {
	base
	cfg        scriptConfig
	runner     ScriptRunner
	metrics    *metrics.Metrics
	tier       resource.Tier
	fixedTier  bool
	size       resource.SizeClass
	sizeSet    bool
	complexity resource.ComplexityClass
	candidates []resource.Tier
	timeout    time.Duration
}

func newScript(b base, deps Deps) (model.Step, error) {
	var cfg scriptConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Script == "" {
		return nil, errors.New("script step needs a script")
	}
	if deps.Scripts == nil {
		return nil, errors.New("script step needs a script bridge")
	}

	s := &Script{
		base:       b,
		cfg:        cfg,
		runner:     deps.Scripts,
		metrics:    deps.Metrics,
		complexity: resource.Moderate,
	}

	var err error
	if s.timeout, err = utils.ParseDuration(cfg.Timeout, 0); err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	if cfg.Tier != "" {
		if s.tier, err = resource.ParseTier(cfg.Tier); err != nil {
			return nil, err
		}
		s.fixedTier = true
	}
	if cfg.Size != "" {
		if s.size, err = resource.ParseSizeClass(cfg.Size); err != nil {
			return nil, err
		}
		s.sizeSet = true
	}
	if cfg.Complexity != "" {
		if s.complexity, err = resource.ParseComplexityClass(cfg.Complexity); err != nil {
			return nil, err
		}
	}
	if s.candidates, err = resource.ParseTiers(cfg.Candidates); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Script) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	size := s.size
	if !s.sizeSet {
		size = payloadSize(input)
	}
	tier := s.tier
	if !s.fixedTier {
		p := resource.Advise(size, s.complexity, s.candidates)
		tier = p.Tier
		s.metrics.RecordPlacement(p.Tier.String(), p.Qualified)
		pc.SetMetadata(s.id+".placement", p)
		if !p.Qualified {
			pc.Log("placement: no candidate tier fits %s/%s, using %s", p.Estimate.Size, p.Estimate.Complexity, p.Tier)
		}
	}

	start := time.Now()
	out, err := s.runner.Execute(ctx, bridge.Request{
		Script:    s.cfg.Script,
		Input:     input,
		Tier:      tier,
		Timeout:   s.timeout,
		Env:       s.cfg.Env,
		OnScratch: pc.RegisterTempFile,
	})
	if err != nil {
		return nil, err
	}

	usage := resource.CheckUsage(resource.EstimateTime(size, s.complexity, tier), time.Since(start).Seconds())
	pc.SetMetadata(s.id+".usage", usage)
	if usage.Status == resource.UsageCritical && usage.Variance < 0 {
		pc.Log("usage: %s took %.2fs against an estimate of %.2fs", s.cfg.Script, usage.Actual, usage.Estimated)
	}
	return out, nil
}

func payloadSize(v any) resource.SizeClass {
	b, err := json.Marshal(v)
	if err != nil {
		return resource.Medium
	}
	return resource.SizeClassForBytes(int64(len(b)))
}
