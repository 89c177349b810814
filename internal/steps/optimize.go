package steps

import (
	"context"
	"runtime"

	"go-pipeline-engine/internal/model"
	"go-pipeline-engine/internal/resource"
)

type optimizeConfig struct {
	Size       string   `json:"size"`
	Complexity string   `json:"complexity"`
	Candidates []string `json:"candidates"`
}

// Optimization is the tier-specific runtime hint attached by the optimize step.
type Optimization struct {
	Tier         string  `json:"tier"`
	Qualified    bool    `json:"qualified"`
	Quantization string  `json:"quantization"`
	Threads      int     `json:"threads"`
	CachePolicy  string  `json:"cache_policy"`
	BatchSize    int     `json:"batch_size"`
	MaxMemoryMB  float64 `json:"max_memory_mb"`
	EstimatedMB  float64 `json:"estimated_memory_mb"`
	EstimatedSec float64 `json:"estimated_time_s"`
}

// Optimize records an Optimization in the run metadata under
// "optimization" and passes its input through unchanged.
type Optimize struct {
	base
	size       resource.SizeClass
	sizeSet    bool
	complexity resource.ComplexityClass
	candidates []resource.Tier
}

func newOptimize(b base, _ Deps) (model.Step, error) {
	var cfg optimizeConfig
	if err := b.decode(&cfg); err != nil {
		return nil, err
	}
	o := &Optimize{base: b, complexity: resource.Moderate}

	var err error
	if cfg.Size != "" {
		if o.size, err = resource.ParseSizeClass(cfg.Size); err != nil {
			return nil, err
		}
		o.sizeSet = true
	}
	if cfg.Complexity != "" {
		if o.complexity, err = resource.ParseComplexityClass(cfg.Complexity); err != nil {
			return nil, err
		}
	}
	if o.candidates, err = resource.ParseTiers(cfg.Candidates); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Optimize) Execute(ctx context.Context, input any, pc *model.PipelineContext) (any, error) {
	size := o.size
	if !o.sizeSet {
		size = payloadSize(input)
	}
	p := resource.Advise(size, o.complexity, o.candidates)
	pc.SetMetadata("optimization", optimizationFor(size, p))
	return input, nil
}

func optimizationFor(size resource.SizeClass, p resource.Placement) Optimization {
	c := resource.Constraints(p.Tier)

	opt := Optimization{
		Tier:         p.Tier.String(),
		Qualified:    p.Qualified,
		MaxMemoryMB:  c.MaxMemoryMB,
		EstimatedMB:  p.Estimate.MemoryMB,
		EstimatedSec: p.Estimate.TimeSec,
	}

	switch p.Tier {
	case resource.ConstrainedMobileAlt:
		opt.Quantization = "int4"
		opt.CachePolicy = "none"
	case resource.ConstrainedLocal:
		opt.Quantization = "int8"
		opt.CachePolicy = "memory"
	case resource.Server:
		opt.Quantization = "fp16"
		opt.CachePolicy = "memory"
	default:
		opt.Quantization = "none"
		opt.CachePolicy = "distributed"
	}
	// Large payloads on constrained tiers need the more aggressive setting.
	if size >= resource.Large && p.Tier == resource.ConstrainedLocal {
		opt.Quantization = "int4"
		opt.CachePolicy = "disk"
	}

	opt.Threads = min(c.MaxConcurrentOps, runtime.NumCPU())
	if opt.Threads < 1 {
		opt.Threads = 1
	}

	opt.BatchSize = 1
	if p.Estimate.MemoryMB > 0 {
		opt.BatchSize = max(1, min(64, int(c.MaxMemoryMB/p.Estimate.MemoryMB)))
	}
	return opt
}
