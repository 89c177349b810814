package resource

import (
	"fmt"
	"strings"
)

// SizeClass is a coarse proxy for how much data a work item touches.
type SizeClass int

const (
	Tiny SizeClass = iota
	Small
	Medium
	Large
	XLarge
	numSizes
)

var sizeNames = [numSizes]string{"tiny", "small", "medium", "large", "xlarge"}

func (s SizeClass) String() string {
	if s < 0 || s >= numSizes {
		return fmt.Sprintf("SizeClass(%d)", int(s))
	}
	return sizeNames[s]
}

func (s SizeClass) Valid() bool { return s >= 0 && s < numSizes }

func ParseSizeClass(v string) (SizeClass, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range sizeNames {
		if name == v {
			return SizeClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown size class %q", v)
}

// AllSizes returns every size class in ascending order.
func AllSizes() []SizeClass {
	out := make([]SizeClass, 0, numSizes)
	for s := Tiny; s < numSizes; s++ {
		out = append(out, s)
	}
	return out
}

// ComplexityClass is a coarse proxy for how much work is done per unit of data.
type ComplexityClass int

const (
	Simple ComplexityClass = iota
	Moderate
	Complex
	VeryComplex
	numComplexities
)

var complexityNames = [numComplexities]string{"simple", "moderate", "complex", "very_complex"}

func (c ComplexityClass) String() string {
	if c < 0 || c >= numComplexities {
		return fmt.Sprintf("ComplexityClass(%d)", int(c))
	}
	return complexityNames[c]
}

func (c ComplexityClass) Valid() bool { return c >= 0 && c < numComplexities }

func ParseComplexityClass(v string) (ComplexityClass, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, "-", "_")
	for i, name := range complexityNames {
		if name == v {
			return ComplexityClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown complexity class %q", v)
}

// AllComplexities returns every complexity class in ascending order.
func AllComplexities() []ComplexityClass {
	out := make([]ComplexityClass, 0, numComplexities)
	for c := Simple; c < numComplexities; c++ {
		out = append(out, c)
	}
	return out
}

// Tier is a named execution environment.
type Tier int

const (
	ConstrainedLocal Tier = iota
	Server
	Cloud
	ConstrainedMobileAlt
	numTiers
)

var tierNames = [numTiers]string{"constrained-local", "server", "cloud", "constrained-mobile-alt"}

var tierAliases = map[string]Tier{
	"local":               ConstrainedLocal,
	"unconstrained-cloud": Cloud,
	"mobile":              ConstrainedMobileAlt,
	"mobile-alt":          ConstrainedMobileAlt,
}

func (t Tier) String() string {
	if t < 0 || t >= numTiers {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

func (t Tier) Valid() bool { return t >= 0 && t < numTiers }

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseTier(v string) (Tier, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range tierNames {
		if name == v {
			return Tier(i), nil
		}
	}
	if t, ok := tierAliases[v]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown tier %q", v)
}

// ParseTiers parses every name, failing on the first unknown one.
func ParseTiers(names []string) ([]Tier, error) {
	out := make([]Tier, 0, len(names))
	for _, n := range names {
		t, err := ParseTier(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func AllTiers() []Tier {
	return []Tier{ConstrainedLocal, Server, Cloud, ConstrainedMobileAlt}
}

// TierConstraints are the declared ceilings of a tier. ThermalThreshold is
// informational only and never consulted by placement.
type TierConstraints struct {
	Tier              Tier     `json:"tier"`
	MaxMemoryMB       float64  `json:"max_memory_mb"`
	MaxTimeSec        float64  `json:"max_time_s"`
	MaxStorageMB      float64  `json:"max_storage_mb"`
	Formats           []string `json:"formats"`
	ThermalThreshold  float64  `json:"thermal_threshold_c,omitempty"`
	MaxConcurrentOps  int      `json:"max_concurrent_ops"`
	PerformanceFactor float64  `json:"performance_factor"`
}

var tierConstraints = [numTiers]TierConstraints{
	ConstrainedLocal: {
		Tier:              ConstrainedLocal,
		MaxMemoryMB:       512,
		MaxTimeSec:        10,
		MaxStorageMB:      1024,
		Formats:           []string{"onnx", "tflite", "gguf"},
		ThermalThreshold:  45,
		MaxConcurrentOps:  2,
		PerformanceFactor: 4.0,
	},
	Server: {
		Tier:              Server,
		MaxMemoryMB:       8192,
		MaxTimeSec:        120,
		MaxStorageMB:      51200,
		Formats:           []string{"onnx", "gguf", "safetensors", "pytorch"},
		ThermalThreshold:  80,
		MaxConcurrentOps:  16,
		PerformanceFactor: 1.5,
	},
	Cloud: {
		Tier:              Cloud,
		MaxMemoryMB:       65536,
		MaxTimeSec:        3600,
		MaxStorageMB:      1048576,
		Formats:           []string{"onnx", "gguf", "safetensors", "pytorch", "tensorflow"},
		MaxConcurrentOps:  256,
		PerformanceFactor: 1.0,
	},
	ConstrainedMobileAlt: {
		Tier:              ConstrainedMobileAlt,
		MaxMemoryMB:       256,
		MaxTimeSec:        5,
		MaxStorageMB:      512,
		Formats:           []string{"coreml", "tflite"},
		ThermalThreshold:  40,
		MaxConcurrentOps:  1,
		PerformanceFactor: 6.0,
	},
}

// Constraints returns a copy of the tier's declared constraints.
func Constraints(t Tier) TierConstraints {
	c := tierConstraints[t]
	c.Formats = append([]string(nil), c.Formats...)
	return c
}
