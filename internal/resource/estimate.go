package resource

// Lookup tables are indexed by the closed enums so every combination has a
// value. Adding a size, complexity or tier changes the array length and
// forces a new constant here.
var (
	baseMemoryMB = [numSizes]float64{
		Tiny:   16,
		Small:  64,
		Medium: 256,
		Large:  1024,
		XLarge: 4096,
	}

	baseTimeSec = [numSizes]float64{
		Tiny:   0.05,
		Small:  0.2,
		Medium: 1,
		Large:  5,
		XLarge: 30,
	}

	complexityMultiplier = [numComplexities]float64{
		Simple:      1,
		Moderate:    2,
		Complex:     4,
		VeryComplex: 8,
	}
)

// WorkEstimate is the derived cost of a work item on one tier.
type WorkEstimate struct {
	Size       SizeClass       `json:"-"`
	Complexity ComplexityClass `json:"-"`
	Tier       Tier            `json:"tier"`
	MemoryMB   float64         `json:"memory_mb"`
	TimeSec    float64         `json:"time_s"`
	Fits       bool            `json:"fits"`
}

// EstimateMemory returns the estimated memory requirement in MB.
// Memory does not depend on the tier.
func EstimateMemory(size SizeClass, complexity ComplexityClass) float64 {
	return baseMemoryMB[size] * complexityMultiplier[complexity]
}

// EstimateTime returns the estimated wall-clock time in seconds on tier.
func EstimateTime(size SizeClass, complexity ComplexityClass, tier Tier) float64 {
	return baseTimeSec[size] * complexityMultiplier[complexity] * tierConstraints[tier].PerformanceFactor
}

// CanRun reports whether both estimates are within the tier's maxima.
func CanRun(size SizeClass, complexity ComplexityClass, tier Tier) bool {
	c := tierConstraints[tier]
	return EstimateMemory(size, complexity) <= c.MaxMemoryMB &&
		EstimateTime(size, complexity, tier) <= c.MaxTimeSec
}

func Estimate(size SizeClass, complexity ComplexityClass, tier Tier) WorkEstimate {
	return WorkEstimate{
		Size:       size,
		Complexity: complexity,
		Tier:       tier,
		MemoryMB:   EstimateMemory(size, complexity),
		TimeSec:    EstimateTime(size, complexity, tier),
		Fits:       CanRun(size, complexity, tier),
	}
}

// Upper byte bounds for each size class except the last.
var sizeClassBytes = [numSizes - 1]int64{
	Tiny:   4 << 10,
	Small:  256 << 10,
	Medium: 4 << 20,
	Large:  64 << 20,
}

// SizeClassForBytes maps a payload size to a size class.
func SizeClassForBytes(n int64) SizeClass {
	for i, limit := range sizeClassBytes {
		if n <= limit {
			return SizeClass(i)
		}
	}
	return XLarge
}
