package resource

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesAreTotal(t *testing.T) {
	for _, tier := range AllTiers() {
		for _, s := range AllSizes() {
			for _, c := range AllComplexities() {
				mem := EstimateMemory(s, c)
				dur := EstimateTime(s, c, tier)
				assert.False(t, math.IsNaN(mem) || math.IsInf(mem, 0), "memory %s/%s", s, c)
				assert.False(t, math.IsNaN(dur) || math.IsInf(dur, 0), "time %s/%s/%s", s, c, tier)
				assert.Greater(t, mem, 0.0)
				assert.Greater(t, dur, 0.0)
			}
		}
	}
}

func TestConstrainedTiersAreSlower(t *testing.T) {
	assert.Equal(t, 1.0, Constraints(Cloud).PerformanceFactor)
	for _, tier := range []Tier{ConstrainedLocal, ConstrainedMobileAlt, Server} {
		assert.Greater(t, Constraints(tier).PerformanceFactor, 1.0, tier.String())
	}
}

func TestEstimatesAreMonotonic(t *testing.T) {
	sizes := AllSizes()
	complexities := AllComplexities()

	for _, tier := range AllTiers() {
		for si, s := range sizes {
			for ci, c := range complexities {
				if si > 0 {
					prev := sizes[si-1]
					assert.GreaterOrEqual(t, EstimateMemory(s, c), EstimateMemory(prev, c))
					assert.GreaterOrEqual(t, EstimateTime(s, c, tier), EstimateTime(prev, c, tier))
				}
				if ci > 0 {
					prev := complexities[ci-1]
					assert.GreaterOrEqual(t, EstimateMemory(s, c), EstimateMemory(s, prev))
					assert.GreaterOrEqual(t, EstimateTime(s, c, tier), EstimateTime(s, prev, tier))
				}
			}
		}
	}
}

func TestCanRunMatchesEstimates(t *testing.T) {
	for _, tier := range AllTiers() {
		c := Constraints(tier)
		for _, s := range AllSizes() {
			for _, cx := range AllComplexities() {
				want := EstimateMemory(s, cx) <= c.MaxMemoryMB && EstimateTime(s, cx, tier) <= c.MaxTimeSec
				assert.Equal(t, want, CanRun(s, cx, tier), "%s/%s on %s", s, cx, tier)
			}
		}
	}
}

func TestLargerTiersAcceptSupersets(t *testing.T) {
	dominates := func(a, b TierConstraints) bool {
		return a.MaxMemoryMB >= b.MaxMemoryMB && a.MaxTimeSec >= b.MaxTimeSec &&
			a.PerformanceFactor <= b.PerformanceFactor
	}

	checked := 0
	for _, a := range AllTiers() {
		for _, b := range AllTiers() {
			if a == b || !dominates(Constraints(a), Constraints(b)) {
				continue
			}
			checked++
			for _, s := range AllSizes() {
				for _, c := range AllComplexities() {
					if CanRun(s, c, b) {
						assert.True(t, CanRun(s, c, a), "%s accepts %s/%s but %s does not", b, s, c, a)
					}
				}
			}
		}
	}
	require.Positive(t, checked)
}

func TestSizeClassForBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want SizeClass
	}{
		{0, Tiny},
		{4 << 10, Tiny},
		{4<<10 + 1, Small},
		{1 << 20, Medium},
		{64 << 20, Large},
		{1 << 30, XLarge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeClassForBytes(tt.n), "%d bytes", tt.n)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range AllSizes() {
		got, err := ParseSizeClass(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, c := range AllComplexities() {
		got, err := ParseComplexityClass(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	for _, tier := range AllTiers() {
		got, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}

	_, err := ParseTier("quantum")
	assert.Error(t, err)
	cx, err := ParseComplexityClass("very-complex")
	require.NoError(t, err)
	assert.Equal(t, VeryComplex, cx)
}
