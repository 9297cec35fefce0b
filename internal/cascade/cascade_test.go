package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwatch/internal/model"
)

func methodsOf(strategies []Strategy) []model.MatchMethod {
	out := make([]model.MatchMethod, len(strategies))
	for i, s := range strategies {
		out[i] = s.Method()
	}
	return out
}

func TestCascadeDefaultOrder(t *testing.T) {
	c := New(DefaultOptions())

	assert.Equal(t, []model.MatchMethod{
		model.MethodExactURL,
		model.MethodNormalizedURL,
		model.MethodProductCode,
		model.MethodExactTitlePrice,
		model.MethodFuzzyTitlePrice,
		model.MethodImageOverlap,
	}, methodsOf(c.Strategies()))
}

func TestCascadeOrderFor(t *testing.T) {
	c := New(DefaultOptions())

	t.Run("nil profile keeps full order", func(t *testing.T) {
		assert.Len(t, c.OrderFor(nil), 6)
	})

	t.Run("fresh profile keeps full order", func(t *testing.T) {
		profile := model.NewRetailerMatchProfile("modcloth")
		assert.Len(t, c.OrderFor(profile), 6)
	})

	t.Run("low url stability skips url strategies", func(t *testing.T) {
		profile := model.NewRetailerMatchProfile("modcloth")
		profile.URLStabilityScore = 0.40

		order := c.OrderFor(profile)
		require.Len(t, order, 3)
		assert.Equal(t, []model.MatchMethod{
			model.MethodExactTitlePrice,
			model.MethodFuzzyTitlePrice,
			model.MethodImageOverlap,
		}, methodsOf(order))
	})

	t.Run("stability exactly at the cutoff keeps full order", func(t *testing.T) {
		profile := model.NewRetailerMatchProfile("modcloth")
		profile.URLStabilityScore = model.LowURLStabilityCutoff
		assert.Len(t, c.OrderFor(profile), 6)
	})
}
