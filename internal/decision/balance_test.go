package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazypower/waypoint/internal/model"
)

func goalsIn(dims ...model.Dimension) []model.Goal {
	goals := make([]model.Goal, len(dims))
	for i, d := range dims {
		goals[i] = model.Goal{Dimension: d, Status: model.GoalActive}
	}
	return goals
}

func TestBalanceCareerHeavy(t *testing.T) {
	goals := goalsIn(
		model.DimCareer, model.DimCareer, model.DimCareer, model.DimCareer,
		model.DimCareer, model.DimCareer, model.DimCareer, model.DimHealth,
	)
	r := Balance(goals, model.DimCareer)

	assert.Equal(t, 8, r.Distribution[model.DimCareer])
	assert.Equal(t, 1, r.Distribution[model.DimHealth])
	assert.Equal(t, 8, r.Max)
	assert.Equal(t, 0, r.Min)
	assert.InDelta(t, 9.0/8.0, r.Average, 1e-9)
	assert.Equal(t, []model.Dimension{
		model.DimFamily, model.DimFinance, model.DimGrowth,
		model.DimSocial, model.DimHobby, model.DimSelfRealization,
	}, r.Neglected)
	assert.Equal(t, []model.Dimension{model.DimCareer}, r.OverFocused)
	assert.False(t, r.IsBalanced)
	assert.Contains(t, r.Commentary, "career")
	assert.Contains(t, r.Commentary, "self-realization")
}

func TestBalanceDeterministic(t *testing.T) {
	goals := goalsIn(model.DimHobby, model.DimFamily, model.DimHobby)
	a := Balance(goals, model.DimFinance)
	b := Balance(goals, model.DimFinance)
	assert.Equal(t, a, b)
}

func TestBalanceEvenWheel(t *testing.T) {
	r := Balance(goalsIn(model.Dimensions[:7]...), model.Dimensions[7])

	assert.True(t, r.IsBalanced)
	assert.Empty(t, r.Neglected)
	assert.Empty(t, r.OverFocused)
	assert.Equal(t, 1, r.Max)
	assert.Equal(t, 1, r.Min)
	assert.Equal(t, "Your goals are spread evenly across the wheel.", r.Commentary)
}

func TestBalanceEmpty(t *testing.T) {
	r := Balance(nil, "")

	assert.Len(t, r.Distribution, len(model.Dimensions))
	assert.Len(t, r.Neglected, 8)
	assert.Empty(t, r.OverFocused, "zero counts are never over-focused")
	assert.False(t, r.IsBalanced)
	assert.Equal(t, 0.0, r.Average)
}

func TestBalanceThresholds(t *testing.T) {
	// Six dimensions covered, two neglected: still balanced when the spread is <= 2.
	goals := goalsIn(
		model.DimHealth, model.DimHealth, model.DimCareer, model.DimFamily,
		model.DimFinance, model.DimGrowth,
	)
	r := Balance(goals, model.DimSocial)
	assert.Equal(t, 2, r.Max-r.Min)
	assert.Len(t, r.Neglected, 2)
	assert.True(t, r.IsBalanced)

	// A third neglected dimension tips it over.
	r = Balance(goals, "")
	assert.Len(t, r.Neglected, 3)
	assert.False(t, r.IsBalanced)
}

func TestBalanceIgnoresUnknownDimensions(t *testing.T) {
	r := Balance(goalsIn("astrology", model.DimHealth), "astrology")
	total := 0
	for _, n := range r.Distribution {
		total += n
	}
	assert.Equal(t, 1, total)
	assert.Len(t, r.Distribution, 8)
}
