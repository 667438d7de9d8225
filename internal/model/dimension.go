package model

import "strings"

// Dimension is one of the eight life-wheel categories.
type Dimension string

const (
	DimHealth          Dimension = "health"
	DimCareer          Dimension = "career"
	DimFamily          Dimension = "family"
	DimFinance         Dimension = "finance"
	DimGrowth          Dimension = "growth"
	DimSocial          Dimension = "social"
	DimHobby           Dimension = "hobby"
	DimSelfRealization Dimension = "self_realization"
)

// Dimensions lists the life wheel in canonical order.
var Dimensions = []Dimension{
	DimHealth, DimCareer, DimFamily, DimFinance,
	DimGrowth, DimSocial, DimHobby, DimSelfRealization,
}

func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDimension accepts the canonical names plus the hyphen and space spellings
// ("self-realization", "self realization").
func ParseDimension(s string) (Dimension, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	d := Dimension(s)
	return d, d.Valid()
}

// LifeWheelDistribution maps every dimension to a goal count.
type LifeWheelDistribution map[Dimension]int

// NewDistribution returns a distribution with all eight dimensions at zero.
func NewDistribution() LifeWheelDistribution {
	dist := make(LifeWheelDistribution, len(Dimensions))
	for _, d := range Dimensions {
		dist[d] = 0
	}
	return dist
}
