package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskMinimal},
		{19.99, RiskMinimal},
		{20, RiskLow},
		{39.99, RiskLow},
		{40, RiskMedium},
		{59.99, RiskMedium},
		{60, RiskHigh},
		{79.99, RiskHigh},
		{80, RiskCritical},
		{100, RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.score), "score %v", tt.score)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, ok := ParseCategory(string(c))
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}

	_, ok := ParseCategory("finance")
	assert.False(t, ok)
	_, ok = ParseCategory("")
	assert.False(t, ok)
}

func TestCategories_Order(t *testing.T) {
	assert.Equal(t, []Category{
		CategoryCompetition,
		CategoryPrice,
		CategoryTiming,
		CategoryRelationship,
		CategoryProcedural,
	}, Categories())
}
