package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcedure_Competitive(t *testing.T) {
	assert.True(t, ProcedureOpen.Competitive())
	assert.True(t, ProcedureRestricted.Competitive())
	assert.False(t, ProcedureNegotiated.Competitive())
	assert.False(t, ProcedureDirect.Competitive())
	assert.False(t, Procedure("unknown").Competitive())
}

func TestSubmissionWindowDays(t *testing.T) {
	opening := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	closing := time.Date(2025, 3, 24, 10, 0, 0, 0, time.UTC)

	tr := Tender{OpeningDate: &opening, ClosingDate: &closing}
	assert.InDelta(t, 21, tr.SubmissionWindowDays(), 0.001)

	noClosing := Tender{OpeningDate: &opening}
	assert.Equal(t, -1.0, noClosing.SubmissionWindowDays())
	noOpening := Tender{ClosingDate: &closing}
	assert.Equal(t, -1.0, noOpening.SubmissionWindowDays())
	empty := Tender{}
	assert.Equal(t, -1.0, empty.SubmissionWindowDays())
}

func TestAwardRatio(t *testing.T) {
	awarded := 3_900_000.0

	tr := Tender{EstimatedValueMKD: 5_000_000, AwardedValueMKD: &awarded}
	assert.InDelta(t, 0.78, tr.AwardRatio(), 0.001)

	noAward := Tender{EstimatedValueMKD: 5_000_000}
	assert.Equal(t, -1.0, noAward.AwardRatio())
	noEstimate := Tender{AwardedValueMKD: &awarded}
	assert.Equal(t, -1.0, noEstimate.AwardRatio())
}
