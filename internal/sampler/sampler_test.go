package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testCfg() config.SamplerConfig {
	return config.SamplerConfig{QueueSize: 50, BoundaryScore: 50}
}

func TestPriority(t *testing.T) {
	s := New(nil, testCfg())

	boundary := scoredTender{TenderID: "a", Score: 50, IntervalLow: 45, IntervalHigh: 55}
	extreme := scoredTender{TenderID: "b", Score: 95, IntervalLow: 90, IntervalHigh: 100}
	assert.Greater(t, s.priority(boundary), s.priority(extreme),
		"boundary cases outrank confident extremes")

	narrow := scoredTender{TenderID: "c", Score: 50, IntervalLow: 48, IntervalHigh: 52}
	wide := scoredTender{TenderID: "d", Score: 50, IntervalLow: 20, IntervalHigh: 80}
	assert.Greater(t, s.priority(wide), s.priority(narrow),
		"wider intervals are more informative")

	agree := scoredTender{TenderID: "e", Score: 50, Disagreement: 2}
	disagree := scoredTender{TenderID: "f", Score: 50, Disagreement: 30}
	assert.Greater(t, s.priority(disagree), s.priority(agree),
		"indicator disagreement raises priority")
}

func TestPriority_TermsBounded(t *testing.T) {
	s := New(nil, testCfg())

	// Saturated terms cap at 1 each.
	maxed := scoredTender{Score: 50, IntervalLow: 0, IntervalHigh: 200, Disagreement: 500}
	assert.InDelta(t, 3.0, s.priority(maxed), 0.001)

	// Scores far past the boundary floor the closeness term at zero.
	far := scoredTender{Score: 120, IntervalLow: 60, IntervalHigh: 60}
	assert.InDelta(t, 0.0, s.priority(far), 0.001)
}

func TestQueueItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queuedAt := time.Date(2025, 7, 2, 6, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM risk.review_queue").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"tender_id", "priority", "reason", "queued_at"}).
			AddRow("T-3", 2.4, "score 51.0, interval [30.0, 72.0], indicator stddev 22.0", queuedAt).
			AddRow("T-8", 1.1, "score 78.0, interval [70.0, 84.0], indicator stddev 6.0", queuedAt))

	s := New(mock, testCfg())
	items, err := s.QueueItems(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "T-3", items[0].TenderID)
	assert.Greater(t, items[0].Priority, items[1].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshQueue_NoCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM risk.composite_scores").
		WillReturnRows(pgxmock.NewRows([]string{
			"tender_id", "score", "confidence_low", "confidence_high", "stddev",
		}))

	s := New(mock, testCfg())
	n, err := s.RefreshQueue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
