package indicator

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// PastTender is a summarized historical tender used by entity-level
// indicators.
type PastTender struct {
	ID                string
	Title             string
	CPVCode           string
	Procedure         model.Procedure
	NumBidders        int
	EstimatedValueMKD float64
	AwardedValueMKD   float64
	AwardDate         *time.Time
	Winner            string
	Bidders           []string
}

// EntityHistory holds the procuring entity's past tenders within the
// lookback window, oldest first.
type EntityHistory struct {
	Tenders []PastTender
}

// MarketStats holds CPV-level statistics over awarded tenders in the same
// category, used to normalize price and timing signals.
type MarketStats struct {
	SampleSize       int
	MedianAwardRatio float64
	StdevAwardRatio  float64
	MedianWindowDays float64
	MedianBidders    float64
}

// BidderStats summarizes one bidder's participation with this entity and
// market-wide, excluding the tender under evaluation.
type BidderStats struct {
	Bidder         string
	BidsWithEntity int
	WinsWithEntity int
	BidsTotal      int
	WinsTotal      int
}

// TenderData is the read-only snapshot all indicators of one evaluation run
// share. It is loaded once per tender; indicators are pure functions over
// it, which keeps the batch deterministic and free of shared mutable state.
type TenderData struct {
	Tender     model.Tender
	Bids       []model.Bid
	Documents  []model.Document
	Amendments []model.Amendment
	Entity     EntityHistory
	Market     MarketStats
	Bidders    map[string]BidderStats

	missing map[DataNeed]string
}

// MarkMissing records that a data section could not be loaded and why.
func (d *TenderData) MarkMissing(need DataNeed, reason string) {
	if d.missing == nil {
		d.missing = make(map[DataNeed]string)
	}
	d.missing[need] = reason
}

// MissingReason returns the first missing-section reason among needs.
func (d *TenderData) MissingReason(needs DataNeed) (string, bool) {
	for need, reason := range d.missing {
		if needs&need != 0 {
			return reason, true
		}
	}
	return "", false
}

// WinningBid returns the winning bid, or nil if none is recorded.
func (d *TenderData) WinningBid() *model.Bid {
	for i := range d.Bids {
		if d.Bids[i].IsWinner {
			return &d.Bids[i]
		}
	}
	return nil
}

// Load fetches the full evaluation snapshot for one tender. A missing
// tender row or unreachable database is an error; failures in auxiliary
// sections are recorded on the snapshot so the affected indicators degrade
// to low-confidence results instead of aborting the batch.
func Load(ctx context.Context, pool db.Pool, tenderID string, historyYears int) (*TenderData, error) {
	log := zap.L().With(zap.String("component", "indicator.load"), zap.String("tender_id", tenderID))
	d := &TenderData{Bidders: make(map[string]BidderStats)}

	if err := loadTender(ctx, pool, tenderID, &d.Tender); err != nil {
		return nil, err
	}

	if err := loadBids(ctx, pool, tenderID, d); err != nil {
		log.Warn("bids unavailable", zap.Error(err))
		d.MarkMissing(NeedBids, "bid records unavailable")
	}
	if err := loadDocuments(ctx, pool, tenderID, d); err != nil {
		log.Warn("documents unavailable", zap.Error(err))
		d.MarkMissing(NeedDocuments, "document records unavailable")
	}
	if err := loadAmendments(ctx, pool, tenderID, d); err != nil {
		log.Warn("amendments unavailable", zap.Error(err))
		d.MarkMissing(NeedAmendments, "amendment records unavailable")
	}

	cutoff := time.Now().UTC().AddDate(-historyYears, 0, 0)
	if err := loadEntityHistory(ctx, pool, d, cutoff); err != nil {
		log.Warn("entity history unavailable", zap.Error(err))
		d.MarkMissing(NeedEntityHistory, "entity history unavailable")
	} else if len(d.Entity.Tenders) < 2 {
		d.MarkMissing(NeedEntityHistory, "fewer than 2 historical tenders for entity")
	}

	if err := loadMarketStats(ctx, pool, d); err != nil {
		log.Warn("market stats unavailable", zap.Error(err))
		d.MarkMissing(NeedMarketStats, "category statistics unavailable")
	} else if d.Market.SampleSize < 5 {
		d.MarkMissing(NeedMarketStats, "fewer than 5 awarded tenders in category")
	}

	if err := loadBidderStats(ctx, pool, d); err != nil {
		log.Warn("bidder stats unavailable", zap.Error(err))
		d.MarkMissing(NeedBidderStats, "bidder participation history unavailable")
	}

	return d, nil
}

func loadTender(ctx context.Context, pool db.Pool, tenderID string, t *model.Tender) error {
	row := pool.QueryRow(ctx, `
		SELECT id, title, cpv_code, procuring_entity, procedure,
		       COALESCE(estimated_value_mkd, 0), awarded_value_mkd,
		       currency, num_bidders, status,
		       opening_date, closing_date, award_date, winner
		FROM risk.tenders
		WHERE id = $1`, tenderID)

	var procedure, status string
	err := row.Scan(
		&t.ID, &t.Title, &t.CPVCode, &t.ProcuringEntity, &procedure,
		&t.EstimatedValueMKD, &t.AwardedValueMKD,
		&t.Currency, &t.NumBidders, &status,
		&t.OpeningDate, &t.ClosingDate, &t.AwardDate, &t.Winner,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return eris.Errorf("indicator: tender %s not found", tenderID)
		}
		return eris.Wrapf(err, "indicator: load tender %s", tenderID)
	}
	t.Procedure = model.Procedure(procedure)
	t.Status = model.TenderStatus(status)
	return nil
}

func loadBids(ctx context.Context, pool db.Pool, tenderID string, d *TenderData) error {
	rows, err := pool.Query(ctx, `
		SELECT tender_id, bidder, COALESCE(amount_mkd, 0), submitted_at, is_winner, address
		FROM risk.bids
		WHERE tender_id = $1
		ORDER BY amount_mkd, bidder`, tenderID)
	if err != nil {
		return eris.Wrap(err, "indicator: query bids")
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.TenderID, &b.Bidder, &b.AmountMKD, &b.SubmittedAt, &b.IsWinner, &b.Address); err != nil {
			return eris.Wrap(err, "indicator: scan bid")
		}
		d.Bids = append(d.Bids, b)
	}
	return eris.Wrap(rows.Err(), "indicator: iterate bids")
}

func loadDocuments(ctx context.Context, pool db.Pool, tenderID string, d *TenderData) error {
	rows, err := pool.Query(ctx, `
		SELECT tender_id, doc_type, present
		FROM risk.documents
		WHERE tender_id = $1
		ORDER BY doc_type`, tenderID)
	if err != nil {
		return eris.Wrap(err, "indicator: query documents")
	}
	defer rows.Close()

	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.TenderID, &doc.DocType, &doc.Present); err != nil {
			return eris.Wrap(err, "indicator: scan document")
		}
		d.Documents = append(d.Documents, doc)
	}
	return eris.Wrap(rows.Err(), "indicator: iterate documents")
}

func loadAmendments(ctx context.Context, pool db.Pool, tenderID string, d *TenderData) error {
	rows, err := pool.Query(ctx, `
		SELECT tender_id, amended_at, new_closing_date, COALESCE(value_delta_mkd, 0)
		FROM risk.tender_amendments
		WHERE tender_id = $1
		ORDER BY amended_at`, tenderID)
	if err != nil {
		return eris.Wrap(err, "indicator: query amendments")
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Amendment
		if err := rows.Scan(&a.TenderID, &a.AmendedAt, &a.NewClosingDate, &a.ValueDeltaMKD); err != nil {
			return eris.Wrap(err, "indicator: scan amendment")
		}
		d.Amendments = append(d.Amendments, a)
	}
	return eris.Wrap(rows.Err(), "indicator: iterate amendments")
}

func loadEntityHistory(ctx context.Context, pool db.Pool, d *TenderData, cutoff time.Time) error {
	rows, err := pool.Query(ctx, `
		SELECT t.id, t.title, t.cpv_code, t.procedure, t.num_bidders,
		       COALESCE(t.estimated_value_mkd, 0), COALESCE(t.awarded_value_mkd, 0),
		       t.award_date, COALESCE(t.winner, ''),
		       COALESCE(array_agg(b.bidder ORDER BY b.bidder) FILTER (WHERE b.bidder IS NOT NULL), '{}')
		FROM risk.tenders t
		LEFT JOIN risk.bids b ON b.tender_id = t.id
		WHERE t.procuring_entity = $1 AND t.id <> $2 AND t.opening_date >= $3
		GROUP BY t.id
		ORDER BY t.opening_date, t.id`,
		d.Tender.ProcuringEntity, d.Tender.ID, cutoff)
	if err != nil {
		return eris.Wrap(err, "indicator: query entity history")
	}
	defer rows.Close()

	for rows.Next() {
		var pt PastTender
		var procedure string
		if err := rows.Scan(&pt.ID, &pt.Title, &pt.CPVCode, &procedure, &pt.NumBidders,
			&pt.EstimatedValueMKD, &pt.AwardedValueMKD, &pt.AwardDate, &pt.Winner, &pt.Bidders); err != nil {
			return eris.Wrap(err, "indicator: scan entity history")
		}
		pt.Procedure = model.Procedure(procedure)
		d.Entity.Tenders = append(d.Entity.Tenders, pt)
	}
	return eris.Wrap(rows.Err(), "indicator: iterate entity history")
}

func loadMarketStats(ctx context.Context, pool db.Pool, d *TenderData) error {
	row := pool.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY awarded_value_mkd / NULLIF(estimated_value_mkd, 0)), 0),
		       COALESCE(stddev_samp(awarded_value_mkd / NULLIF(estimated_value_mkd, 0)), 0),
		       COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM closing_date - opening_date) / 86400.0), 0),
		       COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY num_bidders::float), 0)
		FROM risk.tenders
		WHERE cpv_code = $1 AND id <> $2 AND status = 'awarded'`,
		d.Tender.CPVCode, d.Tender.ID)

	err := row.Scan(&d.Market.SampleSize, &d.Market.MedianAwardRatio, &d.Market.StdevAwardRatio,
		&d.Market.MedianWindowDays, &d.Market.MedianBidders)
	return eris.Wrap(err, "indicator: scan market stats")
}

func loadBidderStats(ctx context.Context, pool db.Pool, d *TenderData) error {
	if len(d.Bids) == 0 {
		d.MarkMissing(NeedBidderStats, "no bids recorded")
		return nil
	}

	bidders := make([]string, 0, len(d.Bids))
	for _, b := range d.Bids {
		bidders = append(bidders, b.Bidder)
	}

	rows, err := pool.Query(ctx, `
		SELECT b.bidder,
		       count(*) FILTER (WHERE t.procuring_entity = $2),
		       count(*) FILTER (WHERE t.procuring_entity = $2 AND b.is_winner),
		       count(*),
		       count(*) FILTER (WHERE b.is_winner)
		FROM risk.bids b
		JOIN risk.tenders t ON t.id = b.tender_id
		WHERE b.bidder = ANY($1) AND b.tender_id <> $3
		GROUP BY b.bidder`,
		bidders, d.Tender.ProcuringEntity, d.Tender.ID)
	if err != nil {
		return eris.Wrap(err, "indicator: query bidder stats")
	}
	defer rows.Close()

	for rows.Next() {
		var bs BidderStats
		if err := rows.Scan(&bs.Bidder, &bs.BidsWithEntity, &bs.WinsWithEntity, &bs.BidsTotal, &bs.WinsTotal); err != nil {
			return eris.Wrap(err, "indicator: scan bidder stats")
		}
		d.Bidders[bs.Bidder] = bs
	}
	return eris.Wrap(rows.Err(), "indicator: iterate bidder stats")
}
