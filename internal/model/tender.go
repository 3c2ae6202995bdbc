// Package model defines the domain records shared across the risk engine.
package model

import "time"

// TenderStatus is the lifecycle state of a tender.
type TenderStatus string

const (
	StatusOpen    TenderStatus = "open"
	StatusAwarded TenderStatus = "awarded"
	StatusClosed  TenderStatus = "closed"
)

// Procedure identifies the procurement procedure type.
type Procedure string

const (
	ProcedureOpen       Procedure = "open"
	ProcedureRestricted Procedure = "restricted"
	ProcedureNegotiated Procedure = "negotiated"
	ProcedureDirect     Procedure = "direct"
)

// Competitive reports whether the procedure requires open competition.
func (p Procedure) Competitive() bool {
	return p == ProcedureOpen || p == ProcedureRestricted
}

// Tender is a procurement notice as persisted by the scraper. The risk
// engine treats it as a read-only historical record.
type Tender struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	CPVCode           string       `json:"cpv_code"`
	ProcuringEntity   string       `json:"procuring_entity"`
	Procedure         Procedure    `json:"procedure"`
	EstimatedValueMKD float64      `json:"estimated_value_mkd"`
	AwardedValueMKD   *float64     `json:"awarded_value_mkd,omitempty"`
	Currency          string       `json:"currency"`
	NumBidders        int          `json:"num_bidders"`
	Status            TenderStatus `json:"status"`
	OpeningDate       *time.Time   `json:"opening_date,omitempty"`
	ClosingDate       *time.Time   `json:"closing_date,omitempty"`
	AwardDate         *time.Time   `json:"award_date,omitempty"`
	Winner            *string      `json:"winner,omitempty"`
}

// SubmissionWindowDays returns the bid submission window in days, or -1
// when either boundary date is missing.
func (t *Tender) SubmissionWindowDays() float64 {
	if t.OpeningDate == nil || t.ClosingDate == nil {
		return -1
	}
	return t.ClosingDate.Sub(*t.OpeningDate).Hours() / 24
}

// AwardRatio returns awarded/estimated value, or -1 when either is unknown.
func (t *Tender) AwardRatio() float64 {
	if t.AwardedValueMKD == nil || t.EstimatedValueMKD <= 0 {
		return -1
	}
	return *t.AwardedValueMKD / t.EstimatedValueMKD
}

// Bid is one bidder's participation in a tender.
type Bid struct {
	TenderID    string     `json:"tender_id"`
	Bidder      string     `json:"bidder"`
	AmountMKD   float64    `json:"amount_mkd"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	IsWinner    bool       `json:"is_winner"`
	Address     *string    `json:"address,omitempty"`
}

// Document is a disclosure document attached to a tender.
type Document struct {
	TenderID string `json:"tender_id"`
	DocType  string `json:"doc_type"`
	Present  bool   `json:"present"`
}

// Amendment is a post-publication change to a tender notice.
type Amendment struct {
	TenderID       string     `json:"tender_id"`
	AmendedAt      time.Time  `json:"amended_at"`
	NewClosingDate *time.Time `json:"new_closing_date,omitempty"`
	ValueDeltaMKD  float64    `json:"value_delta_mkd"`
}
