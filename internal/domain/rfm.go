package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerActivity is the raw per-customer aggregate read from the store,
// before recency is derived.
type CustomerActivity struct {
	CustomerID    int64           `db:"customer_id"`
	Country       string          `db:"country"`
	FirstPurchase time.Time       `db:"first_purchase"`
	LastPurchase  time.Time       `db:"last_purchase"`
	Frequency     int             `db:"frequency"`
	Monetary      decimal.Decimal `db:"monetary"`
}

// CustomerRFM holds the behavioral metrics of one customer relative to an
// analysis reference date. It is recomputed on demand and never stored.
type CustomerRFM struct {
	CustomerID    int64           `json:"customer_id"`
	Country       string          `json:"country,omitempty"`
	Recency       int             `json:"recency"`
	Frequency     int             `json:"frequency"`
	Monetary      decimal.Decimal `json:"monetary"`
	FirstPurchase time.Time       `json:"first_purchase"`
	LastPurchase  time.Time       `json:"last_purchase"`
	DaysActive    int             `json:"days_active"`
}

// Segment is a customer value tier.
type Segment string

const (
	SegmentTopTier   Segment = "Top-Tier"
	SegmentHighValue Segment = "High-Value"
	SegmentMidValue  Segment = "Mid-Value"
	SegmentAtRisk    Segment = "At-Risk"
	SegmentOther     Segment = "Other"
)

// Segments lists every tier from most to least valuable.
var Segments = []Segment{SegmentTopTier, SegmentHighValue, SegmentMidValue, SegmentAtRisk, SegmentOther}

// Valid reports whether s is one of the defined tiers.
func (s Segment) Valid() bool {
	for _, v := range Segments {
		if s == v {
			return true
		}
	}
	return false
}

// ScoredCustomer is a CustomerRFM with quartile scores and its tier.
type ScoredCustomer struct {
	CustomerRFM
	RScore  int     `json:"r_score"`
	FScore  int     `json:"f_score"`
	MScore  int     `json:"m_score"`
	Segment Segment `json:"segment"`
}

// RFMCode concatenates the three scores, e.g. "431".
func (c ScoredCustomer) RFMCode() string {
	return fmt.Sprintf("%d%d%d", c.RScore, c.FScore, c.MScore)
}
