package rfm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

// Service computes customer metrics from the store.
type Service struct {
	repo Repository
}

// NewService creates an aggregator backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Aggregate returns the metrics of every customer with positive monetary
// value, ordered by customer id. Recency is the number of calendar days
// between the reference date and the last invoice date. It is negative
// when the reference date precedes the last purchase.
func (s *Service) Aggregate(ctx context.Context, reference time.Time) ([]domain.CustomerRFM, error) {
	activity, err := s.repo.CustomerActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("customer activity: %w", err)
	}

	out := make([]domain.CustomerRFM, 0, len(activity))
	dropped := 0
	for _, a := range activity {
		monetary := a.Monetary.Round(2)
		if !monetary.IsPositive() {
			dropped++
			continue
		}
		out = append(out, domain.CustomerRFM{
			CustomerID:    a.CustomerID,
			Country:       a.Country,
			Recency:       DaysBetween(a.LastPurchase, reference),
			Frequency:     a.Frequency,
			Monetary:      monetary,
			FirstPurchase: a.FirstPurchase,
			LastPurchase:  a.LastPurchase,
			DaysActive:    DaysBetween(a.FirstPurchase, a.LastPurchase),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })

	logger.Info("aggregate complete",
		"component", "rfm",
		"reference_date", reference.Format("2006-01-02"),
		"customers", len(out),
		"dropped_non_positive", dropped,
	)
	return out, nil
}

// DaysBetween counts calendar days from the date of a to the date of b,
// ignoring time of day. Both are read in UTC.
func DaysBetween(a, b time.Time) int {
	da := civilDate(a)
	db := civilDate(b)
	return int(db.Sub(da).Hours() / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
