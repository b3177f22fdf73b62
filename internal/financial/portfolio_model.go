// Package financial turns scored customers into portfolio figures: tier
// summaries, customer value KPIs, revenue concentration and leader lists.
package financial

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Options tunes the analysis.
type Options struct {
	ParetoFraction  decimal.Decimal // share of customers counted as "top"
	LeaderLimit     int             // Top-Tier and High-Value customers listed
	TopSpenderLimit int             // customers listed by spend regardless of tier
}

// DefaultOptions returns the 80/20 analysis with 20-row lists.
func DefaultOptions() Options {
	return Options{
		ParetoFraction:  decimal.RequireFromString("0.20"),
		LeaderLimit:     20,
		TopSpenderLimit: 20,
	}
}

// Analyze computes the portfolio of a classified population. The input is
// not modified.
func Analyze(customers []domain.ScoredCustomer, opts Options) (domain.Portfolio, error) {
	if err := checkPopulation(customers, opts.ParetoFraction); err != nil {
		return domain.Portfolio{}, err
	}

	byValue := make([]domain.ScoredCustomer, len(customers))
	copy(byValue, customers)
	sortByMonetary(byValue)

	kpis, err := ComputeKPIs(customers)
	if err != nil {
		return domain.Portfolio{}, err
	}
	pareto, err := paretoSorted(byValue, opts.ParetoFraction)
	if err != nil {
		return domain.Portfolio{}, err
	}

	p := domain.Portfolio{
		Segments:    SegmentSummaries(customers),
		KPIs:        kpis,
		Pareto:      pareto,
		Leaders:     leaders(byValue, opts.LeaderLimit),
		TopSpenders: head(byValue, opts.TopSpenderLimit),
	}

	logger.Info("portfolio analysis complete",
		"component", "financial",
		"customers", p.KPIs.TotalCustomers,
		"total_revenue", p.KPIs.TotalMonetary.StringFixed(2),
		"avg_ltv", p.KPIs.AvgMonetary.StringFixed(2),
		"pareto_top_customers", p.Pareto.TopCustomers,
		"pareto_revenue_pct", p.Pareto.TopRevenueShare.StringFixed(1),
	)
	return p, nil
}

// SegmentSummaries counts customers per tier with their average spend,
// ordered by average spend descending. Tiers without customers are omitted.
func SegmentSummaries(customers []domain.ScoredCustomer) []domain.SegmentSummary {
	counts := map[domain.Segment]int{}
	sums := map[domain.Segment]decimal.Decimal{}
	for _, c := range customers {
		counts[c.Segment]++
		sums[c.Segment] = sums[c.Segment].Add(c.Monetary)
	}

	var out []domain.SegmentSummary
	for _, seg := range domain.Segments {
		n := counts[seg]
		if n == 0 {
			continue
		}
		out = append(out, domain.SegmentSummary{
			Segment:     seg,
			Count:       n,
			AvgMonetary: sums[seg].Div(decimal.NewFromInt(int64(n))).Round(2),
		})
	}
	// stable: equal averages keep tier order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgMonetary.GreaterThan(out[j].AvgMonetary)
	})
	return out
}

func checkPopulation(customers []domain.ScoredCustomer, fraction decimal.Decimal) error {
	if len(customers) == 0 {
		return ErrEmptyPopulation
	}
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidFraction, fraction)
	}
	return nil
}

// ComputeKPIs returns the population-wide value figures.
func ComputeKPIs(customers []domain.ScoredCustomer) (domain.KPIs, error) {
	if len(customers) == 0 {
		return domain.KPIs{}, ErrEmptyPopulation
	}
	n := decimal.NewFromInt(int64(len(customers)))
	var freq int64
	total := decimal.Zero
	maxM, minM := customers[0].Monetary, customers[0].Monetary
	for _, c := range customers {
		freq += int64(c.Frequency)
		total = total.Add(c.Monetary)
		maxM = decimal.Max(maxM, c.Monetary)
		minM = decimal.Min(minM, c.Monetary)
	}
	return domain.KPIs{
		TotalCustomers: len(customers),
		AvgFrequency:   decimal.NewFromInt(freq).Div(n).Round(2),
		AvgMonetary:    total.Div(n).Round(2),
		TotalMonetary:  total.Round(2),
		MaxMonetary:    maxM,
		MinMonetary:    minM,
	}, nil
}

// Pareto measures revenue concentration in the top fraction of customers.
func Pareto(customers []domain.ScoredCustomer, fraction decimal.Decimal) (domain.Pareto, error) {
	if err := checkPopulation(customers, fraction); err != nil {
		return domain.Pareto{}, err
	}
	sorted := make([]domain.ScoredCustomer, len(customers))
	copy(sorted, customers)
	sortByMonetary(sorted)
	return paretoSorted(sorted, fraction)
}

// TopCount is ceil(n * fraction), at least 1 and at most n for n > 0.
func TopCount(n int, fraction decimal.Decimal) int {
	if n == 0 {
		return 0
	}
	top := int(decimal.NewFromInt(int64(n)).Mul(fraction).Ceil().IntPart())
	return max(1, min(top, n))
}

// paretoSorted takes exactly the first TopCount customers in sort order;
// customers tied with the last one are not added.
func paretoSorted(sorted []domain.ScoredCustomer, fraction decimal.Decimal) (domain.Pareto, error) {
	p := domain.Pareto{
		Fraction:       fraction,
		TotalCustomers: len(sorted),
		TotalMonetary:  decimal.Zero,
		TopMonetary:    decimal.Zero,
	}
	p.TopCustomers = TopCount(len(sorted), fraction)
	for i, c := range sorted {
		p.TotalMonetary = p.TotalMonetary.Add(c.Monetary)
		if i < p.TopCustomers {
			p.TopMonetary = p.TopMonetary.Add(c.Monetary)
		}
	}
	var err error
	if p.TopCustomerShare, err = percent(decimal.NewFromInt(int64(p.TopCustomers)), decimal.NewFromInt(int64(len(sorted)))); err != nil {
		return domain.Pareto{}, ErrEmptyPopulation
	}
	if p.TopRevenueShare, err = percent(p.TopMonetary, p.TotalMonetary); err != nil {
		return domain.Pareto{}, err
	}
	return p, nil
}

// percent is part/whole in percent to one place. A zero whole is an error.
func percent(part, whole decimal.Decimal) (decimal.Decimal, error) {
	if whole.IsZero() {
		return decimal.Zero, ErrZeroRevenue
	}
	return part.Div(whole).Mul(hundred).Round(1), nil
}

func leaders(sorted []domain.ScoredCustomer, limit int) []domain.ScoredCustomer {
	var out []domain.ScoredCustomer
	for _, c := range sorted {
		if len(out) >= limit {
			break
		}
		if c.Segment == domain.SegmentTopTier || c.Segment == domain.SegmentHighValue {
			out = append(out, c)
		}
	}
	return out
}

func head(sorted []domain.ScoredCustomer, limit int) []domain.ScoredCustomer {
	limit = max(0, min(limit, len(sorted)))
	out := make([]domain.ScoredCustomer, limit)
	copy(out, sorted[:limit])
	return out
}

// sortByMonetary orders by spend descending, then customer id ascending.
func sortByMonetary(cs []domain.ScoredCustomer) {
	sort.Slice(cs, func(i, j int) bool {
		if c := cs[i].Monetary.Cmp(cs[j].Monetary); c != 0 {
			return c > 0
		}
		return cs[i].CustomerID < cs[j].CustomerID
	})
}
