package financial

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/retail-rfm/internal/domain"
)

func scored(id int64, seg domain.Segment, freq int, monetary string) domain.ScoredCustomer {
	return domain.ScoredCustomer{
		CustomerRFM: domain.CustomerRFM{
			CustomerID: id,
			Frequency:  freq,
			Monetary:   decimal.RequireFromString(monetary),
		},
		Segment: seg,
	}
}

func population() []domain.ScoredCustomer {
	return []domain.ScoredCustomer{
		scored(1, domain.SegmentTopTier, 10, "1000.00"),
		scored(2, domain.SegmentHighValue, 6, "500.00"),
		scored(3, domain.SegmentMidValue, 3, "200.00"),
		scored(4, domain.SegmentMidValue, 2, "100.00"),
		scored(5, domain.SegmentAtRisk, 1, "50.00"),
		scored(6, domain.SegmentAtRisk, 1, "25.00"),
		scored(7, domain.SegmentOther, 1, "75.00"),
		scored(8, domain.SegmentOther, 2, "50.00"),
		scored(9, domain.SegmentOther, 1, "0.01"),
		scored(10, domain.SegmentOther, 1, "0.99"),
	}
}

func TestAnalyze_KPIs(t *testing.T) {
	p, err := Analyze(population(), DefaultOptions())
	require.NoError(t, err)

	k := p.KPIs
	assert.Equal(t, 10, k.TotalCustomers)
	assert.Equal(t, "2.80", k.AvgFrequency.StringFixed(2))
	assert.Equal(t, "2001.00", k.TotalMonetary.StringFixed(2))
	assert.Equal(t, "200.10", k.AvgMonetary.StringFixed(2))
	assert.Equal(t, "1000.00", k.MaxMonetary.StringFixed(2))
	assert.Equal(t, "0.01", k.MinMonetary.StringFixed(2))
}

func TestAnalyze_Segments(t *testing.T) {
	p, err := Analyze(population(), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, p.Segments, 5)
	want := []struct {
		seg   domain.Segment
		count int
		avg   string
	}{
		{domain.SegmentTopTier, 1, "1000.00"},
		{domain.SegmentHighValue, 1, "500.00"},
		{domain.SegmentMidValue, 2, "150.00"},
		{domain.SegmentAtRisk, 2, "37.50"},
		{domain.SegmentOther, 4, "31.50"},
	}
	total := 0
	for i, w := range want {
		assert.Equal(t, w.seg, p.Segments[i].Segment)
		assert.Equal(t, w.count, p.Segments[i].Count)
		assert.Equal(t, w.avg, p.Segments[i].AvgMonetary.StringFixed(2))
		total += p.Segments[i].Count
	}
	assert.Equal(t, 10, total)
}

func TestAnalyze_Pareto(t *testing.T) {
	p, err := Analyze(population(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, p.Pareto.TopCustomers)
	assert.Equal(t, "1500.00", p.Pareto.TopMonetary.StringFixed(2))
	assert.Equal(t, "20.0", p.Pareto.TopCustomerShare.StringFixed(1))
	assert.Equal(t, "75.0", p.Pareto.TopRevenueShare.StringFixed(1))
	assert.True(t, p.Pareto.TopRevenueShare.LessThanOrEqual(decimal.NewFromInt(100)))
	assert.True(t, p.Pareto.TopRevenueShare.GreaterThanOrEqual(p.Pareto.TopCustomerShare))
}

func TestTopCount(t *testing.T) {
	fifth := decimal.RequireFromString("0.20")
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {4, 1}, {5, 1}, {6, 2}, {10, 2}, {11, 3}, {4338, 868},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TopCount(tt.n, fifth), "n=%d", tt.n)
	}
	assert.Equal(t, 3, TopCount(3, decimal.NewFromInt(1)))
}

func TestPareto_StrictTopN(t *testing.T) {
	// five customers tied at 10.00: exactly one is counted, the lowest id
	var cs []domain.ScoredCustomer
	for i := int64(5); i >= 1; i-- {
		cs = append(cs, scored(i, domain.SegmentOther, 1, "10.00"))
	}
	p, err := Pareto(cs, decimal.RequireFromString("0.20"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.TopCustomers)
	assert.Equal(t, "10.00", p.TopMonetary.StringFixed(2))
	assert.Equal(t, "20.0", p.TopRevenueShare.StringFixed(1))
}

func TestAnalyze_Leaders(t *testing.T) {
	cs := population()
	cs = append(cs, scored(11, domain.SegmentHighValue, 4, "800.00"))

	opts := DefaultOptions()
	opts.LeaderLimit = 2
	opts.TopSpenderLimit = 3
	p, err := Analyze(cs, opts)
	require.NoError(t, err)

	require.Len(t, p.Leaders, 2)
	assert.Equal(t, int64(1), p.Leaders[0].CustomerID)
	assert.Equal(t, int64(11), p.Leaders[1].CustomerID)

	require.Len(t, p.TopSpenders, 3)
	assert.Equal(t, []int64{1, 11, 2}, []int64{p.TopSpenders[0].CustomerID, p.TopSpenders[1].CustomerID, p.TopSpenders[2].CustomerID})
}

func TestAnalyze_DoesNotReorderInput(t *testing.T) {
	cs := population()
	_, err := Analyze(cs, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cs[0].CustomerID)
	assert.Equal(t, int64(10), cs[9].CustomerID)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(nil, DefaultOptions())
	assert.True(t, errors.Is(err, ErrEmptyPopulation))

	opts := DefaultOptions()
	opts.ParetoFraction = decimal.Zero
	_, err = Analyze(population(), opts)
	assert.True(t, errors.Is(err, ErrInvalidFraction))
}

func TestPareto_Errors(t *testing.T) {
	fifth := decimal.RequireFromString("0.20")

	_, err := Pareto(nil, fifth)
	assert.True(t, errors.Is(err, ErrEmptyPopulation))

	_, err = Pareto(population(), decimal.RequireFromString("1.5"))
	assert.True(t, errors.Is(err, ErrInvalidFraction))

	_, err = Pareto([]domain.ScoredCustomer{scored(1, domain.SegmentOther, 1, "0.00")}, fifth)
	assert.True(t, errors.Is(err, ErrZeroRevenue))
}

func TestComputeKPIs(t *testing.T) {
	_, err := ComputeKPIs(nil)
	assert.True(t, errors.Is(err, ErrEmptyPopulation))

	k, err := ComputeKPIs(population())
	require.NoError(t, err)
	assert.Equal(t, 10, k.TotalCustomers)
	assert.True(t, k.MaxMonetary.GreaterThanOrEqual(k.MinMonetary))
}
