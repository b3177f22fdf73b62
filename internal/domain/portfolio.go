package domain

import "github.com/shopspring/decimal"

// SegmentSummary aggregates one tier.
type SegmentSummary struct {
	Segment     Segment         `json:"segment"`
	Count       int             `json:"count"`
	AvgMonetary decimal.Decimal `json:"avg_monetary"`
}

// KPIs are the portfolio-wide customer value figures.
type KPIs struct {
	TotalCustomers int             `json:"total_customers"`
	AvgFrequency   decimal.Decimal `json:"avg_purchase_frequency"`
	AvgMonetary    decimal.Decimal `json:"avg_customer_ltv"`
	TotalMonetary  decimal.Decimal `json:"total_revenue"`
	MaxMonetary    decimal.Decimal `json:"top_customer_spending"`
	MinMonetary    decimal.Decimal `json:"min_customer_spending"`
}

// Pareto measures how much revenue the top fraction of customers generates.
type Pareto struct {
	Fraction         decimal.Decimal `json:"fraction"`
	TotalCustomers   int             `json:"total_customers"`
	TotalMonetary    decimal.Decimal `json:"total_revenue"`
	TopCustomers     int             `json:"top_customers"`
	TopMonetary      decimal.Decimal `json:"top_revenue"`
	TopCustomerShare decimal.Decimal `json:"top_pct_of_customers"`
	TopRevenueShare  decimal.Decimal `json:"top_pct_of_revenue"`
}

// Portfolio is the full output of the portfolio analysis.
type Portfolio struct {
	Segments    []SegmentSummary `json:"segments"`
	KPIs        KPIs             `json:"kpis"`
	Pareto      Pareto           `json:"pareto"`
	Leaders     []ScoredCustomer `json:"leaders"`
	TopSpenders []ScoredCustomer `json:"top_spenders"`
}
