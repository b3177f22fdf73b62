// Package report renders the plain-text run summary printed by the batch CLI.
package report

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ignite/retail-rfm/internal/config"
	"github.com/ignite/retail-rfm/internal/domain"
)

// DefaultTemplate is the Liquid source of the run summary.
const DefaultTemplate = `RFM run {{ run_id }} (reference date {{ reference_date }}, {{ duration }})

Data quality
  rows read        {{ total | delimit }}{% if unparsed > 0 %} ({{ unparsed | delimit }} unparseable rows skipped){% endif %}
  rows accepted    {{ accepted | delimit }}
  rows removed     {{ removed | delimit }} ({{ quality }}% quality improvement)
{% for r in rejections %}    {{ r.reason }}: {{ r.count | delimit }}
{% endfor %}
Load
{% for e in entities %}  {{ e.name }}: {{ e.inserted | delimit }} inserted, {{ e.skipped | delimit }} already present, {{ e.total | delimit }} total
{% endfor %}  total revenue {{ stored_revenue }}{% if integrity_clean %}, integrity OK{% else %}, INTEGRITY FAILURES{% endif %}

Segments
{% for s in segments %}  {{ s.name }}: {{ s.count | delimit }} customers, avg spend {{ s.avg }}
{% endfor %}
KPIs
  customers        {{ kpis.customers | delimit }}
  avg frequency    {{ kpis.frequency }}
  avg lifetime value {{ kpis.ltv }}
  total revenue    {{ kpis.revenue }}
  top spender      {{ kpis.max }}

Pareto: top {{ pareto.customers | delimit }} customers ({{ pareto.customer_share }}%) generated {{ pareto.revenue }} ({{ pareto.revenue_share }}% of revenue)
{% if leaders.size > 0 %}
Leaders
{% for c in leaders %}  {{ c.id }} {{ c.segment }} RFM {{ c.code }} spend {{ c.monetary }}
{% endfor %}{% endif %}`

// Renderer renders run reports through a compiled Liquid template.
type Renderer struct {
	tpl     *liquid.Template
	printer *message.Printer
}

// NewRenderer compiles DefaultTemplate.
func NewRenderer() (*Renderer, error) {
	return NewRendererWithTemplate(DefaultTemplate)
}

// NewRendererWithTemplate compiles src with the summary filters registered.
func NewRendererWithTemplate(src string) (*Renderer, error) {
	p := message.NewPrinter(language.English)
	engine := liquid.NewEngine()

	// Integer with thousands separators: {{ count | delimit }}
	engine.RegisterFilter("delimit", func(value interface{}) string {
		switch v := value.(type) {
		case int:
			return p.Sprintf("%d", v)
		case int64:
			return p.Sprintf("%d", v)
		case float64:
			return p.Sprintf("%d", int64(v))
		default:
			return fmt.Sprintf("%v", value)
		}
	})

	tpl, err := engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parsing summary template: %w", err)
	}
	return &Renderer{tpl: tpl, printer: p}, nil
}

// Render produces the summary text for report.
func (r *Renderer) Render(report *domain.RunReport) (string, error) {
	out, err := r.tpl.RenderString(r.bindings(report))
	if err != nil {
		return "", fmt.Errorf("rendering summary: %w", err)
	}
	return out, nil
}

// Money formats a decimal with two places and thousands separators.
func (r *Renderer) Money(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + r.printer.Sprintf("%d", decimal.RequireFromString(whole).IntPart()) + "." + frac
}

func (r *Renderer) bindings(report *domain.RunReport) map[string]interface{} {
	n := report.Normalize
	rejections := make([]map[string]interface{}, 0, len(domain.RejectReasons))
	for _, reason := range domain.RejectReasons {
		if c := n.Rejected[reason]; c > 0 {
			rejections = append(rejections, map[string]interface{}{"reason": string(reason), "count": c})
		}
	}

	entities := make([]map[string]interface{}, 0, len(domain.Entities))
	for _, e := range domain.Entities {
		entities = append(entities, map[string]interface{}{
			"name":     string(e),
			"inserted": report.Load.Inserted[e],
			"skipped":  report.Load.Skipped[e],
			"total":    report.Integrity.Counts[e],
		})
	}

	pf := report.Portfolio
	segments := make([]map[string]interface{}, 0, len(pf.Segments))
	for _, s := range pf.Segments {
		segments = append(segments, map[string]interface{}{
			"name":  string(s.Segment),
			"count": s.Count,
			"avg":   r.Money(s.AvgMonetary),
		})
	}

	leaders := make([]map[string]interface{}, 0, len(pf.Leaders))
	for _, c := range pf.Leaders {
		leaders = append(leaders, map[string]interface{}{
			"id":       c.CustomerID,
			"segment":  string(c.Segment),
			"code":     c.RFMCode(),
			"monetary": r.Money(c.Monetary),
		})
	}

	return map[string]interface{}{
		"run_id":          report.RunID,
		"reference_date":  report.ReferenceDate.Format(config.DateLayout),
		"duration":        report.Duration().Round(1e6).String(),
		"total":           n.Total,
		"unparsed":        report.Ingest.Unparsed,
		"accepted":        n.Accepted,
		"removed":         n.RejectedTotal(),
		"quality":         r.printer.Sprintf("%.1f", n.QualityImprovement()),
		"rejections":      rejections,
		"entities":        entities,
		"stored_revenue":  r.Money(report.Integrity.TotalRevenue),
		"integrity_clean": report.Integrity.Clean(),
		"segments":        segments,
		"kpis": map[string]interface{}{
			"customers": pf.KPIs.TotalCustomers,
			"frequency": pf.KPIs.AvgFrequency.StringFixed(2),
			"ltv":       r.Money(pf.KPIs.AvgMonetary),
			"revenue":   r.Money(pf.KPIs.TotalMonetary),
			"max":       r.Money(pf.KPIs.MaxMonetary),
		},
		"pareto": map[string]interface{}{
			"customers":      pf.Pareto.TopCustomers,
			"customer_share": pf.Pareto.TopCustomerShare.StringFixed(1),
			"revenue":        r.Money(pf.Pareto.TopMonetary),
			"revenue_share":  pf.Pareto.TopRevenueShare.StringFixed(1),
		},
		"leaders": leaders,
	}
}
