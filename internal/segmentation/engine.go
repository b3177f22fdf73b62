package segmentation

import (
	"fmt"

	"github.com/ignite/retail-rfm/internal/domain"
)

// Engine evaluates rules in order; the first matching rule wins.
type Engine struct {
	rules []Rule
}

var defaultEngine = &Engine{rules: DefaultRules()}

// NewEngine validates rules and returns an engine for them.
func NewEngine(rules []Rule) (*Engine, error) {
	if errs := ValidateRules(rules); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules: %v", errs)
	}
	return &Engine{rules: rules}, nil
}

// Classify returns the tier of one score triple using the default rules.
func Classify(r, f, m int) domain.Segment {
	return defaultEngine.Classify(r, f, m)
}

// ClassifyAll sets the tier of every customer using the default rules.
func ClassifyAll(customers []domain.ScoredCustomer) error {
	return defaultEngine.ClassifyAll(customers)
}

// Classify returns the segment of the first matching rule, or Other.
func (e *Engine) Classify(r, f, m int) domain.Segment {
	s := Scores{R: r, F: f, M: m}
	for _, rule := range e.rules {
		if rule.Group.matches(s) {
			return rule.Segment
		}
	}
	return domain.SegmentOther
}

// ClassifyAll sets Segment on each customer in place. It fails without
// modifying anything if a score lies outside 1..4.
func (e *Engine) ClassifyAll(customers []domain.ScoredCustomer) error {
	for _, c := range customers {
		for _, q := range []int{c.RScore, c.FScore, c.MScore} {
			if q < 1 || q > 4 {
				return fmt.Errorf("%w: customer %d has scores %s", ErrScoreOutOfRange, c.CustomerID, c.RFMCode())
			}
		}
	}
	for i := range customers {
		c := &customers[i]
		c.Segment = e.Classify(c.RScore, c.FScore, c.MScore)
	}
	return nil
}

func (g ConditionGroup) matches(s Scores) bool {
	if len(g.Conditions) == 0 {
		return true
	}
	if g.LogicOperator == LogicOr {
		for _, c := range g.Conditions {
			if c.matches(s) {
				return true
			}
		}
		return false
	}
	for _, c := range g.Conditions {
		if !c.matches(s) {
			return false
		}
	}
	return true
}

func (c Condition) matches(s Scores) bool {
	v, ok := s.get(c.Field)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEquals:
		return v == c.Value
	case OpGte:
		return v >= c.Value
	case OpLte:
		return v <= c.Value
	}
	return false
}

// ValidateRules checks that every rule names a known segment, field and
// operator and that the last rule is a catch-all.
func ValidateRules(rules []Rule) []string {
	var errors []string
	if len(rules) == 0 {
		return []string{"at least one rule is required"}
	}
	for i, r := range rules {
		if !r.Segment.Valid() {
			errors = append(errors, fmt.Sprintf("rule %d: unknown segment %q", i, r.Segment))
		}
		switch r.Group.LogicOperator {
		case LogicAnd, LogicOr, "":
		default:
			errors = append(errors, fmt.Sprintf("rule %d: unknown logic operator %q", i, r.Group.LogicOperator))
		}
		for j, c := range r.Group.Conditions {
			if _, ok := (Scores{}).get(c.Field); !ok {
				errors = append(errors, fmt.Sprintf("rule %d condition %d: unknown field %q", i, j, c.Field))
			}
			switch c.Operator {
			case OpEquals, OpGte, OpLte:
			default:
				errors = append(errors, fmt.Sprintf("rule %d condition %d: unknown operator %q", i, j, c.Operator))
			}
		}
	}
	if last := rules[len(rules)-1]; len(last.Group.Conditions) != 0 {
		errors = append(errors, "last rule must have no conditions so every customer is classified")
	}
	return errors
}
