// Package segmentation assigns customer value tiers from RFM quartile
// scores using ordered condition-group rules.
package segmentation

import (
	"errors"

	"github.com/ignite/retail-rfm/internal/domain"
)

// ErrScoreOutOfRange is returned when a score lies outside 1..4.
var ErrScoreOutOfRange = errors.New("rfm score out of range")

// ==========================================
// OPERATORS
// ==========================================

// Operator represents a comparison operator
type Operator string

const (
	OpEquals Operator = "equals"
	OpGte    Operator = "gte"
	OpLte    Operator = "lte"
)

// LogicOperator for combining conditions
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// ==========================================
// FIELDS
// ==========================================

// Field names one of the three quartile scores.
type Field string

const (
	FieldRScore Field = "r_score"
	FieldFScore Field = "f_score"
	FieldMScore Field = "m_score"
)

// Scores is the input a rule is evaluated against.
type Scores struct {
	R, F, M int
}

func (s Scores) get(f Field) (int, bool) {
	switch f {
	case FieldRScore:
		return s.R, true
	case FieldFScore:
		return s.F, true
	case FieldMScore:
		return s.M, true
	}
	return 0, false
}

// ==========================================
// RULE STRUCTURES
// ==========================================

// Condition compares one score against a value.
type Condition struct {
	Field    Field    `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    int      `json:"value" yaml:"value"`
}

// ConditionGroup combines conditions with AND/OR logic. An empty group
// matches everything.
type ConditionGroup struct {
	LogicOperator LogicOperator `json:"logic_operator" yaml:"logic_operator"`
	Conditions    []Condition   `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Rule assigns Segment when Group matches.
type Rule struct {
	Segment domain.Segment `json:"segment" yaml:"segment"`
	Group   ConditionGroup `json:"group" yaml:"group"`
}

func all(conds ...Condition) ConditionGroup {
	return ConditionGroup{LogicOperator: LogicAnd, Conditions: conds}
}

// DefaultRules are the tier rules in evaluation order. The last rule
// matches everything, so every score triple lands in exactly one tier.
func DefaultRules() []Rule {
	return []Rule{
		{domain.SegmentTopTier, all(
			Condition{FieldRScore, OpEquals, 4},
			Condition{FieldFScore, OpEquals, 4},
			Condition{FieldMScore, OpEquals, 4},
		)},
		{domain.SegmentHighValue, all(
			Condition{FieldRScore, OpGte, 3},
			Condition{FieldFScore, OpGte, 3},
			Condition{FieldMScore, OpGte, 3},
		)},
		{domain.SegmentMidValue, all(
			Condition{FieldRScore, OpGte, 2},
			Condition{FieldFScore, OpGte, 2},
			Condition{FieldMScore, OpGte, 2},
		)},
		{domain.SegmentAtRisk, all(
			Condition{FieldRScore, OpEquals, 1},
			Condition{FieldFScore, OpLte, 2},
			Condition{FieldMScore, OpLte, 2},
		)},
		{domain.SegmentOther, all()},
	}
}
