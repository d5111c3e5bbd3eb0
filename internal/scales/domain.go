package scales

import (
	"fmt"
	"time"

	"github.com/onlytop/finanzas-core/internal/money"
	"github.com/onlytop/finanzas-core/internal/shared"
)

// ScaleType distinguishes how rule bounds are interpreted.
type ScaleType string

const (
	// ScaleTypeAmount matches tiers against net sales in whole USD.
	ScaleTypeAmount ScaleType = "MONTO_USD"
	// ScaleTypeGoalPercent matches tiers against percent-of-goal performance.
	ScaleTypeGoalPercent ScaleType = "PORCENTAJE_OBJETIVO"
)

// Rule is one tier of a commission scale. Bounds are whole USD (or whole
// percent for goal scales); a nil MaxUSD means the tier is open-ended.
type Rule struct {
	MinUSD    int64             `json:"min_usd"`
	MaxUSD    *int64            `json:"max_usd,omitempty"`
	PercentBP money.BasisPoints `json:"percent_bp"`
}

// Percent returns the tier percentage in whole percent for display.
func (r Rule) Percent() int64 {
	return int64(r.PercentBP) / 100
}

// CommissionScale is an ordered, gapless tier table. At most one scale is
// active at any time; at most one is the default.
type CommissionScale struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      ScaleType `json:"type"`
	IsActive  bool      `json:"is_active"`
	IsDefault bool      `json:"is_default"`
	Rules     []Rule    `json:"rules"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate enforces the tier invariants before a scale may be persisted:
// sorted ascending, first tier starts at 0, contiguous with no overlap,
// only the last tier open-ended, every percentage within [0,100].
func (s CommissionScale) Validate() error {
	if len(s.Rules) == 0 {
		return fmt.Errorf("%w: no rules", shared.ErrInvalidScaleDefinition)
	}
	if s.Rules[0].MinUSD != 0 {
		return fmt.Errorf("%w: first rule must start at 0, got %d", shared.ErrInvalidScaleDefinition, s.Rules[0].MinUSD)
	}
	for i, rule := range s.Rules {
		if rule.PercentBP < 0 || rule.PercentBP > 100*100 {
			return fmt.Errorf("%w: rule %d percentage out of [0,100]", shared.ErrInvalidScaleDefinition, i)
		}
		last := i == len(s.Rules)-1
		if rule.MaxUSD == nil {
			if !last {
				return fmt.Errorf("%w: rule %d open-ended but not last", shared.ErrInvalidScaleDefinition, i)
			}
			continue
		}
		if *rule.MaxUSD < rule.MinUSD {
			return fmt.Errorf("%w: rule %d max below min", shared.ErrInvalidScaleDefinition, i)
		}
		if !last {
			next := s.Rules[i+1]
			if next.MinUSD != *rule.MaxUSD+1 {
				return fmt.Errorf("%w: gap or overlap between rule %d and %d", shared.ErrInvalidScaleDefinition, i, i+1)
			}
		}
	}
	return nil
}

// Resolve returns the tier containing the given scaled amount. The amount is
// truncated to whole USD before matching since tiers are defined in whole
// dollars. A validated scale always matches; ErrNoApplicableRule is a
// defensive guard, never a silent 0% default.
func (s CommissionScale) Resolve(value money.Amount) (Rule, error) {
	if value.IsNegative() {
		return Rule{}, fmt.Errorf("%w: negative value", shared.ErrInvalidAmount)
	}
	return s.ResolveWhole(value.WholeUSD())
}

// ResolveWhole matches a whole-USD (or whole-percent, for goal scales) value.
func (s CommissionScale) ResolveWhole(whole int64) (Rule, error) {
	if whole < 0 {
		return Rule{}, fmt.Errorf("%w: negative value", shared.ErrInvalidAmount)
	}
	for _, rule := range s.Rules {
		if whole < rule.MinUSD {
			continue
		}
		if rule.MaxUSD == nil || whole <= *rule.MaxUSD {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: value %d matched no tier of scale %q", shared.ErrNoApplicableRule, whole, s.Name)
}
