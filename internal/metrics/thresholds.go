package metrics

import (
	"fmt"

	"learnerdash/internal/errors"
)

// Thresholds holds every constant the insight rules compare against.
type Thresholds struct {
	// LowPerformerFraction flags learners below this fraction of the class average percentage
	LowPerformerFraction float64 `yaml:"low_performer_fraction" json:"low_performer_fraction"`
	// FailingPercent flags learners below this absolute percentage
	FailingPercent float64 `yaml:"failing_percent" json:"failing_percent"`
	// HighPerformerPercent flags learners at or above this absolute percentage
	HighPerformerPercent float64 `yaml:"high_performer_percent" json:"high_performer_percent"`
	// WeakQuestionFraction flags questions whose mean is below this fraction of the mean of question means
	WeakQuestionFraction float64 `yaml:"weak_question_fraction" json:"weak_question_fraction"`
	// VariabilityStdDev flags the class when the std-dev of percentages exceeds it
	VariabilityStdDev float64 `yaml:"variability_std_dev" json:"variability_std_dev"`
	TierLowerBound    float64 `yaml:"tier_lower_bound" json:"tier_lower_bound"`
	TierUpperBound    float64 `yaml:"tier_upper_bound" json:"tier_upper_bound"`
}

// DefaultThresholds returns the values used by the dashboard
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowPerformerFraction: 0.8,
		FailingPercent:       30,
		HighPerformerPercent: 80,
		WeakQuestionFraction: 0.9,
		VariabilityStdDev:    10,
		TierLowerBound:       40,
		TierUpperBound:       70,
	}
}

// Validate checks that fractions and bands are usable
func (t Thresholds) Validate() error {
	if t.LowPerformerFraction <= 0 || t.LowPerformerFraction > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("low performer fraction %.2f must be in (0,1]", t.LowPerformerFraction))
	}
	if t.WeakQuestionFraction <= 0 || t.WeakQuestionFraction > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("weak question fraction %.2f must be in (0,1]", t.WeakQuestionFraction))
	}
	if t.FailingPercent < 0 || t.FailingPercent > 100 || t.HighPerformerPercent < 0 || t.HighPerformerPercent > 100 {
		return errors.ConfigInvalid("absolute thresholds must be percentages between 0 and 100")
	}
	if t.VariabilityStdDev < 0 {
		return errors.ConfigInvalid("variability threshold must not be negative")
	}
	if t.TierLowerBound >= t.TierUpperBound {
		return errors.ConfigInvalid(fmt.Sprintf("tier bounds %.0f and %.0f are not ordered", t.TierLowerBound, t.TierUpperBound))
	}
	return nil
}
