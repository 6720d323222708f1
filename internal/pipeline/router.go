package pipeline

import (
	"github.com/sells-group/provider-directory/internal/config"
	"github.com/sells-group/provider-directory/internal/model"
)

// Decide maps a profile confidence to a disposition. Pure function of the
// score and the two thresholds; no other input may influence the decision,
// which keeps every routing outcome explainable from the published score
// alone. Monotone in score.
func Decide(score float64, th config.QAConfig) model.Decision {
	switch {
	case score >= th.THAuto:
		return model.DecisionAuto
	case score >= th.THReview:
		return model.DecisionReview
	default:
		return model.DecisionHold
	}
}
