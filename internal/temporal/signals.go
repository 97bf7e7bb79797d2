package temporal

import (
	"gdoc/internal/domain"
)

const ReviewDecisionSignalName = "reviewDecision"

type ReviewDecisionSignal struct {
	Decision    domain.ReviewDecisionType `json:"decision"`
	Observation string                    `json:"observacion,omitempty"`
	Reviewer    string                    `json:"revisor,omitempty"`
}

func SignalFromDecision(d domain.ReviewDecision) ReviewDecisionSignal {
	return ReviewDecisionSignal{Decision: d.Decision, Observation: d.Observation, Reviewer: d.Reviewer}
}

func (s ReviewDecisionSignal) ReviewDecision() domain.ReviewDecision {
	return domain.ReviewDecision{Decision: s.Decision, Observation: s.Observation, Reviewer: s.Reviewer}
}
