package temporal

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.temporal.io/api/serviceerror"

	"gdoc/internal/domain"
	"gdoc/internal/service"
)

// Signaler is the part of client.Client the dispatcher needs.
type Signaler interface {
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

type DirectReviewer interface {
	DispatchReview(ctx context.Context, id int64, decision domain.ReviewDecision) (service.ReviewOutcome, error)
}

// ReviewDispatcher hands reviewer decisions to the document's running review
// workflow. When no workflow is running for the document, the decision is applied
// directly through Fallback.
type ReviewDispatcher struct {
	Client           Signaler
	WorkflowIDPrefix string
	Fallback         DirectReviewer
}

func NewReviewDispatcher(c Signaler, workflowIDPrefix string, fallback DirectReviewer) *ReviewDispatcher {
	return &ReviewDispatcher{Client: c, WorkflowIDPrefix: workflowIDPrefix, Fallback: fallback}
}

func (d *ReviewDispatcher) DispatchReview(ctx context.Context, id int64, decision domain.ReviewDecision) (service.ReviewOutcome, error) {
	workflowID := WorkflowID(d.WorkflowIDPrefix, id)
	err := d.Client.SignalWorkflow(ctx, workflowID, "", ReviewDecisionSignalName, SignalFromDecision(decision))
	if err == nil {
		return service.ReviewOutcome{Queued: true}, nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) && d.Fallback != nil {
		log.Printf("no review workflow workflow_id=%s, applying decision directly", workflowID)
		return d.Fallback.DispatchReview(ctx, id, decision)
	}
	return service.ReviewOutcome{}, fmt.Errorf("signal review workflow %s: %w", workflowID, err)
}
