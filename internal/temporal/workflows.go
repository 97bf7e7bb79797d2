package temporal

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"gdoc/internal/domain"
)

const DocumentReviewWorkflowName = "DocumentReviewWorkflow"

type WorkflowInput struct {
	DocumentID int64
	Filename   string
	ObjectKey  string
}

type WorkflowResult struct {
	DocumentID int64
	Semaphore  domain.Semaphore
	Status     domain.ReviewStatus
}

// WorkflowID is the execution id used for a document's review, so the API can
// signal the run an upload event started.
func WorkflowID(prefix string, documentID int64) string {
	return fmt.Sprintf("%s-%d", prefix, documentID)
}

// DocumentReviewWorkflow reads the uploaded file, evaluates the semaphore and then
// waits for a reviewer to approve or reject the document.
func DocumentReviewWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	result := WorkflowResult{DocumentID: input.DocumentID}

	var text ExtractTextOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyExtractText), (*Activities).ExtractTextActivity, ExtractTextInput{
		DocumentID: input.DocumentID,
		Filename:   input.Filename,
		ObjectKey:  input.ObjectKey,
	}).Get(ctx, &text); err != nil {
		return WorkflowResult{}, err
	}

	var extracted ExtractFieldsOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyExtractFieldsWithOpenAI), (*Activities).ExtractFieldsWithOpenAIActivity, ExtractFieldsInput{
		DocumentID:   input.DocumentID,
		DocumentName: text.DocumentName,
		DocumentText: text.Text,
	}).Get(ctx, &extracted); err != nil {
		return WorkflowResult{}, err
	}

	evalInput := EvaluateSemaphoreInput{DocumentID: input.DocumentID, Text: text.Text}
	if extracted.Found {
		evalInput.Fields = &extracted.Fields
	}
	var semaphore EvaluateSemaphoreOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyEvaluateSemaphore), (*Activities).EvaluateSemaphoreActivity, evalInput).Get(ctx, &semaphore); err != nil {
		return WorkflowResult{}, err
	}
	result.Semaphore = semaphore.Semaphore

	var marked MarkInReviewOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyMarkInReview), (*Activities).MarkInReviewActivity, MarkInReviewInput{
		DocumentID: input.DocumentID,
	}).Get(ctx, &marked); err != nil {
		return WorkflowResult{}, err
	}
	if !marked.Reviewable {
		logger.Info("document already decided, not waiting for review", "document_id", input.DocumentID)
		return result, nil
	}
	result.Status = domain.ReviewInReview

	signalChan := workflow.GetSignalChannel(ctx, ReviewDecisionSignalName)
	for {
		var decision ReviewDecisionSignal
		signalChan.Receive(ctx, &decision)

		switch decision.Decision {
		case domain.ReviewDecisionApprove, domain.ReviewDecisionReject:
		default:
			logger.Warn("ignoring unknown review decision", "decision", decision.Decision)
			continue
		}

		var applied ApplyReviewOutput
		if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyApplyReview), (*Activities).ApplyReviewActivity, ApplyReviewInput{
			DocumentID: input.DocumentID,
			Decision:   decision,
		}).Get(ctx, &applied); err != nil {
			return WorkflowResult{}, err
		}
		switch {
		case applied.Applied:
			result.Status = applied.Status
			return result, nil
		case applied.Closed:
			logger.Info("document left review outside the workflow", "document_id", input.DocumentID, "reason", applied.Reason)
			result.Status = ""
			return result, nil
		default:
			logger.Warn("review decision rejected, still waiting", "document_id", input.DocumentID, "reason", applied.Reason)
		}
	}
}
