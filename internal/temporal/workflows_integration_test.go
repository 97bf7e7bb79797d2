package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"gdoc/internal/domain"
)

const cedulaExtraction = `{"numero_documento":"1234567890","fecha_emision":"2025-02-01","fecha_vencimiento":"2030-02-01","confianza":0.95}`

func newReviewEnv(acts *Activities) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentReviewWorkflow)
	env.RegisterActivity(acts.ExtractTextActivity)
	env.RegisterActivity(acts.ExtractFieldsWithOpenAIActivity)
	env.RegisterActivity(acts.EvaluateSemaphoreActivity)
	env.RegisterActivity(acts.MarkInReviewActivity)
	env.RegisterActivity(acts.ApplyReviewActivity)
	return env
}

func workflowInputFor(doc domain.Document) WorkflowInput {
	return WorkflowInput{DocumentID: doc.ID, Filename: doc.Filename, ObjectKey: doc.ObjectKey}
}

func TestDocumentReviewWorkflow_Approve(t *testing.T) {
	f := newReviewFixture(&stubLLM{responses: []string{cedulaExtraction}})
	doc := f.upload(t, domain.UploadInput{
		Filename:           "cedula.txt",
		Content:            []byte("REPUBLICA DE COLOMBIA CC 1234567890 MARIA GARCIA"),
		UserDocumentNumber: "1234567890",
	})
	env := newReviewEnv(f.acts)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{
			Decision: domain.ReviewDecisionApprove,
			Reviewer: "comite",
		})
	}, time.Second)

	env.ExecuteWorkflow(DocumentReviewWorkflow, workflowInputFor(doc))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result WorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, doc.ID, result.DocumentID)
	require.Equal(t, domain.SemaphoreGreen, result.Semaphore)
	require.Equal(t, domain.ReviewApproved, result.Status)

	stored, err := f.docs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReviewApproved, stored.ReviewStatus)
	require.Equal(t, domain.ValidationManual, stored.ValidationType)
	require.NotNil(t, stored.IssueDate)
	require.Equal(t, "2025-02-01", stored.IssueDate.String())
	require.InDelta(t, 95, stored.OCRConfidence, 0.001)
}

func TestDocumentReviewWorkflow_RejectNeedsObservation(t *testing.T) {
	f := newReviewFixture(&stubLLM{})
	doc := f.upload(t, domain.UploadInput{Filename: "titulo.pdf", Content: []byte("%PDF-1.4 scanned")})
	env := newReviewEnv(f.acts)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{Decision: domain.ReviewDecisionReject})
	}, time.Second)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{Decision: "maybe"})
	}, 2*time.Second)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{
			Decision:    domain.ReviewDecisionReject,
			Observation: "El título no es legible",
		})
	}, 3*time.Second)

	env.ExecuteWorkflow(DocumentReviewWorkflow, workflowInputFor(doc))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result WorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.SemaphoreYellow, result.Semaphore)
	require.Equal(t, domain.ReviewRejected, result.Status)

	stored, err := f.docs.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReviewRejected, stored.ReviewStatus)
	require.NotNil(t, stored.Observation)
	require.Equal(t, "El título no es legible", *stored.Observation)
	require.Zero(t, f.llm.callCount())
}

func TestDocumentReviewWorkflow_StopsWhenAlreadyDecided(t *testing.T) {
	f := newReviewFixture(&stubLLM{})
	doc := f.upload(t, domain.UploadInput{Filename: "titulo.pdf", Content: []byte("%PDF-1.4 scanned")})
	_, err := f.docs.Review(context.Background(), doc.ID, domain.ReviewDecision{Decision: domain.ReviewDecisionApprove})
	require.NoError(t, err)

	env := newReviewEnv(f.acts)
	env.ExecuteWorkflow(DocumentReviewWorkflow, workflowInputFor(doc))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result WorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Empty(t, result.Status)
}

func TestDocumentReviewWorkflow_DocumentDeletedDuringReview(t *testing.T) {
	f := newReviewFixture(&stubLLM{})
	doc := f.upload(t, domain.UploadInput{Filename: "titulo.pdf", Content: []byte("%PDF-1.4 scanned")})
	env := newReviewEnv(f.acts)

	env.RegisterDelayedCallback(func() {
		require.NoError(t, f.docs.Delete(context.Background(), doc.ID))
		env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{Decision: domain.ReviewDecisionApprove})
	}, time.Second)

	env.ExecuteWorkflow(DocumentReviewWorkflow, workflowInputFor(doc))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}
