package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"

	"gdoc/internal/domain"
)

type recordedSignal struct {
	workflowID string
	name       string
	arg        interface{}
}

type fakeSignaler struct {
	err     error
	signals []recordedSignal
}

func (f *fakeSignaler) SignalWorkflow(_ context.Context, workflowID string, _ string, signalName string, arg interface{}) error {
	f.signals = append(f.signals, recordedSignal{workflowID: workflowID, name: signalName, arg: arg})
	return f.err
}

func TestDispatchReviewSignalsRunningWorkflow(t *testing.T) {
	signaler := &fakeSignaler{}
	d := NewReviewDispatcher(signaler, "gdoc-review", nil)

	out, err := d.DispatchReview(context.Background(), 42, domain.ReviewDecision{
		Decision:    domain.ReviewDecisionReject,
		Observation: "Falta la firma",
		Reviewer:    "comite",
	})
	require.NoError(t, err)
	require.True(t, out.Queued)
	require.Nil(t, out.Document)
	require.Len(t, signaler.signals, 1)
	require.Equal(t, "gdoc-review-42", signaler.signals[0].workflowID)
	require.Equal(t, ReviewDecisionSignalName, signaler.signals[0].name)
	require.Equal(t, ReviewDecisionSignal{
		Decision:    domain.ReviewDecisionReject,
		Observation: "Falta la firma",
		Reviewer:    "comite",
	}, signaler.signals[0].arg)
}

func TestDispatchReviewFallsBackWithoutWorkflow(t *testing.T) {
	f := newReviewFixture(&stubLLM{})
	doc := f.upload(t, domain.UploadInput{Filename: "titulo.pdf", Content: []byte("%PDF-1.4")})

	d := NewReviewDispatcher(&fakeSignaler{err: serviceerror.NewNotFound("workflow not found")}, "gdoc-review", f.docs)
	out, err := d.DispatchReview(context.Background(), doc.ID, domain.ReviewDecision{Decision: domain.ReviewDecisionApprove})
	require.NoError(t, err)
	require.False(t, out.Queued)
	require.NotNil(t, out.Document)
	require.Equal(t, domain.ReviewApproved, out.Document.ReviewStatus)
}

func TestDispatchReviewSurfacesOtherErrors(t *testing.T) {
	f := newReviewFixture(&stubLLM{})
	d := NewReviewDispatcher(&fakeSignaler{err: errors.New("connection refused")}, "gdoc-review", f.docs)

	_, err := d.DispatchReview(context.Background(), 1, domain.ReviewDecision{Decision: domain.ReviewDecisionApprove})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gdoc-review-1")
}
