package temporal

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"

	"gdoc/internal/domain"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	textIn     *ExtractTextInput
	textOut    *ExtractTextOutput
	extractIn  *ExtractFieldsInput
	extractOut *ExtractFieldsOutput
	evalIn     *EvaluateSemaphoreInput
	evalOut    *EvaluateSemaphoreOutput
	reviewIn   *ApplyReviewInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("DocumentReviewWorkflow blackbox happy path", func() {
	It("reads an uploaded document, evaluates it and applies the reviewer's approval", func() {
		f := newReviewFixture(&stubLLM{responses: []string{cedulaExtraction}})
		uploaded := []byte("REPUBLICA DE COLOMBIA\nCÉDULA DE CIUDADANÍA\nCC 1234567890\nMARIA GARCIA LOPEZ")

		By("uploading the applicant's document through the document service")
		doc, err := f.docs.Create(context.Background(), domain.UploadInput{
			Filename:           "cedula_maria.txt",
			Content:            uploaded,
			UserDocumentNumber: "1234567890",
			ExpiryDate:         "2030-02-01",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(doc.ReviewStatus).To(Equal(domain.ReviewInReview))

		env := newReviewEnv(f.acts)
		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			trace.mu.Lock()
			defer trace.mu.Unlock()
			switch info.ActivityType.Name {
			case "ExtractTextActivity":
				var in ExtractTextInput
				_ = args.Get(&in)
				trace.textIn = &in
			case "ExtractFieldsWithOpenAIActivity":
				var in ExtractFieldsInput
				_ = args.Get(&in)
				trace.extractIn = &in
			case "EvaluateSemaphoreActivity":
				var in EvaluateSemaphoreInput
				_ = args.Get(&in)
				trace.evalIn = &in
			case "ApplyReviewActivity":
				var in ApplyReviewInput
				_ = args.Get(&in)
				trace.reviewIn = &in
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)

			trace.mu.Lock()
			defer trace.mu.Unlock()
			switch info.ActivityType.Name {
			case "ExtractTextActivity":
				var out ExtractTextOutput
				_ = result.Get(&out)
				trace.textOut = &out
			case "ExtractFieldsWithOpenAIActivity":
				var out ExtractFieldsOutput
				_ = result.Get(&out)
				trace.extractOut = &out
			case "EvaluateSemaphoreActivity":
				var out EvaluateSemaphoreOutput
				_ = result.Get(&out)
				trace.evalOut = &out
			}
		})

		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(ReviewDecisionSignalName, ReviewDecisionSignal{
				Decision:    domain.ReviewDecisionApprove,
				Observation: "Documento verificado",
				Reviewer:    "comite",
			})
		}, 5*time.Second)

		By("triggering the workflow the upload event would start")
		env.ExecuteWorkflow(DocumentReviewWorkflow, workflowInputFor(doc))

		By("validating workflow completes successfully")
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.DocumentID).To(Equal(doc.ID))
		Expect(wfResult.Semaphore).To(Equal(domain.SemaphoreGreen))
		Expect(wfResult.Status).To(Equal(domain.ReviewApproved))

		By("validating each activity input and output")
		expectedOrder := []string{
			"ExtractTextActivity",
			"ExtractFieldsWithOpenAIActivity",
			"EvaluateSemaphoreActivity",
			"MarkInReviewActivity",
			"ApplyReviewActivity",
		}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))

		Expect(trace.textIn).ToNot(BeNil())
		Expect(trace.textIn.ObjectKey).To(Equal(doc.ObjectKey))
		Expect(trace.textOut).ToNot(BeNil())
		Expect(trace.textOut.DocumentName).To(Equal("cedula_maria"))
		Expect(trace.textOut.Text).To(Equal(string(uploaded)))

		Expect(trace.extractIn).ToNot(BeNil())
		Expect(trace.extractIn.DocumentText).To(Equal(string(uploaded)))
		Expect(trace.extractOut).ToNot(BeNil())
		Expect(trace.extractOut.Found).To(BeTrue())
		Expect(trace.extractOut.Path).To(Equal(extractionPathBase))

		Expect(trace.evalIn).ToNot(BeNil())
		Expect(trace.evalIn.Fields).ToNot(BeNil())
		Expect(trace.evalIn.Fields.Confidence).To(BeNumerically("~", 0.95, 0.0001))
		Expect(trace.evalOut).ToNot(BeNil())
		Expect(trace.evalOut.FailedRules).To(BeEmpty())

		Expect(trace.reviewIn).ToNot(BeNil())
		Expect(trace.reviewIn.Decision.Reviewer).To(Equal("comite"))

		By("validating persisted side effects")
		stored, err := f.docs.Get(context.Background(), doc.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.ReviewStatus).To(Equal(domain.ReviewApproved))
		Expect(stored.Observation).ToNot(BeNil())
		Expect(*stored.Observation).To(Equal("Documento verificado"))
		Expect(stored.IssueDate).ToNot(BeNil())
		Expect(stored.IssueDate.String()).To(Equal("2025-02-01"))
		Expect(stored.ExpiryDate.String()).To(Equal("2030-02-01"))

		history, err := f.docs.History(context.Background(), doc.ID)
		Expect(err).ToNot(HaveOccurred())
		states := make([]domain.AuditState, 0, len(history))
		for _, h := range history {
			states = append(states, h.State)
		}
		Expect(states).To(Equal([]domain.AuditState{
			domain.AuditUploaded,
			domain.AuditSemaphore,
			domain.AuditInReview,
			domain.AuditSemaphore,
			domain.AuditApproved,
		}))
	})
})
