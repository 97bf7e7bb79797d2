//go:build system

package system_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/client"

	gdoc "gdoc/internal/client"
	"gdoc/internal/domain"
	appTemporal "gdoc/internal/temporal"
)

var _ = Describe("System blackbox happy path", Ordered, func() {
	var repoRoot string
	var cfg systemTestConfig

	BeforeAll(func() {
		if os.Getenv("RUN_BLACKBOX_SYSTEM_TEST") != "1" {
			Skip("set RUN_BLACKBOX_SYSTEM_TEST=1 to run real blackbox system test")
		}

		cfg = loadSystemTestConfig()

		var err error
		repoRoot, err = findRepoRoot()
		Expect(err).ToNot(HaveOccurred())

		By("verifying required docker compose services (including worker) are already running")
		Expect(requireComposeServicesRunning(repoRoot, cfg.RequiredComposeServices)).To(Succeed())

		By("failing fast if infrastructure is unreachable")
		Expect(waitForPostgres(cfg.PostgresDSN, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForTemporal(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.MinioReadyURL, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIHealthPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(strings.TrimRight(cfg.APIBaseURL, "/")+cfg.APIReadyPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForWorkerPoller(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue, cfg.WorkerPollerTimeout)).To(Succeed())
		Expect(ensureSchema(cfg.PostgresDSN)).To(Succeed())
	})

	It("uploads a real file, reviews it through the running workflow and records the audit trail", func() {
		ctx := context.Background()
		api := gdoc.New(strings.TrimRight(cfg.APIBaseURL, "/") + cfg.APIPrefix)

		By("uploading a document exactly like an applicant")
		filePath := filepath.Join(repoRoot, cfg.UploadFixturePath)
		uploadedFile, err := os.ReadFile(filePath)
		Expect(err).ToNot(HaveOccurred())

		today := time.Now().Format(domain.DateLayout)
		doc, err := api.CreateDocumento(ctx, gdoc.Upload{
			Filename:           filepath.Base(filePath),
			Content:            uploadedFile,
			IssueDate:          today,
			ExpiryDate:         time.Now().AddDate(5, 0, 0).Format(domain.DateLayout),
			UserDocumentNumber: "1234567890",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(doc.ID).To(BeNumerically(">", 0))
		Expect(doc.ReviewStatus).To(Equal(domain.ReviewInReview))
		Expect(doc.Semaphore).To(Equal(domain.SemaphoreGreen))

		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		Expect(err).ToNot(HaveOccurred())
		defer temporalClient.Close()

		workflowID := appTemporal.WorkflowID(cfg.WorkflowIDPrefix, doc.ID)

		By("waiting for the workflow started by the upload event to reach the review wait")
		Expect(waitForActivityCompleted(temporalClient, workflowID, "MarkInReviewActivity", cfg.WorkflowCompletionTimeout, cfg.WorkflowPollInterval)).To(Succeed())

		By("approving the document as a reviewer")
		review, err := api.ReviewDocumento(ctx, doc.ID, domain.ReviewDecision{
			Decision:    domain.ReviewDecisionApprove,
			Observation: "Documento verificado",
			Reviewer:    "system-test",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(review.Queued).To(BeTrue())

		By("polling the document until the workflow applies the decision")
		Eventually(func() domain.ReviewStatus {
			current, getErr := api.GetDocumento(ctx, doc.ID)
			Expect(getErr).ToNot(HaveOccurred())
			Expect(current.ReviewStatus).ToNot(Equal(domain.ReviewRejected))
			return current.ReviewStatus
		}, cfg.WorkflowCompletionTimeout, cfg.WorkflowPollInterval).Should(Equal(domain.ReviewApproved))

		var result appTemporal.WorkflowResult
		Expect(temporalClient.GetWorkflow(ctx, workflowID, "").Get(ctx, &result)).To(Succeed())
		Expect(result.DocumentID).To(Equal(doc.ID))
		Expect(result.Status).To(Equal(domain.ReviewApproved))

		By("validating activity inputs and outputs from Temporal workflow history")
		trace, err := collectActivityTrace(ctx, temporalClient, workflowID)
		Expect(err).ToNot(HaveOccurred())
		Expect(trace.ScheduledOrder).To(Equal(cfg.ExpectedActivityOrder))
		Expect(trace.CompletedOrder).To(Equal(cfg.ExpectedActivityOrder))

		textIn := trace.Inputs["ExtractTextActivity"].(appTemporal.ExtractTextInput)
		Expect(textIn.DocumentID).To(Equal(doc.ID))
		Expect(textIn.ObjectKey).To(Equal(doc.ObjectKey))

		textOut := trace.Outputs["ExtractTextActivity"].(appTemporal.ExtractTextOutput)
		Expect(textOut.Text).To(Equal(strings.TrimSpace(string(uploadedFile))))

		evalOut := trace.Outputs["EvaluateSemaphoreActivity"].(appTemporal.EvaluateSemaphoreOutput)
		Expect(evalOut.Semaphore).To(Equal(domain.SemaphoreGreen))
		Expect(evalOut.FailedRules).To(BeEmpty())

		reviewIn := trace.Inputs["ApplyReviewActivity"].(appTemporal.ApplyReviewInput)
		Expect(reviewIn.Decision.Reviewer).To(Equal("system-test"))

		signals, err := collectWorkflowSignalNames(ctx, temporalClient, workflowID)
		Expect(err).ToNot(HaveOccurred())
		Expect(signals).To(ContainElement(appTemporal.ReviewDecisionSignalName))

		By("verifying audit records in Postgres")
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()
		Expect(db.Ping()).To(Succeed())

		auditStates, err := fetchStringRows(db, `SELECT state FROM audit_log WHERE documento_id = $1 ORDER BY id`, doc.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(auditStates).To(ContainElement(string(domain.AuditUploaded)))
		Expect(auditStates).To(ContainElement(string(domain.AuditSemaphore)))
		Expect(auditStates).To(ContainElement(string(domain.AuditInReview)))
		Expect(auditStates[len(auditStates)-1]).To(Equal(string(domain.AuditApproved)))
	})
})
