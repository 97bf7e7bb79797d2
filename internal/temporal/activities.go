package temporal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gdoc/internal/domain"
	"gdoc/internal/extraction"
	"gdoc/internal/openai"
)

const (
	extractionPathBase   = "base"
	extractionPathRepair = "repair"
)

// ReviewDocuments is the slice of the document service the review workflow drives.
type ReviewDocuments interface {
	Get(ctx context.Context, id int64) (domain.Document, error)
	RefreshSemaphore(ctx context.Context, id int64, fill domain.DocumentPatch, confidence float64) (domain.SemaphoreResult, error)
	MarkInReview(ctx context.Context, id int64) (bool, error)
	Review(ctx context.Context, id int64, decision domain.ReviewDecision) (domain.Document, error)
}

type BlobReader interface {
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
}

type Activities struct {
	Docs           ReviewDocuments
	Blob           BlobReader
	LLM            openai.Client
	OpenAIModel    string
	OpenAITimeout  time.Duration
	OpenAIMaxRetry int
}

type ExtractTextInput struct {
	DocumentID int64
	Filename   string
	ObjectKey  string
}

type ExtractTextOutput struct {
	DocumentName string
	Text         string
}

type ExtractFieldsInput struct {
	DocumentID   int64
	DocumentName string
	DocumentText string
}

type ExtractFieldsOutput struct {
	Found  bool
	Path   string
	Fields openai.DocumentFields
}

type EvaluateSemaphoreInput struct {
	DocumentID int64
	Text       string
	Fields     *openai.DocumentFields
}

type EvaluateSemaphoreOutput struct {
	Semaphore   domain.Semaphore
	FailedRules []string
}

type MarkInReviewInput struct {
	DocumentID int64
}

type MarkInReviewOutput struct {
	Reviewable bool
}

type ApplyReviewInput struct {
	DocumentID int64
	Decision   ReviewDecisionSignal
}

// ApplyReviewOutput reports what happened to one decision. Closed means the
// document can no longer be reviewed, so the workflow should stop waiting.
type ApplyReviewOutput struct {
	Applied bool
	Closed  bool
	Status  domain.ReviewStatus
	Reason  string
}

func (a *Activities) ExtractTextActivity(ctx context.Context, input ExtractTextInput) (ExtractTextOutput, error) {
	doc, err := a.Docs.Get(ctx, input.DocumentID)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	out := ExtractTextOutput{DocumentName: doc.Name}
	if doc.ExtractedText != nil && *doc.ExtractedText != "" {
		out.Text = *doc.ExtractedText
		return out, nil
	}

	objectKey := input.ObjectKey
	if objectKey == "" {
		objectKey = doc.ObjectKey
	}
	if objectKey == "" {
		return out, nil
	}
	content, err := a.Blob.GetDocument(ctx, objectKey)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("read object %s: %w", objectKey, err)
	}
	filename := input.Filename
	if filename == "" {
		filename = doc.Filename
	}
	out.Text = extraction.Text(filename, content)
	return out, nil
}

// ExtractFieldsWithOpenAIActivity asks the model for the document number and dates.
// Extraction is best effort: a missing key or unusable output yields Found=false.
func (a *Activities) ExtractFieldsWithOpenAIActivity(ctx context.Context, input ExtractFieldsInput) (ExtractFieldsOutput, error) {
	if a.LLM == nil || input.DocumentText == "" {
		return ExtractFieldsOutput{}, nil
	}

	prompt := openai.BuildExtractUserPrompt(input.DocumentName, input.DocumentText)
	base, err := a.callOpenAIWithRetry(ctx, openai.EXTRACT_SYSTEM, prompt)
	if err != nil {
		if !errors.Is(err, openai.ErrNotConfigured) {
			log.Printf("extract fields document_id=%d: %v", input.DocumentID, err)
		}
		return ExtractFieldsOutput{}, nil
	}

	fields, parseErr := openai.ParseDocumentFields(base)
	if parseErr == nil {
		return ExtractFieldsOutput{Found: true, Path: extractionPathBase, Fields: fields}, nil
	}

	repaired, err := a.callOpenAIWithRetry(ctx, openai.REPAIR_SYSTEM, openai.BuildRepairUserPrompt(base, parseErr))
	if err != nil {
		log.Printf("repair fields document_id=%d: %v", input.DocumentID, err)
		return ExtractFieldsOutput{}, nil
	}
	fields, parseErr = openai.ParseDocumentFields(repaired)
	if parseErr != nil {
		log.Printf("discarding model output document_id=%d: %v", input.DocumentID, parseErr)
		return ExtractFieldsOutput{}, nil
	}
	return ExtractFieldsOutput{Found: true, Path: extractionPathRepair, Fields: fields}, nil
}

func (a *Activities) EvaluateSemaphoreActivity(ctx context.Context, input EvaluateSemaphoreInput) (EvaluateSemaphoreOutput, error) {
	var fill domain.DocumentPatch
	if input.Text != "" {
		text := input.Text
		fill.ExtractedText = &text
	}
	var confidence float64
	if input.Fields != nil {
		fill.IssueDate, fill.ExpiryDate = input.Fields.Dates()
		confidence = input.Fields.ConfidencePercent()
	}

	result, err := a.Docs.RefreshSemaphore(ctx, input.DocumentID, fill, confidence)
	if err != nil {
		return EvaluateSemaphoreOutput{}, err
	}
	return EvaluateSemaphoreOutput{Semaphore: result.Semaphore, FailedRules: result.FailedRules}, nil
}

func (a *Activities) MarkInReviewActivity(ctx context.Context, input MarkInReviewInput) (MarkInReviewOutput, error) {
	ok, err := a.Docs.MarkInReview(ctx, input.DocumentID)
	if err != nil {
		return MarkInReviewOutput{}, err
	}
	return MarkInReviewOutput{Reviewable: ok}, nil
}

func (a *Activities) ApplyReviewActivity(ctx context.Context, input ApplyReviewInput) (ApplyReviewOutput, error) {
	doc, err := a.Docs.Review(ctx, input.DocumentID, input.Decision.ReviewDecision())
	switch {
	case err == nil:
		return ApplyReviewOutput{Applied: true, Status: doc.ReviewStatus}, nil
	case domain.IsValidation(err):
		return ApplyReviewOutput{Reason: err.Error()}, nil
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		return ApplyReviewOutput{Closed: true, Reason: err.Error()}, nil
	default:
		return ApplyReviewOutput{}, err
	}
}

func (a *Activities) callOpenAIWithRetry(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	maxRetry := a.OpenAIMaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		out, err := a.LLM.CompleteJSON(ctx, openai.CompletionRequest{
			Model:        a.OpenAIModel,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			Timeout:      a.OpenAITimeout,
		})
		if err == nil {
			return out, nil
		}
		if openai.IsPermanent(err) {
			return "", err
		}
		lastErr = err
		if attempt == maxRetry {
			break
		}
		delay := time.Duration(200*(1<<(attempt-1))) * time.Millisecond
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("openai retry exhausted: %w", lastErr)
}
