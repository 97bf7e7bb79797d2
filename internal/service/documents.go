package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"gdoc/internal/domain"
	"gdoc/internal/extraction"
)

// errUnchanged aborts an edit that has nothing to write.
var errUnchanged = errors.New("document unchanged")

// ReviewOutcome tells the caller whether a decision was applied now or handed to the
// review workflow.
type ReviewOutcome struct {
	Document *domain.Document
	Queued   bool
}

type DocumentService struct {
	repo        DocumentRepository
	blob        BlobStore
	fileURLBase string
	now         func() time.Time
}

// NewDocumentService builds the service. fileURLBase is the public API root, for
// example http://localhost:8080/api.
func NewDocumentService(repo DocumentRepository, blob BlobStore, fileURLBase string) *DocumentService {
	return &DocumentService{
		repo:        repo,
		blob:        blob,
		fileURLBase: strings.TrimRight(fileURLBase, "/"),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for upload timestamps and semaphore dates.
func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.now = now
	return s
}

func (s *DocumentService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	docs, err := s.repo.ListDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i] = s.decorate(docs[i])
	}
	return docs, nil
}

func (s *DocumentService) Get(ctx context.Context, id int64) (domain.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	return s.decorate(doc), nil
}

func (s *DocumentService) History(ctx context.Context, id int64) ([]domain.AuditEntry, error) {
	if _, err := s.repo.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListAudit(ctx, id)
}

// Create stores a new upload, reads its text, evaluates the semaphore and puts it in
// review. An upload for a requirement that already has a document replaces that
// document's file instead.
func (s *DocumentService) Create(ctx context.Context, in domain.UploadInput) (domain.Document, error) {
	parsed, err := domain.ValidateUpload(in)
	if err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		Name:               displayName(parsed),
		ReviewStatus:       domain.ReviewPending,
		ValidationType:     domain.ValidationAutomatic,
		PostulanteID:       parsed.PostulanteID,
		ConvocatoriaID:     parsed.ConvocatoriaID,
		RequiredDocumentID: parsed.RequiredDocumentID,
	}
	if doc.HoldsRequirement() {
		if existing, ok, err := s.requirementDocument(ctx, doc); err != nil {
			return domain.Document{}, err
		} else if ok {
			return s.Replace(ctx, existing.ID, in)
		}
	}

	s.applyUpload(&doc, parsed)
	if err := domain.ApplyUpload(&doc); err != nil {
		return domain.Document{}, err
	}

	if err := s.repo.CreateDocument(ctx, &doc); err != nil {
		if errors.Is(err, domain.ErrRequirementTaken) {
			if existing, ok, lookupErr := s.requirementDocument(ctx, doc); lookupErr == nil && ok {
				return s.Replace(ctx, existing.ID, in)
			}
		}
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}

	var objectKey string
	stored, err := s.repo.EditDocument(ctx, doc.ID, func(d *domain.Document) error {
		key, err := s.blob.PutDocument(ctx, d.ID, d.Filename, parsed.Content, parsed.ContentType)
		if err != nil {
			return fmt.Errorf("upload file: %w", err)
		}
		objectKey = key
		d.ObjectKey = key
		return nil
	})
	if err != nil {
		s.discard(ctx, doc.ID, objectKey)
		if objectKey != "" {
			err = fmt.Errorf("record upload: %w", err)
		}
		return domain.Document{}, err
	}

	s.auditUpload(ctx, stored)
	return s.decorate(stored), nil
}

// Replace uploads a new file over an existing document that is not yet approved.
// The document stays held while the file is stored, so a concurrent review waits
// and then decides on the new file.
func (s *DocumentService) Replace(ctx context.Context, id int64, in domain.UploadInput) (domain.Document, error) {
	parsed, err := domain.ValidateUpload(in)
	if err != nil {
		return domain.Document{}, err
	}

	var previousKey, objectKey string
	stored, err := s.repo.EditDocument(ctx, id, func(doc *domain.Document) error {
		if !domain.CanUpload(doc.ReviewStatus) {
			return domain.ErrDocumentLocked
		}
		previousKey = doc.ObjectKey
		s.applyUpload(doc, parsed)
		if err := domain.ApplyUpload(doc); err != nil {
			return err
		}
		key, err := s.blob.PutDocument(ctx, doc.ID, doc.Filename, parsed.Content, parsed.ContentType)
		if err != nil {
			return fmt.Errorf("upload file: %w", err)
		}
		objectKey = key
		doc.ObjectKey = key
		return nil
	})
	if err != nil {
		if objectKey != "" && objectKey != previousKey {
			s.deleteObject(ctx, objectKey)
		}
		return domain.Document{}, err
	}
	if previousKey != "" && previousKey != objectKey {
		s.deleteObject(ctx, previousKey)
	}

	s.auditUpload(ctx, stored)
	return s.decorate(stored), nil
}

// Update applies a partial change and recomputes the semaphore.
func (s *DocumentService) Update(ctx context.Context, id int64, patch domain.DocumentPatch) (domain.Document, error) {
	var result domain.SemaphoreResult
	stored, err := s.repo.EditDocument(ctx, id, func(doc *domain.Document) error {
		patch.Apply(doc)
		result = s.evaluate(doc)
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	s.audit(ctx, id, domain.AuditSemaphore, map[string]any{"estado": result.Semaphore, "motivos": result.FailedRules})
	return s.decorate(stored), nil
}

// RefreshSemaphore re-evaluates a stored document, optionally with model-read
// fields filling dates the uploader left empty.
func (s *DocumentService) RefreshSemaphore(ctx context.Context, id int64, fill domain.DocumentPatch, confidence float64) (domain.SemaphoreResult, error) {
	var result domain.SemaphoreResult
	_, err := s.repo.EditDocument(ctx, id, func(doc *domain.Document) error {
		if doc.IssueDate == nil && fill.IssueDate != nil {
			doc.IssueDate = fill.IssueDate
		}
		if doc.ExpiryDate == nil && fill.ExpiryDate != nil {
			doc.ExpiryDate = fill.ExpiryDate
		}
		if (doc.ExtractedText == nil || *doc.ExtractedText == "") && fill.ExtractedText != nil {
			doc.ExtractedText = fill.ExtractedText
		}
		if confidence > 0 {
			doc.OCRConfidence = confidence
		}
		result = s.evaluate(doc)
		return nil
	})
	if err != nil {
		return domain.SemaphoreResult{}, err
	}
	s.audit(ctx, id, domain.AuditSemaphore, map[string]any{"estado": result.Semaphore, "motivos": result.FailedRules})
	return result, nil
}

func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if doc.ObjectKey != "" {
		s.deleteObject(ctx, doc.ObjectKey)
	}
	s.audit(ctx, id, domain.AuditDeleted, map[string]any{"archivo": doc.ObjectKey})
	return nil
}

// Review applies an approve or reject decision immediately.
func (s *DocumentService) Review(ctx context.Context, id int64, decision domain.ReviewDecision) (domain.Document, error) {
	stored, err := s.repo.EditDocument(ctx, id, func(doc *domain.Document) error {
		return domain.ApplyReview(doc, decision)
	})
	if err != nil {
		return domain.Document{}, err
	}

	state := domain.AuditApproved
	if stored.ReviewStatus == domain.ReviewRejected {
		state = domain.AuditRejected
	}
	s.audit(ctx, id, state, map[string]any{"observacion": decision.Observation, "revisor": decision.Reviewer})
	return s.decorate(stored), nil
}

// DispatchReview satisfies the API's dispatcher contract by applying the decision directly.
func (s *DocumentService) DispatchReview(ctx context.Context, id int64, decision domain.ReviewDecision) (ReviewOutcome, error) {
	doc, err := s.Review(ctx, id, decision)
	if err != nil {
		return ReviewOutcome{}, err
	}
	return ReviewOutcome{Document: &doc}, nil
}

// MarkInReview moves a pending document to en_revision. It reports false when the
// document can no longer be reviewed.
func (s *DocumentService) MarkInReview(ctx context.Context, id int64) (bool, error) {
	var reviewable, moved bool
	_, err := s.repo.EditDocument(ctx, id, func(doc *domain.Document) error {
		reviewable = domain.CanReview(doc.ReviewStatus)
		if !reviewable || doc.ReviewStatus == domain.ReviewInReview {
			return errUnchanged
		}
		doc.ReviewStatus = domain.ReviewInReview
		moved = true
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return false, err
	}
	if moved {
		s.audit(ctx, id, domain.AuditInReview, nil)
	}
	return reviewable, nil
}

// File returns the stored bytes of a document.
func (s *DocumentService) File(ctx context.Context, id int64) (domain.Document, []byte, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return domain.Document{}, nil, err
	}
	if doc.ObjectKey == "" {
		return domain.Document{}, nil, domain.ErrNotFound
	}
	content, err := s.blob.GetDocument(ctx, doc.ObjectKey)
	if err != nil {
		return domain.Document{}, nil, err
	}
	return doc, content, nil
}

func (s *DocumentService) applyUpload(doc *domain.Document, parsed domain.ParsedUpload) {
	doc.Filename = path.Base(strings.ReplaceAll(parsed.Filename, "\\", "/"))
	doc.ContentType = parsed.ContentType
	doc.SizeBytes = int64(len(parsed.Content))
	doc.UploadedAt = s.now()
	doc.IssueDate = parsed.Issue
	doc.ExpiryDate = parsed.Expiry
	doc.UserDocumentNumber = optionalString(parsed.UserDocumentNumber)
	doc.ExtractedText = nil
	doc.OCRConfidence = 0
	doc.ValidationType = domain.ValidationAutomatic
	if text := extraction.Text(doc.Filename, parsed.Content); text != "" {
		doc.ExtractedText = &text
		doc.OCRConfidence = 100
	}
	s.evaluate(doc)
}

func (s *DocumentService) evaluate(doc *domain.Document) domain.SemaphoreResult {
	result := domain.EvaluateDocument(*doc, s.now())
	doc.Semaphore = result.Semaphore
	doc.SemaphoreReasons = result.FailedRules
	return result
}

func (s *DocumentService) auditUpload(ctx context.Context, doc domain.Document) {
	s.audit(ctx, doc.ID, domain.AuditUploaded, map[string]any{"archivo": doc.ObjectKey, "nombre_archivo": doc.Filename})
	s.audit(ctx, doc.ID, domain.AuditSemaphore, map[string]any{"estado": doc.Semaphore, "motivos": doc.SemaphoreReasons})
	s.audit(ctx, doc.ID, domain.AuditInReview, nil)
}

// requirementDocument finds the document already holding doc's requirement slot.
func (s *DocumentService) requirementDocument(ctx context.Context, doc domain.Document) (domain.Document, bool, error) {
	existing, err := s.repo.ListDocuments(ctx, domain.DocumentFilter{
		PostulanteID:       doc.PostulanteID,
		ConvocatoriaID:     doc.ConvocatoriaID,
		RequiredDocumentID: doc.RequiredDocumentID,
	})
	if err != nil {
		return domain.Document{}, false, err
	}
	if len(existing) == 0 {
		return domain.Document{}, false, nil
	}
	return existing[0], true, nil
}

// discard removes a half-created document and its file.
func (s *DocumentService) discard(ctx context.Context, id int64, objectKey string) {
	if objectKey != "" {
		s.deleteObject(ctx, objectKey)
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		log.Printf("rollback document id=%d failed: %v", id, err)
	}
}

func (s *DocumentService) deleteObject(ctx context.Context, objectKey string) {
	if err := s.blob.DeleteDocument(ctx, objectKey); err != nil {
		log.Printf("delete object key=%s failed: %v", objectKey, err)
	}
}

// audit failures never fail the request.
func (s *DocumentService) audit(ctx context.Context, id int64, state domain.AuditState, detail map[string]any) {
	var payload any
	if detail != nil {
		payload = detail
	}
	if err := s.repo.InsertAudit(ctx, id, state, payload); err != nil {
		log.Printf("audit document id=%d state=%s failed: %v", id, state, err)
	}
}

func (s *DocumentService) decorate(doc domain.Document) domain.Document {
	if doc.ObjectKey != "" && s.fileURLBase != "" {
		doc.FileURL = fmt.Sprintf("%s/documentos/%d/archivo/", s.fileURLBase, doc.ID)
	}
	if doc.SemaphoreReasons == nil {
		doc.SemaphoreReasons = []string{}
	}
	return doc
}

func displayName(in domain.ParsedUpload) string {
	if name := strings.TrimSpace(in.Name); name != "" {
		return name
	}
	base := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
