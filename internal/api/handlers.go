package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"gdoc/internal/config"
	"gdoc/internal/domain"
	"gdoc/internal/service"
)

const (
	healthMessage = "API G-Doc operativa"
	apiVersion    = "1.0"
)

// ReviewDispatcher applies or queues a reviewer decision.
type ReviewDispatcher interface {
	DispatchReview(ctx context.Context, id int64, decision domain.ReviewDecision) (service.ReviewOutcome, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Documents     *service.DocumentService
	Convocatorias *service.ConvocatoriaService
	Postulantes   *service.PostulanteService
	Dashboard     *service.DashboardService
	Portal        *service.PortalService
	Reviews       ReviewDispatcher
	Store         Pinger
}

type Handler struct {
	cfg config.Config
	svc Services
}

type page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

type documentPatchRequest struct {
	Name               *string `json:"nombre"`
	IssueDate          *string `json:"fecha_emision"`
	ExpiryDate         *string `json:"fecha_vencimiento"`
	ExtractedText      *string `json:"texto_extraido"`
	UserDocumentNumber *string `json:"numero_documento_usuario"`
}

type reviewRequest struct {
	Decision    string `json:"decision"`
	Observation string `json:"observacion,omitempty"`
	Reviewer    string `json:"revisor,omitempty"`
}

func NewHandler(cfg config.Config, svc Services) *Handler {
	if svc.Reviews == nil {
		svc.Reviews = svc.Documents
	}
	return &Handler{cfg: cfg, svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": healthMessage,
		"version": apiVersion,
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	docs, err := h.svc.Documents.List(ctx, domain.DocumentFilter{
		Search:             q.Get("search"),
		PostulanteID:       q.Get("postulante_id"),
		ConvocatoriaID:     q.Get("convocatoria_id"),
		RequiredDocumentID: q.Get("requisito_id"),
	})
	if err != nil {
		writeError(w, err, "failed to list documents")
		return
	}
	if q.Get("paginate") == "false" {
		writeJSON(w, http.StatusOK, docs)
		return
	}
	h.writePage(w, r, docs)
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	in, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Documents.Create(ctx, in)
	if err != nil {
		writeError(w, err, "failed to create document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Documents.Get(ctx, id)
	if err != nil {
		writeError(w, err, "failed to fetch document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument takes a JSON partial update, or a multipart body carrying a
// replacement file.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if isMultipart(r) {
		in, ok := h.readUpload(w, r)
		if !ok {
			return
		}
		doc, err := h.svc.Documents.Replace(ctx, id, in)
		if err != nil {
			writeError(w, err, "failed to replace document")
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	var req documentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, err, "")
		return
	}
	doc, err := h.svc.Documents.Update(ctx, id, patch)
	if err != nil {
		writeError(w, err, "failed to update document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Documents.Delete(ctx, id); err != nil {
		writeError(w, err, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DocumentFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, content, err := h.svc.Documents.File(ctx, id)
	if err != nil {
		writeError(w, err, "failed to read file")
		return
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) DocumentHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.Documents.History(ctx, id)
	if err != nil {
		writeError(w, err, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ReviewDocument validates the decision against the current document and hands it
// to the dispatcher. 200 means it was applied, 202 that the review workflow has it.
func (h *Handler) ReviewDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	decisionType, ok := domain.ParseReviewDecision(req.Decision)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid decision"})
		return
	}
	decision := domain.ReviewDecision{
		Decision:    decisionType,
		Observation: strings.TrimSpace(req.Observation),
		Reviewer:    strings.TrimSpace(req.Reviewer),
	}

	doc, err := h.svc.Documents.Get(ctx, id)
	if err != nil {
		writeError(w, err, "failed to fetch document")
		return
	}
	if err := domain.CheckReview(doc, decision); err != nil {
		writeError(w, err, "")
		return
	}

	outcome, err := h.svc.Reviews.DispatchReview(ctx, id, decision)
	if err != nil {
		writeError(w, err, "failed to submit review")
		return
	}
	if outcome.Queued {
		writeJSON(w, http.StatusAccepted, doc)
		return
	}
	if outcome.Document != nil {
		doc = *outcome.Document
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.svc.Store != nil {
		if err := h.svc.Store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// readUpload parses a multipart upload. It writes the error response itself and
// reports false when the request cannot be used.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (domain.UploadInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.AllowedUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.cfg.AllowedUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "file exceeds size limit"})
			return domain.UploadInput{}, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return domain.UploadInput{}, false
	}

	in := domain.UploadInput{
		IssueDate:          r.FormValue("fecha_emision"),
		ExpiryDate:         r.FormValue("fecha_vencimiento"),
		UserDocumentNumber: r.FormValue("numero_documento_usuario"),
		Name:               r.FormValue("nombre"),
		PostulanteID:       r.FormValue("postulante_id"),
		ConvocatoriaID:     r.FormValue("convocatoria_id"),
		RequiredDocumentID: r.FormValue("requisito_id"),
	}

	file, header, err := r.FormFile("archivo")
	if err != nil {
		// ValidateUpload reports the missing file
		return in, true
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.cfg.AllowedUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
		return domain.UploadInput{}, false
	}
	if int64(len(body)) > h.cfg.AllowedUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "file exceeds size limit"})
		return domain.UploadInput{}, false
	}
	in.Filename = header.Filename
	in.Content = body
	in.ContentType = header.Header.Get("Content-Type")
	return in, true
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, docs []domain.Document) {
	pageNum := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "invalid page"})
			return
		}
		pageNum = n
	}

	size := h.cfg.PageSize
	start := (pageNum - 1) * size
	if start > 0 && start >= len(docs) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "invalid page"})
		return
	}
	end := start + size
	if end > len(docs) {
		end = len(docs)
	}

	out := page{Count: len(docs), Results: docs[start:end]}
	if end < len(docs) {
		out.Next = h.pageLink(r, pageNum+1)
	}
	if pageNum > 1 {
		out.Previous = h.pageLink(r, pageNum-1)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) pageLink(r *http.Request, n int) *string {
	q := r.URL.Query()
	if n == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	link := h.cfg.PublicBaseURL + r.URL.Path
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return &link
}

func (p documentPatchRequest) toPatch() (domain.DocumentPatch, error) {
	patch := domain.DocumentPatch{
		Name:               p.Name,
		ExtractedText:      p.ExtractedText,
		UserDocumentNumber: p.UserDocumentNumber,
	}
	failed := make([]string, 0)
	if p.IssueDate != nil {
		d, err := domain.ParseOptionalDate(*p.IssueDate)
		if err != nil {
			failed = append(failed, "fecha_emision")
		}
		patch.IssueDate = d
	}
	if p.ExpiryDate != nil {
		d, err := domain.ParseOptionalDate(*p.ExpiryDate)
		if err != nil {
			failed = append(failed, "fecha_vencimiento")
		}
		patch.ExpiryDate = d
	}
	if len(failed) > 0 {
		return domain.DocumentPatch{}, &domain.ValidationError{Fields: failed}
	}
	return patch, nil
}

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "documentId"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "document not found"})
		return 0, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// writeError maps domain errors onto status codes. fallback is the message for
// unexpected failures, which are logged.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "fields": vErr.Fields})
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrDocumentLocked), errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRequirementTaken):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	default:
		log.Printf("request failed: %v", err)
		if fallback == "" {
			fallback = "internal error"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
