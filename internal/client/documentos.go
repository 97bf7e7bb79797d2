package client

import (
	"context"
	"net/http"
	"net/url"

	"gdoc/internal/domain"
)

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
}

// Upload is a document file plus its optional metadata. Empty fields are not sent.
type Upload struct {
	Filename           string
	Content            []byte
	IssueDate          string
	ExpiryDate         string
	UserDocumentNumber string
	Name               string
	PostulanteID       string
	ConvocatoriaID     string
	RequisitoID        string
}

type formField struct {
	name  string
	value string
}

func (u Upload) fields() []formField {
	return []formField{
		{"fecha_emision", u.IssueDate},
		{"fecha_vencimiento", u.ExpiryDate},
		{"numero_documento_usuario", u.UserDocumentNumber},
		{"nombre", u.Name},
		{"postulante_id", u.PostulanteID},
		{"convocatoria_id", u.ConvocatoriaID},
		{"requisito_id", u.RequisitoID},
	}
}

// DocumentoPatch changes only the non-nil fields.
type DocumentoPatch struct {
	Name               *string `json:"nombre,omitempty"`
	IssueDate          *string `json:"fecha_emision,omitempty"`
	ExpiryDate         *string `json:"fecha_vencimiento,omitempty"`
	ExtractedText      *string `json:"texto_extraido,omitempty"`
	UserDocumentNumber *string `json:"numero_documento_usuario,omitempty"`
}

type ListOptions struct {
	Search         string
	PostulanteID   string
	ConvocatoriaID string
	RequisitoID    string
	Page           int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("search", o.Search)
	set("postulante_id", o.PostulanteID)
	set("convocatoria_id", o.ConvocatoriaID)
	set("requisito_id", o.RequisitoID)
	if o.Page > 1 {
		q.Set("page", idSegment(int64(o.Page)))
	}
	return q
}

// ReviewResult reports whether the decision was applied or handed to the review workflow.
type ReviewResult struct {
	Document domain.Document
	Queued   bool
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	_, err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "health"), nil, &out)
	return out, err
}

func (c *Client) ListDocumentos(ctx context.Context, opts ListOptions) ([]domain.Document, error) {
	return getList[domain.Document](ctx, c, c.endpoint(opts.query(), "documentos"))
}

func (c *Client) GetDocumento(ctx context.Context, id int64) (domain.Document, error) {
	var out domain.Document
	_, err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "documentos", idSegment(id)), nil, &out)
	return out, err
}

func (c *Client) CreateDocumento(ctx context.Context, up Upload) (domain.Document, error) {
	var out domain.Document
	_, err := c.doMultipart(ctx, http.MethodPost, c.endpoint(nil, "documentos"), up, &out)
	return out, err
}

// ReplaceDocumento uploads a new file for an existing document.
func (c *Client) ReplaceDocumento(ctx context.Context, id int64, up Upload) (domain.Document, error) {
	var out domain.Document
	_, err := c.doMultipart(ctx, http.MethodPatch, c.endpoint(nil, "documentos", idSegment(id)), up, &out)
	return out, err
}

func (c *Client) UpdateDocumento(ctx context.Context, id int64, patch DocumentoPatch) (domain.Document, error) {
	var out domain.Document
	_, err := c.doJSON(ctx, http.MethodPatch, c.endpoint(nil, "documentos", idSegment(id)), patch, &out)
	return out, err
}

func (c *Client) DeleteDocumento(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, http.MethodDelete, c.endpoint(nil, "documentos", idSegment(id)), nil, nil)
	return err
}

func (c *Client) DocumentoHistory(ctx context.Context, id int64) ([]domain.AuditEntry, error) {
	return getList[domain.AuditEntry](ctx, c, c.endpoint(nil, "documentos", idSegment(id), "historial"))
}

func (c *Client) ReviewDocumento(ctx context.Context, id int64, decision domain.ReviewDecision) (ReviewResult, error) {
	var out domain.Document
	status, err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "documentos", idSegment(id), "revision"), decision, &out)
	if err != nil {
		return ReviewResult{}, err
	}
	return ReviewResult{Document: out, Queued: status == http.StatusAccepted}, nil
}
