package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(v string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(v string) (*Date, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	d, err := ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// Document is an uploaded file for one requirement of one applicant in one call.
type Document struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"nombre"`
	ObjectKey          string         `json:"archivo"`
	Filename           string         `json:"nombre_archivo"`
	FileURL            string         `json:"url_archivo"`
	IssueDate          *Date          `json:"fecha_emision"`
	ExpiryDate         *Date          `json:"fecha_vencimiento"`
	Semaphore          Semaphore      `json:"estado"`
	SemaphoreReasons   []string       `json:"semaforo_motivos"`
	ExtractedText      *string        `json:"texto_extraido"`
	UserDocumentNumber *string        `json:"numero_documento_usuario"`
	UploadedAt         time.Time      `json:"fecha_carga"`
	ReviewStatus       ReviewStatus   `json:"estado_revision"`
	Observation        *string        `json:"observacion"`
	OCRConfidence      float64        `json:"confianza_ocr"`
	ValidationType     ValidationType `json:"tipo_validacion"`
	PostulanteID       string         `json:"postulante_id,omitempty"`
	ApplicantName      string         `json:"nombre_postulante,omitempty"`
	ConvocatoriaID     string         `json:"convocatoria_id,omitempty"`
	RequiredDocumentID string         `json:"requisito_id,omitempty"`
	ContentType        string         `json:"-"`
	SizeBytes          int64          `json:"-"`
}

// DocumentPatch carries the fields a PATCH may change. Nil means untouched.
// The semaphore is always recomputed afterwards.
type DocumentPatch struct {
	Name               *string
	IssueDate          *Date
	ExpiryDate         *Date
	ExtractedText      *string
	UserDocumentNumber *string
}

// Apply copies the set fields onto doc.
func (p DocumentPatch) Apply(doc *Document) {
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.IssueDate != nil {
		doc.IssueDate = p.IssueDate
	}
	if p.ExpiryDate != nil {
		doc.ExpiryDate = p.ExpiryDate
	}
	if p.ExtractedText != nil {
		doc.ExtractedText = p.ExtractedText
	}
	if p.UserDocumentNumber != nil {
		doc.UserDocumentNumber = p.UserDocumentNumber
	}
}

type DocumentFilter struct {
	Search             string
	PostulanteID       string
	ConvocatoriaID     string
	RequiredDocumentID string
}

func (f DocumentFilter) Matches(d Document) bool {
	if f.PostulanteID != "" && d.PostulanteID != f.PostulanteID {
		return false
	}
	if f.ConvocatoriaID != "" && d.ConvocatoriaID != f.ConvocatoriaID {
		return false
	}
	if f.RequiredDocumentID != "" && d.RequiredDocumentID != f.RequiredDocumentID {
		return false
	}
	return MatchesSearch(d, f.Search)
}

type ReviewPoint struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Predefined bool   `json:"predefined"`
}

// PredefinedReviewPoints is the catalogue offered when defining a required document.
var PredefinedReviewPoints = []ReviewPoint{
	{ID: "legibilidad", Label: "Documento legible", Predefined: true},
	{ID: "vigencia", Label: "Documento vigente", Predefined: true},
	{ID: "coincidencia_nombre", Label: "Nombre coincide con el postulante", Predefined: true},
	{ID: "coincidencia_documento", Label: "Número de documento coincide", Predefined: true},
	{ID: "firma", Label: "Firma o sello presente", Predefined: true},
}

type RequiredDocument struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Mandatory    bool          `json:"mandatory"`
	ReviewPoints []ReviewPoint `json:"reviewPoints"`
}

type Postulante struct {
	ID              string           `json:"id"`
	ConvocatoriaID  string           `json:"convocatoriaId"`
	Nombres         string           `json:"nombres"`
	Apellidos       string           `json:"apellidos"`
	TipoDocumento   string           `json:"tipoDocumento"`
	NumeroDocumento string           `json:"numeroDocumento"`
	Email           string           `json:"email"`
	Telefono        string           `json:"telefono"`
	Direccion       string           `json:"direccion"`
	FechaRegistro   Date             `json:"fechaRegistro"`
	Status          PostulanteStatus `json:"status"`
}

func (p Postulante) FullName() string {
	return strings.TrimSpace(p.Nombres + " " + p.Apellidos)
}

type Convocatoria struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Status            ConvocatoriaStatus `json:"status"`
	StartDate         Date               `json:"startDate"`
	EndDate           Date               `json:"endDate"`
	RequiredDocuments []RequiredDocument `json:"requiredDocuments"`
	ApplicantsCount   int                `json:"applicantsCount"`
	Applicants        []Postulante       `json:"applicants,omitempty"`
}

// Expediente is an applicant's consolidated progress for one call.
type Expediente struct {
	ID                string           `json:"id"`
	PostulanteID      string           `json:"postulanteId"`
	ApplicantName     string           `json:"applicantName"`
	ConvocatoriaID    string           `json:"convocatoriaId"`
	ConvocatoriaTitle string           `json:"convocatoriaTitle"`
	TotalDocs         int              `json:"totalDocs"`
	ApprovedDocs      int              `json:"approvedDocs"`
	Progress          int              `json:"progress"`
	MissingMandatory  []string         `json:"missingMandatory"`
	Status            ExpedienteStatus `json:"status"`
}

type ReviewDecision struct {
	Decision    ReviewDecisionType `json:"decision"`
	Observation string             `json:"observacion,omitempty"`
	Reviewer    string             `json:"revisor,omitempty"`
}

type AuditEntry struct {
	DocumentID int64          `json:"documento_id"`
	State      AuditState     `json:"state"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type DashboardStats struct {
	TotalConvocatorias  int `json:"totalConvocatorias"`
	ActiveConvocatorias int `json:"activeConvocatorias"`
	TotalDocuments      int `json:"totalDocuments"`
	PendingReview       int `json:"pendingReview"`
	Approved            int `json:"approved"`
	Rejected            int `json:"rejected"`
	TotalApplicants     int `json:"totalApplicants"`
	SemaphoreGreen      int `json:"semaphoreGreen"`
	SemaphoreYellow     int `json:"semaphoreYellow"`
	SemaphoreRed        int `json:"semaphoreRed"`
}

// RequirementStatus is one row of the applicant's requirement board.
type RequirementStatus struct {
	Requirement RequiredDocument `json:"requisito"`
	Status      LegacyStatus     `json:"estado_actual"`
	Document    *Document        `json:"documento"`
	CanUpload   bool             `json:"puede_cargar"`
}

// NewRequirementStatus renders doc's status for the portal. A nil doc is PENDIENTE.
func NewRequirementStatus(rd RequiredDocument, doc *Document) RequirementStatus {
	status := ReviewPending
	if doc != nil {
		status = doc.ReviewStatus
	}
	return RequirementStatus{
		Requirement: rd,
		Status:      status.Legacy(),
		Document:    doc,
		CanUpload:   CanUpload(status),
	}
}
