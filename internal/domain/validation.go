package domain

import (
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".bmp":  {},
	".txt":  {},
}

// UploadInput is what an applicant submits for one document.
type UploadInput struct {
	Filename           string
	Content            []byte
	ContentType        string
	IssueDate          string
	ExpiryDate         string
	UserDocumentNumber string
	Name               string
	PostulanteID       string
	ConvocatoriaID     string
	RequiredDocumentID string
}

// ParsedUpload is an UploadInput after the file and date checks passed.
type ParsedUpload struct {
	UploadInput
	Issue  *Date
	Expiry *Date
}

func AllowedExtension(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ValidateUpload checks the file is present with an accepted extension. Optional
// metadata is passed through; dates must parse when given.
func ValidateUpload(in UploadInput) (ParsedUpload, error) {
	if strings.TrimSpace(in.Filename) == "" || len(in.Content) == 0 {
		return ParsedUpload{}, ErrFileRequired
	}
	failed := make([]string, 0)
	if !AllowedExtension(in.Filename) {
		failed = append(failed, "archivo")
	}
	issue, err := ParseOptionalDate(in.IssueDate)
	if err != nil {
		failed = append(failed, "fecha_emision")
	}
	expiry, err := ParseOptionalDate(in.ExpiryDate)
	if err != nil {
		failed = append(failed, "fecha_vencimiento")
	}
	if len(failed) > 0 {
		return ParsedUpload{}, &ValidationError{Fields: failed}
	}
	in.UserDocumentNumber = strings.TrimSpace(in.UserDocumentNumber)
	return ParsedUpload{UploadInput: in, Issue: issue, Expiry: expiry}, nil
}

type RequiredDocumentDraft struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Mandatory    bool          `json:"mandatory"`
	ReviewPoints []ReviewPoint `json:"reviewPoints"`
}

type ConvocatoriaDraft struct {
	Title             string                  `json:"titulo"`
	Cargo             string                  `json:"cargo"`
	Dependencia       string                  `json:"dependencia"`
	TipoVinculacion   string                  `json:"tipoVinculacion"`
	Dedicacion        string                  `json:"dedicacion"`
	StartDate         string                  `json:"fechaInicio"`
	EndDate           string                  `json:"fechaFin"`
	RequiredDocuments []RequiredDocumentDraft `json:"documentos"`
}

// Validate returns the parsed start and end dates or the missing fields.
func (d ConvocatoriaDraft) Validate() (Date, Date, error) {
	failed := make([]string, 0)
	if strings.TrimSpace(d.Title) == "" {
		failed = append(failed, "titulo")
	}
	if strings.TrimSpace(d.Cargo) == "" {
		failed = append(failed, "cargo")
	}
	if strings.TrimSpace(d.Dependencia) == "" {
		failed = append(failed, "dependencia")
	}
	start, startErr := ParseDate(d.StartDate)
	if startErr != nil {
		failed = append(failed, "fechaInicio")
	}
	end, endErr := ParseDate(d.EndDate)
	if endErr != nil {
		failed = append(failed, "fechaFin")
	} else if startErr == nil && end.Before(start) {
		failed = append(failed, "fechaFin")
	}
	if len(d.RequiredDocuments) == 0 {
		failed = append(failed, "documentos")
	}
	for _, rd := range d.RequiredDocuments {
		if strings.TrimSpace(rd.Name) == "" {
			failed = append(failed, "documentos.name")
			break
		}
	}
	if len(failed) > 0 {
		return Date{}, Date{}, &ValidationError{Fields: failed}
	}
	return start, end, nil
}

// Describe composes the call description shown in listings.
func (d ConvocatoriaDraft) Describe() string {
	dedicacion := strings.TrimSpace(d.Dedicacion)
	if dedicacion == "" {
		dedicacion = "No especificada"
	}
	return "Cargo: " + strings.TrimSpace(d.Cargo) + ", Departamento: " + strings.TrimSpace(d.Dependencia) + ", Dedicación: " + dedicacion
}

type PostulanteDraft struct {
	Nombres         string `json:"nombres"`
	Apellidos       string `json:"apellidos"`
	TipoDocumento   string `json:"tipoDocumento"`
	NumeroDocumento string `json:"numeroDocumento"`
	Email           string `json:"email"`
	Telefono        string `json:"telefono"`
	Direccion       string `json:"direccion"`
}

func (d PostulanteDraft) Validate() error {
	failed := make([]string, 0)
	if strings.TrimSpace(d.Nombres) == "" {
		failed = append(failed, "nombres")
	}
	if strings.TrimSpace(d.Apellidos) == "" {
		failed = append(failed, "apellidos")
	}
	if strings.TrimSpace(d.Email) == "" {
		failed = append(failed, "email")
	}
	if strings.TrimSpace(d.NumeroDocumento) == "" {
		failed = append(failed, "numeroDocumento")
	}
	if len(failed) > 0 {
		return &ValidationError{Fields: failed}
	}
	return nil
}
