package storage

import (
	"context"
	"fmt"
	"time"

	"gdoc/internal/domain"
)

// SeedTarget is the write side shared by the Postgres and memory stores.
type SeedTarget interface {
	CreateConvocatoria(ctx context.Context, conv domain.Convocatoria) error
	CreatePostulante(ctx context.Context, p domain.Postulante) error
	CreateDocument(ctx context.Context, doc *domain.Document) error
}

// Seed loads the demo recruitment data set: three calls, three applicants and seven documents.
func Seed(ctx context.Context, target SeedTarget) error {
	for _, conv := range demoConvocatorias() {
		if err := target.CreateConvocatoria(ctx, conv); err != nil {
			return fmt.Errorf("seed convocatoria %s: %w", conv.ID, err)
		}
	}
	for _, p := range demoPostulantes() {
		if err := target.CreatePostulante(ctx, p); err != nil {
			return fmt.Errorf("seed postulante %s: %w", p.ID, err)
		}
	}
	for _, doc := range demoDocuments() {
		doc := doc
		if err := target.CreateDocument(ctx, &doc); err != nil {
			return fmt.Errorf("seed document %s: %w", doc.Filename, err)
		}
	}
	return nil
}

func demoConvocatorias() []domain.Convocatoria {
	return []domain.Convocatoria{
		{
			ID:          "1",
			Title:       "Docentes Cátedra 2025-I",
			Description: "Convocatoria para vinculación de docentes de cátedra primer semestre 2025",
			Status:      domain.ConvocatoriaOpen,
			StartDate:   domain.NewDate(2025, time.January, 15),
			EndDate:     domain.NewDate(2025, time.March, 15),
			RequiredDocuments: []domain.RequiredDocument{
				{ID: "r1", Name: "Hoja de Vida", Description: "Formato institucional", Mandatory: true},
				{ID: "r2", Name: "Cédula de Ciudadanía", Description: "Copia ampliada al 150%", Mandatory: true},
				{ID: "r3", Name: "Diploma de Pregrado", Description: "Copia autenticada", Mandatory: true},
				{ID: "r4", Name: "Diploma de Posgrado", Description: "Copia autenticada", Mandatory: true},
				{ID: "r5", Name: "Certificado de Antecedentes", Description: "Vigente (< 3 meses)", Mandatory: true},
				{ID: "r6", Name: "Certificaciones Laborales", Description: "Últimos 5 años", Mandatory: false},
			},
		},
		{
			ID:          "2",
			Title:       "Docentes Tiempo Completo 2025",
			Description: "Concurso docente para planta tiempo completo",
			Status:      domain.ConvocatoriaOpen,
			StartDate:   domain.NewDate(2025, time.February, 1),
			EndDate:     domain.NewDate(2025, time.April, 30),
			RequiredDocuments: []domain.RequiredDocument{
				{ID: "r1", Name: "Hoja de Vida", Description: "Formato institucional", Mandatory: true},
				{ID: "r2", Name: "Cédula de Ciudadanía", Description: "Copia ampliada al 150%", Mandatory: true},
				{ID: "r3", Name: "Diploma de Doctorado", Description: "Copia autenticada", Mandatory: true},
			},
		},
		{
			ID:                "3",
			Title:             "Personal Administrativo 2024-II",
			Description:       "Vinculación administrativa segundo semestre",
			Status:            domain.ConvocatoriaClosed,
			StartDate:         domain.NewDate(2024, time.July, 1),
			EndDate:           domain.NewDate(2024, time.September, 30),
			RequiredDocuments: []domain.RequiredDocument{},
		},
	}
}

func demoPostulantes() []domain.Postulante {
	return []domain.Postulante{
		{
			ID: "p1", ConvocatoriaID: "1", Nombres: "María", Apellidos: "García López",
			TipoDocumento: "Cédula de Ciudadanía", NumeroDocumento: "1234567890",
			Email: "maria.garcia@email.com", Telefono: "3015551234", Direccion: "Calle 10 #20-30, Apto 302",
			FechaRegistro: domain.NewDate(2025, time.February, 10), Status: domain.PostulanteActive,
		},
		{
			ID: "p2", ConvocatoriaID: "1", Nombres: "Juan", Apellidos: "López Rodríguez",
			TipoDocumento: "Cédula de Ciudadanía", NumeroDocumento: "9876543210",
			Email: "juan.lopez@email.com", Telefono: "3105552345", Direccion: "Carrera 15 #45-60",
			FechaRegistro: domain.NewDate(2025, time.February, 12), Status: domain.PostulanteActive,
		},
		{
			ID: "p3", ConvocatoriaID: "2", Nombres: "Ana", Apellidos: "Martínez",
			TipoDocumento: "Cédula de Ciudadanía", NumeroDocumento: "5554443332",
			Email: "ana.martinez@email.com", Telefono: "3205553456", Direccion: "Avenida 3 #12-40",
			FechaRegistro: domain.NewDate(2025, time.February, 13), Status: domain.PostulanteActive,
		},
	}
}

func demoDocuments() []domain.Document {
	day := func(m time.Month, d int) time.Time {
		return time.Date(2025, m, d, 9, 0, 0, 0, time.UTC)
	}
	date := func(m time.Month, d int) *domain.Date {
		v := domain.NewDate(2025, m, d)
		return &v
	}
	note := func(v string) *string { return &v }

	return []domain.Document{
		{
			Name: "Hoja de Vida", Filename: "hoja_vida_garcia.pdf", UploadedAt: day(time.February, 10),
			ReviewStatus: domain.ReviewApproved, Semaphore: domain.SemaphoreGreen, OCRConfidence: 95,
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p1", ConvocatoriaID: "1", RequiredDocumentID: "r1",
		},
		{
			Name: "Cédula de Ciudadanía", Filename: "cedula_garcia.pdf", UploadedAt: day(time.February, 10),
			ReviewStatus: domain.ReviewApproved, Semaphore: domain.SemaphoreGreen, OCRConfidence: 98,
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p1", ConvocatoriaID: "1", RequiredDocumentID: "r2",
		},
		{
			Name: "Certificado de Antecedentes", Filename: "antecedentes_garcia.pdf", UploadedAt: day(time.February, 11),
			ReviewStatus: domain.ReviewInReview, Semaphore: domain.SemaphoreYellow, OCRConfidence: 72,
			ExpiryDate: date(time.April, 11), SemaphoreReasons: []string{domain.RuleTextMissing},
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p1", ConvocatoriaID: "1", RequiredDocumentID: "r5",
		},
		{
			Name: "Diploma de Pregrado", Filename: "diploma_lopez.pdf", UploadedAt: day(time.February, 12),
			ReviewStatus: domain.ReviewRejected, Semaphore: domain.SemaphoreRed, OCRConfidence: 35,
			Observation:    note("Documento ilegible, resolución muy baja"),
			ValidationType: domain.ValidationManual, PostulanteID: "p2", ConvocatoriaID: "1", RequiredDocumentID: "r3",
		},
		{
			Name: "Diploma de Posgrado", Filename: "posgrado_lopez.pdf", UploadedAt: day(time.February, 12),
			ReviewStatus: domain.ReviewPending, Semaphore: domain.SemaphoreYellow, OCRConfidence: 68,
			ExpiryDate: date(time.May, 1), SemaphoreReasons: []string{domain.RuleTextMissing},
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p2", ConvocatoriaID: "1", RequiredDocumentID: "r4",
		},
		{
			Name: "Hoja de Vida", Filename: "hv_martinez.pdf", UploadedAt: day(time.February, 13),
			ReviewStatus: domain.ReviewApproved, Semaphore: domain.SemaphoreGreen, OCRConfidence: 91,
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p3", ConvocatoriaID: "2", RequiredDocumentID: "r1",
		},
		{
			Name: "Certificado de Antecedentes", Filename: "antecedentes_martinez.pdf", UploadedAt: day(time.January, 5),
			ReviewStatus: domain.ReviewRejected, Semaphore: domain.SemaphoreRed, OCRConfidence: 88,
			ExpiryDate: date(time.January, 20), SemaphoreReasons: []string{domain.RuleExpired},
			Observation:    note("Documento vencido. Fecha de expedición superior a 3 meses"),
			ValidationType: domain.ValidationAutomatic, PostulanteID: "p3", ConvocatoriaID: "2",
		},
	}
}
