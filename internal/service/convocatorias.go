package service

import (
	"context"
	"strings"

	"gdoc/internal/domain"
)

type ConvocatoriaService struct {
	convs       ConvocatoriaRepository
	postulantes PostulanteRepository
	docs        DocumentRepository
	ids         *IDGenerator
}

func NewConvocatoriaService(convs ConvocatoriaRepository, postulantes PostulanteRepository, docs DocumentRepository, ids *IDGenerator) *ConvocatoriaService {
	return &ConvocatoriaService{convs: convs, postulantes: postulantes, docs: docs, ids: ids}
}

func (s *ConvocatoriaService) List(ctx context.Context) ([]domain.Convocatoria, error) {
	return s.convs.ListConvocatorias(ctx)
}

// Get returns the call with its applicants attached.
func (s *ConvocatoriaService) Get(ctx context.Context, id string) (domain.Convocatoria, error) {
	conv, err := s.convs.GetConvocatoria(ctx, id)
	if err != nil {
		return domain.Convocatoria{}, err
	}
	applicants, err := s.postulantes.ListPostulantes(ctx, id)
	if err != nil {
		return domain.Convocatoria{}, err
	}
	conv.Applicants = applicants
	conv.ApplicantsCount = len(applicants)
	return conv, nil
}

// Create validates the draft and stores a new open call.
func (s *ConvocatoriaService) Create(ctx context.Context, draft domain.ConvocatoriaDraft) (domain.Convocatoria, error) {
	start, end, err := draft.Validate()
	if err != nil {
		return domain.Convocatoria{}, err
	}

	conv := domain.Convocatoria{
		ID:                s.ids.Next("conv"),
		Title:             strings.TrimSpace(draft.Title),
		Description:       draft.Describe(),
		Status:            domain.ConvocatoriaOpen,
		StartDate:         start,
		EndDate:           end,
		RequiredDocuments: make([]domain.RequiredDocument, 0, len(draft.RequiredDocuments)),
		Applicants:        []domain.Postulante{},
	}
	for _, rd := range draft.RequiredDocuments {
		conv.RequiredDocuments = append(conv.RequiredDocuments, domain.RequiredDocument{
			ID:           s.ids.Next("doc"),
			Name:         strings.TrimSpace(rd.Name),
			Description:  strings.TrimSpace(rd.Description),
			Mandatory:    rd.Mandatory,
			ReviewPoints: s.resolveReviewPoints(rd.ReviewPoints),
		})
	}

	if err := s.convs.CreateConvocatoria(ctx, conv); err != nil {
		return domain.Convocatoria{}, err
	}
	return conv, nil
}

// Expedientes builds the case file of every applicant of the call.
func (s *ConvocatoriaService) Expedientes(ctx context.Context, id string) ([]domain.Expediente, error) {
	conv, err := s.convs.GetConvocatoria(ctx, id)
	if err != nil {
		return nil, err
	}
	applicants, err := s.postulantes.ListPostulantes(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListDocuments(ctx, domain.DocumentFilter{ConvocatoriaID: id})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Expediente, 0, len(applicants))
	for _, p := range applicants {
		out = append(out, domain.BuildExpediente(conv, p, docs))
	}
	return out, nil
}

// resolveReviewPoints keeps catalogue points by id and gives custom ones an id and label.
func (s *ConvocatoriaService) resolveReviewPoints(points []domain.ReviewPoint) []domain.ReviewPoint {
	out := make([]domain.ReviewPoint, 0, len(points))
	for _, p := range points {
		if known, ok := predefinedReviewPoint(p.ID); ok {
			out = append(out, known)
			continue
		}
		label := strings.TrimSpace(p.Label)
		if label == "" {
			continue
		}
		id := strings.TrimSpace(p.ID)
		if id == "" {
			id = s.ids.Next("custom")
		}
		out = append(out, domain.ReviewPoint{ID: id, Label: label, Predefined: false})
	}
	return out
}

func predefinedReviewPoint(id string) (domain.ReviewPoint, bool) {
	for _, p := range domain.PredefinedReviewPoints {
		if p.ID == id {
			return p, true
		}
	}
	return domain.ReviewPoint{}, false
}
