package service

import (
	"context"
	"fmt"

	"gdoc/internal/domain"
)

// PortalService backs the applicant's own view of a call.
type PortalService struct {
	convs       ConvocatoriaRepository
	postulantes PostulanteRepository
	docs        *DocumentService
}

func NewPortalService(convs ConvocatoriaRepository, postulantes PostulanteRepository, docs *DocumentService) *PortalService {
	return &PortalService{convs: convs, postulantes: postulantes, docs: docs}
}

// Requirements lists every required document of the call with the applicant's upload state.
func (s *PortalService) Requirements(ctx context.Context, convocatoriaID, postulanteID string) ([]domain.RequirementStatus, error) {
	conv, _, err := s.load(ctx, convocatoriaID, postulanteID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx, domain.DocumentFilter{ConvocatoriaID: convocatoriaID, PostulanteID: postulanteID})
	if err != nil {
		return nil, err
	}
	byRequirement := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		byRequirement[d.RequiredDocumentID] = d
	}

	out := make([]domain.RequirementStatus, 0, len(conv.RequiredDocuments))
	for _, rd := range conv.RequiredDocuments {
		var doc *domain.Document
		if d, ok := byRequirement[rd.ID]; ok {
			doc = &d
		}
		out = append(out, domain.NewRequirementStatus(rd, doc))
	}
	return out, nil
}

// Upload stores the applicant's file for a requirement, replacing a previous one
// unless it was already approved.
func (s *PortalService) Upload(ctx context.Context, convocatoriaID, postulanteID, requisitoID string, in domain.UploadInput) (domain.RequirementStatus, error) {
	conv, _, err := s.load(ctx, convocatoriaID, postulanteID)
	if err != nil {
		return domain.RequirementStatus{}, err
	}
	var requirement *domain.RequiredDocument
	for i := range conv.RequiredDocuments {
		if conv.RequiredDocuments[i].ID == requisitoID {
			requirement = &conv.RequiredDocuments[i]
			break
		}
	}
	if requirement == nil {
		return domain.RequirementStatus{}, fmt.Errorf("requirement %s: %w", requisitoID, domain.ErrNotFound)
	}

	in.Name = requirement.Name
	in.ConvocatoriaID = convocatoriaID
	in.PostulanteID = postulanteID
	in.RequiredDocumentID = requisitoID
	doc, err := s.docs.Create(ctx, in)
	if err != nil {
		return domain.RequirementStatus{}, err
	}
	return domain.NewRequirementStatus(*requirement, &doc), nil
}

func (s *PortalService) load(ctx context.Context, convocatoriaID, postulanteID string) (domain.Convocatoria, domain.Postulante, error) {
	conv, err := s.convs.GetConvocatoria(ctx, convocatoriaID)
	if err != nil {
		return domain.Convocatoria{}, domain.Postulante{}, err
	}
	p, err := s.postulantes.GetPostulante(ctx, postulanteID)
	if err != nil {
		return domain.Convocatoria{}, domain.Postulante{}, err
	}
	if p.ConvocatoriaID != convocatoriaID {
		return domain.Convocatoria{}, domain.Postulante{}, fmt.Errorf("postulante %s in convocatoria %s: %w", postulanteID, convocatoriaID, domain.ErrNotFound)
	}
	return conv, p, nil
}
