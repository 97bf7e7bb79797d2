package service

import (
	"context"

	"gdoc/internal/domain"
)

type DashboardService struct {
	convs       ConvocatoriaRepository
	postulantes PostulanteRepository
	docs        DocumentRepository
}

func NewDashboardService(convs ConvocatoriaRepository, postulantes PostulanteRepository, docs DocumentRepository) *DashboardService {
	return &DashboardService{convs: convs, postulantes: postulantes, docs: docs}
}

func (s *DashboardService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	convs, err := s.convs.ListConvocatorias(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	docs, err := s.docs.ListDocuments(ctx, domain.DocumentFilter{})
	if err != nil {
		return domain.DashboardStats{}, err
	}
	applicants, err := s.postulantes.CountPostulantes(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeDashboard(convs, docs, applicants), nil
}
