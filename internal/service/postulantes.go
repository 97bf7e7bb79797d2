package service

import (
	"context"
	"strings"
	"time"

	"gdoc/internal/domain"
)

type PostulanteService struct {
	convs       ConvocatoriaRepository
	postulantes PostulanteRepository
	ids         *IDGenerator
	now         func() time.Time
}

func NewPostulanteService(convs ConvocatoriaRepository, postulantes PostulanteRepository, ids *IDGenerator) *PostulanteService {
	return &PostulanteService{convs: convs, postulantes: postulantes, ids: ids, now: time.Now}
}

func (s *PostulanteService) WithClock(now func() time.Time) *PostulanteService {
	s.now = now
	return s
}

func (s *PostulanteService) List(ctx context.Context, convocatoriaID string) ([]domain.Postulante, error) {
	if convocatoriaID != "" {
		if _, err := s.convs.GetConvocatoria(ctx, convocatoriaID); err != nil {
			return nil, err
		}
	}
	return s.postulantes.ListPostulantes(ctx, convocatoriaID)
}

// Register adds an active applicant to the call, registered today.
func (s *PostulanteService) Register(ctx context.Context, convocatoriaID string, draft domain.PostulanteDraft) (domain.Postulante, error) {
	if err := draft.Validate(); err != nil {
		return domain.Postulante{}, err
	}
	if _, err := s.convs.GetConvocatoria(ctx, convocatoriaID); err != nil {
		return domain.Postulante{}, err
	}

	tipo := strings.TrimSpace(draft.TipoDocumento)
	if tipo == "" {
		tipo = "Cédula de Ciudadanía"
	}
	p := domain.Postulante{
		ID:              s.ids.Next("postulante"),
		ConvocatoriaID:  convocatoriaID,
		Nombres:         strings.TrimSpace(draft.Nombres),
		Apellidos:       strings.TrimSpace(draft.Apellidos),
		TipoDocumento:   tipo,
		NumeroDocumento: strings.TrimSpace(draft.NumeroDocumento),
		Email:           strings.TrimSpace(draft.Email),
		Telefono:        strings.TrimSpace(draft.Telefono),
		Direccion:       strings.TrimSpace(draft.Direccion),
		FechaRegistro:   domain.DateOf(s.now()),
		Status:          domain.PostulanteActive,
	}
	if err := s.postulantes.CreatePostulante(ctx, p); err != nil {
		return domain.Postulante{}, err
	}
	return p, nil
}
