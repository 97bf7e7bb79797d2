package client

import (
	"context"
	"net/http"

	"gdoc/internal/domain"
)

func (c *Client) ListConvocatorias(ctx context.Context) ([]domain.Convocatoria, error) {
	return getList[domain.Convocatoria](ctx, c, c.endpoint(nil, "convocatorias"))
}

func (c *Client) GetConvocatoria(ctx context.Context, id string) (domain.Convocatoria, error) {
	var out domain.Convocatoria
	_, err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "convocatorias", id), nil, &out)
	return out, err
}

func (c *Client) CreateConvocatoria(ctx context.Context, draft domain.ConvocatoriaDraft) (domain.Convocatoria, error) {
	var out domain.Convocatoria
	_, err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "convocatorias"), draft, &out)
	return out, err
}

func (c *Client) ListPostulantes(ctx context.Context, convocatoriaID string) ([]domain.Postulante, error) {
	return getList[domain.Postulante](ctx, c, c.endpoint(nil, "convocatorias", convocatoriaID, "postulantes"))
}

func (c *Client) RegisterPostulante(ctx context.Context, convocatoriaID string, draft domain.PostulanteDraft) (domain.Postulante, error) {
	var out domain.Postulante
	_, err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, "convocatorias", convocatoriaID, "postulantes"), draft, &out)
	return out, err
}

func (c *Client) ListExpedientes(ctx context.Context, convocatoriaID string) ([]domain.Expediente, error) {
	return getList[domain.Expediente](ctx, c, c.endpoint(nil, "convocatorias", convocatoriaID, "expedientes"))
}

func (c *Client) ReviewPoints(ctx context.Context) ([]domain.ReviewPoint, error) {
	return getList[domain.ReviewPoint](ctx, c, c.endpoint(nil, "puntos-revision"))
}

func (c *Client) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	_, err := c.doJSON(ctx, http.MethodGet, c.endpoint(nil, "dashboard"), nil, &out)
	return out, err
}

func (c *Client) PortalRequirements(ctx context.Context, convocatoriaID, postulanteID string) ([]domain.RequirementStatus, error) {
	return getList[domain.RequirementStatus](ctx, c, c.endpoint(nil, "portal", "convocatorias", convocatoriaID, "postulantes", postulanteID, "requisitos"))
}

// PortalUpload uploads the applicant's file for one required document.
func (c *Client) PortalUpload(ctx context.Context, convocatoriaID, postulanteID, requisitoID string, up Upload) (domain.RequirementStatus, error) {
	var out domain.RequirementStatus
	endpoint := c.endpoint(nil, "portal", "convocatorias", convocatoriaID, "postulantes", postulanteID, "requisitos", requisitoID, "archivo")
	_, err := c.doMultipart(ctx, http.MethodPost, endpoint, up, &out)
	return out, err
}
