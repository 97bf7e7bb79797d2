package portal

import (
	"context"
	"sync"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

type RequirementAPI interface {
	PortalRequirements(ctx context.Context, convocatoriaID, postulanteID string) ([]domain.RequirementStatus, error)
	PortalUpload(ctx context.Context, convocatoriaID, postulanteID, requisitoID string, up client.Upload) (domain.RequirementStatus, error)
}

// Action is a button; a disabled action is still rendered.
type Action struct {
	Label   string
	Enabled bool
}

type RequirementRow struct {
	Requirement domain.RequiredDocument
	Status      domain.LegacyStatus
	Document    *domain.Document
	Observation string
	Upload      Action
}

func rowFor(rs domain.RequirementStatus) RequirementRow {
	row := RequirementRow{Requirement: rs.Requirement, Status: rs.Status, Document: rs.Document}
	if rs.Status == domain.LegacyRejected && rs.Document != nil && rs.Document.Observation != nil {
		row.Observation = *rs.Document.Observation
	}
	switch {
	case rs.Status == domain.LegacyApproved:
		row.Upload = Action{Label: "Aprobado", Enabled: false}
	case rs.Document != nil:
		row.Upload = Action{Label: "Reemplazar archivo", Enabled: rs.CanUpload}
	default:
		row.Upload = Action{Label: "Subir archivo", Enabled: rs.CanUpload}
	}
	return row
}

// RequirementBoard is the applicant's view of one call's required documents.
type RequirementBoard struct {
	api            RequirementAPI
	notifier       Notifier
	convocatoriaID string
	postulanteID   string

	mu   sync.RWMutex
	rows []RequirementRow
}

func NewRequirementBoard(api RequirementAPI, notifier Notifier, convocatoriaID, postulanteID string) *RequirementBoard {
	return &RequirementBoard{
		api:            api,
		notifier:       notifier,
		convocatoriaID: convocatoriaID,
		postulanteID:   postulanteID,
		rows:           []RequirementRow{},
	}
}

func (b *RequirementBoard) Load(ctx context.Context) error {
	statuses, err := b.api.PortalRequirements(ctx, b.convocatoriaID, b.postulanteID)
	if err != nil {
		notify(b.notifier, failure("Error al cargar requisitos", err))
		return err
	}
	rows := make([]RequirementRow, 0, len(statuses))
	for _, rs := range statuses {
		rows = append(rows, rowFor(rs))
	}
	b.mu.Lock()
	b.rows = rows
	b.mu.Unlock()
	return nil
}

func (b *RequirementBoard) Rows() []RequirementRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]RequirementRow(nil), b.rows...)
}

// Progress is the number of approved requirements over the total.
func (b *RequirementBoard) Progress() (approved, total int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.rows {
		if r.Status == domain.LegacyApproved {
			approved++
		}
	}
	return approved, len(b.rows)
}

// Upload sends the file for one requirement. A disabled action sends nothing.
func (b *RequirementBoard) Upload(ctx context.Context, requisitoID string, up client.Upload) Result {
	row, ok := b.row(requisitoID)
	if !ok {
		res := Result{Reason: client.ReasonValidation, Message: "requisito desconocido"}
		notify(b.notifier, res)
		return res
	}
	if !row.Upload.Enabled {
		res := Result{Reason: client.ReasonValidation, Message: "el documento ya fue aprobado"}
		notify(b.notifier, res)
		return res
	}

	updated, err := b.api.PortalUpload(ctx, b.convocatoriaID, b.postulanteID, requisitoID, up)
	if err != nil {
		res := failure("Error al subir documento", err)
		notify(b.notifier, res)
		return res
	}

	b.mu.Lock()
	for i := range b.rows {
		if b.rows[i].Requirement.ID == requisitoID {
			b.rows[i] = rowFor(updated)
		}
	}
	b.mu.Unlock()

	res := Result{OK: true, Message: uploadedMsg}
	notify(b.notifier, res)
	return res
}

func (b *RequirementBoard) row(requisitoID string) (RequirementRow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.rows {
		if r.Requirement.ID == requisitoID {
			return r, true
		}
	}
	return RequirementRow{}, false
}
