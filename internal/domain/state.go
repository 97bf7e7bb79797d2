package domain

import "strings"

// ReviewStatus is the canonical review vocabulary stored for every document.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pendiente"
	ReviewInReview  ReviewStatus = "en_revision"
	ReviewApproved  ReviewStatus = "aprobado"
	ReviewRejected  ReviewStatus = "rechazado"
	reviewUndefined ReviewStatus = ""
)

// LegacyStatus is the upper-case vocabulary rendered by the applicant portal.
// CARGADO is the portal's name for en_revision.
type LegacyStatus string

const (
	LegacyPending  LegacyStatus = "PENDIENTE"
	LegacyUploaded LegacyStatus = "CARGADO"
	LegacyApproved LegacyStatus = "APROBADO"
	LegacyRejected LegacyStatus = "RECHAZADO"
)

// Semaphore is the traffic-light validity indicator of a document.
type Semaphore string

const (
	SemaphoreGreen  Semaphore = "verde"
	SemaphoreYellow Semaphore = "amarillo"
	SemaphoreRed    Semaphore = "rojo"
)

type ConvocatoriaStatus string

const (
	ConvocatoriaOpen   ConvocatoriaStatus = "abierta"
	ConvocatoriaClosed ConvocatoriaStatus = "cerrada"
)

type PostulanteStatus string

const (
	PostulanteActive   PostulanteStatus = "activo"
	PostulanteInactive PostulanteStatus = "inactivo"
)

type ExpedienteStatus string

const (
	ExpedienteComplete   ExpedienteStatus = "completo"
	ExpedienteIncomplete ExpedienteStatus = "incompleto"
	ExpedienteInProgress ExpedienteStatus = "en_proceso"
)

type ValidationType string

const (
	ValidationAutomatic ValidationType = "automatica"
	ValidationManual    ValidationType = "manual"
)

type AuditState string

const (
	AuditUploaded  AuditState = "CARGADO"
	AuditSemaphore AuditState = "SEMAFORO"
	AuditInReview  AuditState = "EN_REVISION"
	AuditApproved  AuditState = "APROBADO"
	AuditRejected  AuditState = "RECHAZADO"
	AuditDeleted   AuditState = "ELIMINADO"
)

type ReviewDecisionType string

const (
	ReviewDecisionApprove ReviewDecisionType = "approve"
	ReviewDecisionReject  ReviewDecisionType = "reject"
)

// ParseReviewStatus accepts both vocabularies.
func ParseReviewStatus(v string) (ReviewStatus, bool) {
	switch strings.TrimSpace(v) {
	case string(ReviewPending), string(LegacyPending):
		return ReviewPending, true
	case string(ReviewInReview), string(LegacyUploaded):
		return ReviewInReview, true
	case string(ReviewApproved), string(LegacyApproved):
		return ReviewApproved, true
	case string(ReviewRejected), string(LegacyRejected):
		return ReviewRejected, true
	}
	return reviewUndefined, false
}

// Legacy renders the status in the portal vocabulary.
func (s ReviewStatus) Legacy() LegacyStatus {
	switch s {
	case ReviewInReview:
		return LegacyUploaded
	case ReviewApproved:
		return LegacyApproved
	case ReviewRejected:
		return LegacyRejected
	default:
		return LegacyPending
	}
}

// ParseSemaphore accepts the Spanish values and their English aliases.
func ParseSemaphore(v string) (Semaphore, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "verde", "green":
		return SemaphoreGreen, true
	case "amarillo", "yellow":
		return SemaphoreYellow, true
	case "rojo", "red":
		return SemaphoreRed, true
	}
	return "", false
}

func ParseReviewDecision(v string) (ReviewDecisionType, bool) {
	switch ReviewDecisionType(strings.ToLower(strings.TrimSpace(v))) {
	case ReviewDecisionApprove, "aprobar":
		return ReviewDecisionApprove, true
	case ReviewDecisionReject, "rechazar":
		return ReviewDecisionReject, true
	}
	return "", false
}
