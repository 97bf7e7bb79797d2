package domain

import (
	"fmt"
	"strings"
)

// CanUpload reports whether a file may be uploaded or replaced in the given status.
// Approved documents are locked.
func CanUpload(status ReviewStatus) bool {
	return status != ReviewApproved
}

// CanReview reports whether a reviewer may still decide on the document.
func CanReview(status ReviewStatus) bool {
	return status == ReviewPending || status == ReviewInReview
}

// ApplyUpload moves the document to en_revision after a new file was stored and
// clears any previous rejection note.
func ApplyUpload(doc *Document) error {
	if !CanUpload(doc.ReviewStatus) {
		return ErrDocumentLocked
	}
	doc.ReviewStatus = ReviewInReview
	doc.Observation = nil
	return nil
}

// ApplyReview applies an approve or reject decision.
func ApplyReview(doc *Document, decision ReviewDecision) error {
	if !CanReview(doc.ReviewStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.ReviewStatus, decision.Decision)
	}
	switch decision.Decision {
	case ReviewDecisionApprove:
		doc.ReviewStatus = ReviewApproved
		if obs := strings.TrimSpace(decision.Observation); obs != "" {
			doc.Observation = &obs
		}
	case ReviewDecisionReject:
		obs := strings.TrimSpace(decision.Observation)
		if obs == "" {
			return ErrObservationRequired
		}
		doc.ReviewStatus = ReviewRejected
		doc.Observation = &obs
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, decision.Decision)
	}
	doc.ValidationType = ValidationManual
	return nil
}

// CheckReview validates a decision without mutating the document.
func CheckReview(doc Document, decision ReviewDecision) error {
	return ApplyReview(&doc, decision)
}

// HoldsRequirement reports whether the document answers a call requirement for
// one applicant. Such a document is unique per applicant, call and requirement.
func (d Document) HoldsRequirement() bool {
	return d.PostulanteID != "" && d.ConvocatoriaID != "" && d.RequiredDocumentID != ""
}

// SameRequirement reports whether both documents hold the same requirement slot.
func SameRequirement(a, b Document) bool {
	return a.HoldsRequirement() && a.PostulanteID == b.PostulanteID &&
		a.ConvocatoriaID == b.ConvocatoriaID && a.RequiredDocumentID == b.RequiredDocumentID
}
