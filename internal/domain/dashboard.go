package domain

import "strings"

// ComputeDashboard aggregates counts over the given collections.
func ComputeDashboard(convocatorias []Convocatoria, documents []Document, totalApplicants int) DashboardStats {
	stats := DashboardStats{
		TotalConvocatorias: len(convocatorias),
		TotalDocuments:     len(documents),
		TotalApplicants:    totalApplicants,
	}
	for _, c := range convocatorias {
		if c.Status == ConvocatoriaOpen {
			stats.ActiveConvocatorias++
		}
	}
	for _, d := range documents {
		switch d.ReviewStatus {
		case ReviewPending, ReviewInReview:
			stats.PendingReview++
		case ReviewApproved:
			stats.Approved++
		case ReviewRejected:
			stats.Rejected++
		}
		switch d.Semaphore {
		case SemaphoreGreen:
			stats.SemaphoreGreen++
		case SemaphoreYellow:
			stats.SemaphoreYellow++
		case SemaphoreRed:
			stats.SemaphoreRed++
		}
	}
	return stats
}

// BuildExpediente summarizes one applicant's documents against the call's requirements.
// Documents not linked to a requirement of the call are ignored.
func BuildExpediente(conv Convocatoria, p Postulante, documents []Document) Expediente {
	byRequirement := make(map[string]Document)
	for _, d := range documents {
		if d.PostulanteID != p.ID || d.ConvocatoriaID != conv.ID || d.RequiredDocumentID == "" {
			continue
		}
		byRequirement[d.RequiredDocumentID] = d
	}

	exp := Expediente{
		ID:                conv.ID + ":" + p.ID,
		PostulanteID:      p.ID,
		ApplicantName:     p.FullName(),
		ConvocatoriaID:    conv.ID,
		ConvocatoriaTitle: conv.Title,
		TotalDocs:         len(conv.RequiredDocuments),
		MissingMandatory:  make([]string, 0),
	}

	uploaded := 0
	for _, rd := range conv.RequiredDocuments {
		doc, ok := byRequirement[rd.ID]
		if ok {
			uploaded++
		}
		if ok && doc.ReviewStatus == ReviewApproved {
			exp.ApprovedDocs++
			continue
		}
		if rd.Mandatory {
			exp.MissingMandatory = append(exp.MissingMandatory, rd.Name)
		}
	}
	if exp.TotalDocs > 0 {
		exp.Progress = exp.ApprovedDocs * 100 / exp.TotalDocs
	}

	switch {
	case len(exp.MissingMandatory) == 0 && exp.TotalDocs > 0:
		exp.Status = ExpedienteComplete
	case uploaded > 0:
		exp.Status = ExpedienteInProgress
	default:
		exp.Status = ExpedienteIncomplete
	}
	return exp
}

// MatchesSearch reports whether the document's display or applicant name contains term.
func MatchesSearch(d Document, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), term) ||
		strings.Contains(strings.ToLower(d.ApplicantName), term) ||
		strings.Contains(strings.ToLower(d.Filename), term)
}
