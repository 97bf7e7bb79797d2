package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gdoc/internal/domain"
)

func (h *Handler) ListConvocatorias(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	convs, err := h.svc.Convocatorias.List(ctx)
	if err != nil {
		writeError(w, err, "failed to list convocatorias")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *Handler) CreateConvocatoria(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var draft domain.ConvocatoriaDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	conv, err := h.svc.Convocatorias.Create(ctx, draft)
	if err != nil {
		writeError(w, err, "failed to create convocatoria")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *Handler) GetConvocatoria(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	conv, err := h.svc.Convocatorias.Get(ctx, chi.URLParam(r, "convocatoriaId"))
	if err != nil {
		writeError(w, err, "failed to fetch convocatoria")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) ListPostulantes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	postulantes, err := h.svc.Postulantes.List(ctx, chi.URLParam(r, "convocatoriaId"))
	if err != nil {
		writeError(w, err, "failed to list postulantes")
		return
	}
	writeJSON(w, http.StatusOK, postulantes)
}

func (h *Handler) RegisterPostulante(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var draft domain.PostulanteDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	p, err := h.svc.Postulantes.Register(ctx, chi.URLParam(r, "convocatoriaId"), draft)
	if err != nil {
		writeError(w, err, "failed to register postulante")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListExpedientes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	expedientes, err := h.svc.Convocatorias.Expedientes(ctx, chi.URLParam(r, "convocatoriaId"))
	if err != nil {
		writeError(w, err, "failed to build expedientes")
		return
	}
	writeJSON(w, http.StatusOK, expedientes)
}

func (h *Handler) ReviewPoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.PredefinedReviewPoints)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.svc.Dashboard.Stats(ctx)
	if err != nil {
		writeError(w, err, "failed to compute dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) PortalRequirements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.svc.Portal.Requirements(ctx, chi.URLParam(r, "convocatoriaId"), chi.URLParam(r, "postulanteId"))
	if err != nil {
		writeError(w, err, "failed to list requirements")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) PortalUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	in, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	row, err := h.svc.Portal.Upload(ctx,
		chi.URLParam(r, "convocatoriaId"),
		chi.URLParam(r, "postulanteId"),
		chi.URLParam(r, "requisitoId"),
		in,
	)
	if err != nil {
		writeError(w, err, "failed to upload document")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
