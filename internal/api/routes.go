package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API under prefix. Trailing slashes are optional on every route.
func NewRouter(h *Handler, prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route(prefix, func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/puntos-revision", h.ReviewPoints)
		r.Get("/dashboard", h.Dashboard)

		r.Route("/documentos", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Route("/{documentId}", func(r chi.Router) {
				r.Get("/", h.GetDocument)
				r.Patch("/", h.UpdateDocument)
				r.Delete("/", h.DeleteDocument)
				r.Get("/archivo", h.DocumentFile)
				r.Get("/historial", h.DocumentHistory)
				r.Post("/revision", h.ReviewDocument)
			})
		})

		r.Route("/convocatorias", func(r chi.Router) {
			r.Get("/", h.ListConvocatorias)
			r.Post("/", h.CreateConvocatoria)
			r.Route("/{convocatoriaId}", func(r chi.Router) {
				r.Get("/", h.GetConvocatoria)
				r.Get("/postulantes", h.ListPostulantes)
				r.Post("/postulantes", h.RegisterPostulante)
				r.Get("/expedientes", h.ListExpedientes)
			})
		})

		r.Route("/portal/convocatorias/{convocatoriaId}/postulantes/{postulanteId}/requisitos", func(r chi.Router) {
			r.Get("/", h.PortalRequirements)
			r.Post("/{requisitoId}/archivo", h.PortalUpload)
		})
	})

	return r
}
