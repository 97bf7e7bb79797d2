package service

import (
	"context"

	"gdoc/internal/domain"
	"gdoc/internal/storage"
)

type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id int64) (domain.Document, error)
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	// EditDocument runs fn on the current row and stores the result, holding the
	// document against other editors until it returns. An error from fn aborts the edit.
	EditDocument(ctx context.Context, id int64, fn func(*domain.Document) error) (domain.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	InsertAudit(ctx context.Context, documentID int64, state domain.AuditState, detail any) error
	ListAudit(ctx context.Context, documentID int64) ([]domain.AuditEntry, error)
}

type ConvocatoriaRepository interface {
	CreateConvocatoria(ctx context.Context, conv domain.Convocatoria) error
	GetConvocatoria(ctx context.Context, id string) (domain.Convocatoria, error)
	ListConvocatorias(ctx context.Context) ([]domain.Convocatoria, error)
}

type PostulanteRepository interface {
	CreatePostulante(ctx context.Context, p domain.Postulante) error
	GetPostulante(ctx context.Context, id string) (domain.Postulante, error)
	ListPostulantes(ctx context.Context, convocatoriaID string) ([]domain.Postulante, error)
	CountPostulantes(ctx context.Context) (int, error)
}

// Repository is everything the API needs from a store.
type Repository interface {
	DocumentRepository
	ConvocatoriaRepository
	PostulanteRepository
	Ping(ctx context.Context) error
}

type BlobStore interface {
	PutDocument(ctx context.Context, documentID int64, filename string, content []byte, contentType string) (string, error)
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
	DeleteDocument(ctx context.Context, objectKey string) error
}

var (
	_ Repository = (*storage.PostgresStore)(nil)
	_ Repository = (*storage.MemoryStore)(nil)
	_ BlobStore  = (*storage.MinioStore)(nil)
	_ BlobStore  = (*storage.MemoryBlobStore)(nil)
)
