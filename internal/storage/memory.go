package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gdoc/internal/domain"
)

// MemoryStore keeps every collection in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	nextID        int64
	docs          map[int64]domain.Document
	convocatorias map[string]domain.Convocatoria
	postulantes   map[string]domain.Postulante
	audit         map[int64][]domain.AuditEntry
	editing       map[int64]*sync.Mutex
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:          make(map[int64]domain.Document),
		convocatorias: make(map[string]domain.Convocatoria),
		postulantes:   make(map[string]domain.Postulante),
		audit:         make(map[int64][]domain.AuditEntry),
		editing:       make(map[int64]*sync.Mutex),
		now:           time.Now,
	}
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.HoldsRequirement() {
		for _, existing := range m.docs {
			if domain.SameRequirement(existing, *doc) {
				return fmt.Errorf("document %d: %w", existing.ID, domain.ErrRequirementTaken)
			}
		}
	}
	m.nextID++
	doc.ID = m.nextID
	m.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id int64) (domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return m.withApplicant(doc), nil
}

func (m *MemoryStore) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		doc = m.withApplicant(doc)
		if filter.Matches(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// EditDocument runs fn on the stored document and saves the result. Edits of one
// document are serialized, so fn may do slow work such as storing the file while
// other writers of that document wait. fn must not call back into the store.
func (m *MemoryStore) EditDocument(ctx context.Context, id int64, fn func(*domain.Document) error) (domain.Document, error) {
	lock := m.editLock(id)
	lock.Lock()
	defer lock.Unlock()

	doc, err := m.GetDocument(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if err := fn(&doc); err != nil {
		return domain.Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	doc.ID = id
	doc.PostulanteID = existing.PostulanteID
	doc.ConvocatoriaID = existing.ConvocatoriaID
	doc.RequiredDocumentID = existing.RequiredDocumentID
	m.docs[id] = cloneDocument(doc)
	return m.withApplicant(doc), nil
}

func (m *MemoryStore) editLock(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.editing[id]
	if !ok {
		lock = &sync.Mutex{}
		m.editing[id] = lock
	}
	return lock
}

func (m *MemoryStore) DeleteDocument(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	delete(m.editing, id)
	return nil
}

func (m *MemoryStore) InsertAudit(_ context.Context, documentID int64, state domain.AuditState, detail any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := domain.AuditEntry{DocumentID: documentID, State: state, CreatedAt: m.now()}
	if d, ok := detail.(map[string]any); ok {
		entry.Detail = d
	}
	m.audit[documentID] = append(m.audit[documentID], entry)
	return nil
}

func (m *MemoryStore) ListAudit(_ context.Context, documentID int64) ([]domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.AuditEntry{}, m.audit[documentID]...), nil
}

func (m *MemoryStore) CreateConvocatoria(_ context.Context, conv domain.Convocatoria) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convocatorias[conv.ID]; ok {
		return fmt.Errorf("convocatoria %s already exists", conv.ID)
	}
	conv.Applicants = nil
	conv.RequiredDocuments = append([]domain.RequiredDocument{}, conv.RequiredDocuments...)
	m.convocatorias[conv.ID] = conv
	return nil
}

func (m *MemoryStore) GetConvocatoria(_ context.Context, id string) (domain.Convocatoria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.convocatorias[id]
	if !ok {
		return domain.Convocatoria{}, domain.ErrNotFound
	}
	return m.withApplicantsCount(conv), nil
}

func (m *MemoryStore) ListConvocatorias(_ context.Context) ([]domain.Convocatoria, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Convocatoria, 0, len(m.convocatorias))
	for _, conv := range m.convocatorias {
		out = append(out, m.withApplicantsCount(conv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.After(out[j].StartDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CreatePostulante(_ context.Context, p domain.Postulante) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convocatorias[p.ConvocatoriaID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := m.postulantes[p.ID]; ok {
		return fmt.Errorf("postulante %s already exists", p.ID)
	}
	m.postulantes[p.ID] = p
	return nil
}

func (m *MemoryStore) GetPostulante(_ context.Context, id string) (domain.Postulante, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.postulantes[id]
	if !ok {
		return domain.Postulante{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListPostulantes(_ context.Context, convocatoriaID string) ([]domain.Postulante, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Postulante, 0)
	for _, p := range m.postulantes {
		if convocatoriaID == "" || p.ConvocatoriaID == convocatoriaID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaRegistro.Equal(out[j].FechaRegistro.Time) {
			return out[i].FechaRegistro.Before(out[j].FechaRegistro)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CountPostulantes(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.postulantes), nil
}

// withApplicant resolves the applicant's display name. Callers hold the lock.
func (m *MemoryStore) withApplicant(doc domain.Document) domain.Document {
	doc = cloneDocument(doc)
	if p, ok := m.postulantes[doc.PostulanteID]; ok {
		doc.ApplicantName = p.FullName()
	}
	return doc
}

func (m *MemoryStore) withApplicantsCount(conv domain.Convocatoria) domain.Convocatoria {
	count := 0
	for _, p := range m.postulantes {
		if p.ConvocatoriaID == conv.ID {
			count++
		}
	}
	conv.ApplicantsCount = count
	conv.RequiredDocuments = append([]domain.RequiredDocument{}, conv.RequiredDocuments...)
	return conv
}

func cloneDocument(doc domain.Document) domain.Document {
	doc.SemaphoreReasons = append([]string{}, doc.SemaphoreReasons...)
	return doc
}

// MemoryBlobStore keeps uploaded files in memory under the same key layout as MinioStore.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (b *MemoryBlobStore) PutDocument(_ context.Context, documentID int64, filename string, content []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := ObjectKey(documentID, filename)
	b.objects[key] = append([]byte(nil), content...)
	return key, nil
}

func (b *MemoryBlobStore) GetDocument(_ context.Context, objectKey string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	content, ok := b.objects[objectKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

func (b *MemoryBlobStore) DeleteDocument(_ context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objectKey)
	return nil
}
