package portal

import (
	"context"
	"fmt"
	"sync"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

const deletePrompt = "¿Eliminar este documento?"

type DocumentAPI interface {
	ListDocumentos(ctx context.Context, opts client.ListOptions) ([]domain.Document, error)
	DeleteDocumento(ctx context.Context, id int64) error
}

// DocumentList holds the staff document table. Items are only replaced by a
// successful reload, never removed optimistically.
type DocumentList struct {
	api       DocumentAPI
	confirm   Confirmer
	notifier  Notifier
	onRefresh func()

	mu      sync.RWMutex
	filter  client.ListOptions
	items   []domain.Document
	loadErr *Result
}

func NewDocumentList(api DocumentAPI, confirm Confirmer, notifier Notifier, onRefresh func()) *DocumentList {
	return &DocumentList{
		api:       api,
		confirm:   confirm,
		notifier:  notifier,
		onRefresh: onRefresh,
		items:     []domain.Document{},
	}
}

func (l *DocumentList) SetFilter(opts client.ListOptions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = opts
}

// Load fetches the collection. A failure keeps the previous items.
func (l *DocumentList) Load(ctx context.Context) error {
	l.mu.RLock()
	filter := l.filter
	l.mu.RUnlock()

	docs, err := l.api.ListDocumentos(ctx, filter)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		res := failure("Error al cargar documentos", err)
		l.loadErr = &res
		return err
	}
	l.items = docs
	l.loadErr = nil
	return nil
}

func (l *DocumentList) Items() []domain.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Document(nil), l.items...)
}

// LoadError is the last load failure, nil after a successful load.
func (l *DocumentList) LoadError() *Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadErr
}

func (l *DocumentList) Title() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("Lista de Documentos (%d)", len(l.items))
}

// Delete asks for confirmation first. Declining sends nothing.
func (l *DocumentList) Delete(ctx context.Context, id int64) Result {
	if l.confirm == nil || !l.confirm.Confirm(deletePrompt) {
		return Result{Message: "eliminación cancelada"}
	}
	if err := l.api.DeleteDocumento(ctx, id); err != nil {
		res := failure("Error al eliminar", err)
		notify(l.notifier, res)
		return res
	}
	if err := l.Load(ctx); err != nil {
		notify(l.notifier, failure("Error al cargar documentos", err))
	}
	if l.onRefresh != nil {
		l.onRefresh()
	}
	res := Result{OK: true, Message: "Documento eliminado"}
	notify(l.notifier, res)
	return res
}
