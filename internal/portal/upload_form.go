package portal

import (
	"context"
	"strings"
	"sync"
	"time"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

const (
	SuccessDisplay = 3000 * time.Millisecond
	uploadedMsg    = "Documento subido correctamente"
)

type Uploader interface {
	CreateDocumento(ctx context.Context, up client.Upload) (domain.Document, error)
}

// UploadForm is the document upload form. At most one submission is in flight.
type UploadForm struct {
	api       Uploader
	notifier  Notifier
	onSuccess func(domain.Document)

	// after schedules fn after d and returns a stop function.
	after func(d time.Duration, fn func()) func() bool

	mu                 sync.Mutex
	filename           string
	content            []byte
	issueDate          string
	expiryDate         string
	userDocumentNumber string
	submitting         bool
	success            bool
	lastErr            *Result
	stopSuccess        func() bool
	// successGen identifies the success display a pending timer belongs to.
	successGen uint64
}

func NewUploadForm(api Uploader, notifier Notifier, onSuccess func(domain.Document)) *UploadForm {
	return &UploadForm{
		api:       api,
		notifier:  notifier,
		onSuccess: onSuccess,
		after: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
	}
}

func (f *UploadForm) SetFile(filename string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filename = filename
	f.content = content
}

func (f *UploadForm) SetMetadata(issueDate, expiryDate, userDocumentNumber string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issueDate = issueDate
	f.expiryDate = expiryDate
	f.userDocumentNumber = userDocumentNumber
}

func (f *UploadForm) Metadata() (issueDate, expiryDate, userDocumentNumber string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueDate, f.expiryDate, f.userDocumentNumber
}

func (f *UploadForm) Filename() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filename
}

func (f *UploadForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *UploadForm) Success() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.success
}

// Error is the last failure shown by the form, nil after a success.
func (f *UploadForm) Error() *Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Submit sends the form. Without a file no request is made. On failure every
// field is kept; on success they are cleared and Success stays set for SuccessDisplay.
func (f *UploadForm) Submit(ctx context.Context) Result {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Result{Reason: ReasonBusy, Message: "ya hay un envío en curso"}
	}
	if f.filename == "" || len(f.content) == 0 {
		res := Result{Reason: client.ReasonValidation, Message: "Debes seleccionar un archivo", Fields: []string{"archivo"}}
		f.lastErr = &res
		f.mu.Unlock()
		notify(f.notifier, res)
		return res
	}
	up := client.Upload{
		Filename:           f.filename,
		Content:            f.content,
		IssueDate:          strings.TrimSpace(f.issueDate),
		ExpiryDate:         strings.TrimSpace(f.expiryDate),
		UserDocumentNumber: strings.TrimSpace(f.userDocumentNumber),
	}
	f.submitting = true
	f.success = false
	f.successGen++
	f.lastErr = nil
	if f.stopSuccess != nil {
		f.stopSuccess()
		f.stopSuccess = nil
	}
	f.mu.Unlock()

	doc, err := f.api.CreateDocumento(ctx, up)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		res := failure("", err)
		f.lastErr = &res
		f.mu.Unlock()
		notify(f.notifier, res)
		return res
	}
	f.filename = ""
	f.content = nil
	f.issueDate = ""
	f.expiryDate = ""
	f.userDocumentNumber = ""
	f.success = true
	f.successGen++
	gen := f.successGen
	f.stopSuccess = f.after(SuccessDisplay, func() { f.clearSuccess(gen) })
	f.mu.Unlock()

	res := Result{OK: true, Message: uploadedMsg}
	notify(f.notifier, res)
	if f.onSuccess != nil {
		f.onSuccess(doc)
	}
	return res
}

// clearSuccess ends the success display started as gen. A timer that fired
// after a newer submission began is ignored.
func (f *UploadForm) clearSuccess(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.successGen {
		return
	}
	f.success = false
	f.stopSuccess = nil
}
