// Package portal holds the applicant and staff screen controllers: state and
// actions without rendering. Every failure ends up as a Result on a Notifier.
package portal

import (
	"errors"
	"log"

	"gdoc/internal/client"
)

// ReasonBusy marks an action refused because the same form is still submitting.
const ReasonBusy client.Reason = "busy"

type Result struct {
	OK      bool
	Message string
	Reason  client.Reason
	Fields  []string
}

type Notifier interface {
	Notify(Result)
}

type Confirmer interface {
	Confirm(prompt string) bool
}

// LogNotifier writes results to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(r Result) {
	if r.OK {
		log.Printf("portal: %s", r.Message)
		return
	}
	log.Printf("portal error reason=%s: %s", r.Reason, r.Message)
}

func failure(prefix string, err error) Result {
	res := Result{Message: err.Error(), Reason: client.ReasonOf(err)}
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		res.Message = apiErr.Message
		res.Fields = apiErr.Fields
	}
	if prefix != "" {
		res.Message = prefix + ": " + res.Message
	}
	return res
}

func notify(n Notifier, r Result) {
	if n != nil {
		n.Notify(r)
	}
}
