package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	appTemporal "gdoc/internal/temporal"
)

// WorkflowStarter is the part of the Temporal client the handler needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// ReviewStarter starts one review workflow per uploaded document file.
type ReviewStarter struct {
	Client           WorkflowStarter
	TaskQueue        string
	WorkflowIDPrefix string
	Timeout          time.Duration
}

// Handle is an UploadEventSource handler. A workflow already running for the
// document is not an error.
func (s *ReviewStarter) Handle(parent context.Context, event UploadEvent) error {
	workflowID := appTemporal.WorkflowID(s.WorkflowIDPrefix, event.DocumentID)
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	execCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	_, err := s.Client.ExecuteWorkflow(execCtx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: s.TaskQueue,
	}, appTemporal.DocumentReviewWorkflowName, appTemporal.WorkflowInput{
		DocumentID: event.DocumentID,
		Filename:   event.Filename,
		ObjectKey:  event.ObjectKey,
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			log.Printf("workflow already started for object=%s workflow_id=%s", event.ObjectKey, workflowID)
			return nil
		}
		return fmt.Errorf("start workflow for object %s: %w", event.ObjectKey, err)
	}

	log.Printf("started workflow workflow_id=%s object=%s", workflowID, event.ObjectKey)
	return nil
}
