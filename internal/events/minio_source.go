package events

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

const (
	defaultReconnectDelay = 2 * time.Second
	defaultHandleAttempts = 3
)

// UploadEvent is a stored document file, keyed "<document id>/<filename>" in the bucket.
type UploadEvent struct {
	DocumentID int64
	Filename   string
	ObjectKey  string
	EventName  string
}

type Handler func(context.Context, UploadEvent) error

type UploadEventSource interface {
	Run(ctx context.Context, handler Handler) error
}

// BucketNotifier is satisfied by *minio.Client.
type BucketNotifier interface {
	ListenBucketNotification(ctx context.Context, bucketName, prefix, suffix string, events []string) <-chan notification.Info
}

var _ BucketNotifier = (*minio.Client)(nil)

// MinioUploadEventSource turns bucket notifications into UploadEvents. A closed
// or failing stream is reopened until ctx ends. A handler that keeps failing
// for one object is logged and the object skipped.
type MinioUploadEventSource struct {
	client BucketNotifier
	bucket string
	prefix string
	suffix string

	ReconnectDelay time.Duration
	HandleAttempts int
}

func NewMinioUploadEventSource(client BucketNotifier, bucket string, prefix string, suffix string) *MinioUploadEventSource {
	return &MinioUploadEventSource{
		client:         client,
		bucket:         bucket,
		prefix:         prefix,
		suffix:         suffix,
		ReconnectDelay: defaultReconnectDelay,
		HandleAttempts: defaultHandleAttempts,
	}
}

func (s *MinioUploadEventSource) Run(ctx context.Context, handler Handler) error {
	for {
		err := s.listen(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("minio notifications on bucket=%s interrupted, reconnecting: %v", s.bucket, err)
		if !wait(ctx, s.ReconnectDelay) {
			return nil
		}
	}
}

// listen consumes one notification stream and reports why it ended.
func (s *MinioUploadEventSource) listen(ctx context.Context, handler Handler) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := s.client.ListenBucketNotification(streamCtx, s.bucket, s.prefix, s.suffix, []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case info, ok := <-notifications:
			if !ok {
				return fmt.Errorf("notification stream closed")
			}
			if info.Err != nil {
				return fmt.Errorf("notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, err := eventFromKey(record.S3.Object.Key, record.EventName)
				if err != nil {
					log.Printf("ignoring object event key=%q: %v", record.S3.Object.Key, err)
					continue
				}
				s.deliver(ctx, handler, event)
			}
		}
	}
}

func (s *MinioUploadEventSource) deliver(ctx context.Context, handler Handler, event UploadEvent) {
	attempts := s.HandleAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := s.ReconnectDelay / 4
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return
		}
		if attempt >= attempts || ctx.Err() != nil {
			log.Printf("dropping upload event document_id=%d object=%s after %d attempts: %v", event.DocumentID, event.ObjectKey, attempt, err)
			return
		}
		if !wait(ctx, delay) {
			return
		}
		delay *= 2
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func eventFromKey(encodedKey, eventName string) (UploadEvent, error) {
	objectKey, err := url.QueryUnescape(encodedKey)
	if err != nil {
		return UploadEvent{}, err
	}
	documentID, filename, err := parseObjectKey(objectKey)
	if err != nil {
		return UploadEvent{}, err
	}
	return UploadEvent{
		DocumentID: documentID,
		Filename:   filename,
		ObjectKey:  strings.TrimSpace(objectKey),
		EventName:  eventName,
	}, nil
}

func parseObjectKey(objectKey string) (int64, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(strings.TrimSpace(objectKey), "\\", "/"), "/")
	id, filename, found := strings.Cut(cleaned, "/")
	if !found {
		return 0, "", fmt.Errorf("object key %q does not match document_id/filename", objectKey)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return 0, "", fmt.Errorf("object key %q missing filename", objectKey)
	}
	documentID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || documentID <= 0 {
		return 0, "", fmt.Errorf("object key %q has no numeric document id", objectKey)
	}
	return documentID, filename, nil
}
