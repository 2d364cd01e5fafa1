// Package natssource feeds NATS messages into a pipeline chain as records.
package natssource

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// SubjectField holds the subject a record was received on.
const SubjectField = "message_subject"

// DefaultMimeType is used when a message carries no Content-Type header.
const DefaultMimeType = "application/octet-stream"

// Source subscribes to a subject and pushes every message through Chain.
type Source struct {
	Conn    *nats.Conn
	Subject string
	// Queue, when set, joins a queue group so instances share the subject.
	Queue string
	Chain *runtime.Chain
	// MimeType overrides DefaultMimeType for messages without Content-Type.
	MimeType string
	// BufferSize is the capacity of the delivery channel (default 256).
	BufferSize int
	Logger     *zap.Logger
}

// Run processes messages until ctx is done or the chain reports a fatal
// error. Each message is one transaction: BeginTransaction precedes it,
// CommitTransaction follows success and RollbackTransaction a fatal error.
// Dropped records are committed too; dropping is not a failure.
func (s *Source) Run(ctx context.Context) error {
	if s.Conn == nil || s.Chain == nil {
		return fmt.Errorf("natssource: connection and chain are required")
	}
	if s.Subject == "" {
		return fmt.Errorf("natssource: subject cannot be empty")
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := s.BufferSize
	if size <= 0 {
		size = 256
	}

	msgs := make(chan *nats.Msg, size)
	var sub *nats.Subscription
	var err error
	if s.Queue != "" {
		sub, err = s.Conn.ChanQueueSubscribe(s.Subject, s.Queue, msgs)
	} else {
		sub, err = s.Conn.ChanSubscribe(s.Subject, msgs)
	}
	if err != nil {
		return fmt.Errorf("natssource: subscribe to %s: %w", s.Subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Debug("unsubscribe failed", zap.Error(err))
		}
	}()

	if err := s.Chain.Notify(runtime.NewNotification(runtime.StartSession, s.Subject)); err != nil {
		return err
	}
	logger.Info("consuming", zap.String("subject", s.Subject), zap.String("queue", s.Queue))

	for {
		select {
		case <-ctx.Done():
			return s.Chain.Notify(runtime.NewNotification(runtime.Shutdown, nil))
		case msg := <-msgs:
			if err := s.handle(ctx, msg, logger); err != nil {
				return err
			}
		}
	}
}

func (s *Source) handle(ctx context.Context, msg *nats.Msg, logger *zap.Logger) error {
	if err := s.Chain.Notify(runtime.NewNotification(runtime.BeginTransaction, msg.Subject)); err != nil {
		return err
	}

	if msg.Header != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Header))
	}
	ok, err := s.Chain.ProcessContext(ctx, ToRecord(msg, s.MimeType))
	if err != nil {
		if nerr := s.Chain.Notify(runtime.NewNotification(runtime.RollbackTransaction, msg.Subject)); nerr != nil {
			logger.Error("rollback failed", zap.Error(nerr))
		}
		return err
	}
	if !ok {
		logger.Debug("record dropped", zap.String("subject", msg.Subject))
	}
	return s.Chain.Notify(runtime.NewNotification(runtime.CommitTransaction, msg.Subject))
}

// ToRecord converts msg into a record holding a copy of its payload.
func ToRecord(msg *nats.Msg, defaultMimeType string) *record.Record {
	rec := record.New()

	body := make([]byte, len(msg.Data))
	copy(body, msg.Data)
	rec.Put(record.AttachmentBody, body)

	mime := ""
	if msg.Header != nil {
		mime = msg.Header.Get("Content-Type")
	}
	if mime == "" {
		mime = defaultMimeType
	}
	if mime == "" {
		mime = DefaultMimeType
	}
	rec.Put(record.AttachmentMimeType, mime)
	rec.Put(SubjectField, msg.Subject)

	if msg.Header != nil {
		if id := msg.Header.Get(nats.MsgIdHdr); id != "" {
			rec.Put(record.ID, id)
		}
	}
	return rec
}
