package runtime

import (
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// DefaultExceptionHandler logs fatal errors and returns them unchanged.
type DefaultExceptionHandler struct {
	logger *zap.Logger
}

// NewDefaultExceptionHandler creates the default handler.
func NewDefaultExceptionHandler(logger *zap.Logger) *DefaultExceptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultExceptionHandler{logger: logger}
}

// Handle logs err with the record's field names and returns it.
func (h *DefaultExceptionHandler) Handle(err error, rec *record.Record) error {
	fields := []zap.Field{zap.Error(err), zap.String("code", cerrors.CodeOf(err))}
	if rec != nil {
		fields = append(fields, zap.Strings("record_fields", rec.Fields()))
	}
	h.logger.Error("record processing failed", fields...)
	return err
}

// SentryExceptionHandler reports fatal errors to Sentry, then delegates.
type SentryExceptionHandler struct {
	hub  *sentry.Hub
	next ExceptionHandler
}

// NewSentryExceptionHandler creates a handler reporting through hub, or the
// current hub when hub is nil. next decides the final outcome.
func NewSentryExceptionHandler(hub *sentry.Hub, next ExceptionHandler) *SentryExceptionHandler {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if next == nil {
		next = NewDefaultExceptionHandler(nil)
	}
	return &SentryExceptionHandler{hub: hub, next: next}
}

// Handle captures err and returns the delegate's decision.
func (h *SentryExceptionHandler) Handle(err error, rec *record.Record) error {
	h.hub.WithScope(func(scope *sentry.Scope) {
		if code := cerrors.CodeOf(err); code != "" {
			scope.SetTag("error_code", code)
		}
		if rec != nil {
			scope.SetContext("record", sentry.Context{"fields": rec.Fields()})
		}
		h.hub.CaptureException(err)
	})
	return h.next.Handle(err, rec)
}

// Ensure handlers implement ExceptionHandler
var (
	_ ExceptionHandler = (*DefaultExceptionHandler)(nil)
	_ ExceptionHandler = (*SentryExceptionHandler)(nil)
)
