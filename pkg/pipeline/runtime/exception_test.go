package runtime

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/record"
)

func TestDefaultExceptionHandler_LogsAndReturns(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := NewDefaultExceptionHandler(zap.New(core))

	rec := record.New()
	rec.Put("b", 1)
	rec.Put("a", 2)
	err := cerrors.NewError(cerrors.CodeMaxDepth, "too deep", cerrors.ErrMaxDepth)

	got := handler.Handle(err, rec)
	assert.Same(t, err, got)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "record processing failed", entry.Message)
	assert.Equal(t, cerrors.CodeMaxDepth, entry.ContextMap()["code"])
	assert.Equal(t, []any{"a", "b"}, entry.ContextMap()["record_fields"])
}

func TestSentryExceptionHandler_CapturesThenDelegates(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	delegated := 0
	handler := NewSentryExceptionHandler(hub, ExceptionHandlerFunc(func(err error, rec *record.Record) error {
		delegated++
		return nil
	}))

	rec := record.New()
	rec.Put("id", "r1")
	fatal := cerrors.NewError(cerrors.CodeUnsupportedKind, "kind 42", cerrors.ErrUnsupportedKind)

	assert.NoError(t, handler.Handle(fatal, rec))
	assert.Equal(t, 1, delegated)

	require.Len(t, events, 1)
	assert.Equal(t, cerrors.CodeUnsupportedKind, events[0].Tags["error_code"])
	assert.Equal(t, []string{"id"}, events[0].Contexts["record"]["fields"])
}

func TestSentryExceptionHandler_DefaultDelegate(t *testing.T) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event { return nil },
	})
	require.NoError(t, err)

	handler := NewSentryExceptionHandler(sentry.NewHub(client, sentry.NewScope()), nil)
	boom := errors.New("boom")
	assert.Equal(t, boom, handler.Handle(boom, nil))
}
