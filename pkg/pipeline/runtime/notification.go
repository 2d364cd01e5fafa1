package runtime

import "fmt"

// NotificationKind identifies a lifecycle event.
type NotificationKind uint8

const (
	// BeginTransaction marks the start of a unit of work.
	BeginTransaction NotificationKind = iota + 1
	// CommitTransaction marks the successful end of a unit of work.
	CommitTransaction
	// RollbackTransaction marks the abandonment of a unit of work.
	RollbackTransaction
	// StartSession marks the start of a new input session (e.g. a new file).
	StartSession
	// Shutdown tells commands to release their resources.
	Shutdown
)

func (k NotificationKind) String() string {
	switch k {
	case BeginTransaction:
		return "begin_transaction"
	case CommitTransaction:
		return "commit_transaction"
	case RollbackTransaction:
		return "rollback_transaction"
	case StartSession:
		return "start_session"
	case Shutdown:
		return "shutdown"
	}
	return fmt.Sprintf("notification(%d)", uint8(k))
}

// Notification is an out-of-band lifecycle event. It never carries a record.
type Notification struct {
	Kind    NotificationKind
	Payload any
}

// NewNotification creates a notification of kind with an optional payload.
func NewNotification(kind NotificationKind, payload any) Notification {
	return Notification{Kind: kind, Payload: payload}
}
