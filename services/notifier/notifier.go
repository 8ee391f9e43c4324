package notifier

import (
	"bymarket/adradar/internal/storage"
)

// Notifier is the notification collaborator consumed by the scheduler.
// Delivery failures (including a recipient having revoked access) are
// non-fatal: the scheduler logs them and moves on.
type Notifier interface {
	// Notify delivers one newly discovered ad to its subscriber.
	Notify(ownerID int64, ad storage.PersistedAd) error

	// TrimStream bounds the backlog after a cycle.
	TrimStream() error

	// Close closes the underlying connection.
	Close() error
}
