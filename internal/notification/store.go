package notification

import (
	"context"

	"sipro/pkg/domain"
)

// listLimit caps how many notifications a single read returns.
const listLimit = 50

// Store persists notifications. Reads are always scoped to the owning user;
// a notification id from another user's inbox behaves as not found.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	// ListByUser returns the user's notifications newest-first, capped at
	// listLimit.
	ListByUser(ctx context.Context, userID domain.UserID) ([]*Notification, error)
	CountUnread(ctx context.Context, userID domain.UserID) (int, error)
	MarkRead(ctx context.Context, id domain.NotificationID, userID domain.UserID) error
	MarkAllRead(ctx context.Context, userID domain.UserID) error
	Delete(ctx context.Context, id domain.NotificationID, userID domain.UserID) error
	// DeleteByProtocol removes every notification referencing a protocol.
	// Only the protocol delete cascade calls this.
	DeleteByProtocol(ctx context.Context, protocolID domain.ProtocolID) error
}
