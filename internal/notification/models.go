// Package notification persists in-app notifications and fans them out to
// sector members, with a best-effort email side channel. Dispatch is a
// fire-and-forget boundary: the lifecycle transition that triggered a
// notification has already committed, and nothing here may fail it.
package notification

import (
	"time"

	"sipro/pkg/domain"
)

// Kind labels what a notification is about.
type Kind string

const (
	KindProtocolCreated  Kind = "protocol_created"
	KindReceiptConfirmed Kind = "receipt_confirmed"
	KindProtocolRouted   Kind = "protocol_routed"
	KindProtocolArchived Kind = "protocol_archived"
	KindSystem           Kind = "system"
)

// Notification is one in-app message for one user.
type Notification struct {
	ID         domain.NotificationID `json:"id"`
	UserID     domain.UserID         `json:"user_id"`
	Kind       Kind                  `json:"kind"`
	Title      string                `json:"title"`
	Body       string                `json:"body"`
	ProtocolID *domain.ProtocolID    `json:"protocol_id,omitempty"`
	Read       bool                  `json:"read"`
	CreatedAt  time.Time             `json:"created_at"`
}

// EmailJob is one outbound email, queued by the dispatcher and consumed by
// the background worker.
type EmailJob struct {
	Recipients []string
	Subject    string
	Body       string
}
