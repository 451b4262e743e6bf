// Package store persists protocols and their routing ledger. Implementations
// come in pairs: an in-memory store for tests and development, and a
// PostgreSQL store for production. Both enforce number uniqueness and the
// append-only, newest-first ledger ordering.
package store

import (
	"context"
	"time"

	"sipro/internal/protocol/models"
	"sipro/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint". Predicates
// compose into parameterized queries; values never get spliced into SQL.
type Filter struct {
	Status              models.Status
	DestinationSectorID domain.SectorID
	DocumentTypeID      domain.DocumentTypeID
	CreatedFrom         time.Time
	CreatedTo           time.Time
	// Term matches number, subject, or description (substring,
	// case-insensitive).
	Term string
	// Visibility, when set, restricts results to protocols the viewer
	// created or whose current leg touches the viewer's sector. Privileged
	// roles leave it nil.
	Visibility *Visibility
}

// Visibility identifies a non-privileged viewer.
type Visibility struct {
	UserID   domain.UserID
	SectorID domain.SectorID
}

// ProtocolStore is the durable record of protocols and their current state.
type ProtocolStore interface {
	// Create inserts a protocol; a duplicate number surfaces
	// sentinel.ErrConflict so the engine can regenerate and retry.
	Create(ctx context.Context, p *models.Protocol) error
	FindByID(ctx context.Context, id domain.ProtocolID) (*models.Protocol, error)
	Update(ctx context.Context, p *models.Protocol) error
	// Delete removes the protocol row only; the engine cascades ledger
	// entries and notifications first, inside the same transaction.
	Delete(ctx context.Context, id domain.ProtocolID) error
	List(ctx context.Context, filter Filter) ([]*models.Protocol, error)
	// MaxSequenceForYear feeds the sequence generator.
	MaxSequenceForYear(ctx context.Context, year int) (int, error)
}

// RoutingLedger is the append-only custody trail.
type RoutingLedger interface {
	Append(ctx context.Context, entry *models.RoutingEntry) error
	// ListByProtocol returns entries newest first, timestamp ties broken by
	// insertion order.
	ListByProtocol(ctx context.Context, protocolID domain.ProtocolID) ([]*models.RoutingEntry, error)
	// DeleteByProtocol exists only for the protocol-deletion cascade.
	DeleteByProtocol(ctx context.Context, protocolID domain.ProtocolID) error
}

// Tx runs a function atomically with respect to the stores. The engine wraps
// every mutating operation in one.
type Tx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
