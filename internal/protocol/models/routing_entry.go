package models

import (
	"time"

	"sipro/pkg/domain"
)

// Ledger notes recorded on the transitions that change custody.
const (
	NoteCreated          = "protocol created and sent"
	NoteReceiptConfirmed = "receipt confirmed via digital signature (password verified)"
	NoteRouted           = "routed onward"
)

// RoutingEntry is one immutable hand-off record in a protocol's ledger.
// Entries are append-only: never updated, never deleted individually, only
// cascaded away with the protocol itself.
type RoutingEntry struct {
	ID                  domain.RoutingEntryID `json:"id"`
	ProtocolID          domain.ProtocolID     `json:"protocol_id"`
	OriginSectorID      domain.SectorID       `json:"origin_sector_id"`
	DestinationSectorID domain.SectorID       `json:"destination_sector_id"`
	ActorID             domain.UserID         `json:"actor_id"`
	Note                string                `json:"note,omitempty"`
	// Seq breaks timestamp ties; the store assigns it monotonically at
	// append time.
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRoutingEntry constructs a hand-off record.
func NewRoutingEntry(
	id domain.RoutingEntryID,
	protocolID domain.ProtocolID,
	origin, destination domain.SectorID,
	actor domain.UserID,
	note string,
	now time.Time,
) *RoutingEntry {
	return &RoutingEntry{
		ID:                  id,
		ProtocolID:          protocolID,
		OriginSectorID:      origin,
		DestinationSectorID: destination,
		ActorID:             actor,
		Note:                note,
		CreatedAt:           now,
	}
}
