// Package domain holds the typed identifiers and closed enumerations shared
// by every module. IDs are distinct types over uuid.UUID so a SectorID can
// never be passed where a UserID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "sipro/pkg/domain-errors"
)

type (
	// ProtocolID identifies a tracked document.
	ProtocolID uuid.UUID
	// UserID identifies a system user.
	UserID uuid.UUID
	// SectorID identifies an organizational sector.
	SectorID uuid.UUID
	// DocumentTypeID identifies a document type.
	DocumentTypeID uuid.UUID
	// NotificationID identifies an in-system notification.
	NotificationID uuid.UUID
	// RoutingEntryID identifies one hand-off record in the routing ledger.
	RoutingEntryID uuid.UUID
)

func (id ProtocolID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id SectorID) String() string       { return uuid.UUID(id).String() }
func (id DocumentTypeID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id RoutingEntryID) String() string { return uuid.UUID(id).String() }

func (id ProtocolID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SectorID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id DocumentTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RoutingEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id must not be nil", kind)
	}
	return parsed, nil
}

// ParseProtocolID parses and validates a protocol ID from its string form.
func ParseProtocolID(raw string) (ProtocolID, error) {
	parsed, err := parseUUID(raw, "protocol")
	return ProtocolID(parsed), err
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParseSectorID parses and validates a sector ID from its string form.
func ParseSectorID(raw string) (SectorID, error) {
	parsed, err := parseUUID(raw, "sector")
	return SectorID(parsed), err
}

// ParseDocumentTypeID parses and validates a document type ID from its string form.
func ParseDocumentTypeID(raw string) (DocumentTypeID, error) {
	parsed, err := parseUUID(raw, "document type")
	return DocumentTypeID(parsed), err
}

// ParseNotificationID parses and validates a notification ID from its string form.
func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification")
	return NotificationID(parsed), err
}
