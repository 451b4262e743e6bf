package models

import (
	"strings"
	"time"

	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

// Protocol is the aggregate root for a tracked document.
//
// Invariants:
//   - Number is globally unique and immutable once assigned
//   - Status is one of the four Status values
//   - ReceivedAt and ReceivedBy are set iff Status == received
//   - OriginSectorID/DestinationSectorID always reference the current leg
//     of the document's journey; history lives in the routing ledger
type Protocol struct {
	ID                  domain.ProtocolID     `json:"id"`
	Number              string                `json:"number"`
	DocumentTypeID      domain.DocumentTypeID `json:"document_type_id"`
	Subject             string                `json:"subject"`
	Description         string                `json:"description,omitempty"`
	FileRef             string                `json:"file_ref,omitempty"`
	CreatorID           domain.UserID         `json:"creator_id"`
	OriginSectorID      domain.SectorID       `json:"origin_sector_id"`
	DestinationSectorID domain.SectorID       `json:"destination_sector_id"`
	Status              Status                `json:"status"`
	ReceivedAt          *time.Time            `json:"received_at,omitempty"`
	ReceivedBy          *domain.UserID        `json:"received_by,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// NewProtocol validates and constructs a protocol in transit toward its
// destination sector. The number comes from the sequence generator inside
// the same transaction that persists the row.
func NewProtocol(
	id domain.ProtocolID,
	number string,
	documentTypeID domain.DocumentTypeID,
	subject, description, fileRef string,
	creatorID domain.UserID,
	originSectorID, destinationSectorID domain.SectorID,
	now time.Time,
) (*Protocol, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if documentTypeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "document type is required")
	}
	if destinationSectorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "destination sector is required")
	}
	if originSectorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "creator has no sector to send from")
	}
	return &Protocol{
		ID:                  id,
		Number:              number,
		DocumentTypeID:      documentTypeID,
		Subject:             subject,
		Description:         strings.TrimSpace(description),
		FileRef:             fileRef,
		CreatorID:           creatorID,
		OriginSectorID:      originSectorID,
		DestinationSectorID: destinationSectorID,
		Status:              StatusInTransit,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// CanConfirmReceipt checks the receipt-confirmation guard.
func (p *Protocol) CanConfirmReceipt() error {
	if p.Status == StatusReceived {
		return dErrors.New(dErrors.CodeInvalidState, "protocol was already confirmed received")
	}
	if p.Status != StatusInTransit {
		return dErrors.Newf(dErrors.CodeInvalidState, "protocol cannot be received while %s", p.Status)
	}
	return nil
}

// ApplyReceipt marks the protocol received by the given user. Call
// CanConfirmReceipt first.
func (p *Protocol) ApplyReceipt(by domain.UserID, now time.Time) {
	p.Status = StatusReceived
	p.ReceivedAt = &now
	p.ReceivedBy = &by
	p.UpdatedAt = now
}

// CanRoute checks the routing guard: custody must have been explicitly
// confirmed before the document moves on. This holds for every role,
// including admins.
func (p *Protocol) CanRoute() error {
	if p.Status == StatusArchived {
		return dErrors.New(dErrors.CodeInvalidState, "an archived protocol cannot be routed")
	}
	if p.Status != StatusReceived {
		return dErrors.New(dErrors.CodeInvalidState, "protocol must be received (signed) before routing onward")
	}
	return nil
}

// ApplyRoute hands the protocol off to a new destination sector: the old
// destination becomes the origin and the receipt marks are cleared. Call
// CanRoute first.
func (p *Protocol) ApplyRoute(newDestination domain.SectorID, now time.Time) {
	p.OriginSectorID = p.DestinationSectorID
	p.DestinationSectorID = newDestination
	p.Status = StatusInTransit
	p.ReceivedAt = nil
	p.ReceivedBy = nil
	p.UpdatedAt = now
}

// CanArchive checks the archival guard. Re-archiving is rejected; the
// original system was inconsistent here and the strict reading keeps
// Archive/Unarchive symmetric.
func (p *Protocol) CanArchive() error {
	if p.Status == StatusArchived {
		return dErrors.New(dErrors.CodeInvalidState, "protocol is already archived")
	}
	return nil
}

// ApplyArchive archives the protocol. Call CanArchive first.
func (p *Protocol) ApplyArchive(now time.Time) {
	p.Status = StatusArchived
	p.UpdatedAt = now
}

// CanUnarchive checks the unarchival guard.
func (p *Protocol) CanUnarchive() error {
	if p.Status != StatusArchived {
		return dErrors.New(dErrors.CodeInvalidState, "protocol is not archived")
	}
	return nil
}

// ApplyUnarchive restores an archived protocol to the state it was archived
// from. Receipt marks are never cleared by archival, so a protocol with marks
// goes back to received and one archived mid-transit goes back to in_transit.
func (p *Protocol) ApplyUnarchive(now time.Time) {
	if p.ReceivedAt != nil && p.ReceivedBy != nil {
		p.Status = StatusReceived
	} else {
		p.Status = StatusInTransit
	}
	p.UpdatedAt = now
}

// WasReceived reports whether custody was ever confirmed. Deletion by a
// non-admin creator is blocked once this is true.
func (p *Protocol) WasReceived() bool {
	return p.Status == StatusReceived || p.ReceivedAt != nil
}

// CheckReceiptInvariant verifies that ReceivedAt/ReceivedBy are set iff
// the status is received. Tests call this after every transition.
func (p *Protocol) CheckReceiptInvariant() error {
	marked := p.ReceivedAt != nil && p.ReceivedBy != nil
	if p.Status == StatusReceived && !marked {
		return dErrors.New(dErrors.CodeInvariantViolation, "received protocol is missing receipt marks")
	}
	if p.Status == StatusInTransit && (p.ReceivedAt != nil || p.ReceivedBy != nil) {
		return dErrors.New(dErrors.CodeInvariantViolation, "in-transit protocol carries receipt marks")
	}
	return nil
}
