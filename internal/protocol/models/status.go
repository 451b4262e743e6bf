package models

import dErrors "sipro/pkg/domain-errors"

// Status is the closed set of protocol lifecycle states.
type Status string

const (
	// StatusAwaiting exists in the model for completeness; the construction
	// path goes straight to in_transit.
	StatusAwaiting  Status = "awaiting"
	StatusInTransit Status = "in_transit"
	StatusReceived  Status = "received"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a status string against the closed enumeration.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAwaiting, StatusInTransit, StatusReceived, StatusArchived:
		return Status(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", raw)
}

// CanTransitionTo encodes the state machine:
//
//	in_transit --ConfirmReceipt--> received
//	received   --Route-----------> in_transit
//	any except archived --Archive--> archived
//	archived   --Unarchive-------> received
func (s Status) CanTransitionTo(target Status) bool {
	switch target {
	case StatusReceived:
		return s == StatusInTransit || s == StatusArchived
	case StatusInTransit:
		return s == StatusReceived
	case StatusArchived:
		return s != StatusArchived
	default:
		return false
	}
}
