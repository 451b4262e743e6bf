// Package directory holds the organizational reference data: sectors, users,
// and document types. Protocols reference these entities by ID but never own
// them.
package directory

import (
	"strings"
	"time"

	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

// Sector is an organizational unit. It owns zero or more users and is the
// origin/destination of protocols.
type Sector struct {
	ID          domain.SectorID `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewSector validates and constructs a sector. Codes are stored upper-cased;
// uniqueness is enforced by the store.
func NewSector(id domain.SectorID, name, code, description string, now time.Time) (*Sector, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sector name is required")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sector code is required")
	}
	return &Sector{
		ID:          id,
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(description),
		Active:      true,
		CreatedAt:   now,
	}, nil
}

// User is a system account. SectorID may be nil for accounts not attached to
// a sector (for example a global admin).
type User struct {
	ID             domain.UserID   `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	CredentialHash string          `json:"-"` // bcrypt hash, never serialized
	Role           domain.Role     `json:"role"`
	SectorID       domain.SectorID `json:"sector_id,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewUser validates and constructs a user. Emails are stored lower-cased;
// uniqueness is enforced by the store.
func NewUser(id domain.UserID, name, email, credentialHash string, role domain.Role, sectorID domain.SectorID, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "user name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if credentialHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential hash is required")
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}
	return &User{
		ID:             id,
		Name:           name,
		Email:          email,
		CredentialHash: credentialHash,
		Role:           role,
		SectorID:       sectorID,
		Active:         true,
		CreatedAt:      now,
	}, nil
}

// DocumentType classifies protocols (memo, official letter, ...).
type DocumentType struct {
	ID           domain.DocumentTypeID `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	DeadlineDays int                   `json:"deadline_days"`
	Active       bool                  `json:"active"`
}

const defaultDeadlineDays = 30

// NewDocumentType validates and constructs a document type. A non-positive
// deadline falls back to the default of 30 days.
func NewDocumentType(id domain.DocumentTypeID, name, description string, deadlineDays int) (*DocumentType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document type name is required")
	}
	if deadlineDays <= 0 {
		deadlineDays = defaultDeadlineDays
	}
	return &DocumentType{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(description),
		DeadlineDays: deadlineDays,
		Active:       true,
	}, nil
}
