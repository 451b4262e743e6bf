package directory

import (
	"context"

	"sipro/pkg/domain"
)

// SectorStore persists sectors. Code uniqueness is enforced
// case-insensitively; duplicates surface sentinel.ErrAlreadyUsed.
type SectorStore interface {
	Create(ctx context.Context, sector *Sector) error
	FindByID(ctx context.Context, id domain.SectorID) (*Sector, error)
	FindByCode(ctx context.Context, code string) (*Sector, error)
	List(ctx context.Context) ([]*Sector, error)
}

// UserStore persists users. Email uniqueness is enforced case-insensitively;
// duplicates surface sentinel.ErrAlreadyUsed.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id domain.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// ListActiveBySector returns the active users of a sector, the fan-out
	// set for sector notifications.
	ListActiveBySector(ctx context.Context, sectorID domain.SectorID) ([]*User, error)
}

// DocumentTypeStore persists document types. Name uniqueness is enforced;
// duplicates surface sentinel.ErrAlreadyUsed.
type DocumentTypeStore interface {
	Create(ctx context.Context, dt *DocumentType) error
	FindByID(ctx context.Context, id domain.DocumentTypeID) (*DocumentType, error)
	List(ctx context.Context) ([]*DocumentType, error)
}
