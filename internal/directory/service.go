package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
	"sipro/pkg/requestcontext"
)

// Hasher turns a plain password into a stored credential hash.
type Hasher func(plain string) (string, error)

// Service manages the organizational directory: sectors, users, and
// document types.
type Service struct {
	sectors  SectorStore
	users    UserStore
	docTypes DocumentTypeStore
	hash     Hasher
}

func NewService(sectors SectorStore, users UserStore, docTypes DocumentTypeStore, hash Hasher) *Service {
	return &Service{sectors: sectors, users: users, docTypes: docTypes, hash: hash}
}

func (s *Service) CreateSector(ctx context.Context, name, code, description string) (*Sector, error) {
	sector, err := NewSector(domain.SectorID(uuid.New()), name, code, description, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.sectors.Create(ctx, sector); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "sector code is already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sector")
	}
	return sector, nil
}

func (s *Service) ListSectors(ctx context.Context) ([]*Sector, error) {
	out, err := s.sectors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sectors")
	}
	return out, nil
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	SectorID domain.SectorID
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if !in.SectorID.IsNil() {
		if _, err := s.sectors.FindByID(ctx, in.SectorID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "sector not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sector")
		}
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := NewUser(domain.UserID(uuid.New()), in.Name, in.Email, hash, in.Role, in.SectorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

// DeactivateUser flips the active flag; inactive users cannot log in and
// drop out of sector notification fan-out.
func (s *Service) DeactivateUser(ctx context.Context, id domain.UserID) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	user.Active = false
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return nil
}

func (s *Service) CreateDocumentType(ctx context.Context, name, description string, deadlineDays int) (*DocumentType, error) {
	dt, err := NewDocumentType(domain.DocumentTypeID(uuid.New()), name, description, deadlineDays)
	if err != nil {
		return nil, err
	}
	if err := s.docTypes.Create(ctx, dt); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "document type name is already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document type")
	}
	return dt, nil
}

func (s *Service) ListDocumentTypes(ctx context.Context) ([]*DocumentType, error) {
	out, err := s.docTypes.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list document types")
	}
	return out, nil
}
