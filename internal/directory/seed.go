package directory

import (
	"context"
	"errors"
	"log/slog"

	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
)

// DefaultAdminEmail is the development bootstrap account. Override its
// password before exposing an instance anywhere real.
const (
	DefaultAdminEmail    = "admin@sipro.local"
	defaultAdminPassword = "admin123"
)

// Seed populates an empty directory with a default admin, a couple of
// sectors, and the common document types. Safe to run repeatedly.
func Seed(ctx context.Context, directory *Service, users UserStore, logger *slog.Logger) error {
	if _, err := users.FindByEmail(ctx, DefaultAdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	var adminSector domain.SectorID
	for _, def := range []struct{ name, code, description string }{
		{"Administration", "ADM", "central administration"},
		{"Protocol Desk", "PRO", "document intake and dispatch"},
		{"Legal", "LEG", "legal review"},
	} {
		sector, err := directory.CreateSector(ctx, def.name, def.code, def.description)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return err
		}
		if adminSector.IsNil() {
			adminSector = sector.ID
		}
	}

	for _, def := range []struct {
		name, description string
		deadlineDays      int
	}{
		{"Memorandum", "internal memo", 15},
		{"Official Letter", "external correspondence", 30},
		{"Case File", "full case dossier", 60},
	} {
		if _, err := directory.CreateDocumentType(ctx, def.name, def.description, def.deadlineDays); err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
			return err
		}
	}

	if _, err := directory.CreateUser(ctx, CreateUserInput{
		Name:     "Administrator",
		Email:    DefaultAdminEmail,
		Password: defaultAdminPassword,
		Role:     domain.RoleAdmin,
		SectorID: adminSector,
	}); err != nil {
		return err
	}

	logger.Warn("seeded default admin account, change its password",
		"email", DefaultAdminEmail)
	return nil
}
