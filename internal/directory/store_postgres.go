package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
	txcontext "sipro/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// PostgresSectorStore persists sectors in PostgreSQL.
type PostgresSectorStore struct {
	db *sql.DB
}

func NewPostgresSectorStore(db *sql.DB) *PostgresSectorStore {
	return &PostgresSectorStore{db: db}
}

func (s *PostgresSectorStore) Create(ctx context.Context, sector *Sector) error {
	query := `
		INSERT INTO sectors (id, name, code, description, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		sector.ID.String(), sector.Name, sector.Code, sector.Description, sector.Active, sector.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert sector: %w", err)
	}
	return nil
}

const sectorColumns = `id, name, code, description, active, created_at`

func scanSector(row interface{ Scan(...any) error }) (*Sector, error) {
	var (
		sector Sector
		rawID  string
	)
	if err := row.Scan(&rawID, &sector.Name, &sector.Code, &sector.Description, &sector.Active, &sector.CreatedAt); err != nil {
		return nil, err
	}
	id, err := domain.ParseSectorID(rawID)
	if err != nil {
		return nil, err
	}
	sector.ID = id
	return &sector, nil
}

func (s *PostgresSectorStore) FindByID(ctx context.Context, id domain.SectorID) (*Sector, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+sectorColumns+` FROM sectors WHERE id = $1`, id.String())
	sector, err := scanSector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sector by id: %w", err)
	}
	return sector, nil
}

func (s *PostgresSectorStore) FindByCode(ctx context.Context, code string) (*Sector, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+sectorColumns+` FROM sectors WHERE upper(code) = upper($1)`, code)
	sector, err := scanSector(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sector by code: %w", err)
	}
	return sector, nil
}

func (s *PostgresSectorStore) List(ctx context.Context) ([]*Sector, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+sectorColumns+` FROM sectors ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var out []*Sector
	for rows.Next() {
		sector, err := scanSector(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		out = append(out, sector)
	}
	return out, rows.Err()
}

// PostgresUserStore persists users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, name, email, credential_hash, role, sector_id, active, created_at`

func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, credential_hash, role, sector_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		user.ID.String(), user.Name, user.Email, user.CredentialHash, string(user.Role),
		nullableID(user.SectorID.IsNil(), user.SectorID.String()), user.Active, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, credential_hash = $4, role = $5, sector_id = $6, active = $7
		WHERE id = $1
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		user.ID.String(), user.Name, user.Email, user.CredentialHash, string(user.Role),
		nullableID(user.SectorID.IsNil(), user.SectorID.String()), user.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullableID(isNil bool, s string) any {
	if isNil {
		return nil
	}
	return s
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		user        User
		rawID       string
		rawRole     string
		rawSectorID sql.NullString
	)
	if err := row.Scan(&rawID, &user.Name, &user.Email, &user.CredentialHash, &rawRole, &rawSectorID, &user.Active, &user.CreatedAt); err != nil {
		return nil, err
	}
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, err
	}
	user.ID = id
	user.Role = domain.Role(rawRole)
	if rawSectorID.Valid {
		sectorID, err := domain.ParseSectorID(rawSectorID.String)
		if err != nil {
			return nil, err
		}
		user.SectorID = sectorID
	}
	return &user, nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id domain.UserID) (*User, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) ListActiveBySector(ctx context.Context, sectorID domain.SectorID) ([]*User, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE sector_id = $1 AND active ORDER BY email`, sectorID.String())
	if err != nil {
		return nil, fmt.Errorf("list sector users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// PostgresDocumentTypeStore persists document types in PostgreSQL.
type PostgresDocumentTypeStore struct {
	db *sql.DB
}

func NewPostgresDocumentTypeStore(db *sql.DB) *PostgresDocumentTypeStore {
	return &PostgresDocumentTypeStore{db: db}
}

const documentTypeColumns = `id, name, description, deadline_days, active`

func (s *PostgresDocumentTypeStore) Create(ctx context.Context, dt *DocumentType) error {
	query := `
		INSERT INTO document_types (id, name, description, deadline_days, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		dt.ID.String(), dt.Name, dt.Description, dt.DeadlineDays, dt.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document type: %w", err)
	}
	return nil
}

func scanDocumentType(row interface{ Scan(...any) error }) (*DocumentType, error) {
	var (
		dt    DocumentType
		rawID string
	)
	if err := row.Scan(&rawID, &dt.Name, &dt.Description, &dt.DeadlineDays, &dt.Active); err != nil {
		return nil, err
	}
	id, err := domain.ParseDocumentTypeID(rawID)
	if err != nil {
		return nil, err
	}
	dt.ID = id
	return &dt, nil
}

func (s *PostgresDocumentTypeStore) FindByID(ctx context.Context, id domain.DocumentTypeID) (*DocumentType, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentTypeColumns+` FROM document_types WHERE id = $1`, id.String())
	dt, err := scanDocumentType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document type by id: %w", err)
	}
	return dt, nil
}

func (s *PostgresDocumentTypeStore) List(ctx context.Context) ([]*DocumentType, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx,
		`SELECT `+documentTypeColumns+` FROM document_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	var out []*DocumentType
	for rows.Next() {
		dt, err := scanDocumentType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}
