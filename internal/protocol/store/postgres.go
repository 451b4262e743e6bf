package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sipro/internal/protocol/models"
	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
	txcontext "sipro/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements ProtocolStore and RoutingLedger over PostgreSQL.
// All methods honor a transaction placed in the context by PostgresTx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const protocolColumns = `id, number, document_type_id, subject, description, file_ref,
	creator_id, origin_sector_id, destination_sector_id, status,
	received_at, received_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Protocol) error {
	query := `
		INSERT INTO protocols (` + protocolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID.String(), p.Number, p.DocumentTypeID.String(), p.Subject, p.Description, p.FileRef,
		p.CreatorID.String(), p.OriginSectorID.String(), p.DestinationSectorID.String(), string(p.Status),
		p.ReceivedAt, receivedByParam(p.ReceivedBy), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert protocol: %w", err)
	}
	return nil
}

func receivedByParam(by *domain.UserID) any {
	if by == nil {
		return nil
	}
	return by.String()
}

func scanProtocol(row interface{ Scan(...any) error }) (*models.Protocol, error) {
	var (
		p             models.Protocol
		rawID         string
		rawDocTypeID  string
		rawCreatorID  string
		rawOriginID   string
		rawDestID     string
		rawStatus     string
		receivedAt    sql.NullTime
		rawReceivedBy sql.NullString
	)
	err := row.Scan(&rawID, &p.Number, &rawDocTypeID, &p.Subject, &p.Description, &p.FileRef,
		&rawCreatorID, &rawOriginID, &rawDestID, &rawStatus,
		&receivedAt, &rawReceivedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	id, err := domain.ParseProtocolID(rawID)
	if err != nil {
		return nil, err
	}
	docTypeID, err := domain.ParseDocumentTypeID(rawDocTypeID)
	if err != nil {
		return nil, err
	}
	creatorID, err := domain.ParseUserID(rawCreatorID)
	if err != nil {
		return nil, err
	}
	originID, err := domain.ParseSectorID(rawOriginID)
	if err != nil {
		return nil, err
	}
	destID, err := domain.ParseSectorID(rawDestID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	p.ID = id
	p.DocumentTypeID = docTypeID
	p.CreatorID = creatorID
	p.OriginSectorID = originID
	p.DestinationSectorID = destID
	p.Status = status
	if receivedAt.Valid {
		t := receivedAt.Time
		p.ReceivedAt = &t
	}
	if rawReceivedBy.Valid {
		by, err := domain.ParseUserID(rawReceivedBy.String)
		if err != nil {
			return nil, err
		}
		p.ReceivedBy = &by
	}
	return &p, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProtocolID) (*models.Protocol, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+protocolColumns+` FROM protocols WHERE id = $1`, id.String())
	p, err := scanProtocol(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find protocol by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Protocol) error {
	query := `
		UPDATE protocols SET
			origin_sector_id = $2,
			destination_sector_id = $3,
			status = $4,
			received_at = $5,
			received_by = $6,
			updated_at = $7
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID.String(), p.OriginSectorID.String(), p.DestinationSectorID.String(), string(p.Status),
		p.ReceivedAt, receivedByParam(p.ReceivedBy), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update protocol: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update protocol: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.ProtocolID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM protocols WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete protocol: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete protocol: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// List composes filter predicates into one parameterized query. Values are
// always bound, never concatenated into the SQL text.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.Protocol, error) {
	var (
		predicates []string
		args       []any
	)
	bind := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Visibility != nil {
		user := bind(filter.Visibility.UserID.String())
		sector := bind(filter.Visibility.SectorID.String())
		predicates = append(predicates, fmt.Sprintf(
			"(creator_id = %s OR destination_sector_id = %s OR origin_sector_id = %s)", user, sector, sector))
	}
	if filter.Status != "" {
		predicates = append(predicates, "status = "+bind(string(filter.Status)))
	}
	if !filter.DestinationSectorID.IsNil() {
		predicates = append(predicates, "destination_sector_id = "+bind(filter.DestinationSectorID.String()))
	}
	if !filter.DocumentTypeID.IsNil() {
		predicates = append(predicates, "document_type_id = "+bind(filter.DocumentTypeID.String()))
	}
	if !filter.CreatedFrom.IsZero() {
		predicates = append(predicates, "created_at >= "+bind(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		predicates = append(predicates, "created_at <= "+bind(filter.CreatedTo))
	}
	if filter.Term != "" {
		term := bind("%" + filter.Term + "%")
		predicates = append(predicates, fmt.Sprintf(
			"(number ILIKE %s OR subject ILIKE %s OR description ILIKE %s)", term, term, term))
	}

	query := `SELECT ` + protocolColumns + ` FROM protocols`
	if len(predicates) > 0 {
		query += " WHERE " + strings.Join(predicates, " AND ")
	}
	query += " ORDER BY created_at DESC, number DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list protocols: %w", err)
	}
	defer rows.Close()

	var out []*models.Protocol
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan protocol: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MaxSequenceForYear(ctx context.Context, year int) (int, error) {
	query := `
		SELECT COALESCE(MAX(CAST(split_part(number, '/', 1) AS INTEGER)), 0)
		FROM protocols
		WHERE split_part(number, '/', 2) = $1
	`
	var max int
	if err := s.execer(ctx).QueryRowContext(ctx, query, fmt.Sprintf("%04d", year)).Scan(&max); err != nil {
		return 0, fmt.Errorf("max sequence for year: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.RoutingEntry) error {
	query := `
		INSERT INTO routing_entries (id, protocol_id, origin_sector_id, destination_sector_id, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		entry.ID.String(), entry.ProtocolID.String(), entry.OriginSectorID.String(),
		entry.DestinationSectorID.String(), entry.ActorID.String(), entry.Note, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("append routing entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProtocol(ctx context.Context, protocolID domain.ProtocolID) ([]*models.RoutingEntry, error) {
	query := `
		SELECT id, protocol_id, origin_sector_id, destination_sector_id, actor_id, note, seq, created_at
		FROM routing_entries
		WHERE protocol_id = $1
		ORDER BY created_at DESC, seq DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, protocolID.String())
	if err != nil {
		return nil, fmt.Errorf("list routing entries: %w", err)
	}
	defer rows.Close()

	var out []*models.RoutingEntry
	for rows.Next() {
		var (
			entry       models.RoutingEntry
			rawID       string
			rawProtocol string
			rawOrigin   string
			rawDest     string
			rawActor    string
		)
		if err := rows.Scan(&rawID, &rawProtocol, &rawOrigin, &rawDest, &rawActor, &entry.Note, &entry.Seq, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan routing entry: %w", err)
		}
		entryID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse routing entry id: %w", err)
		}
		entry.ID = domain.RoutingEntryID(entryID)
		pid, err := domain.ParseProtocolID(rawProtocol)
		if err != nil {
			return nil, err
		}
		origin, err := domain.ParseSectorID(rawOrigin)
		if err != nil {
			return nil, err
		}
		dest, err := domain.ParseSectorID(rawDest)
		if err != nil {
			return nil, err
		}
		actor, err := domain.ParseUserID(rawActor)
		if err != nil {
			return nil, err
		}
		entry.ProtocolID = pid
		entry.OriginSectorID = origin
		entry.DestinationSectorID = dest
		entry.ActorID = actor
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteByProtocol(ctx context.Context, protocolID domain.ProtocolID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM routing_entries WHERE protocol_id = $1`, protocolID.String())
	if err != nil {
		return fmt.Errorf("delete routing entries: %w", err)
	}
	return nil
}
