package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
	txcontext "sipro/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store over PostgreSQL. All methods honor a
// transaction placed in the context.
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

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, body, protocol_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		n.ID.String(), n.UserID.String(), string(n.Kind), n.Title, n.Body,
		protocolIDParam(n.ProtocolID), n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func protocolIDParam(id *domain.ProtocolID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, protocol_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID.String(), listLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row interface{ Scan(...any) error }) (*Notification, error) {
	var (
		n             Notification
		rawID         string
		rawUserID     string
		rawKind       string
		rawProtocolID sql.NullString
	)
	err := row.Scan(&rawID, &rawUserID, &rawKind, &n.Title, &n.Body, &rawProtocolID, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan notification id: %w", err)
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("scan notification user id: %w", err)
	}
	n.ID = domain.NotificationID(id)
	n.UserID = domain.UserID(userID)
	n.Kind = Kind(rawKind)
	if rawProtocolID.Valid {
		pid, err := uuid.Parse(rawProtocolID.String)
		if err != nil {
			return nil, fmt.Errorf("scan notification protocol id: %w", err)
		}
		protocolID := domain.ProtocolID(pid)
		n.ProtocolID = &protocolID
	}
	return &n, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID domain.UserID) (int, error) {
	var count int
	query := `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`
	if err := s.execer(ctx).QueryRowContext(ctx, query, userID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, id domain.NotificationID, userID domain.UserID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID domain.UserID) error {
	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`
	if _, err := s.execer(ctx).ExecContext(ctx, query, userID.String()); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.NotificationID, userID domain.UserID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteByProtocol(ctx context.Context, protocolID domain.ProtocolID) error {
	query := `DELETE FROM notifications WHERE protocol_id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, protocolID.String()); err != nil {
		return fmt.Errorf("delete notifications for protocol: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
