package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"sipro/internal/directory"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
	"sipro/pkg/requestcontext"
)

// Dispatcher persists notifications and fans sector notifications out to
// every active member, queueing one email per fan-out. Every entry point is
// best effort: failures are logged and swallowed so the committed lifecycle
// transition that triggered them is never affected.
type Dispatcher struct {
	store  Store
	users  directory.UserStore
	cache  *UnreadCache
	mail   chan<- EmailJob
	logger *slog.Logger
}

func NewDispatcher(store Store, users directory.UserStore, cache *UnreadCache, mail chan<- EmailJob, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, users: users, cache: cache, mail: mail, logger: logger}
}

// NotifyUser writes one notification row for the user.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID domain.UserID, kind Kind, title, body string, protocolID *domain.ProtocolID) {
	n := &Notification{
		ID:         domain.NotificationID(uuid.New()),
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Body:       body,
		ProtocolID: protocolID,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := d.store.Create(ctx, n); err != nil {
		d.logger.Error("notification write failed", "user_id", userID, "kind", kind, "error", err)
		return
	}
	d.invalidate(ctx, userID)
}

// NotifySector writes one notification row per active sector member and
// queues a single email to the sector's user list.
func (d *Dispatcher) NotifySector(ctx context.Context, sectorID domain.SectorID, kind Kind, title, body string, protocolID *domain.ProtocolID) {
	members, err := d.users.ListActiveBySector(ctx, sectorID)
	if err != nil {
		d.logger.Error("sector fan-out lookup failed", "sector_id", sectorID, "error", err)
		return
	}

	recipients := make([]string, 0, len(members))
	for _, member := range members {
		d.NotifyUser(ctx, member.ID, kind, title, body, protocolID)
		recipients = append(recipients, member.Email)
	}
	d.enqueueEmail(EmailJob{Recipients: recipients, Subject: title, Body: body})
}

func (d *Dispatcher) enqueueEmail(job EmailJob) {
	if d.mail == nil || len(job.Recipients) == 0 {
		return
	}
	select {
	case d.mail <- job:
	default:
		d.logger.Warn("email queue full, dropping message", "subject", job.Subject)
	}
}

func (d *Dispatcher) invalidate(ctx context.Context, userID domain.UserID) {
	if err := d.cache.Invalidate(ctx, userID); err != nil {
		d.logger.Warn("unread cache invalidation failed", "user_id", userID, "error", err)
	}
}

// Service exposes a user's inbox: listing, unread badge count, read marks,
// and deletion. Reads go through the unread cache where one exists.
type Service struct {
	store  Store
	cache  *UnreadCache
	logger *slog.Logger
}

func NewService(store Store, cache *UnreadCache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, userID domain.UserID) ([]*Notification, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list notifications")
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID domain.UserID) (int, error) {
	if count, ok, err := s.cache.Get(ctx, userID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.logger.Warn("unread cache read failed", "user_id", userID, "error", err)
	}

	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not count unread notifications")
	}
	if err := s.cache.Set(ctx, userID, count); err != nil {
		s.logger.Warn("unread cache write failed", "user_id", userID, "error", err)
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, id domain.NotificationID, userID domain.UserID) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		return s.translate(err, "could not mark notification read")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID domain.UserID) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not mark notifications read")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id domain.NotificationID, userID domain.UserID) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return s.translate(err, "could not delete notification")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) translate(err error, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

func (s *Service) invalidate(ctx context.Context, userID domain.UserID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("unread cache invalidation failed", "user_id", userID, "error", err)
	}
}
