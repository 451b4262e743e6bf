// Package service is the protocol lifecycle engine. Every mutating operation
// runs as one atomic transaction spanning the protocol row and the routing
// ledger; notifications are dispatched only after the transaction commits.
package service

import (
	"context"
	"errors"
	"log/slog"

	"sipro/internal/directory"
	"sipro/internal/notification"
	"sipro/internal/protocol/metrics"
	"sipro/internal/protocol/sequence"
	"sipro/internal/protocol/store"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
)

// UserFinder resolves the acting user for receipt re-authentication.
type UserFinder interface {
	FindByID(ctx context.Context, id domain.UserID) (*directory.User, error)
}

// SectorFinder checks that referenced sectors exist.
type SectorFinder interface {
	FindByID(ctx context.Context, id domain.SectorID) (*directory.Sector, error)
}

// DocumentTypeFinder checks that referenced document types exist.
type DocumentTypeFinder interface {
	FindByID(ctx context.Context, id domain.DocumentTypeID) (*directory.DocumentType, error)
}

// CredentialVerifier compares a plain credential against a stored hash. A
// mismatch must carry the authentication error code, not the unauthorized
// one: a failed signature never invalidates the caller's session.
type CredentialVerifier interface {
	Verify(plain, hash string) error
}

// FileStore deletes an uploaded file by its opaque reference. Failures are
// logged, never fatal: the protocol delete proceeds without the file.
type FileStore interface {
	Delete(ctx context.Context, ref string) error
}

// NopFileStore is used when no file backend is configured.
type NopFileStore struct{}

func (NopFileStore) Delete(context.Context, string) error { return nil }

// Notifier receives post-commit lifecycle events. Implementations are fire
// and forget.
type Notifier interface {
	NotifyUser(ctx context.Context, userID domain.UserID, kind notification.Kind, title, body string, protocolID *domain.ProtocolID)
	NotifySector(ctx context.Context, sectorID domain.SectorID, kind notification.Kind, title, body string, protocolID *domain.ProtocolID)
}

// NotificationPurger removes a protocol's notifications during the deletion
// cascade.
type NotificationPurger interface {
	DeleteByProtocol(ctx context.Context, protocolID domain.ProtocolID) error
}

// Service orchestrates the protocol lifecycle.
type Service struct {
	protocols store.ProtocolStore
	ledger    store.RoutingLedger
	users     UserFinder
	sectors   SectorFinder
	docTypes  DocumentTypeFinder
	verifier  CredentialVerifier
	generator *sequence.Generator
	tx        store.Tx

	notifier      Notifier
	notifications NotificationPurger
	files         FileStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier, purger NotificationPurger) Option {
	return func(s *Service) {
		s.notifier = n
		s.notifications = purger
	}
}

func WithFileStore(fs FileStore) Option {
	return func(s *Service) {
		s.files = fs
	}
}

func WithTx(tx store.Tx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs the lifecycle engine. Without WithTx it falls back to the
// in-memory transaction runner, which is only safe with the in-memory
// stores.
func New(
	protocols store.ProtocolStore,
	ledger store.RoutingLedger,
	users UserFinder,
	sectors SectorFinder,
	docTypes DocumentTypeFinder,
	verifier CredentialVerifier,
	opts ...Option,
) *Service {
	s := &Service{
		protocols: protocols,
		ledger:    ledger,
		users:     users,
		sectors:   sectors,
		docTypes:  docTypes,
		verifier:  verifier,
		generator: sequence.NewGenerator(protocols),
		files:     NopFileStore{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = store.NewInMemoryTx()
	}
	return s
}

func wrapProtocolErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "protocol not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load protocol")
}

func (s *Service) notifyUser(ctx context.Context, userID domain.UserID, kind notification.Kind, title, body string, protocolID domain.ProtocolID) {
	if s.notifier == nil {
		return
	}
	pid := protocolID
	s.notifier.NotifyUser(ctx, userID, kind, title, body, &pid)
}

func (s *Service) notifySector(ctx context.Context, sectorID domain.SectorID, kind notification.Kind, title, body string, protocolID domain.ProtocolID) {
	if s.notifier == nil {
		return
	}
	pid := protocolID
	s.notifier.NotifySector(ctx, sectorID, kind, title, body, &pid)
}
