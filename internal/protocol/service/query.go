package service

import (
	"context"
	"time"

	"sipro/internal/access"
	"sipro/internal/protocol/models"
	"sipro/internal/protocol/store"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

// GetProtocol returns a protocol with its full routing trail, newest first.
func (s *Service) GetProtocol(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor) (*models.Protocol, []*models.RoutingEntry, error) {
	p, err := s.protocols.FindByID(ctx, protocolID)
	if err != nil {
		return nil, nil, wrapProtocolErr(err)
	}
	if !access.CanView(actor, p) {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "protocol is not visible to you")
	}
	trail, err := s.ledger.ListByProtocol(ctx, protocolID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load routing trail")
	}
	return p, trail, nil
}

// ListProtocols applies the caller's filter, restricted to what the actor
// may see: admins and operators see everything, everyone else only what
// they created or what touches their sector.
func (s *Service) ListProtocols(ctx context.Context, actor access.Actor, filter store.Filter) ([]*models.Protocol, error) {
	start := time.Now()

	if !actor.Role.Privileged() {
		filter.Visibility = &store.Visibility{UserID: actor.UserID, SectorID: actor.SectorID}
	}
	out, err := s.protocols.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list protocols")
	}

	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
	return out, nil
}
