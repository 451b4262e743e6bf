package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sipro/internal/access"
	"sipro/internal/notification"
	"sipro/internal/protocol/models"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
	"sipro/pkg/requestcontext"
)

// maxNumberAttempts bounds how often Create regenerates a protocol number
// after a uniqueness conflict before giving up.
const maxNumberAttempts = 5

// CreateInput carries everything Create needs. The creator's sector becomes
// the origin of the first leg.
type CreateInput struct {
	CreatorID           domain.UserID
	CreatorSectorID     domain.SectorID
	DocumentTypeID      domain.DocumentTypeID
	Subject             string
	Description         string
	DestinationSectorID domain.SectorID
	FileRef             string
}

// Create assigns the next protocol number, inserts the protocol in transit
// toward its destination, and appends the first routing entry, all in one
// transaction. Number assignment is a read-then-write hazard: on a
// uniqueness conflict the whole transaction is retried with a fresh number.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Protocol, error) {
	start := time.Now()

	if err := s.checkCreateRefs(ctx, in); err != nil {
		return nil, err
	}

	var created *models.Protocol
	for attempt := 1; ; attempt++ {
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			now := requestcontext.Now(txCtx)
			number, err := s.generator.Next(txCtx, now.Year())
			if err != nil {
				return err
			}
			p, err := models.NewProtocol(
				domain.ProtocolID(uuid.New()), number, in.DocumentTypeID,
				in.Subject, in.Description, in.FileRef,
				in.CreatorID, in.CreatorSectorID, in.DestinationSectorID, now,
			)
			if err != nil {
				return err
			}
			if err := s.protocols.Create(txCtx, p); err != nil {
				return err
			}
			entry := models.NewRoutingEntry(
				domain.RoutingEntryID(uuid.New()), p.ID,
				p.OriginSectorID, p.DestinationSectorID, in.CreatorID,
				models.NoteCreated, now,
			)
			if err := s.ledger.Append(txCtx, entry); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record routing entry")
			}
			created = p
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < maxNumberAttempts {
			if s.metrics != nil {
				s.metrics.NumberConflicts.Inc()
			}
			continue
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "could not assign a unique protocol number")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ProtocolsCreated.Inc()
		s.metrics.ObserveCreate(start)
	}
	s.logger.InfoContext(ctx, "protocol created",
		"protocol_id", created.ID, "number", created.Number, "destination_sector_id", created.DestinationSectorID)

	s.notifySector(ctx, created.DestinationSectorID, notification.KindProtocolCreated,
		fmt.Sprintf("New protocol %s", created.Number),
		fmt.Sprintf("Protocol %s (%s) was sent to your sector.", created.Number, created.Subject),
		created.ID)
	return created, nil
}

func (s *Service) checkCreateRefs(ctx context.Context, in CreateInput) error {
	if in.DestinationSectorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "destination sector is required")
	}
	if in.DocumentTypeID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "document type is required")
	}
	if _, err := s.sectors.FindByID(ctx, in.DestinationSectorID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "destination sector not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load destination sector")
	}
	if _, err := s.docTypes.FindByID(ctx, in.DocumentTypeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document type not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document type")
	}
	return nil
}

// ConfirmReceipt marks the protocol received by the acting user after
// re-authenticating their credential. The credential check is a digital
// signature, separate from session validity: a mismatch surfaces the
// authentication code so the boundary reports a failed signature, not an
// expired login.
func (s *Service) ConfirmReceipt(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return dErrors.New(dErrors.CodeValidation, "credential is required to sign the receipt")
	}

	var received *models.Protocol
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.protocols.FindByID(txCtx, protocolID)
		if err != nil {
			return wrapProtocolErr(err)
		}
		if !access.CanReceive(actor, p) {
			return dErrors.New(dErrors.CodeForbidden, "protocol is not addressed to your sector")
		}
		if err := p.CanConfirmReceipt(); err != nil {
			return err
		}

		user, err := s.users.FindByID(txCtx, actor.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "acting user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load acting user")
		}
		if err := s.verifier.Verify(credential, user.CredentialHash); err != nil {
			if s.metrics != nil {
				s.metrics.SignatureFailures.Inc()
			}
			return err
		}

		now := requestcontext.Now(txCtx)
		p.ApplyReceipt(actor.UserID, now)
		if err := s.protocols.Update(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protocol")
		}
		entry := models.NewRoutingEntry(
			domain.RoutingEntryID(uuid.New()), p.ID,
			p.DestinationSectorID, p.DestinationSectorID, actor.UserID,
			models.NoteReceiptConfirmed, now,
		)
		if err := s.ledger.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record routing entry")
		}
		received = p
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ReceiptsConfirmed.Inc()
	}
	s.logger.InfoContext(ctx, "receipt confirmed",
		"protocol_id", received.ID, "number", received.Number, "received_by", actor.UserID)

	s.notifyUser(ctx, received.CreatorID, notification.KindReceiptConfirmed,
		fmt.Sprintf("Protocol %s received", received.Number),
		fmt.Sprintf("Receipt of protocol %s was confirmed by its destination sector.", received.Number),
		received.ID)
	return nil
}

// Route hands a received protocol off to a new destination sector. Custody
// must have been explicitly confirmed first; that gate holds for admins too.
func (s *Service) Route(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor, newDestinationID domain.SectorID, note string) error {
	if newDestinationID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "new destination sector is required")
	}
	if _, err := s.sectors.FindByID(ctx, newDestinationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "destination sector not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load destination sector")
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = models.NoteRouted
	}

	var routed *models.Protocol
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.protocols.FindByID(txCtx, protocolID)
		if err != nil {
			return wrapProtocolErr(err)
		}
		if !access.CanRoute(actor, p) {
			return dErrors.New(dErrors.CodeForbidden, "protocol is not held by your sector")
		}
		if err := p.CanRoute(); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		oldDestination := p.DestinationSectorID
		p.ApplyRoute(newDestinationID, now)
		if err := s.protocols.Update(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protocol")
		}
		entry := models.NewRoutingEntry(
			domain.RoutingEntryID(uuid.New()), p.ID,
			oldDestination, newDestinationID, actor.UserID,
			note, now,
		)
		if err := s.ledger.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record routing entry")
		}
		routed = p
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ProtocolsRouted.Inc()
	}
	s.logger.InfoContext(ctx, "protocol routed",
		"protocol_id", routed.ID, "number", routed.Number, "destination_sector_id", newDestinationID)

	s.notifySector(ctx, newDestinationID, notification.KindProtocolRouted,
		fmt.Sprintf("Protocol %s routed to your sector", routed.Number),
		fmt.Sprintf("Protocol %s (%s) is on its way to your sector.", routed.Number, routed.Subject),
		routed.ID)
	s.notifyUser(ctx, routed.CreatorID, notification.KindProtocolRouted,
		fmt.Sprintf("Protocol %s routed onward", routed.Number),
		fmt.Sprintf("Protocol %s was routed to a new sector.", routed.Number),
		routed.ID)
	return nil
}

// Archive shelves a protocol. Archiving an archived protocol is rejected,
// keeping Archive and Unarchive symmetric.
func (s *Service) Archive(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor) error {
	var archived *models.Protocol
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.protocols.FindByID(txCtx, protocolID)
		if err != nil {
			return wrapProtocolErr(err)
		}
		if !access.CanArchive(actor, p) {
			return dErrors.New(dErrors.CodeForbidden, "only the creator may archive this protocol")
		}
		if err := p.CanArchive(); err != nil {
			return err
		}
		p.ApplyArchive(requestcontext.Now(txCtx))
		if err := s.protocols.Update(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protocol")
		}
		archived = p
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyUser(ctx, archived.CreatorID, notification.KindProtocolArchived,
		fmt.Sprintf("Protocol %s archived", archived.Number),
		fmt.Sprintf("Protocol %s (%s) was archived.", archived.Number, archived.Subject),
		archived.ID)
	return nil
}

// Unarchive restores an archived protocol to received: its receipt marks
// were never cleared, so custody picks up where it left off.
func (s *Service) Unarchive(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.protocols.FindByID(txCtx, protocolID)
		if err != nil {
			return wrapProtocolErr(err)
		}
		if !access.CanArchive(actor, p) {
			return dErrors.New(dErrors.CodeForbidden, "only the creator may unarchive this protocol")
		}
		if err := p.CanUnarchive(); err != nil {
			return err
		}
		p.ApplyUnarchive(requestcontext.Now(txCtx))
		if err := s.protocols.Update(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update protocol")
		}
		return nil
	})
}

// Delete removes a protocol with its routing entries and notifications in
// one transaction. Admins may delete anything; the creator only while no
// receipt was ever confirmed. The external file is removed best effort.
func (s *Service) Delete(ctx context.Context, protocolID domain.ProtocolID, actor access.Actor) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.protocols.FindByID(txCtx, protocolID)
		if err != nil {
			return wrapProtocolErr(err)
		}
		if !access.CanDelete(actor, p) {
			return dErrors.New(dErrors.CodeForbidden, "protocol cannot be deleted after receipt was confirmed")
		}

		if s.notifications != nil {
			if err := s.notifications.DeleteByProtocol(txCtx, p.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete protocol notifications")
			}
		}
		if err := s.ledger.DeleteByProtocol(txCtx, p.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete routing entries")
		}
		if p.FileRef != "" {
			if err := s.files.Delete(txCtx, p.FileRef); err != nil {
				s.logger.WarnContext(txCtx, "file removal failed",
					"protocol_id", p.ID, "file_ref", p.FileRef, "error", err)
			}
		}
		if err := s.protocols.Delete(txCtx, p.ID); err != nil {
			return wrapProtocolErr(err)
		}
		return nil
	})
}
