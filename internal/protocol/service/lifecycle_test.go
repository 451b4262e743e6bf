package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"sipro/internal/auth"
	"sipro/internal/notification"
	"sipro/internal/protocol/models"
	"sipro/internal/protocol/sequence"
	"sipro/internal/protocol/service"
	"sipro/internal/protocol/store"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func (s *ServiceSuite) TestCreateAssignsSequentialNumbers() {
	ctx := s.ctxAt(fixedNow)

	first, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Equal("00001/2025", first.Number)
	s.Equal(models.StatusInTransit, first.Status)
	s.Equal(s.sectorX, first.OriginSectorID)
	s.Equal(s.sectorY, first.DestinationSectorID)
	s.checkInvariant(ctx, first.ID)

	second, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Equal("00002/2025", second.Number)

	trail, err := s.protocols.ListByProtocol(ctx, first.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(models.NoteCreated, trail[0].Note)
	s.Equal(s.sectorX, trail[0].OriginSectorID)
	s.Equal(s.sectorY, trail[0].DestinationSectorID)
	s.Equal(s.creator.UserID, trail[0].ActorID)

	calls := s.notifier.sectorCalls(notification.KindProtocolCreated)
	s.Require().Len(calls, 2)
	s.Equal(s.sectorY, calls[0].sectorID)
}

func (s *ServiceSuite) TestCreateSequenceRestartsPerYear() {
	_, err := s.service.Create(s.ctxAt(fixedNow), s.createInput())
	s.Require().NoError(err)

	nextYear, err := s.service.Create(s.ctxAt(fixedNow.AddDate(1, 0, 0)), s.createInput())
	s.Require().NoError(err)
	s.Equal("00001/2026", nextYear.Number)
}

func (s *ServiceSuite) TestCreateValidation() {
	ctx := s.ctxAt(fixedNow)

	s.Run("missing subject", func() {
		in := s.createInput()
		in.Subject = "   "
		_, err := s.service.Create(ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing destination", func() {
		in := s.createInput()
		in.DestinationSectorID = domain.SectorID{}
		_, err := s.service.Create(ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown destination sector", func() {
		in := s.createInput()
		in.DestinationSectorID = randomSectorID()
		_, err := s.service.Create(ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown document type", func() {
		in := s.createInput()
		in.DocumentTypeID = randomDocumentTypeID()
		_, err := s.service.Create(ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCreateRetriesOnNumberConflict() {
	wrapped := &conflictingStore{ProtocolStore: s.protocols, conflicts: 2}
	svc := s.serviceWith(wrapped)

	p, err := svc.Create(s.ctxAt(fixedNow), s.createInput())
	s.Require().NoError(err)
	s.Regexp(sequence.Pattern, p.Number)
}

func (s *ServiceSuite) TestCreateGivesUpAfterExhaustedRetries() {
	wrapped := &conflictingStore{ProtocolStore: s.protocols, conflicts: -1} // never succeeds
	svc := s.serviceWith(wrapped)

	_, err := svc.Create(s.ctxAt(fixedNow), s.createInput())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestConfirmReceipt() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.notifier.reset()

	receiptCtx := s.ctxAt(fixedNow.Add(time.Hour))
	s.Require().NoError(s.service.ConfirmReceipt(receiptCtx, p.ID, s.receiver, signingPassword))

	got, err := s.protocols.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, got.Status)
	s.Require().NotNil(got.ReceivedAt)
	s.Require().NotNil(got.ReceivedBy)
	s.Equal(s.receiver.UserID, *got.ReceivedBy)
	s.checkInvariant(ctx, p.ID)

	trail, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(models.NoteReceiptConfirmed, trail[0].Note)
	s.Equal(s.sectorY, trail[0].OriginSectorID, "signature entry stays within the destination sector")
	s.Equal(s.sectorY, trail[0].DestinationSectorID)

	creatorCalls := s.notifier.userCalls(notification.KindReceiptConfirmed)
	s.Require().Len(creatorCalls, 1)
	s.Equal(s.creator.UserID, creatorCalls[0].userID)
}

func (s *ServiceSuite) TestConfirmReceiptWrongPassword() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	err = s.service.ConfirmReceipt(ctx, p.ID, s.receiver, "wrong")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthentication), "a failed signature must not read as an expired session")
	s.False(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	got, err := s.protocols.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInTransit, got.Status, "status unchanged after a failed signature")
	trail, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Len(trail, 1, "ledger untouched after a failed signature")
}

func (s *ServiceSuite) TestConfirmReceiptGuards() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	s.Run("wrong sector", func() {
		err := s.service.ConfirmReceipt(ctx, p.ID, s.creator, signingPassword)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown protocol", func() {
		err := s.service.ConfirmReceipt(ctx, randomProtocolID(), s.receiver, signingPassword)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty credential", func() {
		err := s.service.ConfirmReceipt(ctx, p.ID, s.receiver, " ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("already received", func() {
		s.Require().NoError(s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword))
		err := s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestRouteRequiresReceipt() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	s.Run("plain user", func() {
		err := s.service.Route(ctx, p.ID, s.receiver, s.sectorZ, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("admin is not exempt from the receipt gate", func() {
		err := s.service.Route(ctx, p.ID, s.admin, s.sectorZ, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestRoute() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword))
	s.notifier.reset()

	routeCtx := s.ctxAt(fixedNow.Add(2 * time.Hour))
	s.Require().NoError(s.service.Route(routeCtx, p.ID, s.receiver, s.sectorZ, "forwarding for review"))

	got, err := s.protocols.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInTransit, got.Status)
	s.Equal(s.sectorY, got.OriginSectorID, "old destination becomes the origin")
	s.Equal(s.sectorZ, got.DestinationSectorID)
	s.Nil(got.ReceivedAt, "receipt marks cleared for the new leg")
	s.Nil(got.ReceivedBy)
	s.checkInvariant(ctx, p.ID)

	trail, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 3)
	s.Equal("forwarding for review", trail[0].Note)
	s.Equal(s.sectorY, trail[0].OriginSectorID)
	s.Equal(s.sectorZ, trail[0].DestinationSectorID)

	sectorCalls := s.notifier.sectorCalls(notification.KindProtocolRouted)
	s.Require().Len(sectorCalls, 1)
	s.Equal(s.sectorZ, sectorCalls[0].sectorID)
	creatorCalls := s.notifier.userCalls(notification.KindProtocolRouted)
	s.Require().Len(creatorCalls, 1)
	s.Equal(s.creator.UserID, creatorCalls[0].userID)
}

func (s *ServiceSuite) TestRouteForbiddenForOtherSector() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword))

	err = s.service.Route(ctx, p.ID, s.creator, s.sectorZ, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestArchiveUnarchiveRoundTrip() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Require().NoError(s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword))

	trailBefore, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Archive(ctx, p.ID, s.creator))
	got, err := s.protocols.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusArchived, got.Status)

	s.Run("re-archive is rejected", func() {
		err := s.service.Archive(ctx, p.ID, s.creator)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Require().NoError(s.service.Unarchive(ctx, p.ID, s.creator))
	got, err = s.protocols.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, got.Status, "unarchive restores received custody")
	s.checkInvariant(ctx, p.ID)

	trailAfter, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(trailBefore, trailAfter, "archival round-trip leaves the ledger unchanged")

	archiveCalls := s.notifier.userCalls(notification.KindProtocolArchived)
	s.Require().Len(archiveCalls, 1)
	s.Equal(s.creator.UserID, archiveCalls[0].userID)
}

func (s *ServiceSuite) TestArchiveForbiddenForBystander() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	err = s.service.Archive(ctx, p.ID, s.receiver)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestUnarchiveRequiresArchived() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	err = s.service.Unarchive(ctx, p.ID, s.creator)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestDeleteCascades() {
	ctx := s.ctxAt(fixedNow)
	in := s.createInput()
	in.FileRef = "uploads/doc.pdf"
	p, err := s.service.Create(ctx, in)
	s.Require().NoError(err)

	s.seedNotification(ctx, p.ID)

	s.Require().NoError(s.service.Delete(ctx, p.ID, s.creator))

	_, err = s.protocols.FindByID(ctx, p.ID)
	s.Require().Error(err)
	trail, err := s.protocols.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(trail, "no orphaned routing entries remain")
	count, err := s.inbox.CountUnread(ctx, s.receiver.UserID)
	s.Require().NoError(err)
	s.Zero(count, "no orphaned notifications remain")
	s.Equal([]string{"uploads/doc.pdf"}, s.files.deleted)
}

func (s *ServiceSuite) TestDeleteToleratesFileStoreFailure() {
	ctx := s.ctxAt(fixedNow)
	in := s.createInput()
	in.FileRef = "uploads/doc.pdf"
	p, err := s.service.Create(ctx, in)
	s.Require().NoError(err)

	s.files.fail = true
	s.Require().NoError(s.service.Delete(ctx, p.ID, s.creator), "file removal is best effort")
	_, err = s.protocols.FindByID(ctx, p.ID)
	s.Require().Error(err)
}

func (s *ServiceSuite) TestDeleteAuthorization() {
	ctx := s.ctxAt(fixedNow)

	s.Run("bystander cannot delete", func() {
		p, err := s.service.Create(ctx, s.createInput())
		s.Require().NoError(err)
		err = s.service.Delete(ctx, p.ID, s.receiver)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("creator locked out after receipt", func() {
		p, err := s.service.Create(ctx, s.createInput())
		s.Require().NoError(err)
		s.Require().NoError(s.service.ConfirmReceipt(ctx, p.ID, s.receiver, signingPassword))
		err = s.service.Delete(ctx, p.ID, s.creator)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		s.Require().NoError(s.service.Delete(ctx, p.ID, s.admin), "admin may delete regardless")
	})
}

func (s *ServiceSuite) TestConcurrentCreatesYieldDistinctNumbers() {
	const creators = 10
	ctx := s.ctxAt(fixedNow)

	var wg sync.WaitGroup
	results := make(chan string, creators)
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.service.Create(ctx, s.createInput())
			if err == nil {
				results <- p.Number
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for number := range results {
		s.Regexp(sequence.Pattern, number)
		s.False(seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	s.Len(seen, creators)
}

// TestLifecycleEndToEnd walks the canonical journey: created in sector X
// toward Y, signed in Y, routed onward to Z.
func (s *ServiceSuite) TestLifecycleEndToEnd() {
	ctx := s.ctxAt(fixedNow)

	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)
	s.Equal("00001/2025", p.Number, "first protocol of the year")

	s.Require().NoError(s.service.ConfirmReceipt(s.ctxAt(fixedNow.Add(time.Hour)), p.ID, s.receiver, signingPassword))
	s.Require().NoError(s.service.Route(s.ctxAt(fixedNow.Add(2*time.Hour)), p.ID, s.receiver, s.sectorZ, ""))

	got, trail, err := s.service.GetProtocol(ctx, p.ID, s.admin)
	s.Require().NoError(err)
	s.Equal(models.StatusInTransit, got.Status)
	s.Require().Len(trail, 3, "create, signature, and routing entries")

	// Newest first: Y->Z routing, then the Y->Y signature, then X->Y.
	s.Equal(s.sectorY, trail[0].OriginSectorID)
	s.Equal(s.sectorZ, trail[0].DestinationSectorID)
	s.Equal(s.sectorY, trail[1].OriginSectorID)
	s.Equal(s.sectorY, trail[1].DestinationSectorID)
	s.Equal(s.sectorX, trail[2].OriginSectorID)
	s.Equal(s.sectorY, trail[2].DestinationSectorID)
	s.checkInvariant(ctx, p.ID)
}

func (s *ServiceSuite) TestGetProtocolVisibility() {
	ctx := s.ctxAt(fixedNow)
	p, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	bystander := s.receiver
	bystander.SectorID = s.sectorZ
	_, _, err = s.service.GetProtocol(ctx, p.ID, bystander)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, trail, err := s.service.GetProtocol(ctx, p.ID, s.creator)
	s.Require().NoError(err)
	s.Len(trail, 1)
}

func (s *ServiceSuite) TestListProtocolsVisibility() {
	ctx := s.ctxAt(fixedNow)
	mine, err := s.service.Create(ctx, s.createInput())
	s.Require().NoError(err)

	other := s.createInput()
	other.CreatorID = s.admin.UserID
	other.CreatorSectorID = s.sectorZ
	other.DestinationSectorID = s.sectorZ
	_, err = s.service.Create(ctx, other)
	s.Require().NoError(err)

	all, err := s.service.ListProtocols(ctx, s.admin, store.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2, "admins see everything")

	visible, err := s.service.ListProtocols(ctx, s.creator, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(mine.ID, visible[0].ID)
}

func (s *ServiceSuite) serviceWith(protocols store.ProtocolStore) *service.Service {
	return service.New(
		protocols, s.protocols, s.users, s.sectors, s.docTypes, auth.CredentialVerifier{},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ServiceSuite) seedNotification(ctx context.Context, protocolID domain.ProtocolID) {
	pid := protocolID
	n := &notification.Notification{
		ID:         randomNotificationID(),
		UserID:     s.receiver.UserID,
		Kind:       notification.KindProtocolCreated,
		Title:      "t",
		Body:       "b",
		ProtocolID: &pid,
		CreatedAt:  fixedNow,
	}
	s.Require().NoError(s.inbox.Create(ctx, n))
}
