//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sipro/internal/directory"
	"sipro/internal/protocol/models"
	"sipro/internal/protocol/store"
	"sipro/pkg/domain"
	"sipro/pkg/platform/sentinel"
	"sipro/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore

	docTypeID domain.DocumentTypeID
	creatorID domain.UserID
	originID  domain.SectorID
	destID    domain.SectorID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"notifications", "routing_entries", "protocols", "users", "document_types", "sectors"))
	s.seedDirectory(ctx)
}

func (s *PostgresStoreSuite) seedDirectory(ctx context.Context) {
	now := time.Now()
	sectors := directory.NewPostgresSectorStore(s.postgres.DB)
	users := directory.NewPostgresUserStore(s.postgres.DB)
	types := directory.NewPostgresDocumentTypeStore(s.postgres.DB)

	origin, err := directory.NewSector(domain.SectorID(uuid.New()), "Origin", "ORG", "", now)
	s.Require().NoError(err)
	s.Require().NoError(sectors.Create(ctx, origin))
	dest, err := directory.NewSector(domain.SectorID(uuid.New()), "Destination", "DST", "", now)
	s.Require().NoError(err)
	s.Require().NoError(sectors.Create(ctx, dest))

	creator, err := directory.NewUser(domain.UserID(uuid.New()), "Creator", "creator@example.com", "$2a$10$hash", domain.RoleUser, origin.ID, now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(ctx, creator))

	docType, err := directory.NewDocumentType(domain.DocumentTypeID(uuid.New()), "Memo", "", 30)
	s.Require().NoError(err)
	s.Require().NoError(types.Create(ctx, docType))

	s.docTypeID = docType.ID
	s.creatorID = creator.ID
	s.originID = origin.ID
	s.destID = dest.ID
}

func (s *PostgresStoreSuite) newProtocol(number string) *models.Protocol {
	p, err := models.NewProtocol(
		domain.ProtocolID(uuid.New()), number, s.docTypeID,
		"Subject "+number, "", "",
		s.creatorID, s.originID, s.destID, time.Now(),
	)
	s.Require().NoError(err)
	return p
}

// TestConcurrentNumberUniqueness verifies that concurrent inserts with the
// same protocol number result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentNumberUniqueness() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newProtocol("00001/2025"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict")
}

func (s *PostgresStoreSuite) TestRoundTripAndReceiptMarks() {
	ctx := context.Background()
	p := s.newProtocol("00001/2025")
	s.Require().NoError(s.store.Create(ctx, p))

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Number, found.Number)
	s.Nil(found.ReceivedAt)
	s.Nil(found.ReceivedBy)

	found.ApplyReceipt(s.creatorID, time.Now())
	s.Require().NoError(s.store.Update(ctx, found))

	found, err = s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, found.Status)
	s.Require().NotNil(found.ReceivedAt)
	s.Require().NotNil(found.ReceivedBy)
	s.Equal(s.creatorID, *found.ReceivedBy)
}

func (s *PostgresStoreSuite) TestMaxSequenceForYear() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newProtocol("00007/2025")))
	s.Require().NoError(s.store.Create(ctx, s.newProtocol("00042/2024")))

	max, err := s.store.MaxSequenceForYear(ctx, 2025)
	s.Require().NoError(err)
	s.Equal(7, max)

	max, err = s.store.MaxSequenceForYear(ctx, 2023)
	s.Require().NoError(err)
	s.Zero(max)
}

func (s *PostgresStoreSuite) TestLedgerOrdering() {
	ctx := context.Background()
	p := s.newProtocol("00001/2025")
	s.Require().NoError(s.store.Create(ctx, p))

	base := time.Now().Truncate(time.Microsecond)
	first := models.NewRoutingEntry(domain.RoutingEntryID(uuid.New()), p.ID, s.originID, s.destID, s.creatorID, "first", base)
	second := models.NewRoutingEntry(domain.RoutingEntryID(uuid.New()), p.ID, s.destID, s.destID, s.creatorID, "second", base)
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	entries, err := s.store.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	// Equal timestamps: insertion order breaks the tie, newest first.
	s.Equal("second", entries[0].Note)
	s.Equal("first", entries[1].Note)
}
