package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civitas/internal/module"
	"civitas/internal/protocol/models"
	"civitas/internal/protocol/ports"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	db    *DB
	repos ports.Repositories
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.db = NewDB()
	s.repos = s.db.Repositories()
	s.now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) createProtocol(number string) *models.Protocol {
	p, err := models.NewProtocol(id.ProtocolID(uuid.New()), number, id.ServiceID(uuid.New()), nil,
		id.PriorityNormal, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.repos.Protocols.Create(context.Background(), p))
	return p
}

func (s *MemoryStoreSuite) TestProtocols() {
	ctx := context.Background()
	p := s.createProtocol("PROT-2025-00001")

	s.Run("duplicate tracking number", func() {
		dup, err := models.NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00001", p.ServiceID, nil, "", nil, s.now)
		s.Require().NoError(err)
		s.True(errors.Is(s.repos.Protocols.Create(ctx, dup), sentinel.ErrDuplicateNumber))
	})

	s.Run("returned values are copies", func() {
		got, err := s.repos.Protocols.FindByID(ctx, p.ID)
		s.Require().NoError(err)
		got.Status = models.StatusCompleted
		again, err := s.repos.Protocols.FindByTrackingNumber(ctx, p.TrackingNumber)
		s.Require().NoError(err)
		s.Equal(models.StatusReceived, again.Status)
	})

	s.Run("update unknown protocol", func() {
		other, err := models.NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00099", p.ServiceID, nil, "", nil, s.now)
		s.Require().NoError(err)
		s.True(errors.Is(s.repos.Protocols.Update(ctx, other), sentinel.ErrNotFound))
	})
}

func (s *MemoryStoreSuite) TestChildrenRequireProtocol() {
	ctx := context.Background()
	doc, err := models.NewDocument(id.DocumentID(uuid.New()), id.ProtocolID(uuid.New()), "rg", "", true, s.now)
	s.Require().NoError(err)
	s.True(errors.Is(s.repos.Documents.Create(ctx, doc), sentinel.ErrNotFound))

	in := models.NewInteraction(doc.ProtocolID, models.InteractionComment, models.SystemActor, "x", s.now)
	s.True(errors.Is(s.repos.Interactions.Append(ctx, in), sentinel.ErrNotFound))
}

func (s *MemoryStoreSuite) TestDocumentsAreScopedToProtocol() {
	ctx := context.Background()
	p := s.createProtocol("PROT-2025-00002")
	other := s.createProtocol("PROT-2025-00003")

	for _, typ := range []string{"rg", "cpf"} {
		doc, err := models.NewDocument(id.DocumentID(uuid.New()), p.ID, typ, "", true, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.repos.Documents.Create(ctx, doc))
	}
	docs, err := s.repos.Documents.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal("cpf", docs[0].Type)

	_, err = s.repos.Documents.FindByID(ctx, other.ID, docs[0].ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *MemoryStoreSuite) TestRecordsAndFeedback() {
	ctx := context.Background()
	rec := &module.Record{ID: id.RecordID(uuid.New()), Number: "DEN-2025-00001", FeedbackHash: "h1"}
	s.Require().NoError(s.repos.Records.Create(ctx, rec))

	s.True(errors.Is(s.repos.Records.Create(ctx, &module.Record{ID: id.RecordID(uuid.New()), Number: "DEN-2025-00001"}),
		sentinel.ErrDuplicateNumber))
	s.True(errors.Is(s.repos.Records.Create(ctx, &module.Record{ID: id.RecordID(uuid.New()), Number: "DEN-2025-00002", FeedbackHash: "h1"}),
		sentinel.ErrDuplicateCode))

	got, err := s.repos.Records.FindByFeedbackHash(ctx, "h1")
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Len(s.db.Records(), 1)
}

func (s *MemoryStoreSuite) TestRecordAttributesAreCopies() {
	ctx := context.Background()
	rec := &module.Record{ID: id.RecordID(uuid.New()), Number: "BO-2025-00001", Attributes: map[string]any{"status": "registered"}}
	s.Require().NoError(s.repos.Records.Create(ctx, rec))
	rec.Attributes["status"] = "changed"

	got, err := s.repos.Records.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	got.Attributes["status"] = "changed too"

	again, err := s.repos.Records.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("registered", again.Attributes["status"])
}

func (s *MemoryStoreSuite) TestNumberIndex() {
	ctx := context.Background()
	s.createProtocol("PROT-2025-00003")
	s.createProtocol("PROT-2025-00011")
	s.createProtocol("PROT-2024-00090")
	s.Require().NoError(s.repos.Records.Create(ctx, &module.Record{ID: id.RecordID(uuid.New()), Number: "BO-2025-00008"}))

	last, err := s.repos.Numbers.LastIssued(ctx, "PROT", 2025)
	s.Require().NoError(err)
	s.EqualValues(11, last)

	last, err = s.repos.Numbers.LastIssued(ctx, "BO", 2025)
	s.Require().NoError(err)
	s.EqualValues(8, last)

	last, err = s.repos.Numbers.LastIssued(ctx, "BO", 2024)
	s.Require().NoError(err)
	s.Zero(last)
}

func (s *MemoryStoreSuite) TestSnapshotRestore() {
	ctx := context.Background()
	restore := s.db.Snapshot()
	p := s.createProtocol("PROT-2025-00004")
	s.Require().NoError(s.repos.Interactions.Append(ctx,
		models.NewInteraction(p.ID, models.InteractionSubmitted, models.SystemActor, "", s.now)))

	restore()

	_, err := s.repos.Protocols.FindByTrackingNumber(ctx, "PROT-2025-00004")
	s.True(errors.Is(err, sentinel.ErrNotFound))
	trail, err := s.repos.Interactions.ListByProtocol(ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(trail)
}
