package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newLink(t *testing.T, protocolID id.ProtocolID, citizen id.CitizenID, lt models.LinkType, at time.Time) *models.CitizenLink {
	t.Helper()
	l, err := models.NewCitizenLink(id.LinkID(uuid.New()), protocolID, citizen, lt, models.RoleOther, "",
		map[string]any{"k": "v"}, at)
	require.NoError(t, err)
	return l
}

func TestLinkStore(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	links := db.Links()
	protocolID := id.ProtocolID(uuid.New())
	citizen := id.CitizenID(uuid.New())

	first := newLink(t, protocolID, citizen, models.LinkWitness, now)
	require.NoError(t, links.Create(ctx, first))

	err := links.Create(ctx, newLink(t, protocolID, citizen, models.LinkWitness, now))
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	second := newLink(t, protocolID, citizen, models.LinkCompanion, now.Add(time.Minute))
	require.NoError(t, links.Create(ctx, second))

	t.Run("returned values are copies", func(t *testing.T) {
		got, err := links.FindByID(ctx, first.ID)
		require.NoError(t, err)
		got.ContextData["k"] = "changed"
		got.IsVerified = true

		again, err := links.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "v", again.ContextData["k"])
		assert.False(t, again.IsVerified)
	})

	t.Run("lists are ordered by creation", func(t *testing.T) {
		got, err := links.ListByProtocol(ctx, protocolID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)

		filtered, err := links.ListByCitizen(ctx, citizen, []models.LinkType{models.LinkCompanion})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, second.ID, filtered[0].ID)
	})

	t.Run("delete frees the triple", func(t *testing.T) {
		require.NoError(t, links.Delete(ctx, first.ID))
		assert.True(t, errors.Is(links.Delete(ctx, first.ID), sentinel.ErrNotFound))
		require.NoError(t, links.Create(ctx, newLink(t, protocolID, citizen, models.LinkWitness, now)))
	})
}

func TestFamilyStoreAndSnapshot(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	family := db.Family()
	head := id.CitizenID(uuid.New())
	member := id.CitizenID(uuid.New())

	edge, err := models.NewFamilyMember(id.FamilyEdgeID(uuid.New()), head, member, "spouse", false, now)
	require.NoError(t, err)
	require.NoError(t, family.Add(ctx, edge))
	assert.True(t, errors.Is(family.Add(ctx, edge), sentinel.ErrConflict))

	restore := db.Snapshot()
	require.NoError(t, family.Remove(ctx, head, member))
	_, err = family.Find(ctx, head, member)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	restore()
	got, err := family.Find(ctx, head, member)
	require.NoError(t, err)
	assert.Equal(t, "spouse", got.Relationship)

	list, err := family.ListByHead(ctx, head)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	none, err := family.ListByHead(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, none)
}
