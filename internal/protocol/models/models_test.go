package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newProtocol(t *testing.T) *Protocol {
	t.Helper()
	citizen := id.CitizenID(uuid.New())
	p, err := NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00001", id.ServiceID(uuid.New()), &citizen, "", nil, now)
	require.NoError(t, err)
	return p
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusReceived, StatusUnderAnalysis, true},
		{StatusUnderAnalysis, StatusPendingDocuments, true},
		{StatusPendingDocuments, StatusUnderAnalysis, true},
		{StatusUnderAnalysis, StatusApproved, true},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusRejected, true},
		{StatusPendingDocuments, StatusCancelled, true},
		{StatusReceived, StatusCompleted, false},
		{StatusUnderAnalysis, StatusReceived, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusRejected, StatusUnderAnalysis, false},
		{StatusCancelled, StatusRejected, false},
		{StatusReceived, StatusReceived, false},
		{StatusReceived, Status("ARCHIVED"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" under_analysis ")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderAnalysis, st)

	_, err = ParseStatus("archived")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestProtocolTransitionTo(t *testing.T) {
	p := newProtocol(t)
	assert.Equal(t, id.PriorityNormal, p.Priority)
	assert.False(t, p.Anonymous)

	from, err := p.TransitionTo(StatusUnderAnalysis, now)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, from)
	assert.Nil(t, p.ClosedAt)

	_, err = p.TransitionTo(StatusCompleted, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.Equal(t, StatusUnderAnalysis, p.Status)

	_, err = p.TransitionTo(StatusCancelled, now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, now.Add(time.Hour), *p.ClosedAt)
	assert.True(t, dErrors.HasCode(p.EnsureOpen(), dErrors.CodeInvalidTransition))
}

func TestNewProtocolAnonymous(t *testing.T) {
	p, err := NewProtocol(id.ProtocolID(uuid.New()), "PROT-2025-00002", id.ServiceID(uuid.New()), nil, id.PriorityHigh, nil, now)
	require.NoError(t, err)
	assert.True(t, p.Anonymous)
	assert.Nil(t, p.CitizenID)

	_, err = NewProtocol(id.ProtocolID(uuid.New()), "", id.ServiceID(uuid.New()), nil, "", nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestProtocolRaise(t *testing.T) {
	p := newProtocol(t)
	p.Raise(id.PriorityUrgent)
	assert.Equal(t, id.PriorityUrgent, p.Priority)
	p.Raise(id.PriorityLow)
	assert.Equal(t, id.PriorityUrgent, p.Priority)
}

func TestDocumentLifecycle(t *testing.T) {
	reviewer := id.UserID(uuid.New())

	t.Run("upload review approve", func(t *testing.T) {
		d, err := NewDocument(id.DocumentID(uuid.New()), id.ProtocolID(uuid.New()), "rg", "", true, now)
		require.NoError(t, err)
		assert.Equal(t, DocumentPending, d.Status)

		require.Error(t, d.StartReview(now))
		require.NoError(t, d.Upload("s3://docs/rg.pdf", now))
		require.NoError(t, d.StartReview(now))
		assert.Equal(t, DocumentUnderReview, d.Status)
		require.NoError(t, d.Review(true, "", reviewer, now))
		assert.Equal(t, DocumentApproved, d.Status)
		require.NotNil(t, d.ReviewedBy)
		assert.Equal(t, reviewer, *d.ReviewedBy)
		assert.False(t, d.BlocksApproval())

		err = d.Review(false, "late", reviewer, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		err = d.Upload("s3://docs/other.pdf", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("rejection needs reason and allows re-upload", func(t *testing.T) {
		d, err := NewDocument(id.DocumentID(uuid.New()), id.ProtocolID(uuid.New()), "cpf", "", true, now)
		require.NoError(t, err)

		err = d.Review(false, "  ", reviewer, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, DocumentPending, d.Status)

		require.NoError(t, d.Review(false, "ilegível", reviewer, now))
		assert.Equal(t, "ilegível", d.RejectionReason)
		assert.True(t, d.BlocksApproval())

		require.NoError(t, d.Upload("s3://docs/cpf-2.pdf", now))
		assert.Empty(t, d.RejectionReason)
		assert.Equal(t, DocumentUploaded, d.Status)
	})

	t.Run("type required", func(t *testing.T) {
		_, err := NewDocument(id.DocumentID(uuid.New()), id.ProtocolID(uuid.New()), " ", "", true, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestPendingRequired(t *testing.T) {
	docs := []*Document{
		{Required: true, Status: DocumentApproved},
		{Required: true, Status: DocumentRejected},
		{Required: false, Status: DocumentPending},
		{Required: true, Status: DocumentUploaded},
	}
	assert.Equal(t, 2, PendingRequired(docs))
	assert.Equal(t, 0, PendingRequired(nil))
}

func TestNewPendency(t *testing.T) {
	due := now.Add(72 * time.Hour)
	p, err := NewPendency(id.PendencyID(uuid.New()), id.ProtocolID(uuid.New()), " Enviar comprovante ",
		[]string{"Comprovante", " comprovante", "", "RG"}, id.PriorityHigh, &due, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "Enviar comprovante", p.Description)
	assert.Equal(t, []string{"Comprovante", "RG"}, p.Items)
	assert.True(t, p.Escalates())

	require.NoError(t, p.Resolve(nil, now))
	assert.True(t, dErrors.HasCode(p.Resolve(nil, now), dErrors.CodeConflict))

	past := now.Add(-48 * time.Hour)
	_, err = NewPendency(id.PendencyID(uuid.New()), id.ProtocolID(uuid.New()), "x", nil, "", &past, nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewPendency(id.PendencyID(uuid.New()), id.ProtocolID(uuid.New()), "", nil, "", nil, nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestActorPermissions(t *testing.T) {
	p := newProtocol(t)
	owner := Actor{ID: id.UserID(*p.CitizenID), Role: RoleCitizen}
	stranger := Actor{ID: id.UserID(uuid.New()), Role: RoleCitizen}
	clerk := Actor{ID: id.UserID(uuid.New()), Role: RoleClerk}
	manager := Actor{ID: id.UserID(uuid.New()), Role: RoleManager}

	assert.True(t, owner.Owns(p))
	assert.True(t, owner.CanAccess(p))
	assert.False(t, owner.CanReview())
	assert.False(t, stranger.CanAccess(p))
	assert.True(t, clerk.CanReview())
	assert.False(t, clerk.CanReject())
	assert.True(t, manager.CanReject())
	assert.False(t, clerk.Owns(p))
	assert.Nil(t, SystemActor.UserRef())

	_, err := ParseRole("system")
	assert.Error(t, err)
	r, err := ParseRole("Manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)
}

func TestVisibleTo(t *testing.T) {
	pid := id.ProtocolID(uuid.New())
	public := NewInteraction(pid, InteractionComment, SystemActor, "ok", now)
	internal := NewInteraction(pid, InteractionComment, SystemActor, "note", now)
	internal.Internal = true
	trail := []*Interaction{public, internal}

	assert.Len(t, VisibleTo(Actor{Role: RoleClerk}, trail), 2)
	assert.Equal(t, []*Interaction{public}, VisibleTo(Actor{Role: RoleCitizen}, trail))
}
