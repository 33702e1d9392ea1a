package audit

import (
	"context"
	"time"

	id "civitas/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: a protocol
	// decision, a change in who may act on a protocol, a household change.
	// They are written inside the business transaction and must not be lost.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers denied actions and guessing, such as repeated
	// unknown feedback codes. They are buffered and written asynchronously.
	CategorySecurity EventCategory = "security"
)

type AuditEvent string

const (
	// Protocol events
	EventProtocolSubmitted AuditEvent = "protocol_submitted"
	EventProtocolApproved  AuditEvent = "protocol_approved"
	EventProtocolCompleted AuditEvent = "protocol_completed"
	EventProtocolRejected  AuditEvent = "protocol_rejected"
	EventProtocolCancelled AuditEvent = "protocol_cancelled"
	EventDocumentReviewed  AuditEvent = "document_reviewed"

	// Link and household events
	EventLinkCreated         AuditEvent = "citizen_link_created"
	EventLinkVerified        AuditEvent = "citizen_link_verified"
	EventLinkRemoved         AuditEvent = "citizen_link_removed"
	EventFamilyMemberAdded   AuditEvent = "family_member_added"
	EventFamilyMemberRemoved AuditEvent = "family_member_removed"

	// Security events
	EventPermissionDenied    AuditEvent = "permission_denied"
	EventFeedbackCodeUnknown AuditEvent = "feedback_code_unknown"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPermissionDenied:    CategorySecurity,
	EventFeedbackCodeUnknown: CategorySecurity,
}

// Category returns the EventCategory for this audit event. Events default to
// compliance.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryCompliance
}

// Event is emitted from domain logic to capture key actions. It never
// carries raw personal data: Subject is an aggregate ID and anonymous
// submissions leave ActorID empty.
type Event struct {
	Category       EventCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
	Action         string        `json:"action"`
	SubjectType    string        `json:"subjectType"`
	Subject        string        `json:"subject"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	ActorID        string        `json:"actorId,omitempty"`
	ActorRole      string        `json:"actorRole,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	RequestID      string        `json:"requestId,omitempty"`
}

// ActorString formats a user ID, leaving nil IDs empty.
func ActorString(u id.UserID) string {
	if u.IsNil() {
		return ""
	}
	return u.String()
}

// Store persists audit events. Postgres stores join the transaction carried
// by ctx, so compliance events commit or roll back with the business change.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is a stored event awaiting publication.
type OutboxEntry struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
