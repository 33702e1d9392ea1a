// Package module routes generic protocol actions to the domain handler that
// materializes them as specialized records.
//
// Handlers are registered under an explicit (module type, entity) key. A
// handler only writes through the Scope it is given; the protocol lifecycle
// owns the transaction behind that Scope and commits or rolls it back
// together with the protocol transition that triggered the dispatch.
package module

import (
	"context"
	"strings"
	"time"

	id "civitas/pkg/domain"
)

// Key identifies a handler. Both parts are compared lower-cased and trimmed.
type Key struct {
	ModuleType string `json:"moduleType" yaml:"moduleType"`
	Entity     string `json:"entity" yaml:"entity"`
}

// NewKey normalizes moduleType and entity.
func NewKey(moduleType, entity string) Key {
	return Key{
		ModuleType: strings.ToLower(strings.TrimSpace(moduleType)),
		Entity:     strings.ToLower(strings.TrimSpace(entity)),
	}
}

func (k Key) String() string {
	return k.ModuleType + "/" + k.Entity
}

func (k Key) IsZero() bool {
	return k.ModuleType == "" || k.Entity == ""
}

// ProtocolRef is the protocol an action was raised for.
type ProtocolRef struct {
	ID        id.ProtocolID
	Number    string
	CitizenID *id.CitizenID
}

// Action is a transient command built by the lifecycle manager. It is never
// persisted.
type Action struct {
	Type      string
	Entity    string
	Action    string
	Data      map[string]any
	Protocol  *ProtocolRef
	ServiceID id.ServiceID
}

// Key returns the normalized handler key the action targets.
func (a Action) Key() Key {
	return NewKey(a.Type, a.Entity)
}

// Record is the persisted form of every specialized record. Handler-specific
// typed fields live in Attributes; payload fields no handler declares are kept
// verbatim in Extensions.
type Record struct {
	ID           id.RecordID    `json:"id"`
	ModuleType   string         `json:"moduleType"`
	Entity       string         `json:"entity"`
	Number       string         `json:"number"`
	Status       string         `json:"status"`
	Priority     id.Priority    `json:"priority"`
	Category     string         `json:"category,omitempty"`
	ServiceID    id.ServiceID   `json:"serviceId"`
	ProtocolID   *id.ProtocolID `json:"protocolId"`
	CitizenID    *id.CitizenID  `json:"citizenId"`
	Anonymous    bool           `json:"isAnonymous"`
	IPHash       string         `json:"ipHash,omitempty"`
	FeedbackHash string         `json:"-"`
	Attributes   map[string]any `json:"attributes"`
	Extensions   map[string]any `json:"extensions,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Key returns the handler key that produced the record.
func (r *Record) Key() Key {
	return NewKey(r.ModuleType, r.Entity)
}

// Result is what a handler returns. MessageKey and MessageArgs are resolved
// against the request locale into Message by the dispatcher.
type Result struct {
	Success      bool
	Record       *Record
	Detail       any
	Number       string
	FeedbackCode string
	MessageKey   string
	MessageArgs  []any
	Message      string
}

// Scope is the unit-of-work view a handler writes through.
type Scope interface {
	// NextNumber allocates the next {prefix}-{year}-{seq} number.
	NextNumber(ctx context.Context, prefix string) (string, error)
	CreateRecord(ctx context.Context, rec *Record) error
	UpdateRecord(ctx context.Context, rec *Record) error
}

// Handler materializes one entity of one module.
type Handler interface {
	Key() Key
	CanHandle(a Action) bool
	Execute(ctx context.Context, a Action, scope Scope) (*Result, error)
}

// PayloadSanitizer is implemented by handlers of sensitive submission types.
// It returns the payload that may be kept on the protocol and whether the
// submission is anonymous, in which case the protocol must not reference the
// submitting citizen.
type PayloadSanitizer interface {
	SanitizePayload(data map[string]any) (clean map[string]any, anonymous bool)
}

// StatusHook is implemented by handlers whose record status follows the
// protocol status.
type StatusHook interface {
	RecordStatus(protocolStatus string) (string, bool)
}

// StatusTable maps protocol statuses to record statuses. Handlers embed it
// to satisfy StatusHook.
type StatusTable map[string]string

func (t StatusTable) RecordStatus(protocolStatus string) (string, bool) {
	s, ok := t[protocolStatus]
	return s, ok
}

// Matches implements the CanHandle contract shared by every handler: the
// action's normalized (type, entity) must equal the handler key.
func Matches(h Handler, a Action) bool {
	k := h.Key()
	return !k.IsZero() && a.Key() == k
}
