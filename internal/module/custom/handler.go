// Package custom materializes catalog-defined modules that have no
// dedicated handler. The payload is kept as-is, minus undeclared fields
// when the definition lists its fields.
package custom

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	"civitas/internal/sequence"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

// DefaultPrefix numbers custom records when a definition has none.
const DefaultPrefix = "CUS"

// Definition describes a custom module entity.
type Definition struct {
	Key      module.Key
	Prefix   string
	Required []string
	Fields   []string
}

// Handler stores custom records.
type Handler struct {
	def    Definition
	fields map[string]struct{}
}

// New validates def and builds a handler.
func New(def Definition) (*Handler, error) {
	if def.Key.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "custom module requires module type and entity")
	}
	if def.Prefix == "" {
		def.Prefix = DefaultPrefix
	}
	if !sequence.ValidPrefix(def.Prefix) {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "invalid prefix %q for %s", def.Prefix, def.Key)
	}
	h := &Handler{def: def}
	if len(def.Fields) > 0 {
		h.fields = make(map[string]struct{}, len(def.Fields)+len(def.Required))
		for _, f := range append(def.Fields, def.Required...) {
			h.fields[f] = struct{}{}
		}
	}
	return h, nil
}

func (h *Handler) Key() module.Key {
	return h.def.Key
}

func (h *Handler) CanHandle(a module.Action) bool {
	return module.Matches(h, a)
}

func (h *Handler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	for _, f := range h.def.Required {
		v, ok := a.Data[f]
		if !ok || v == nil {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %s is required", f)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %s is required", f)
		}
	}

	attrs := make(map[string]any, len(a.Data))
	var ext map[string]any
	for k, v := range a.Data {
		if _, declared := h.fields[k]; h.fields != nil && !declared {
			if ext == nil {
				ext = make(map[string]any)
			}
			ext[k] = v
			continue
		}
		attrs[k] = v
	}

	number, err := scope.NextNumber(ctx, h.def.Prefix)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	rec := &module.Record{
		ID:         id.RecordID(uuid.New()),
		ModuleType: h.def.Key.ModuleType,
		Entity:     h.def.Key.Entity,
		Number:     number,
		Status:     "pending",
		Priority:   id.PriorityNormal,
		ServiceID:  a.ServiceID,
		Attributes: attrs,
		Extensions: ext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if a.Protocol != nil {
		pid := a.Protocol.ID
		rec.ProtocolID = &pid
		rec.CitizenID = a.Protocol.CitizenID
	}
	if err := scope.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return &module.Result{
		Record:      rec,
		Detail:      attrs,
		Number:      number,
		MessageKey:  i18n.MsgCustomRecordCreated,
		MessageArgs: []any{number},
	}, nil
}
