// Package publicworks implements the public works module.
package publicworks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

const (
	ModuleType     = "public_works"
	SignageEntity  = "signage"
	PrefixSignage  = "SIN"
	statusReceived = "pending"
)

type SignageInput struct {
	Description       string          `json:"description"`
	Location          string          `json:"location"`
	Coordinates       json.RawMessage `json:"coordinates"`
	Photos            json.RawMessage `json:"photos"`
	SignageType       string          `json:"signageType"`
	Issue             string          `json:"issue"`
	TrafficImpact     string          `json:"trafficImpact"`
	NearSchool        module.Flag     `json:"nearSchool"`
	NearHospital      module.Flag     `json:"nearHospital"`
	AccidentHistory   module.Flag     `json:"accidentHistory"`
	RequestedSignType string          `json:"requestedSignType"`
	AdditionalNotes   string          `json:"additionalNotes"`
}

type SignageRequest struct {
	RequestNumber     string      `json:"requestNumber"`
	Description       string      `json:"description,omitempty"`
	Location          string      `json:"location"`
	Coordinates       string      `json:"coordinates,omitempty"`
	Photos            string      `json:"photos,omitempty"`
	SignageType       string      `json:"signageType"`
	Issue             string      `json:"issue"`
	TrafficImpact     string      `json:"trafficImpact,omitempty"`
	NearSchool        bool        `json:"nearSchool"`
	NearHospital      bool        `json:"nearHospital"`
	AccidentHistory   bool        `json:"accidentHistory"`
	RequestedSignType string      `json:"requestedSignType,omitempty"`
	AdditionalNotes   string      `json:"additionalNotes,omitempty"`
	Priority          id.Priority `json:"priority"`
	Status            string      `json:"status"`
}

// SignagePriority ranks a signage request:
// urgent when a sign is missing near a school or hospital or at a spot with
// accident history; high when a sign is damaged on a high-traffic road;
// normal when it is faded or traffic impact is medium; low otherwise.
func SignagePriority(in SignageRequest) id.Priority {
	sensitive := in.NearSchool || in.NearHospital || in.AccidentHistory
	switch {
	case sensitive && in.Issue == "missing":
		return id.PriorityUrgent
	case in.TrafficImpact == "high" && in.Issue == "damaged":
		return id.PriorityHigh
	case in.Issue == "faded" || in.TrafficImpact == "medium":
		return id.PriorityNormal
	default:
		return id.PriorityLow
	}
}

// SignageHandler registers requests for traffic and street signage.
type SignageHandler struct {
	key      module.Key
	statuses module.StatusTable
}

func NewSignageHandler() *SignageHandler {
	return &SignageHandler{
		key: module.NewKey(ModuleType, SignageEntity),
		statuses: module.StatusTable{
			"APPROVED":  "planned",
			"COMPLETED": "resolved",
			"REJECTED":  "rejected",
			"CANCELLED": "cancelled",
		},
	}
}

func (h *SignageHandler) Key() module.Key {
	return h.key
}

func (h *SignageHandler) CanHandle(a module.Action) bool {
	return module.Matches(h, a)
}

func (h *SignageHandler) RecordStatus(protocolStatus string) (string, bool) {
	return h.statuses.RecordStatus(protocolStatus)
}

func (h *SignageHandler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	var in SignageInput
	ext, err := module.Decode(a.Data, &in)
	if err != nil {
		return nil, err
	}
	if err := module.Required("location", in.Location, "signageType", in.SignageType, "issue", in.Issue); err != nil {
		return nil, err
	}

	req := SignageRequest{
		Description:       in.Description,
		Location:          in.Location,
		Coordinates:       module.JSONText(in.Coordinates),
		Photos:            module.JSONText(in.Photos),
		SignageType:       strings.ToLower(strings.TrimSpace(in.SignageType)),
		Issue:             strings.ToLower(strings.TrimSpace(in.Issue)),
		TrafficImpact:     strings.ToLower(strings.TrimSpace(in.TrafficImpact)),
		NearSchool:        bool(in.NearSchool),
		NearHospital:      bool(in.NearHospital),
		AccidentHistory:   bool(in.AccidentHistory),
		RequestedSignType: in.RequestedSignType,
		AdditionalNotes:   in.AdditionalNotes,
		Status:            statusReceived,
	}
	req.Priority = SignagePriority(req)

	number, err := scope.NextNumber(ctx, PrefixSignage)
	if err != nil {
		return nil, err
	}
	req.RequestNumber = number

	now := requestcontext.Now(ctx)
	rec := &module.Record{
		ID:         id.RecordID(uuid.New()),
		ModuleType: h.key.ModuleType,
		Entity:     h.key.Entity,
		Number:     number,
		Status:     req.Status,
		Priority:   req.Priority,
		Category:   req.SignageType,
		ServiceID:  a.ServiceID,
		Extensions: ext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if a.Protocol != nil {
		pid := a.Protocol.ID
		rec.ProtocolID = &pid
		rec.CitizenID = a.Protocol.CitizenID
	}
	if rec.Attributes, err = module.Attributes(req); err != nil {
		return nil, err
	}
	if err := scope.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return &module.Result{
		Record:      rec,
		Detail:      &req,
		Number:      number,
		MessageKey:  i18n.MsgSignageCreated,
		MessageArgs: []any{number},
	}, nil
}
