package security

import (
	"context"
	"encoding/json"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

const PatrolRequestEntity = "patrol_request"

type PatrolRequestInput struct {
	Type            string          `json:"type"`
	Reason          string          `json:"reason"`
	Location        string          `json:"location"`
	Area            string          `json:"area"`
	Coordinates     json.RawMessage `json:"coordinates"`
	Frequency       string          `json:"frequency"`
	RequestedDate   string          `json:"requestedDate"`
	RequestedTime   string          `json:"requestedTime"`
	Duration        string          `json:"duration"`
	RecentIncidents int             `json:"recentIncidents"`
	RequesterName   string          `json:"requesterName"`
	RequesterPhone  string          `json:"requesterPhone"`
}

type PatrolRequest struct {
	RequestNumber   string      `json:"requestNumber"`
	PatrolType      string      `json:"patrolType"`
	Reason          string      `json:"reason"`
	Location        string      `json:"location"`
	Area            string      `json:"area,omitempty"`
	Coordinates     string      `json:"coordinates,omitempty"`
	Frequency       string      `json:"frequency,omitempty"`
	RequestedDate   string      `json:"requestedDate,omitempty"`
	RequestedTime   string      `json:"requestedTime,omitempty"`
	Duration        string      `json:"duration,omitempty"`
	RecentIncidents int         `json:"recentIncidents"`
	RequesterName   string      `json:"requesterName,omitempty"`
	RequesterPhone  string      `json:"requesterPhone,omitempty"`
	Priority        id.Priority `json:"priority"`
	Status          string      `json:"status"`
}

// PatrolPriority ranks a patrol request: urgent for emergency patrols; high
// for school patrols, daily frequency or three or more recent incidents;
// normal otherwise.
func PatrolPriority(patrolType, frequency string, recentIncidents int) id.Priority {
	switch {
	case patrolType == "emergency":
		return id.PriorityUrgent
	case patrolType == "school" || recentIncidents >= 3 || isOneOf(frequency, "daily", "diaria", "diario"):
		return id.PriorityHigh
	default:
		return id.PriorityNormal
	}
}

// PatrolRequestHandler registers requests for police patrols (rondas).
type PatrolRequestHandler struct {
	base
}

func NewPatrolRequestHandler() *PatrolRequestHandler {
	return &PatrolRequestHandler{base: newBase(PatrolRequestEntity, PrefixPatrolRequest, module.StatusTable{
		"APPROVED":  "scheduled",
		"COMPLETED": "completed",
		"REJECTED":  "rejected",
		"CANCELLED": "cancelled",
	})}
}

func (h *PatrolRequestHandler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	var in PatrolRequestInput
	ext, err := module.Decode(a.Data, &in)
	if err != nil {
		return nil, err
	}
	if err := module.Required("location", in.Location, "reason", in.Reason); err != nil {
		return nil, err
	}
	if in.RecentIncidents < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "field recentIncidents cannot be negative")
	}

	patrolType := PatrolTypes.Lookup(in.Type)
	req := PatrolRequest{
		PatrolType:      patrolType,
		Reason:          in.Reason,
		Location:        in.Location,
		Area:            in.Area,
		Coordinates:     module.JSONText(in.Coordinates),
		Frequency:       in.Frequency,
		RequestedDate:   in.RequestedDate,
		RequestedTime:   in.RequestedTime,
		Duration:        in.Duration,
		RecentIncidents: in.RecentIncidents,
		RequesterName:   in.RequesterName,
		RequesterPhone:  in.RequesterPhone,
		Priority:        PatrolPriority(patrolType, in.Frequency, in.RecentIncidents),
		Status:          "pending",
	}

	number, err := scope.NextNumber(ctx, h.prefix)
	if err != nil {
		return nil, err
	}
	req.RequestNumber = number

	rec := h.newRecord(ctx, a, number, req.Status, req.Priority, req.PatrolType, true)
	if rec.Attributes, err = module.Attributes(req); err != nil {
		return nil, err
	}
	rec.Extensions = ext
	if err := scope.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return &module.Result{
		Record:      rec,
		Detail:      &req,
		Number:      number,
		MessageKey:  i18n.MsgPatrolRequestCreated,
		MessageArgs: []any{number},
	}, nil
}
