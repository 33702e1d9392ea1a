package security

import (
	"context"
	"encoding/json"
	"time"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

const CameraRequestEntity = "camera_request"

// footageWindow is how long recordings are kept before being overwritten.
const footageWindow = 72 * time.Hour

const maxCamerasPerRequest = 20

type CameraRequestInput struct {
	Type          string          `json:"type"`
	Purpose       string          `json:"purpose"`
	Location      string          `json:"location"`
	Coordinates   json.RawMessage `json:"coordinates"`
	CameraType    string          `json:"cameraType"`
	Quantity      int             `json:"quantity"`
	Justification string          `json:"justification"`
	IncidentDate  string          `json:"incidentDate"`
	IncidentTime  string          `json:"incidentTime"`
	TimeRange     string          `json:"timeRange"`
}

type CameraRequest struct {
	RequestNumber string      `json:"requestNumber"`
	RequestType   string      `json:"requestType"`
	Purpose       string      `json:"purpose"`
	Location      string      `json:"location"`
	Coordinates   string      `json:"coordinates,omitempty"`
	CameraType    string      `json:"cameraType"`
	Quantity      int         `json:"quantity"`
	Justification string      `json:"justification,omitempty"`
	IncidentDate  string      `json:"incidentDate,omitempty"`
	IncidentTime  string      `json:"incidentTime,omitempty"`
	TimeRange     string      `json:"timeRange,omitempty"`
	Priority      id.Priority `json:"priority"`
	Status        string      `json:"status"`
}

// CameraPriority ranks a camera request: footage requests are urgent while
// the recording is still inside the retention window and high afterwards;
// maintenance is high; everything else is normal.
func CameraPriority(requestType string, incident, now time.Time) id.Priority {
	switch requestType {
	case "footage_request":
		if !incident.IsZero() && now.Sub(incident) <= footageWindow {
			return id.PriorityUrgent
		}
		return id.PriorityHigh
	case "maintenance":
		return id.PriorityHigh
	default:
		return id.PriorityNormal
	}
}

// CameraRequestHandler registers requests for surveillance cameras and
// access to their footage.
type CameraRequestHandler struct {
	base
}

func NewCameraRequestHandler() *CameraRequestHandler {
	return &CameraRequestHandler{base: newBase(CameraRequestEntity, PrefixCameraRequest, module.StatusTable{
		"APPROVED":  "approved",
		"COMPLETED": "fulfilled",
		"REJECTED":  "rejected",
		"CANCELLED": "cancelled",
	})}
}

func (h *CameraRequestHandler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	var in CameraRequestInput
	ext, err := module.Decode(a.Data, &in)
	if err != nil {
		return nil, err
	}
	if err := module.Required("location", in.Location, "purpose", in.Purpose); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	requestType := CameraRequestTypes.Lookup(in.Type)
	var incident time.Time
	if requestType == "footage_request" {
		if err := module.Required("incidentDate", in.IncidentDate); err != nil {
			return nil, err
		}
		if incident, err = parseDate("incidentDate", in.IncidentDate, now); err != nil {
			return nil, err
		}
	}
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > maxCamerasPerRequest {
		return nil, dErrors.Newf(dErrors.CodeValidation, "field quantity must be between 1 and %d", maxCamerasPerRequest)
	}

	req := CameraRequest{
		RequestType:   requestType,
		Purpose:       in.Purpose,
		Location:      in.Location,
		Coordinates:   module.JSONText(in.Coordinates),
		CameraType:    CameraKinds.Lookup(in.CameraType),
		Quantity:      quantity,
		Justification: in.Justification,
		IncidentDate:  in.IncidentDate,
		IncidentTime:  in.IncidentTime,
		TimeRange:     in.TimeRange,
		Priority:      CameraPriority(requestType, incident, now),
		Status:        "pending",
	}

	number, err := scope.NextNumber(ctx, h.prefix)
	if err != nil {
		return nil, err
	}
	req.RequestNumber = number

	rec := h.newRecord(ctx, a, number, req.Status, req.Priority, req.RequestType, true)
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
		MessageKey:  i18n.MsgCameraRequestCreated,
		MessageArgs: []any{number},
	}, nil
}
