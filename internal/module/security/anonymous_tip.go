package security

import (
	"context"
	"encoding/json"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	"civitas/internal/privacy"
	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

const AnonymousTipEntity = "anonymous_tip"

// AnonymousTipInput is the accepted payload of a tip. IsAnonymous defaults
// to true when absent.
type AnonymousTipInput struct {
	Type          string              `json:"type"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	Location      string              `json:"location"`
	Coordinates   json.RawMessage     `json:"coordinates"`
	SuspectInfo   map[string]any      `json:"suspectInfo"`
	VehicleInfo   map[string]any      `json:"vehicleInfo"`
	Timeframe     string              `json:"timeframe"`
	Frequency     string              `json:"frequency"`
	HasEvidence   module.Flag         `json:"hasEvidence"`
	EvidenceType  string              `json:"evidenceType"`
	EvidenceNotes string              `json:"evidenceNotes"`
	IsUrgent      module.Flag         `json:"isUrgent"`
	DangerLevel   string              `json:"dangerLevel"`
	IsAnonymous   module.OptionalFlag `json:"isAnonymous"`
	IPAddress     string              `json:"ipAddress"`
	Metadata      map[string]any      `json:"metadata"`
}

// AnonymousTip is the typed specialized record. It never carries the raw
// IP address or the raw feedback code.
type AnonymousTip struct {
	TipNumber     string         `json:"tipNumber"`
	TipType       string         `json:"tipType"`
	Description   string         `json:"description,omitempty"`
	Location      string         `json:"location,omitempty"`
	Coordinates   string         `json:"coordinates,omitempty"`
	SuspectInfo   string         `json:"suspectInfo,omitempty"`
	VehicleInfo   string         `json:"vehicleInfo,omitempty"`
	Timeframe     string         `json:"timeframe,omitempty"`
	Frequency     string         `json:"frequency,omitempty"`
	HasEvidence   bool           `json:"hasEvidence"`
	EvidenceType  string         `json:"evidenceType,omitempty"`
	EvidenceNotes string         `json:"evidenceNotes,omitempty"`
	IsUrgent      bool           `json:"isUrgent"`
	DangerLevel   DangerLevel    `json:"dangerLevel,omitempty"`
	IsAnonymous   bool           `json:"isAnonymous"`
	IPHash        string         `json:"ipHash,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Protocol      *string        `json:"protocol"`
	Priority      id.Priority    `json:"priority"`
	Status        string         `json:"status"`
}

// AnonymousTipHandler registers tips (denúncias). Unless the submitter opts
// out, neither the protocol nor the citizen is referenced from the record.
type AnonymousTipHandler struct {
	base
}

func NewAnonymousTipHandler() *AnonymousTipHandler {
	return &AnonymousTipHandler{base: newBase(AnonymousTipEntity, PrefixAnonymousTip, module.StatusTable{
		"UNDER_ANALYSIS": "investigating",
		"APPROVED":       "confirmed",
		"COMPLETED":      "concluded",
		"REJECTED":       "discarded",
		"CANCELLED":      "discarded",
	})}
}

// SanitizePayload implements module.PayloadSanitizer. Raw network and
// submitter identifiers are always removed; subject identity is removed too
// when the tip is anonymous.
func (h *AnonymousTipHandler) SanitizePayload(data map[string]any) (map[string]any, bool) {
	anonymous := anonymityRequested(data)
	clean := privacy.SanitizeMetadata(data)
	if anonymous {
		clean = privacy.SanitizeSubjectInfo(clean)
	}
	return clean, anonymous
}

func anonymityRequested(data map[string]any) bool {
	var flag struct {
		IsAnonymous module.OptionalFlag `json:"isAnonymous"`
	}
	if _, err := module.Decode(map[string]any{"isAnonymous": data["isAnonymous"]}, &flag); err != nil {
		return true
	}
	return flag.IsAnonymous.Or(true)
}

func (h *AnonymousTipHandler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	var in AnonymousTipInput
	ext, err := module.Decode(a.Data, &in)
	if err != nil {
		return nil, err
	}
	kind := in.Type
	if kind == "" {
		kind = in.Category
	}
	if err := module.Required("type", kind); err != nil {
		return nil, err
	}

	anonymous := in.IsAnonymous.Or(true)
	ip := in.IPAddress
	if ip == "" {
		ip = requestcontext.ClientIP(ctx)
	}
	code, err := privacy.FeedbackCode()
	if err != nil {
		return nil, err
	}

	danger := ParseDangerLevel(in.DangerLevel)
	suspect, vehicle := in.SuspectInfo, in.VehicleInfo
	if anonymous {
		suspect = privacy.SanitizeSubjectInfo(suspect)
		vehicle = privacy.SanitizeSubjectInfo(vehicle)
	}
	tip := AnonymousTip{
		TipType:       TipTypes.Lookup(kind),
		Description:   in.Description,
		Location:      in.Location,
		Coordinates:   module.JSONText(in.Coordinates),
		SuspectInfo:   module.EncodeText(suspect),
		VehicleInfo:   module.EncodeText(vehicle),
		Timeframe:     in.Timeframe,
		Frequency:     in.Frequency,
		HasEvidence:   bool(in.HasEvidence),
		EvidenceType:  in.EvidenceType,
		EvidenceNotes: in.EvidenceNotes,
		IsUrgent:      bool(in.IsUrgent),
		DangerLevel:   danger,
		IsAnonymous:   anonymous,
		IPHash:        privacy.HashIdentifier(ip),
		Metadata:      privacy.SanitizeMetadata(in.Metadata),
		Priority:      TipPriority(bool(in.IsUrgent), bool(in.HasEvidence), danger),
		Status:        "received",
	}

	number, err := scope.NextNumber(ctx, h.prefix)
	if err != nil {
		return nil, err
	}
	tip.TipNumber = number
	if !anonymous && a.Protocol != nil {
		ref := a.Protocol.Number
		tip.Protocol = &ref
	}

	rec := h.newRecord(ctx, a, number, tip.Status, tip.Priority, tip.TipType, !anonymous)
	rec.Anonymous = anonymous
	rec.IPHash = tip.IPHash
	rec.FeedbackHash = privacy.HashIdentifier(code)
	if rec.Attributes, err = module.Attributes(tip); err != nil {
		return nil, err
	}
	rec.Extensions = privacy.SanitizeSubjectInfo(privacy.SanitizeMetadata(ext))
	if err := scope.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	return &module.Result{
		Record:       rec,
		Detail:       &tip,
		Number:       number,
		FeedbackCode: code,
		MessageKey:   i18n.MsgAnonymousTipCreated,
		MessageArgs:  []any{number, code},
	}, nil
}
