package security

import (
	"context"
	"encoding/json"
	"time"

	"civitas/internal/module"
	"civitas/internal/platform/i18n"
	"civitas/internal/privacy"
	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

const PoliceReportEntity = "police_report"

// PoliceReportInput is the accepted payload of a police report.
type PoliceReportInput struct {
	Type                    string          `json:"type"`
	Description             string          `json:"description"`
	OccurrenceDate          string          `json:"occurrenceDate"`
	OccurrenceTime          string          `json:"occurrenceTime"`
	Location                string          `json:"location"`
	Neighborhood            string          `json:"neighborhood"`
	Coordinates             json.RawMessage `json:"coordinates"`
	HasWeapon               module.Flag     `json:"hasWeapon"`
	VictimPresent           module.Flag     `json:"victimPresent"`
	InProgress              module.Flag     `json:"inProgress"`
	RequiresImmediateAction module.Flag     `json:"requiresImmediateAction"`
	DangerLevel             string          `json:"dangerLevel"`
	Witnesses               json.RawMessage `json:"witnesses"`
	Evidence                json.RawMessage `json:"evidence"`
	SuspectInfo             map[string]any  `json:"suspectInfo"`
	VictimInfo              map[string]any  `json:"victimInfo"`
}

// PoliceReport is the typed specialized record.
type PoliceReport struct {
	ReportNumber            string      `json:"reportNumber"`
	ReportType              string      `json:"reportType"`
	ReportedAs              string      `json:"reportedAs"`
	Description             string      `json:"description,omitempty"`
	OccurrenceDate          string      `json:"occurrenceDate"`
	OccurrenceTime          string      `json:"occurrenceTime,omitempty"`
	Location                string      `json:"location,omitempty"`
	Neighborhood            string      `json:"neighborhood,omitempty"`
	Coordinates             string      `json:"coordinates,omitempty"`
	HasWeapon               bool        `json:"hasWeapon"`
	VictimPresent           bool        `json:"victimPresent"`
	InProgress              bool        `json:"inProgress"`
	RequiresImmediateAction bool        `json:"requiresImmediateAction"`
	DangerLevel             DangerLevel `json:"dangerLevel,omitempty"`
	Witnesses               string      `json:"witnesses,omitempty"`
	Evidence                string      `json:"evidence,omitempty"`
	SuspectInfo             string      `json:"suspectInfo,omitempty"`
	VictimInfo              string      `json:"victimInfo,omitempty"`
	Priority                id.Priority `json:"priority"`
	Status                  string      `json:"status"`
}

// PoliceReportHandler registers police reports (boletins de ocorrência).
type PoliceReportHandler struct {
	base
}

func NewPoliceReportHandler() *PoliceReportHandler {
	return &PoliceReportHandler{base: newBase(PoliceReportEntity, PrefixPoliceReport, module.StatusTable{
		"UNDER_ANALYSIS": "under_review",
		"APPROVED":       "investigating",
		"COMPLETED":      "closed",
		"REJECTED":       "dismissed",
		"CANCELLED":      "archived",
	})}
}

// SanitizePayload implements module.PayloadSanitizer. Reports are never
// anonymous, but the copy kept on the protocol loses the identity of
// suspects and victims and of any undeclared field, as the record does.
func (h *PoliceReportHandler) SanitizePayload(data map[string]any) (map[string]any, bool) {
	clean := privacy.SanitizeMetadata(data)
	var in PoliceReportInput
	ext, err := module.Decode(clean, &in)
	if err != nil {
		return privacy.SanitizeSubjectInfo(clean), false
	}
	for _, field := range []string{"suspectInfo", "victimInfo"} {
		if subject, ok := clean[field].(map[string]any); ok {
			clean[field] = privacy.SanitizeSubjectInfo(subject)
		}
	}
	for k := range ext {
		delete(clean, k)
	}
	for k, v := range privacy.SanitizeSubjectInfo(ext) {
		clean[k] = v
	}
	return clean, false
}

func (h *PoliceReportHandler) Execute(ctx context.Context, a module.Action, scope module.Scope) (*module.Result, error) {
	var in PoliceReportInput
	ext, err := module.Decode(a.Data, &in)
	if err != nil {
		return nil, err
	}
	if err := module.Required("type", in.Type, "occurrenceDate", in.OccurrenceDate); err != nil {
		return nil, err
	}
	occurred, err := parseDate("occurrenceDate", in.OccurrenceDate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	danger := ParseDangerLevel(in.DangerLevel)
	priority := PoliceReportPriority(bool(in.VictimPresent), bool(in.InProgress),
		bool(in.HasWeapon), bool(in.RequiresImmediateAction), danger)
	report := PoliceReport{
		ReportType:              ReportTypes.Lookup(in.Type),
		ReportedAs:              in.Type,
		Description:             in.Description,
		OccurrenceDate:          occurred.Format(time.DateOnly),
		OccurrenceTime:          in.OccurrenceTime,
		Location:                in.Location,
		Neighborhood:            in.Neighborhood,
		Coordinates:             module.JSONText(in.Coordinates),
		HasWeapon:               bool(in.HasWeapon),
		VictimPresent:           bool(in.VictimPresent),
		InProgress:              bool(in.InProgress),
		RequiresImmediateAction: bool(in.RequiresImmediateAction),
		DangerLevel:             danger,
		Witnesses:               module.JSONText(in.Witnesses),
		Evidence:                module.JSONText(in.Evidence),
		SuspectInfo:             module.EncodeText(privacy.SanitizeSubjectInfo(in.SuspectInfo)),
		VictimInfo:              module.EncodeText(privacy.SanitizeSubjectInfo(in.VictimInfo)),
		Priority:                priority,
		Status:                  "registered",
	}

	number, err := scope.NextNumber(ctx, h.prefix)
	if err != nil {
		return nil, err
	}
	report.ReportNumber = number

	rec := h.newRecord(ctx, a, number, report.Status, report.Priority, report.ReportType, true)
	if rec.Attributes, err = module.Attributes(report); err != nil {
		return nil, err
	}
	rec.Extensions = privacy.SanitizeSubjectInfo(privacy.SanitizeMetadata(ext))
	if err := scope.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	return &module.Result{
		Record:      rec,
		Detail:      &report,
		Number:      number,
		MessageKey:  i18n.MsgPoliceReportCreated,
		MessageArgs: []any{number},
	}, nil
}
