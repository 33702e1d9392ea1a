package admin

import (
	"civitas/internal/catalog"
	"civitas/internal/module"
)

// ModulesResponse lists the handlers the dispatcher can route to.
type ModulesResponse struct {
	Modules []module.Key `json:"modules"`
	Total   int          `json:"total"`
}

type ServiceInfo struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Module            module.Key `json:"module"`
	Prefix            string     `json:"prefix,omitempty"`
	Custom            bool       `json:"custom"`
	Priority          string     `json:"priority,omitempty"`
	RequiredDocuments []string   `json:"requiredDocuments"`
}

type ServicesResponse struct {
	Services []ServiceInfo `json:"services"`
	Total    int           `json:"total"`
}

// AuditStatusResponse reports security events lost to a full buffer.
type AuditStatusResponse struct {
	SecurityEventsDropped int64 `json:"securityEventsDropped"`
}

func toServiceInfo(s catalog.Service) ServiceInfo {
	docs := make([]string, 0, len(s.Documents))
	for _, d := range s.RequiredDocuments() {
		docs = append(docs, d.Type)
	}
	return ServiceInfo{
		ID:                s.ID.String(),
		Name:              s.Name,
		Module:            s.Module,
		Prefix:            s.Prefix,
		Custom:            s.Custom,
		Priority:          string(s.Priority),
		RequiredDocuments: docs,
	}
}
