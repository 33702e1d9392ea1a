// Package catalog adapts the municipal service catalog. Each service names
// the module entity that materializes its protocols, the payload fields it
// requires and the documents a citizen must provide.
package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"civitas/internal/module"
	"civitas/internal/module/custom"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/sentinel"
)

// DocumentRequirement is a document the citizen must attach to a protocol.
type DocumentRequirement struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Optional    bool   `yaml:"optional"`
}

// Service is one catalog entry.
type Service struct {
	ID             id.ServiceID
	Name           string
	Module         module.Key
	Prefix         string
	Custom         bool
	RequiredFields []string
	Fields         []string
	Documents      []DocumentRequirement
	Priority       id.Priority
}

// RequiredDocuments returns the documents that gate approval.
func (s *Service) RequiredDocuments() []DocumentRequirement {
	out := make([]DocumentRequirement, 0, len(s.Documents))
	for _, d := range s.Documents {
		if !d.Optional {
			out = append(out, d)
		}
	}
	return out
}

// ValidatePayload checks the catalog-level required fields. Handlers apply
// their own domain validation afterwards.
func (s *Service) ValidatePayload(data map[string]any) error {
	for _, f := range s.RequiredFields {
		v, ok := data[f]
		if !ok || v == nil {
			return dErrors.Newf(dErrors.CodeValidation, "field %s is required", f)
		}
		if str, isString := v.(string); isString && strings.TrimSpace(str) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "field %s is required", f)
		}
	}
	return nil
}

// Catalog is an immutable set of services, safe for concurrent reads.
type Catalog struct {
	services map[id.ServiceID]*Service
}

// New validates and indexes services.
func New(services ...Service) (*Catalog, error) {
	c := &Catalog{services: make(map[id.ServiceID]*Service, len(services))}
	for i := range services {
		s := services[i]
		if err := validate(&s); err != nil {
			return nil, err
		}
		if _, dup := c.services[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service %s", s.ID)
		}
		c.services[s.ID] = &s
	}
	if err := c.checkSharedModules(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkSharedModules rejects custom services that share a module key but
// disagree on the handler definition, since only one handler can serve it.
func (c *Catalog) checkSharedModules() error {
	first := make(map[module.Key]Service)
	for _, s := range c.Services() {
		if !s.Custom {
			continue
		}
		prev, ok := first[s.Module]
		if !ok {
			first[s.Module] = s
			continue
		}
		switch {
		case prev.Prefix != s.Prefix:
			return fmt.Errorf("catalog: services %q and %q share module %s with different prefixes", prev.Name, s.Name, s.Module)
		case !sameFields(prev.RequiredFields, s.RequiredFields):
			return fmt.Errorf("catalog: services %q and %q share module %s with different required fields", prev.Name, s.Name, s.Module)
		case !sameFields(prev.Fields, s.Fields):
			return fmt.Errorf("catalog: services %q and %q share module %s with different fields", prev.Name, s.Name, s.Module)
		}
	}
	return nil
}

func sameFields(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

func validate(s *Service) error {
	if s.ID.IsNil() {
		return fmt.Errorf("catalog: service %q has no id", s.Name)
	}
	s.Module = module.NewKey(s.Module.ModuleType, s.Module.Entity)
	if s.Module.IsZero() {
		return fmt.Errorf("catalog: service %s has no module key", s.ID)
	}
	if s.Priority == "" {
		s.Priority = id.PriorityNormal
	}
	if !s.Priority.IsValid() {
		return fmt.Errorf("catalog: service %s has invalid priority %q", s.ID, s.Priority)
	}
	for _, d := range s.Documents {
		if strings.TrimSpace(d.Type) == "" {
			return fmt.Errorf("catalog: service %s lists a document without type", s.ID)
		}
	}
	return nil
}

// Service returns the service definition. Missing services return
// sentinel.ErrNotFound.
func (c *Catalog) Service(_ context.Context, serviceID id.ServiceID) (*Service, error) {
	s, ok := c.services[serviceID]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", serviceID, sentinel.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

// Services lists every service ordered by name.
func (c *Catalog) Services() []Service {
	out := make([]Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CustomDefinitions returns one handler definition per distinct module key
// marked custom. Services sharing a key share a handler; New guarantees they
// agree on its definition.
func (c *Catalog) CustomDefinitions() []custom.Definition {
	seen := make(map[module.Key]bool)
	var defs []custom.Definition
	for _, s := range c.Services() {
		if !s.Custom || seen[s.Module] {
			continue
		}
		seen[s.Module] = true
		defs = append(defs, custom.Definition{
			Key:      s.Module,
			Prefix:   s.Prefix,
			Required: s.RequiredFields,
			Fields:   s.Fields,
		})
	}
	return defs
}

type fileFormat struct {
	Services []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	ID             string                `yaml:"id"`
	Name           string                `yaml:"name"`
	Module         module.Key            `yaml:"module"`
	Prefix         string                `yaml:"prefix"`
	Custom         bool                  `yaml:"custom"`
	RequiredFields []string              `yaml:"requiredFields"`
	Fields         []string              `yaml:"fields"`
	Documents      []DocumentRequirement `yaml:"documents"`
	Priority       string                `yaml:"priority"`
}

// Parse reads a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	services := make([]Service, 0, len(f.Services))
	for _, e := range f.Services {
		sid, err := id.ParseServiceID(e.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog: service %q: %w", e.Name, err)
		}
		services = append(services, Service{
			ID:             sid,
			Name:           e.Name,
			Module:         e.Module,
			Prefix:         e.Prefix,
			Custom:         e.Custom,
			RequiredFields: e.RequiredFields,
			Fields:         e.Fields,
			Documents:      e.Documents,
			Priority:       id.Priority(strings.ToLower(strings.TrimSpace(e.Priority))),
		})
	}
	return New(services...)
}

// Load reads the catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}
