package handler

import (
	"strings"
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

const (
	maxTextLen     = 4000
	maxShortLen    = 200
	maxPayloadKeys = 200
	maxItems       = 50
)

// SubmitRequest is the body of POST /protocols.
type SubmitRequest struct {
	ServiceID string         `json:"serviceId"`
	CitizenID string         `json:"citizenId,omitempty"`
	Action    string         `json:"action,omitempty"`
	Data      map[string]any `json:"data"`

	parsedService id.ServiceID
	parsedCitizen *id.CitizenID
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Data) > maxPayloadKeys {
		return dErrors.Newf(dErrors.CodeValidation, "data must have at most %d fields", maxPayloadKeys)
	}
	serviceID, err := id.ParseServiceID(strings.TrimSpace(r.ServiceID))
	if err != nil {
		return err
	}
	r.parsedService = serviceID
	if c := strings.TrimSpace(r.CitizenID); c != "" {
		citizen, err := id.ParseCitizenID(c)
		if err != nil {
			return err
		}
		r.parsedCitizen = &citizen
	}
	r.Action = strings.TrimSpace(r.Action)
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	return nil
}

// DecisionRequest is the optional body of the transition endpoints.
type DecisionRequest struct {
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (r *DecisionRequest) Validate() error {
	r.Comment = strings.TrimSpace(r.Comment)
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Comment) > maxTextLen || len(r.Reason) > maxTextLen {
		return dErrors.Newf(dErrors.CodeValidation, "comment and reason must be at most %d characters", maxTextLen)
	}
	return nil
}

// DocumentRequestBody asks the citizen for a document.
type DocumentRequestBody struct {
	Type        string `json:"documentType"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
}

func (r *DocumentRequestBody) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "documentType is required")
	}
	if len(r.Type) > maxShortLen || len(r.Description) > maxTextLen {
		return dErrors.New(dErrors.CodeValidation, "document type or description too long")
	}
	return nil
}

// UploadRequest references a file already stored by the upload service.
type UploadRequest struct {
	FileRef string `json:"fileRef"`
}

func (r *UploadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FileRef = strings.TrimSpace(r.FileRef)
	if r.FileRef == "" {
		return dErrors.New(dErrors.CodeValidation, "fileRef is required")
	}
	if len(r.FileRef) > maxTextLen {
		return dErrors.New(dErrors.CodeValidation, "fileRef too long")
	}
	return nil
}

// ReviewRequest records a document decision.
type ReviewRequest struct {
	Approve *bool  `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeValidation, "approve is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxTextLen {
		return dErrors.New(dErrors.CodeValidation, "reason too long")
	}
	return nil
}

// PendencyRequestBody raises a pendency.
type PendencyRequestBody struct {
	Description string     `json:"description"`
	Items       []string   `json:"items,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`

	parsedPriority id.Priority
}

func (r *PendencyRequestBody) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Items) > maxItems {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d items are allowed", maxItems)
	}
	if len(r.Description) > maxTextLen {
		return dErrors.New(dErrors.CodeValidation, "description too long")
	}
	priority, err := id.ParsePriority(r.Priority)
	if err != nil {
		return err
	}
	r.parsedPriority = priority
	return nil
}

// CommentRequest appends a free-text trail entry.
type CommentRequest struct {
	Message  string `json:"message"`
	Internal bool   `json:"internal,omitempty"`
}

func (r *CommentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if len(r.Message) > maxTextLen {
		return dErrors.New(dErrors.CodeValidation, "message too long")
	}
	return nil
}
