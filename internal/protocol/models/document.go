package models

import (
	"strings"
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// DocumentStatus is the verification state of one requested document.
type DocumentStatus string

const (
	DocumentPending     DocumentStatus = "PENDING"
	DocumentUploaded    DocumentStatus = "UPLOADED"
	DocumentUnderReview DocumentStatus = "UNDER_REVIEW"
	DocumentApproved    DocumentStatus = "APPROVED"
	DocumentRejected    DocumentStatus = "REJECTED"
)

// Document tracks metadata and review state of a file the submitter must
// provide. The engine never reads the file itself; FileRef is opaque.
//
// Invariants:
//   - APPROVED is final
//   - RejectionReason is non-empty exactly when Status is REJECTED
//   - ReviewedBy and ReviewedAt are set by every review decision
type Document struct {
	ID              id.DocumentID  `json:"id"`
	ProtocolID      id.ProtocolID  `json:"protocolId"`
	Type            string         `json:"documentType"`
	Description     string         `json:"description,omitempty"`
	Required        bool           `json:"required"`
	Status          DocumentStatus `json:"status"`
	FileRef         string         `json:"fileRef,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	ReviewedBy      *id.UserID     `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func NewDocument(docID id.DocumentID, protocolID id.ProtocolID, docType, description string, required bool, now time.Time) (*Document, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document type is required")
	}
	return &Document{
		ID:          docID,
		ProtocolID:  protocolID,
		Type:        docType,
		Description: strings.TrimSpace(description),
		Required:    required,
		Status:      DocumentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Upload records the submitter's file reference. A rejected document can be
// uploaded again, which clears the previous rejection.
func (d *Document) Upload(fileRef string, now time.Time) error {
	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		return dErrors.New(dErrors.CodeValidation, "file reference is required")
	}
	switch d.Status {
	case DocumentPending, DocumentUploaded, DocumentRejected:
	default:
		return dErrors.Newf(dErrors.CodeInvalidTransition, "document %s cannot be uploaded while %s", d.Type, d.Status)
	}
	d.Status = DocumentUploaded
	d.FileRef = fileRef
	d.RejectionReason = ""
	d.UpdatedAt = now
	return nil
}

// StartReview marks an uploaded document as being examined.
func (d *Document) StartReview(now time.Time) error {
	if d.Status != DocumentUploaded {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "document %s cannot enter review while %s", d.Type, d.Status)
	}
	d.Status = DocumentUnderReview
	d.UpdatedAt = now
	return nil
}

// Review applies a decision. Staff may decide on a document handed over in
// person, so PENDING is accepted as well as the upload states; a rejected
// document may be reconsidered.
func (d *Document) Review(approve bool, reason string, reviewer id.UserID, now time.Time) error {
	if d.Status == DocumentApproved {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "document %s is already approved", d.Type)
	}
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	if approve {
		d.Status = DocumentApproved
		d.RejectionReason = ""
	} else {
		d.Status = DocumentRejected
		d.RejectionReason = reason
	}
	reviewedAt := now
	d.ReviewedAt = &reviewedAt
	if !reviewer.IsNil() {
		r := reviewer
		d.ReviewedBy = &r
	}
	d.UpdatedAt = now
	return nil
}

// BlocksApproval reports whether the document holds back approval.
func (d *Document) BlocksApproval() bool {
	return d.Required && d.Status != DocumentApproved
}

// PendingRequired counts required documents not yet approved.
func PendingRequired(docs []*Document) int {
	n := 0
	for _, d := range docs {
		if d.BlocksApproval() {
			n++
		}
	}
	return n
}
