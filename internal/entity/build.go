package entity

import "time"

// Build is the document instances reference. Its ID is shared by every
// context version built together; ContextVersionID points at the primary one.
type Build struct {
	ID               ID         `json:"id"`
	OrgID            int64      `json:"org_id"`
	ContextVersionID ID         `json:"context_version_id"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Successful       bool       `json:"successful"`
	FailedReason     string     `json:"failed_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
