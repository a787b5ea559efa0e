package entity

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid entity")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")

	// Permission gate outcomes. Both stop a job, but the messages differ
	// so operators can tell a revoked org from one that was never vetted.
	ErrOrgNotAllowed = errors.New("organization is not allowed")
	ErrOrgNotFound   = errors.New("organization not found in whitelist")
)
