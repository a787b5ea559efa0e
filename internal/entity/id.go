package entity

import "github.com/google/uuid"

type ID string

// NewID returns a fresh document id.
func NewID() ID { return ID(uuid.NewString()) }

func (id ID) String() string { return string(id) }
func (id ID) Empty() bool    { return id == "" }

// Short returns the abbreviated form used in container names and logs.
func (id ID) Short() string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
