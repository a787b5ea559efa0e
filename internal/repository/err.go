package repository

import (
	"errors"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = gorm.ErrDuplicatedKey
)

// translateNotFound maps the gorm sentinel onto the domain one so callers
// never import gorm to classify an error.
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.ErrNotFound
	}
	return err
}
