package repository

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens (or creates) the document store. An empty path yields an
// in-memory store, which is what the tests use.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&ContextVersion{},
		&Build{},
		&Instance{},
		&IsolationGroup{},
		&Org{},
		&HostRecord{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
