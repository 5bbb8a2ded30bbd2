// Package database is the postgres-backed identity directory used when a
// DATABASE_URL is configured.
package database

import "gorm.io/gorm"

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}
