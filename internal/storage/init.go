package storage

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
)

const migrationPath = "migrations"

func runMigrations(db *sql.DB) error {
	const op = "storage.runMigrations"

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	if err := goose.Up(db, migrationPath); err != nil {
		if err == goose.ErrNoNextVersion {
			return nil
		}
		return fmt.Errorf("%s: %v", op, err)
	}
	log.Println("database migrations applied")
	return nil
}
