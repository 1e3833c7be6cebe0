package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// OpenDB initializes the SQLite database connection
func OpenDB(dataSourceName string) error {
	var err error
	db, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable foreign key constraints
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The manipulation engine relies on the store's transactional
	// guarantees, not on in-process locking
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return nil
}

// InitializeDatabase opens the database connection and runs migrations
func InitializeDatabase(dataSourceName string) error {
	if err := OpenDB(dataSourceName); err != nil {
		return err
	}

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
