package db

import (
	"database/sql"
	"time"
)

func NewPostgresDB(pgDatabaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", pgDatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.Ping(); err != nil {
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		token UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		expires_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
		created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens (user_id);
	`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	return db, nil
}
