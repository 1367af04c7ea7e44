package db

import (
	"context"
	"database/sql"
)

// DB wraps the shared connection pool.
type DB struct {
	*sql.DB
}

const profilesMigration = `
CREATE TABLE IF NOT EXISTS wallet_profiles (
    identity_key text PRIMARY KEY,
    display_name text NOT NULL DEFAULT '',
    evm_address  text,
    btc_address  text,
    ada_address  text,
    created_at   timestamptz NOT NULL DEFAULT NOW(),
    updated_at   timestamptz
);
`

func RunProfilesMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, profilesMigration)
	return err
}
