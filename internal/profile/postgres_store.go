package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Constitosh/verifyDN/internal/db"
)

// PostgresStore maps profiles onto the wallet_profiles table. Updates hold
// the row lock for their key for the whole read-merge-write.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectProfile = `
	SELECT identity_key, display_name, evm_address, btc_address, ada_address, updated_at
	FROM wallet_profiles
	WHERE identity_key = $1
`

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p             Profile
		evm, btc, ada sql.NullString
		updatedAt     sql.NullTime
	)
	err := row.Scan(&p.IdentityKey, &p.DisplayName, &evm, &btc, &ada, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.EVM, p.BTC, p.ADA = evm.String, btc.String, ada.String
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		p.UpdatedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) Get(ctx context.Context, identityKey string) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, selectProfile, identityKey))
}

func (s *PostgresStore) Ensure(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_profiles (identity_key, display_name)
		VALUES ($1, $2)
		ON CONFLICT (identity_key) DO NOTHING
	`, p.IdentityKey, p.DisplayName)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, identityKey string, fn func(current *Profile) Profile) (Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Insert-or-nothing first so there is always a row to lock, then
	// remember whether the row existed before this transaction.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_profiles (identity_key)
		VALUES ($1)
		ON CONFLICT (identity_key) DO NOTHING
	`, identityKey)
	if err != nil {
		return Profile{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return Profile{}, err
	}

	current, err := scanProfile(tx.QueryRowContext(ctx, selectProfile+" FOR UPDATE", identityKey))
	if err != nil {
		return Profile{}, err
	}
	if current == nil {
		return Profile{}, fmt.Errorf("profile: row for %s vanished inside transaction", identityKey)
	}
	if inserted == 1 {
		current = nil
	}

	next := fn(current)
	next.IdentityKey = identityKey

	var updatedAt sql.NullTime
	if next.UpdatedAt != nil {
		updatedAt = sql.NullTime{Time: *next.UpdatedAt, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallet_profiles
		SET display_name = $2,
		    evm_address  = $3,
		    btc_address  = $4,
		    ada_address  = $5,
		    updated_at   = $6
		WHERE identity_key = $1
	`,
		identityKey,
		next.DisplayName,
		nullString(next.EVM),
		nullString(next.BTC),
		nullString(next.ADA),
		updatedAt,
	)
	if err != nil {
		return Profile{}, err
	}

	if err := tx.Commit(); err != nil {
		return Profile{}, err
	}
	return next, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
