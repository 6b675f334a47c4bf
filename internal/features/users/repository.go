// Package users — repository.go defines the storage contract for ledger
// records and its PostgreSQL implementation. Every mutation runs as one
// transaction with the row locked, so record updates stay atomic even if
// two callers race past the coordinator's per-user serialization.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lesamuen/Meridia2/internal/common"
)

// MutationFn transforms the current record into the next one. It must be
// pure: no I/O, no retained references. Returning an error aborts the
// mutation and leaves the stored record unchanged.
type MutationFn func(u *User) error

// Repository is the read/write contract over ledger records. Any durable
// store can back it; tests use the in-memory implementation.
type Repository interface {
	// FindOrCreate returns the record for userID, creating a default one
	// if none exists. Concurrent first-time calls for the same ID must
	// resolve to a single row.
	FindOrCreate(ctx context.Context, userID string) (*User, error)

	// Get returns a snapshot without creating or mutating anything.
	Get(ctx context.Context, userID string) (*User, error)

	// ApplyMutation loads the record, applies fn, and persists the result
	// as one atomic unit with respect to other mutations of the same row.
	// The persisted record is returned.
	ApplyMutation(ctx context.Context, userID string, fn MutationFn) (*User, error)

	// Transfer moves amount electrum between two records atomically,
	// rejecting overdrafts.
	Transfer(ctx context.Context, fromID, toID string, amount int64) error

	// ClearExpiredCooldowns nulls cooldown timestamps already in the past
	// so stale rows do not linger. Returns how many rows were cleared.
	ClearExpiredCooldowns(ctx context.Context, now time.Time) (int64, error)
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates the ledger repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `user_id, electrum, beacon_touches, quest_stage, cooldown_until, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.UserID, &u.Electrum, &u.BeaconTouches, &u.QuestStage,
		&u.CooldownUntil, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// FindOrCreate inserts a default row with ON CONFLICT DO NOTHING and then
// reads whichever row won; the losing racer observes the winner's record.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, userID string) (*User, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id, electrum, beacon_touches, quest_stage)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return r.Get(ctx, userID)
}

// Get returns a snapshot of the record.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	return scanUser(row)
}

// ApplyMutation locks the row FOR UPDATE, applies fn to the snapshot, and
// writes the result back, all inside one transaction.
func (r *PostgresRepository) ApplyMutation(ctx context.Context, userID string, fn MutationFn) (*User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET electrum = $2, beacon_touches = $3, quest_stage = $4,
		    cooldown_until = $5, updated_at = $6
		WHERE user_id = $1
	`, u.UserID, u.Electrum, u.BeaconTouches, u.QuestStage, u.CooldownUntil, u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing mutation: %w", err)
	}
	return u, nil
}

// Transfer moves electrum between two rows in one transaction. Rows are
// locked in ascending ID order so two opposing transfers cannot deadlock.
func (r *PostgresRepository) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if fromID == toID {
		return common.ErrSelfGift
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM users WHERE user_id = $1 FOR UPDATE`, id); err != nil {
			return fmt.Errorf("locking user %s: %w", id, err)
		}
	}

	var senderBalance int64
	err = tx.QueryRow(ctx,
		`SELECT electrum FROM users WHERE user_id = $1`, fromID).Scan(&senderBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("reading sender balance: %w", err)
	}
	if senderBalance < amount {
		return common.ErrInsufficientElectrum
	}

	res, err := tx.Exec(ctx, `
		UPDATE users SET electrum = electrum + $2, updated_at = NOW()
		WHERE user_id = $1
	`, toID, amount)
	if err != nil {
		return fmt.Errorf("crediting recipient: %w", err)
	}
	if res.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET electrum = electrum - $2, updated_at = NOW()
		WHERE user_id = $1
	`, fromID, amount)
	if err != nil {
		return fmt.Errorf("debiting sender: %w", err)
	}

	return tx.Commit(ctx)
}

// ClearExpiredCooldowns is the physical half of lazy expiry, run by the
// cron sweep.
func (r *PostgresRepository) ClearExpiredCooldowns(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE users SET cooldown_until = NULL, updated_at = NOW()
		WHERE cooldown_until IS NOT NULL AND cooldown_until <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("clearing cooldowns: %w", err)
	}
	return res.RowsAffected(), nil
}
