package users

import (
	"context"
	"sync"
	"time"

	"github.com/Lesamuen/Meridia2/internal/common"
)

// MemoryRepository implements Repository on a mutex-guarded map. It backs
// tests and storeless runs; the semantics mirror the Postgres
// implementation, including atomic per-record mutations.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*User
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*User)}
}

func (r *MemoryRepository) FindOrCreate(_ context.Context, userID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.records[userID]; ok {
		return u.Clone(), nil
	}
	u := NewUser(userID)
	r.records[userID] = u
	return u.Clone(), nil
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.records[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) ApplyMutation(_ context.Context, userID string, fn MutationFn) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}

	// Mutate a clone; the stored record only changes if fn succeeds.
	next := stored.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	r.records[userID] = next
	return next.Clone(), nil
}

func (r *MemoryRepository) Transfer(_ context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if fromID == toID {
		return common.ErrSelfGift
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.records[fromID]
	if !ok {
		return common.ErrUserNotFound
	}
	to, ok := r.records[toID]
	if !ok {
		return common.ErrUserNotFound
	}
	if from.Electrum < amount {
		return common.ErrInsufficientElectrum
	}

	now := time.Now().UTC()
	from.Electrum -= amount
	to.Electrum += amount
	from.UpdatedAt = now
	to.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) ClearExpiredCooldowns(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cleared int64
	for _, u := range r.records {
		if u.CooldownUntil != nil && !now.Before(*u.CooldownUntil) {
			u.CooldownUntil = nil
			u.UpdatedAt = now
			cleared++
		}
	}
	return cleared, nil
}
