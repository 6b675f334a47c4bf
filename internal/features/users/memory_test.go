package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lesamuen/Meridia2/internal/common"
)

func TestFindOrCreateIdempotentUnderConcurrency(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	const callers = 32
	results := make([]*User, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.FindOrCreate(ctx, "42")
			require.NoError(t, err)
			results[i] = u
		}(i)
	}
	wg.Wait()

	for _, u := range results {
		require.Equal(t, "42", u.UserID)
		require.EqualValues(t, 0, u.Electrum)
		require.EqualValues(t, 0, u.BeaconTouches)
		require.Equal(t, 0, u.QuestStage)
		require.Nil(t, u.CooldownUntil)
	}
}

func TestApplyMutationIsAtomic(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.FindOrCreate(ctx, "7")
	require.NoError(t, err)

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := repo.ApplyMutation(ctx, "7", func(u *User) error {
					u.TouchBeacon()
					return u.AddElectrum(1)
				})
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	u, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	require.EqualValues(t, workers*perWorker, u.BeaconTouches, "no increment lost")
	require.EqualValues(t, workers*perWorker, u.Electrum)
}

func TestApplyMutationRejectionLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.FindOrCreate(ctx, "7")
	require.NoError(t, err)

	_, err = repo.ApplyMutation(ctx, "7", func(u *User) error {
		u.TouchBeacon() // would be visible if the rejection leaked
		return u.AddElectrum(-1)
	})
	require.ErrorIs(t, err, common.ErrInsufficientElectrum)

	u, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	require.EqualValues(t, 0, u.BeaconTouches)
	require.EqualValues(t, 0, u.Electrum)
}

func TestTransferNeverDrivesBalanceNegative(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := repo.FindOrCreate(ctx, id)
		require.NoError(t, err)
	}
	_, err := repo.ApplyMutation(ctx, "a", func(u *User) error { return u.AddElectrum(100) })
	require.NoError(t, err)
	_, err = repo.ApplyMutation(ctx, "b", func(u *User) error { return u.AddElectrum(100) })
	require.NoError(t, err)

	// Opposing transfers hammering both directions at once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = repo.Transfer(ctx, "a", "b", 7)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = repo.Transfer(ctx, "b", "a", 5)
			}
		}()
	}
	wg.Wait()

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "b")
	require.NoError(t, err)

	require.GreaterOrEqual(t, a.Electrum, int64(0))
	require.GreaterOrEqual(t, b.Electrum, int64(0))
	require.EqualValues(t, 200, a.Electrum+b.Electrum, "transfers conserve the total")
}

func TestTransferValidation(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.FindOrCreate(ctx, "a")
	require.NoError(t, err)
	_, err = repo.FindOrCreate(ctx, "b")
	require.NoError(t, err)

	require.ErrorIs(t, repo.Transfer(ctx, "a", "a", 5), common.ErrSelfGift)
	require.ErrorIs(t, repo.Transfer(ctx, "a", "b", 0), common.ErrInvalidAmount)
	require.ErrorIs(t, repo.Transfer(ctx, "a", "b", -5), common.ErrInvalidAmount)
	require.ErrorIs(t, repo.Transfer(ctx, "a", "b", 5), common.ErrInsufficientElectrum)
	require.ErrorIs(t, repo.Transfer(ctx, "a", "missing", 5), common.ErrUserNotFound)
}

func TestClearExpiredCooldowns(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"past", "future", "none"} {
		_, err := repo.FindOrCreate(ctx, id)
		require.NoError(t, err)
	}
	_, err := repo.ApplyMutation(ctx, "past", func(u *User) error {
		u.SetCooldown(now.Add(-2*time.Hour), time.Hour)
		return nil
	})
	require.NoError(t, err)
	_, err = repo.ApplyMutation(ctx, "future", func(u *User) error {
		u.SetCooldown(now, time.Hour)
		return nil
	})
	require.NoError(t, err)

	cleared, err := repo.ClearExpiredCooldowns(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)

	past, err := repo.Get(ctx, "past")
	require.NoError(t, err)
	require.Nil(t, past.CooldownUntil)

	future, err := repo.Get(ctx, "future")
	require.NoError(t, err)
	require.NotNil(t, future.CooldownUntil)
}
