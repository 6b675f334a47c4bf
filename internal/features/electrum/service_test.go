package electrum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesamuen/Meridia2/internal/common"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

func seedBalance(t *testing.T, repo users.Repository, userID string, amount int64) {
	t.Helper()
	_, err := repo.FindOrCreate(context.Background(), userID)
	require.NoError(t, err)
	_, err = repo.ApplyMutation(context.Background(), userID, func(u *users.User) error {
		return u.AddElectrum(amount)
	})
	require.NoError(t, err)
}

func TestBalanceCreatesRecordOnFirstSight(t *testing.T) {
	t.Parallel()

	svc := NewService(users.NewMemoryRepository(), nil)

	balance, err := svc.Balance(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestGiftMovesElectrum(t *testing.T) {
	t.Parallel()

	repo := users.NewMemoryRepository()
	svc := NewService(repo, nil)
	seedBalance(t, repo, "alms", 10)

	newBalance, err := svc.Gift(context.Background(), "alms", "pauper", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), newBalance)

	got, err := svc.Balance(context.Background(), "pauper")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)
}

func TestGiftValidation(t *testing.T) {
	t.Parallel()

	repo := users.NewMemoryRepository()
	svc := NewService(repo, nil)
	seedBalance(t, repo, "alms", 3)

	_, err := svc.Gift(context.Background(), "alms", "alms", 1)
	assert.ErrorIs(t, err, common.ErrSelfGift)

	_, err = svc.Gift(context.Background(), "alms", "pauper", 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Gift(context.Background(), "alms", "pauper", 100)
	assert.ErrorIs(t, err, common.ErrInsufficientElectrum)

	// Failed gifts leave both balances alone.
	balance, err := svc.Balance(context.Background(), "alms")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
	balance, err = svc.Balance(context.Background(), "pauper")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestRollCallRequiresDM(t *testing.T) {
	t.Parallel()

	repo := users.NewMemoryRepository()
	svc := NewService(repo, []string{"dm-1"})

	_, err := svc.RollCall(context.Background(), "player-1", "player-2")
	assert.ErrorIs(t, err, common.ErrNotDM)

	balance, err := svc.RollCall(context.Background(), "dm-1", "player-2")
	require.NoError(t, err)
	assert.Equal(t, int64(RollCallReward), balance)

	// Rewards accumulate across sessions.
	balance, err = svc.RollCall(context.Background(), "dm-1", "player-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2*RollCallReward), balance)
}
