package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lesamuen/Meridia2/internal/common"
)

func TestSetQuestStageBounds(t *testing.T) {
	t.Parallel()

	u := NewUser("1")

	for _, stage := range []int{-1, 0, 10, 19, 20} {
		require.NoError(t, u.SetQuestStage(stage))
		require.Equal(t, stage, u.QuestStage)
	}

	for _, stage := range []int{-2, 21, 100, -50} {
		err := u.SetQuestStage(stage)
		require.ErrorIs(t, err, common.ErrStageOutOfRange)
		// Last valid value stays in place.
		require.Equal(t, 20, u.QuestStage)
	}
}

func TestAddElectrumRejectsOverdraft(t *testing.T) {
	t.Parallel()

	u := NewUser("1")
	require.NoError(t, u.AddElectrum(50))
	require.EqualValues(t, 50, u.Electrum)

	err := u.AddElectrum(-51)
	require.ErrorIs(t, err, common.ErrInsufficientElectrum)
	require.EqualValues(t, 50, u.Electrum, "balance unchanged after rejection")

	require.NoError(t, u.AddElectrum(-50))
	require.EqualValues(t, 0, u.Electrum)
}

func TestCooldownLazyExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	u := NewUser("1")

	require.False(t, u.CooldownActive(now), "fresh user has no cooldown")

	u.SetCooldown(now, 10*time.Minute)
	require.True(t, u.CooldownActive(now))
	require.True(t, u.CooldownActive(now.Add(9*time.Minute)))

	// Expired timestamps count as absent even while still set.
	require.False(t, u.CooldownActive(now.Add(10*time.Minute)))
	require.NotNil(t, u.CooldownUntil)

	u.ClearCooldown()
	require.Nil(t, u.CooldownUntil)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	u := NewUser("1")
	u.SetCooldown(now, time.Hour)

	c := u.Clone()
	c.ClearCooldown()
	c.Electrum = 99

	require.NotNil(t, u.CooldownUntil)
	require.EqualValues(t, 0, u.Electrum)
}
