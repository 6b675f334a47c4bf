package beacon

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lesamuen/Meridia2/internal/dice"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

func userAtStage(t *testing.T, stage int) *users.User {
	t.Helper()
	u := users.NewUser("123456789012345678")
	require.NoError(t, u.SetQuestStage(stage))
	return u
}

func TestResolveTripleTwentyCompletesQuest(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	roller := dice.NewScriptedRoller(20, 20, 20)
	m := NewMachine(roller)
	u := users.NewUser("123456789012345678")

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindDawnbreaker, out.Kind)
	assert.Equal(t, []int{20, 20, 20}, out.Rolls)
	assert.Equal(t, users.StageComplete, u.QuestStage)
	assert.Equal(t, int64(50), u.Electrum)
	assert.Equal(t, int64(1), u.BeaconTouches)
	require.NotNil(t, out.FollowUp)
	assert.Contains(t, out.FollowUp.Text, "DAWNBREAKER")
	assert.Contains(t, out.FollowUp.Text, "+50 Electrum")

	// The quest is terminal: further touches are flavor only.
	roller.Push(2)
	out, err = m.Resolve(u, now)
	require.NoError(t, err)
	assert.Equal(t, KindComplete, out.Kind)
	assert.Empty(t, out.Rolls)
	assert.Equal(t, users.StageComplete, u.QuestStage)
	assert.Equal(t, int64(50), u.Electrum)
	assert.Equal(t, int64(1), u.BeaconTouches)
	assert.True(t, out.Reply.Transient)
}

func TestResolveProgressCapsAtPenultimateStage(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(20, 20, 5))
	u := userAtStage(t, users.StageMax)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindProgress, out.Kind)
	assert.Equal(t, users.StageMax, u.QuestStage)
	assert.Equal(t, int64(1), u.Electrum)
	require.NotNil(t, out.FollowUp)
	assert.Contains(t, out.FollowUp.Text, questDialogue[users.StageMax])
	assert.Contains(t, out.FollowUp.Text, "+1 Electrum")
}

func TestResolveProgressAdvancesOneStage(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(20, 4, 20))
	u := users.NewUser("123456789012345678")

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindProgress, out.Kind)
	assert.Equal(t, []int{20, 20, 4}, out.Rolls)
	assert.Equal(t, 1, u.QuestStage)
	assert.Equal(t, int64(1), u.Electrum)
	require.NotNil(t, out.FollowUp)
	assert.Contains(t, out.FollowUp.Text, questDialogue[1])
}

func TestResolveTripleOneLosesBeacon(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(1, 1, 1))
	u := userAtStage(t, 5)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindBeaconLost, out.Kind)
	assert.Equal(t, users.StageLost, u.QuestStage)
	assert.Equal(t, int64(1), u.BeaconTouches)
	assert.Nil(t, u.CooldownUntil, "losing the beacon does not start a cooldown")
	require.NotNil(t, out.FollowUp)
	assert.Contains(t, out.FollowUp.Text, "LOSE MY BEACON")
}

func TestResolveAllSingleDigitsDispleases(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(9, 2, 8))
	u := userAtStage(t, 3)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindDispleased, out.Kind)
	assert.Equal(t, 3, u.QuestStage)
	assert.Equal(t, int64(1), u.BeaconTouches)
	require.NotNil(t, u.CooldownUntil)
	assert.Equal(t, now.Add(DispleasedCooldown), *u.CooldownUntil)
}

func TestResolveActiveCooldownBlocksWithoutRolling(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	roller := dice.NewScriptedRoller()
	m := NewMachine(roller)
	u := userAtStage(t, 3)
	u.SetCooldown(now, DispleasedCooldown)

	out, err := m.Resolve(u, now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, KindStillDispleased, out.Kind)
	assert.Empty(t, out.Rolls)
	assert.Zero(t, roller.Remaining())
	assert.Equal(t, int64(0), u.BeaconTouches, "a blocked touch is not counted")
	assert.True(t, out.Reply.Transient)
}

func TestResolveExpiredCooldownClearsAndTouches(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(15, 12, 3))
	u := userAtStage(t, 3)
	u.SetCooldown(now.Add(-time.Hour), DispleasedCooldown)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindGeneric, out.Kind)
	assert.Nil(t, u.CooldownUntil)
	assert.Equal(t, int64(1), u.BeaconTouches)
}

func TestResolveSearchOnCooldownIsTired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	roller := dice.NewScriptedRoller()
	m := NewMachine(roller)
	u := userAtStage(t, users.StageLost)
	u.SetCooldown(now, SearchCooldown)
	before := *u.CooldownUntil

	out, err := m.Resolve(u, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, KindTired, out.Kind)
	assert.Empty(t, out.Rolls)
	assert.Zero(t, roller.Remaining())
	assert.Equal(t, users.StageLost, u.QuestStage)
	require.NotNil(t, u.CooldownUntil)
	assert.Equal(t, before, *u.CooldownUntil)
}

func TestResolveFailedSearchSetsDayCooldown(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(7))
	u := userAtStage(t, users.StageLost)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindSearchFailed, out.Kind)
	assert.Equal(t, []int{7}, out.Rolls)
	assert.Equal(t, users.StageLost, u.QuestStage)
	require.NotNil(t, u.CooldownUntil)
	assert.Equal(t, now.Add(SearchCooldown), *u.CooldownUntil)
	assert.Contains(t, out.Reply.Text, "7")
}

func TestResolveSearchNaturalTwentyFindsBeacon(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(20))
	u := userAtStage(t, users.StageLost)

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindSearchFound, out.Kind)
	assert.Equal(t, 0, u.QuestStage)
	assert.Nil(t, u.CooldownUntil)
	assert.Contains(t, out.Reply.Text, "back pocket")
}

func TestResolveGenericTouch(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := NewMachine(dice.NewScriptedRoller(3, 19, 15))
	u := users.NewUser("123456789012345678")

	out, err := m.Resolve(u, now)
	require.NoError(t, err)

	assert.Equal(t, KindGeneric, out.Kind)
	assert.Equal(t, []int{19, 15, 3}, out.Rolls)
	assert.Contains(t, out.Reply.Text, "19|15|3")
	assert.Nil(t, out.FollowUp)
	assert.True(t, out.Reply.Transient)
	assert.True(t, out.PlayAudio)
	assert.Equal(t, ClipMeridia, out.ClipName)
	assert.Equal(t, 0, u.QuestStage)
	assert.Equal(t, int64(0), u.Electrum)
	assert.Equal(t, int64(1), u.BeaconTouches)
}

func TestTouchAcknowledgmentProgression(t *testing.T) {
	t.Parallel()

	const mention = "<@42>"
	tests := []struct {
		touches int64
		want    string
	}{
		{1, "**A NEW HAND TOUCHES THE BEACON!**"},
		{2, "**A NEW HAND TOUCHES THE BEACON.**"},
		{3, "**<@42> TOUCHES THE BEACON.**"},
		{4, "**<@42> TOUCHES THE BEACON AGAIN.**"},
		{5, "**<@42> TOUCHES THE BEACON. AGAIN.**"},
		{6, "**<@42> TOUCHES THE BEACON. AGAIN...**"},
		{7, "**<@42> TOUCHES THE BEACON. AGAIN. FOR THE 7th TIME.**"},
		{23, "**<@42> TOUCHES THE BEACON. AGAIN. FOR THE 23rd TIME.**"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, touchAcknowledgment(mention, tt.touches))
	}
}

func TestResolveKeepsStageInRange(t *testing.T) {
	t.Parallel()

	m := NewMachine(dice.RandomRoller{})
	u := users.NewUser("123456789012345678")
	now := time.Now().UTC()

	for i := 0; i < 2000; i++ {
		// Step past any cooldown so every kind of branch stays reachable.
		now = now.Add(25 * time.Hour)
		_, err := m.Resolve(u, now)
		require.NoError(t, err)
		require.GreaterOrEqual(t, u.QuestStage, users.StageLost)
		require.LessOrEqual(t, u.QuestStage, users.StageComplete)
		require.GreaterOrEqual(t, u.Electrum, int64(0))
	}
}

func TestQuestDialogueCoversEveryStage(t *testing.T) {
	t.Parallel()

	for i, line := range questDialogue {
		assert.NotEmpty(t, strings.TrimSpace(line), "stage %d", i)
	}
}
