// machine.go — the pure quest state machine. Given a ledger record and the
// current instant it decides the outcome of one touch attempt: the record
// fields to persist, the messages to send, and whether a voice cue should
// play. No I/O happens here; randomness comes through the injected Roller.
package beacon

import (
	"fmt"
	"sort"
	"time"

	"github.com/Lesamuen/Meridia2/internal/dice"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

// Cooldowns imposed by the beacon.
const (
	// SearchCooldown blocks further searches after a failed attempt to
	// re-find a lost beacon.
	SearchCooldown = 24 * time.Hour
	// DispleasedCooldown blocks touches after an all-single-digit roll.
	DispleasedCooldown = 10 * time.Minute
)

// ClipMeridia is the voice cue played on every processed active-stage touch.
const ClipMeridia = "meridia"

// Electrum rewards.
const (
	progressReward    = 1
	dawnbreakerReward = 50
)

// Kind classifies the outcome of a touch attempt.
type Kind int

const (
	// KindComplete — bearer already holds Dawnbreaker; flavor only.
	KindComplete Kind = iota
	// KindTired — beacon lost and the daily search is on cooldown.
	KindTired
	// KindSearchFound — lost beacon re-found on a natural 20.
	KindSearchFound
	// KindSearchFailed — search failed; day-long cooldown set.
	KindSearchFailed
	// KindStillDispleased — active stage but cooldown blocks the touch.
	KindStillDispleased
	// KindBeaconLost — triple 1; the beacon is misplaced.
	KindBeaconLost
	// KindDispleased — all three dice single-digit; short cooldown set.
	KindDispleased
	// KindDawnbreaker — triple 20; quest complete.
	KindDawnbreaker
	// KindProgress — double 20; stage advanced (capped at 19).
	KindProgress
	// KindGeneric — an ordinary touch with nothing special rolled.
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindComplete:
		return "complete"
	case KindTired:
		return "tired"
	case KindSearchFound:
		return "search_found"
	case KindSearchFailed:
		return "search_failed"
	case KindStillDispleased:
		return "still_displeased"
	case KindBeaconLost:
		return "beacon_lost"
	case KindDispleased:
		return "displeased"
	case KindDawnbreaker:
		return "dawnbreaker"
	case KindProgress:
		return "progress"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Reply is one outbound text with its display-lifetime hint.
type Reply struct {
	Text string
	// Transient replies are removed from the channel after the configured
	// lifetime; permanent ones (quest dialogue, reprimands) stay.
	Transient bool
}

// Outcome describes everything one touch attempt decided. The record
// mutations have already been applied to the snapshot the machine was
// handed; the coordinator persists that snapshot atomically.
type Outcome struct {
	Kind Kind
	// Rolls holds the progression dice sorted descending: three entries
	// for an active-stage touch, one for a search, none when no roll was
	// performed.
	Rolls []int
	// Reply is the primary response.
	Reply Reply
	// FollowUp, when set, is sent after the primary reply (reprimands,
	// quest dialogue, the Dawnbreaker speech).
	FollowUp *Reply
	// PlayAudio requests the named voice cue for the toucher.
	PlayAudio bool
	ClipName  string
}

// Machine resolves touch attempts. Pure aside from the injected dice.
type Machine struct {
	roller dice.Roller
}

// NewMachine creates a state machine rolling with the given Roller.
func NewMachine(roller dice.Roller) *Machine {
	return &Machine{roller: roller}
}

// Resolve decides one touch attempt. It mutates the passed record through
// its bounded setters; the caller persists the record if and only if
// Resolve returns nil.
func (m *Machine) Resolve(u *users.User, now time.Time) (Outcome, error) {
	mention := "<@" + u.UserID + ">"

	// Dawnbreaker bearers are acknowledged before any cooldown handling.
	if u.QuestStage == users.StageComplete {
		flip, err := m.roller.RollSum(1, 2)
		if err != nil {
			return Outcome{}, fmt.Errorf("complete flavor flip: %w", err)
		}
		return Outcome{
			Kind:  KindComplete,
			Reply: Reply{Text: fmt.Sprintf(completeDialogue[flip-1], mention), Transient: true},
		}, nil
	}

	// Lazy expiry: an elapsed cooldown is cleared here so the stale
	// timestamp is overwritten by the same persist that records the touch.
	if u.CooldownUntil != nil && !u.CooldownActive(now) {
		u.ClearCooldown()
	}

	if u.QuestStage == users.StageLost {
		return m.resolveSearch(u, now, mention)
	}

	if u.CooldownActive(now) {
		return Outcome{
			Kind:  KindStillDispleased,
			Reply: Reply{Text: displeasedCooldownMessage, Transient: true},
		}, nil
	}

	return m.resolveTouch(u, now, mention)
}

// resolveSearch handles the lost-beacon stage: once per day, a single d20,
// found again only on a natural 20.
func (m *Machine) resolveSearch(u *users.User, now time.Time, mention string) (Outcome, error) {
	if u.CooldownActive(now) {
		return Outcome{
			Kind:  KindTired,
			Reply: Reply{Text: fmt.Sprintf(tiredMessage, mention), Transient: true},
		}, nil
	}

	roll, err := m.roller.RollSum(1, 20)
	if err != nil {
		return Outcome{}, fmt.Errorf("search roll: %w", err)
	}

	text := fmt.Sprintf(searchIntro, mention, roll)
	if roll == 20 {
		if err := u.SetQuestStage(0); err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Kind:  KindSearchFound,
			Rolls: []int{roll},
			Reply: Reply{Text: text + searchFound},
		}, nil
	}

	u.SetCooldown(now, SearchCooldown)
	return Outcome{
		Kind:  KindSearchFailed,
		Rolls: []int{roll},
		Reply: Reply{Text: text + searchFailed},
	}, nil
}

// resolveTouch handles an unblocked active-stage touch: the counter always
// increments, then 3d20 sorted descending decide the branch.
func (m *Machine) resolveTouch(u *users.User, now time.Time, mention string) (Outcome, error) {
	u.TouchBeacon()

	rolls := make([]int, 3)
	for i := range rolls {
		r, err := m.roller.RollSum(1, 20)
		if err != nil {
			return Outcome{}, fmt.Errorf("touch roll: %w", err)
		}
		rolls[i] = r
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rolls)))
	high, mid, low := rolls[0], rolls[1], rolls[2]

	out := Outcome{
		Kind:  KindGeneric,
		Rolls: rolls,
		Reply: Reply{
			Text: fmt.Sprintf("%s\n%d|%d|%d",
				touchAcknowledgment(mention, u.BeaconTouches), high, mid, low),
			Transient: true,
		},
		PlayAudio: true,
		ClipName:  ClipMeridia,
	}

	switch {
	case high == 1:
		// Sorted descending, so the maximum being 1 means a triple 1.
		if err := u.SetQuestStage(users.StageLost); err != nil {
			return Outcome{}, err
		}
		out.Kind = KindBeaconLost
		out.FollowUp = &Reply{Text: fmt.Sprintf(lostReprimand, mention)}

	case high < 10:
		// Maximum single-digit means all three are.
		u.SetCooldown(now, DispleasedCooldown)
		out.Kind = KindDispleased
		out.FollowUp = &Reply{Text: fmt.Sprintf(displeasedReprimand, mention)}

	case mid == 20:
		if low == 20 {
			if err := u.SetQuestStage(users.StageComplete); err != nil {
				return Outcome{}, err
			}
			if err := u.AddElectrum(dawnbreakerReward); err != nil {
				return Outcome{}, err
			}
			out.Kind = KindDawnbreaker
			out.FollowUp = &Reply{Text: fmt.Sprintf(dawnbreakerDialogue, mention)}
			break
		}

		// Progress caps at 19; only the triple 20 reaches 20.
		if u.QuestStage < users.StageMax {
			if err := u.SetQuestStage(u.QuestStage + 1); err != nil {
				return Outcome{}, err
			}
		}
		if err := u.AddElectrum(progressReward); err != nil {
			return Outcome{}, err
		}
		out.Kind = KindProgress
		out.FollowUp = &Reply{Text: fmt.Sprintf("%s\n%s\n__+1 Electrum__",
			mention, questDialogue[u.QuestStage])}
	}

	return out, nil
}
