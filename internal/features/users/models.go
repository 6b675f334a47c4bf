// Package users owns the per-user ledger record shared by every feature:
// electrum balance, beacon touch counter, quest stage and cooldown.
// models.go defines the record and its bounded mutators; every write path
// (state machine, gifts, admin overrides) goes through these so the
// invariants cannot be bypassed.
package users

import (
	"time"

	"github.com/Lesamuen/Meridia2/internal/common"
)

// Quest stage bounds. -1 means the beacon is lost, 0..19 is the active
// quest, 20 means Dawnbreaker has been claimed.
const (
	StageLost     = -1
	StageMax      = 19
	StageComplete = 20
)

// User is the persisted ledger record for one Discord user.
type User struct {
	UserID        string     `db:"user_id"`        // Discord user snowflake, primary key
	Electrum      int64      `db:"electrum"`       // currency balance, never negative
	BeaconTouches int64      `db:"beacon_touches"` // successful touch count, never decreases
	QuestStage    int        `db:"quest_stage"`    // -1 lost, 0..19 active, 20 complete
	CooldownUntil *time.Time `db:"cooldown_until"` // nil when no cooldown is set
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// NewUser returns a default record for a first-time toucher.
func NewUser(userID string) *User {
	now := time.Now().UTC()
	return &User{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Repositories hand out clones so callers can
// never mutate stored state outside ApplyMutation.
func (u *User) Clone() *User {
	c := *u
	if u.CooldownUntil != nil {
		t := *u.CooldownUntil
		c.CooldownUntil = &t
	}
	return &c
}

// SetQuestStage sets the quest stage, rejecting anything outside [-1, 20].
// Out-of-range values are an error, never clamped.
func (u *User) SetQuestStage(stage int) error {
	if stage < StageLost || stage > StageComplete {
		return common.ErrStageOutOfRange
	}
	u.QuestStage = stage
	return nil
}

// AddElectrum applies a delta to the balance. A delta that would drive the
// balance negative is rejected and the balance is left unchanged.
func (u *User) AddElectrum(delta int64) error {
	if u.Electrum+delta < 0 {
		return common.ErrInsufficientElectrum
	}
	u.Electrum += delta
	return nil
}

// TouchBeacon increments the touch counter by one.
func (u *User) TouchBeacon() {
	u.BeaconTouches++
}

// SetCooldown blocks beacon processing until now + d.
func (u *User) SetCooldown(now time.Time, d time.Duration) {
	t := now.Add(d)
	u.CooldownUntil = &t
}

// ClearCooldown removes any cooldown timestamp.
func (u *User) ClearCooldown() {
	u.CooldownUntil = nil
}

// CooldownActive reports whether a cooldown blocks the user at the given
// instant. An expired timestamp counts as absent even before the clearing
// write lands (lazy expiry).
func (u *User) CooldownActive(now time.Time) bool {
	return u.CooldownUntil != nil && now.Before(*u.CooldownUntil)
}
