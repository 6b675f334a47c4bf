// Package common — errors.go defines the sentinel errors shared by every
// feature module. Handlers match on them to pick the reply a user sees,
// and services use them to reject invalid mutations without touching state.
package common

import "errors"

// Ledger errors (electrum, quest stage)
var (
	// ErrInsufficientElectrum — a deduction would drive the balance negative
	ErrInsufficientElectrum = errors.New("not enough electrum")
	// ErrStageOutOfRange — quest stage outside the [-1, 20] range
	ErrStageOutOfRange = errors.New("quest stage must be between -1 and 20")
	// ErrInvalidAmount — zero or negative amount where a positive one is required
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrSelfGift — attempt to gift electrum to oneself
	ErrSelfGift = errors.New("cannot gift electrum to yourself")
	// ErrUserNotFound — no ledger record for the given user ID
	ErrUserNotFound = errors.New("user not found")
)

// Coordinator errors
var (
	// ErrUnreachableChannel — the bot cannot respond in the channel at all;
	// the one failure that prevents a touch from being recorded
	ErrUnreachableChannel = errors.New("channel cannot receive responses")
	// ErrCoordinatorClosed — touch submitted after shutdown began
	ErrCoordinatorClosed = errors.New("touch coordinator is shut down")
)

// Privilege errors
var (
	// ErrNotAdmin — caller is not on the admin allowlist
	ErrNotAdmin = errors.New("caller is not an administrator")
	// ErrNotDM — caller is not on the dungeon-master allowlist
	ErrNotDM = errors.New("caller is not a dungeon master")
)
