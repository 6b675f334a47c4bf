// Package electrum exposes the currency side of the ledger: balance
// lookups, gifts between users, and the DM's roll-call reward.
package electrum

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/common"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

// RollCallReward is what attending a session is worth.
const RollCallReward = 1

// Service implements the currency operations over the shared ledger.
type Service struct {
	repo users.Repository
	// dmIDs is the allowlist for roll-call grants.
	dmIDs map[string]struct{}
}

// NewService creates the currency service. dmIDs are the Discord IDs
// allowed to call roll.
func NewService(repo users.Repository, dmIDs []string) *Service {
	allow := make(map[string]struct{}, len(dmIDs))
	for _, id := range dmIDs {
		allow[id] = struct{}{}
	}
	return &Service{repo: repo, dmIDs: allow}
}

// IsDM reports whether the user may call roll.
func (s *Service) IsDM(userID string) bool {
	_, ok := s.dmIDs[userID]
	return ok
}

// Balance returns the user's electrum, creating the record on first
// sight like any other touch point.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	u, err := s.repo.FindOrCreate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("loading ledger record: %w", err)
	}
	return u.Electrum, nil
}

// Gift moves amount from one user to another and returns the sender's
// new balance. Validation sentinels come straight from the repository.
func (s *Service) Gift(ctx context.Context, fromID, toID string, amount int64) (int64, error) {
	if _, err := s.repo.FindOrCreate(ctx, fromID); err != nil {
		return 0, fmt.Errorf("loading sender record: %w", err)
	}
	if _, err := s.repo.FindOrCreate(ctx, toID); err != nil {
		return 0, fmt.Errorf("loading recipient record: %w", err)
	}

	if err := s.repo.Transfer(ctx, fromID, toID, amount); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"from_id": fromID,
		"to_id":   toID,
		"amount":  amount,
	}).Info("electrum gifted")

	u, err := s.repo.Get(ctx, fromID)
	if err != nil {
		return 0, fmt.Errorf("reading sender balance: %w", err)
	}
	return u.Electrum, nil
}

// RollCall rewards one attendee with a single electrum. Only DMs may
// call it; anyone else gets ErrNotDM.
func (s *Service) RollCall(ctx context.Context, callerID, attendeeID string) (int64, error) {
	if !s.IsDM(callerID) {
		log.WithField("user_id", callerID).Warn("roll call denied")
		return 0, common.ErrNotDM
	}

	if _, err := s.repo.FindOrCreate(ctx, attendeeID); err != nil {
		return 0, fmt.Errorf("loading attendee record: %w", err)
	}
	u, err := s.repo.ApplyMutation(ctx, attendeeID, func(u *users.User) error {
		return u.AddElectrum(RollCallReward)
	})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"caller_id":   callerID,
		"attendee_id": attendeeID,
	}).Info("roll call reward granted")
	return u.Electrum, nil
}
