// Package admin implements the maintainer command group: direct ledger
// edits behind the ADMIN_IDS allowlist, and the remote shutdown.
package admin

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/common"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

// Service performs privileged ledger edits. Every write goes through the
// same bounded mutators as the quest machine, so admin typos cannot put
// a record outside its invariants.
type Service struct {
	repo users.Repository
	// adminIDs is the allowlist for every operation here.
	adminIDs map[string]struct{}
	// shutdown asks the process to stop; wired to the app's stop channel.
	shutdown func()
}

// NewService creates the admin service. shutdown is invoked by the
// pineapple command and may be nil in tests.
func NewService(repo users.Repository, adminIDs []string, shutdown func()) *Service {
	allow := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		allow[id] = struct{}{}
	}
	return &Service{repo: repo, adminIDs: allow, shutdown: shutdown}
}

// IsAdmin reports whether the user is on the allowlist.
func (s *Service) IsAdmin(userID string) bool {
	_, ok := s.adminIDs[userID]
	return ok
}

// authorize gates every operation and logs denials.
func (s *Service) authorize(callerID, op string) error {
	if s.IsAdmin(callerID) {
		return nil
	}
	log.WithFields(log.Fields{
		"user_id":   callerID,
		"operation": op,
	}).Warn("admin command denied")
	return common.ErrNotAdmin
}

// SetProgress forces a user's quest stage. Out-of-range stages are
// rejected with ErrStageOutOfRange by the record itself.
func (s *Service) SetProgress(ctx context.Context, callerID, userID string, stage int) error {
	if err := s.authorize(callerID, "setprogress"); err != nil {
		return err
	}
	if _, err := s.repo.FindOrCreate(ctx, userID); err != nil {
		return fmt.Errorf("loading ledger record: %w", err)
	}
	_, err := s.repo.ApplyMutation(ctx, userID, func(u *users.User) error {
		return u.SetQuestStage(stage)
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin_id": callerID,
		"user_id":  userID,
		"stage":    stage,
	}).Info("quest stage set by admin")
	return nil
}

// ResetCooldown clears a user's cooldown and returns the timestamp that
// was cleared, nil when none was set.
func (s *Service) ResetCooldown(ctx context.Context, callerID, userID string) (*time.Time, error) {
	if err := s.authorize(callerID, "resetcd"); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("loading ledger record: %w", err)
	}
	var previous *time.Time
	_, err := s.repo.ApplyMutation(ctx, userID, func(u *users.User) error {
		previous = u.CooldownUntil
		u.ClearCooldown()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"admin_id": callerID,
		"user_id":  userID,
	}).Info("cooldown cleared by admin")
	return previous, nil
}

// SetCurrency sets a user's balance to an absolute amount. The bounded
// mutator applies the difference, so a negative target is rejected with
// ErrInsufficientElectrum.
func (s *Service) SetCurrency(ctx context.Context, callerID, userID string, amount int64) error {
	if err := s.authorize(callerID, "setcurrency"); err != nil {
		return err
	}
	if _, err := s.repo.FindOrCreate(ctx, userID); err != nil {
		return fmt.Errorf("loading ledger record: %w", err)
	}
	_, err := s.repo.ApplyMutation(ctx, userID, func(u *users.User) error {
		return u.AddElectrum(amount - u.Electrum)
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin_id": callerID,
		"user_id":  userID,
		"amount":   amount,
	}).Info("balance set by admin")
	return nil
}

// GetCurrency reads a user's balance.
func (s *Service) GetCurrency(ctx context.Context, callerID, userID string) (int64, error) {
	if err := s.authorize(callerID, "getcurrency"); err != nil {
		return 0, err
	}
	u, err := s.repo.FindOrCreate(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("loading ledger record: %w", err)
	}
	return u.Electrum, nil
}

// Pineapple requests a graceful shutdown. The delay gives the
// acknowledgment a chance to reach the channel first.
func (s *Service) Pineapple(callerID string) error {
	if err := s.authorize(callerID, "pineapple"); err != nil {
		return err
	}
	log.WithField("admin_id", callerID).Info("shutdown requested")
	if s.shutdown != nil {
		time.AfterFunc(time.Second, s.shutdown)
	}
	return nil
}
