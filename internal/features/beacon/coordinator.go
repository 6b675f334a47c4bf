// coordinator.go — the single entry point every trigger source calls.
// It serializes touches per user, runs the state machine inside the
// repository's atomic mutation, and fans the decision out to the message
// and audio collaborators. Delivery is best-effort: a failed send never
// rolls back a persisted mutation.
package beacon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/common"
	"github.com/Lesamuen/Meridia2/internal/features/users"
)

// Source identifies which trigger produced a touch event.
type Source string

const (
	SourceMessage  Source = "message"
	SourceReaction Source = "reaction"
	SourceCommand  Source = "command"
)

// Event is one touch attempt, regardless of trigger source.
type Event struct {
	UserID    string
	ChannelID string
	GuildID   string
	// VoiceChannelID is the actor's current voice channel, empty when not
	// in voice. Resolved by the trigger adapter.
	VoiceChannelID string
	// MessageID, when set, is the triggering message the reply references.
	MessageID string
	Source    Source
}

// OutboundMessage is a response handed to the channel collaborator.
type OutboundMessage struct {
	ChannelID string
	Text      string
	// AutoRemoveAfter > 0 asks the sender to delete the message after the
	// given lifetime.
	AutoRemoveAfter time.Duration
	ReplyToID       string
}

// Sender delivers responses. CanSend is the capability probe run before
// any state is touched.
type Sender interface {
	CanSend(channelID string) bool
	Send(ctx context.Context, msg OutboundMessage) error
}

// AudioCueRequest names a clip to play in a voice channel.
type AudioCueRequest struct {
	GuildID        string
	VoiceChannelID string
	ClipName       string
}

// CuePlayer plays voice cues. Connection lifecycle is its problem.
type CuePlayer interface {
	Play(ctx context.Context, req AudioCueRequest) error
}

// Coordinator routes touch events into per-user FIFO queues. Events for
// one user are processed strictly in acceptance order with no
// interleaving; distinct users run fully in parallel.
type Coordinator struct {
	repo    users.Repository
	machine *Machine
	sender  Sender
	audio   CuePlayer
	// messageTTL is the lifetime applied to transient replies.
	messageTTL time.Duration
	now        func() time.Time

	mu     sync.Mutex
	queues map[string]*userQueue
	closed bool
	wg     sync.WaitGroup
}

type touchTask struct {
	ctx   context.Context
	event Event
	done  chan touchResult
}

type touchResult struct {
	outcome Outcome
	err     error
}

// userQueue is a single-consumer queue for one user ID. The slice is
// guarded by the coordinator mutex; the worker drains it in order and
// retires when it is empty.
type userQueue struct {
	tasks []touchTask
}

// NewCoordinator wires the touch pipeline together.
func NewCoordinator(repo users.Repository, machine *Machine, sender Sender, audio CuePlayer, messageTTL time.Duration) *Coordinator {
	return &Coordinator{
		repo:       repo,
		machine:    machine,
		sender:     sender,
		audio:      audio,
		messageTTL: messageTTL,
		now:        func() time.Time { return time.Now().UTC() },
		queues:     make(map[string]*userQueue),
	}
}

// Touch accepts one touch event, waits for it to be processed, and
// returns the decision. Acceptance order per user is processing order.
func (c *Coordinator) Touch(ctx context.Context, event Event) (Outcome, error) {
	task := touchTask{ctx: ctx, event: event, done: make(chan touchResult, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, common.ErrCoordinatorClosed
	}
	q, ok := c.queues[event.UserID]
	if !ok {
		q = &userQueue{}
		c.queues[event.UserID] = q
		c.wg.Add(1)
		go c.drain(event.UserID, q)
	}
	q.tasks = append(q.tasks, task)
	c.mu.Unlock()

	res := <-task.done
	return res.outcome, res.err
}

// drain processes one user's queue until it is empty, then removes it.
func (c *Coordinator) drain(userID string, q *userQueue) {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		if len(q.tasks) == 0 {
			delete(c.queues, userID)
			c.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		c.mu.Unlock()

		outcome, err := c.process(task.ctx, task.event)
		task.done <- touchResult{outcome: outcome, err: err}
	}
}

// Close stops accepting touches and waits for in-flight ones to finish.
// Accepted touches always run to completion.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

// process runs one touch end to end: capability check, load-or-create,
// machine decision inside the atomic mutation, then side-effect fan-out.
func (c *Coordinator) process(ctx context.Context, event Event) (Outcome, error) {
	eventID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"event_id":   eventID,
		"user_id":    event.UserID,
		"channel_id": event.ChannelID,
		"source":     event.Source,
	})

	// The one failure that prevents a touch from being recorded: the
	// channel cannot receive responses at all.
	if !c.sender.CanSend(event.ChannelID) {
		logger.Warn("beacon touched where Meridia's influence does not reach")
		return Outcome{}, common.ErrUnreachableChannel
	}

	if _, err := c.repo.FindOrCreate(ctx, event.UserID); err != nil {
		return Outcome{}, fmt.Errorf("loading ledger record: %w", err)
	}

	// The decision runs inside ApplyMutation so the read-roll-write is
	// atomic on the store even without the per-user queue above it.
	var outcome Outcome
	_, err := c.repo.ApplyMutation(ctx, event.UserID, func(u *users.User) error {
		var resolveErr error
		outcome, resolveErr = c.machine.Resolve(u, c.now())
		return resolveErr
	})
	if err != nil {
		logger.WithError(err).Error("touch decision failed")
		return Outcome{}, err
	}

	logger.WithFields(log.Fields{
		"outcome": outcome.Kind.String(),
		"rolls":   outcome.Rolls,
	}).Info("beacon touched")

	// Everything below is best-effort: the mutation is already committed.
	c.deliver(ctx, event, outcome, logger)
	return outcome, nil
}

// deliver sends the decision's messages and audio cue, logging failures.
func (c *Coordinator) deliver(ctx context.Context, event Event, outcome Outcome, logger *log.Entry) {
	msg := OutboundMessage{
		ChannelID: event.ChannelID,
		Text:      outcome.Reply.Text,
		ReplyToID: event.MessageID,
	}
	if outcome.Reply.Transient {
		msg.AutoRemoveAfter = c.messageTTL
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		logger.WithError(err).Warn("response not delivered; quest progressed regardless")
	}

	if outcome.FollowUp != nil {
		followUp := OutboundMessage{ChannelID: event.ChannelID, Text: outcome.FollowUp.Text}
		if outcome.FollowUp.Transient {
			followUp.AutoRemoveAfter = c.messageTTL
		}
		if err := c.sender.Send(ctx, followUp); err != nil {
			logger.WithError(err).Warn("follow-up not delivered")
		}
	}

	if outcome.PlayAudio && event.VoiceChannelID != "" && c.audio != nil {
		err := c.audio.Play(ctx, AudioCueRequest{
			GuildID:        event.GuildID,
			VoiceChannelID: event.VoiceChannelID,
			ClipName:       outcome.ClipName,
		})
		if err != nil {
			logger.WithError(err).Warn("audio cue failed")
		}
	}
}
