// handlers.go — the three trigger adapters: a substring scan over ordinary
// messages, a reaction-add listener, and the /touchthebeacon command. Each
// builds an Event (resolving the actor's voice presence on the way) and
// feeds the coordinator; everything after that is the coordinator's job.
package beacon

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/bot/middleware"
	"github.com/Lesamuen/Meridia2/internal/common"
)

// Handlers adapts gateway events into touch events.
type Handlers struct {
	coordinator  *Coordinator
	triggerToken string
	triggerEmoji string
	limiter      *middleware.RateLimiter
}

// NewHandlers creates the trigger adapters.
func NewHandlers(coordinator *Coordinator, triggerToken, triggerEmoji string, limiter *middleware.RateLimiter) *Handlers {
	return &Handlers{
		coordinator:  coordinator,
		triggerToken: triggerToken,
		triggerEmoji: triggerEmoji,
		limiter:      limiter,
	}
}

// OnMessageCreate fires a touch when the trigger token appears in a
// non-bot message.
func (h *Handlers) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer middleware.RecoverFromPanic()

	if m.Author == nil || m.Author.Bot {
		return
	}
	if !strings.Contains(m.Content, h.triggerToken) {
		return
	}
	if !h.limiter.Allow(m.Author.ID) {
		log.WithField("user_id", m.Author.ID).Debug("touch rate limited")
		return
	}

	middleware.LogTrigger(string(SourceMessage), m.Author.ID, m.ChannelID, m.Content)

	h.touch(s, Event{
		UserID:    m.Author.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		MessageID: m.ID,
		Source:    SourceMessage,
	})
}

// OnReactionAdd fires a touch when the trigger emoji is added by a
// non-bot member.
func (h *Handlers) OnReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	defer middleware.RecoverFromPanic()

	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	if r.Emoji.Name != h.triggerEmoji {
		return
	}
	if !h.limiter.Allow(r.UserID) {
		log.WithField("user_id", r.UserID).Debug("touch rate limited")
		return
	}

	middleware.LogTrigger(string(SourceReaction), r.UserID, r.ChannelID, r.Emoji.Name)

	h.touch(s, Event{
		UserID:    r.UserID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		MessageID: r.MessageID,
		Source:    SourceReaction,
	})
}

// HandleTouchCommand services /touchthebeacon. The interaction gets the
// original's short acknowledgment; the real response goes through the
// coordinator like any other trigger.
func (h *Handlers) HandleTouchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	if i.Member == nil || i.Member.User == nil {
		return // guild-only command
	}
	userID := i.Member.User.ID

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "You touch the beacon.",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Warn("interaction ack failed")
	}

	h.touch(s, Event{
		UserID:    userID,
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		Source:    SourceCommand,
	})
}

// touch resolves voice presence and submits the event.
func (h *Handlers) touch(s *discordgo.Session, event Event) {
	event.VoiceChannelID = voiceChannelOf(s, event.GuildID, event.UserID)

	if _, err := h.coordinator.Touch(context.Background(), event); err != nil {
		if errors.Is(err, common.ErrUnreachableChannel) {
			return // already logged by the coordinator
		}
		log.WithError(err).WithField("user_id", event.UserID).Error("touch failed")
	}
}

// voiceChannelOf returns the user's current voice channel in the guild,
// or empty when absent.
func voiceChannelOf(s *discordgo.Session, guildID, userID string) string {
	if guildID == "" {
		return ""
	}
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
