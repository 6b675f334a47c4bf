// Package bot owns the Discord gateway session: intents, event handler
// registration, slash-command registration and routing, and the channel
// sender the beacon coordinator delivers through.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/config"
	"github.com/Lesamuen/Meridia2/internal/features/admin"
	"github.com/Lesamuen/Meridia2/internal/features/beacon"
	"github.com/Lesamuen/Meridia2/internal/features/electrum"
)

// Bot wires gateway events to the feature handlers.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	beacon   *beacon.Handlers
	electrum *electrum.Handlers
	admin    *admin.Handlers

	// registered remembers the slash commands created at startup so Stop
	// can remove them again.
	registered []*discordgo.ApplicationCommand
}

// New creates the bot around an already-authenticated session.
func New(session *discordgo.Session, cfg *config.Config,
	beaconHandlers *beacon.Handlers, electrumHandlers *electrum.Handlers, adminHandlers *admin.Handlers) *Bot {

	return &Bot{
		session:  session,
		cfg:      cfg,
		beacon:   beaconHandlers,
		electrum: electrumHandlers,
		admin:    adminHandlers,
	}
}

// NewSession builds an unconnected session with the intents the trigger
// adapters need. Start opens it.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates
	session.State.TrackVoice = true
	return session, nil
}

// Start registers handlers, connects to the gateway and publishes the
// slash commands.
func (b *Bot) Start() error {
	b.session.AddHandler(b.beacon.OnMessageCreate)
	b.session.AddHandler(b.beacon.OnReactionAdd)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.WithField("username", r.User.Username).Info("logged in to Discord")
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}
	return nil
}

// Stop removes the published commands and closes the gateway connection.
func (b *Bot) Stop() {
	appID := b.session.State.User.ID
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			log.WithError(err).WithField("command", cmd.Name).Warn("command cleanup failed")
		}
	}
	if err := b.session.Close(); err != nil {
		log.WithError(err).Warn("gateway close failed")
	}
	log.Info("disconnected from Discord")
}

// onInteractionCreate routes slash commands to their feature handlers.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "touchthebeacon":
		b.beacon.HandleTouchCommand(s, i)
	case "balance":
		b.electrum.HandleBalance(s, i)
	case "gift":
		b.electrum.HandleGift(s, i)
	case "rollcall":
		b.electrum.HandleRollCall(s, i)
	case "admin":
		b.admin.HandleAdmin(s, i)
	default:
		log.WithField("command", i.ApplicationCommandData().Name).Warn("unknown command")
	}
}

// registerCommands publishes the global slash commands.
func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, cmd := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(appID, "", cmd)
		if err != nil {
			return fmt.Errorf("registering /%s: %w", cmd.Name, err)
		}
		b.registered = append(b.registered, created)
	}
	log.WithField("count", len(b.registered)).Info("slash commands registered")
	return nil
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	var (
		minStage  = float64(-1)
		maxStage  = float64(20)
		minAmount = float64(1)
		minZero   = float64(0)
	)

	userOption := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "touchthebeacon",
			Description: "Touch the beacon.",
		},
		{
			Name:        "balance",
			Description: "Show your Electrum balance.",
		},
		{
			Name:        "gift",
			Description: "Gift Electrum to another user.",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Recipient of the gift."),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "How much Electrum to gift.",
					Required:    true,
					MinValue:    &minAmount,
				},
			},
		},
		{
			Name:        "rollcall",
			Description: "Reward a session attendee (DM only).",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Attendee to reward."),
			},
		},
		{
			Name:        "admin",
			Description: "Maintainer commands.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setprogress",
					Description: "Set a user's quest stage.",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("User to edit."),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stage",
							Description: "Quest stage (-1 to 20).",
							Required:    true,
							MinValue:    &minStage,
							MaxValue:    maxStage,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetcd",
					Description: "Clear a user's cooldown.",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("User to edit."),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setcurrency",
					Description: "Set a user's Electrum balance.",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("User to edit."),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "New balance (0 or more).",
							Required:    true,
							MinValue:    &minZero,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "getcurrency",
					Description: "Read a user's Electrum balance.",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("User to look up."),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pineapple",
					Description: "Shut the bot down.",
				},
			},
		},
	}
}

// ChannelSender delivers coordinator messages through the session.
// Implements beacon.Sender.
type ChannelSender struct {
	session *discordgo.Session
}

// NewChannelSender creates the sender.
func NewChannelSender(session *discordgo.Session) *ChannelSender {
	return &ChannelSender{session: session}
}

// CanSend reports whether the bot may post in the channel. The state
// cache answers first; a cache miss falls back to the REST lookup.
func (cs *ChannelSender) CanSend(channelID string) bool {
	if cs.session.State == nil || cs.session.State.User == nil {
		return false
	}
	perms, err := cs.session.State.UserChannelPermissions(cs.session.State.User.ID, channelID)
	if err != nil {
		perms, err = cs.session.UserChannelPermissions(cs.session.State.User.ID, channelID)
		if err != nil {
			log.WithError(err).WithField("channel_id", channelID).Debug("permission lookup failed")
			return false
		}
	}
	return perms&discordgo.PermissionSendMessages != 0
}

// Send posts one message, optionally as a reply, and schedules the
// deletion of transient messages.
func (cs *ChannelSender) Send(_ context.Context, msg beacon.OutboundMessage) error {
	send := &discordgo.MessageSend{Content: msg.Text}
	if msg.ReplyToID != "" {
		send.Reference = &discordgo.MessageReference{
			MessageID: msg.ReplyToID,
			ChannelID: msg.ChannelID,
		}
	}

	posted, err := cs.session.ChannelMessageSendComplex(msg.ChannelID, send)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	if msg.AutoRemoveAfter > 0 {
		channelID, messageID := posted.ChannelID, posted.ID
		time.AfterFunc(msg.AutoRemoveAfter, func() {
			if err := cs.session.ChannelMessageDelete(channelID, messageID); err != nil {
				log.WithError(err).WithField("message_id", messageID).Debug("auto-remove failed")
			}
		})
	}
	return nil
}
