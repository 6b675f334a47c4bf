// handlers.go services the /balance, /gift and /rollcall slash commands.
package electrum

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/bot/middleware"
	"github.com/Lesamuen/Meridia2/internal/common"
)

const rebuffLine = "I don't know you, and I don't care to know you."

// Handlers answers the currency commands.
type Handlers struct {
	service *Service
}

// NewHandlers creates the currency command handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleBalance services /balance.
func (h *Handlers) HandleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	userID := interactionUserID(i)
	if userID == "" {
		return
	}

	balance, err := h.service.Balance(context.Background(), userID)
	if err != nil {
		log.WithError(err).Error("balance lookup failed")
		respond(s, i, "The ledger is out of reach right now.", true)
		return
	}

	respond(s, i, fmt.Sprintf("You have **%d** Electrum.", balance), true)
}

// HandleGift services /gift user amount.
func (h *Handlers) HandleGift(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	userID := interactionUserID(i)
	if userID == "" {
		return
	}

	opts := optionMap(i)
	recipient := optionUserID(opts, "user")
	amount := optionInt(opts, "amount")
	if recipient == "" {
		respond(s, i, "Name a recipient.", true)
		return
	}

	newBalance, err := h.service.Gift(context.Background(), userID, recipient, amount)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrSelfGift):
			respond(s, i, "You cannot gift Electrum to yourself.", true)
		case errors.Is(err, common.ErrInvalidAmount):
			respond(s, i, "The amount must be a positive number.", true)
		case errors.Is(err, common.ErrInsufficientElectrum):
			respond(s, i, "You do not have that much Electrum.", true)
		default:
			log.WithError(err).Error("gift failed")
			respond(s, i, "The transfer could not be completed.", true)
		}
		return
	}

	respond(s, i, fmt.Sprintf("You gift **%d** Electrum to <@%s>. You have **%d** Electrum left.",
		amount, recipient, newBalance), false)
}

// HandleRollCall services /rollcall user, the DM's attendance reward.
func (h *Handlers) HandleRollCall(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	userID := interactionUserID(i)
	if userID == "" {
		return
	}

	opts := optionMap(i)
	attendee := optionUserID(opts, "user")
	if attendee == "" {
		respond(s, i, "Name an attendee.", true)
		return
	}

	newBalance, err := h.service.RollCall(context.Background(), userID, attendee)
	if err != nil {
		if errors.Is(err, common.ErrNotDM) {
			respond(s, i, rebuffLine, true)
			return
		}
		log.WithError(err).Error("roll call failed")
		respond(s, i, "The reward could not be granted.", true)
		return
	}

	respond(s, i, fmt.Sprintf("<@%s> answered the roll call and earns **%d** Electrum (now **%d**).",
		attendee, RollCallReward, newBalance), false)
}

// interactionUserID returns the acting user's ID from a guild or DM
// interaction, empty when absent.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func optionUserID(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := opts[name]
	if !ok {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

func optionInt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	opt, ok := opts[name]
	if !ok {
		return 0
	}
	return opt.IntValue()
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.WithError(err).Warn("interaction response failed")
	}
}
