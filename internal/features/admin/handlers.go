// handlers.go routes the /admin subcommands. The allowlist check lives
// in the service; denied callers all hear the same rebuff.
package admin

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

// Handlers services the /admin command group.
type Handlers struct {
	service *Service
}

// NewHandlers creates the admin command handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleAdmin dispatches an /admin interaction to its subcommand.
func (h *Handlers) HandleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	callerID := interactionUserID(i)
	if callerID == "" {
		return
	}

	subs := i.ApplicationCommandData().Options
	if len(subs) == 0 {
		return
	}
	sub := subs[0]
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		opts[opt.Name] = opt
	}

	ctx := context.Background()
	switch sub.Name {
	case "setprogress":
		h.setProgress(ctx, s, i, callerID, opts)
	case "resetcd":
		h.resetCooldown(ctx, s, i, callerID, opts)
	case "setcurrency":
		h.setCurrency(ctx, s, i, callerID, opts)
	case "getcurrency":
		h.getCurrency(ctx, s, i, callerID, opts)
	case "pineapple":
		h.pineapple(s, i, callerID)
	default:
		log.WithField("subcommand", sub.Name).Warn("unknown admin subcommand")
	}
}

func (h *Handlers) setProgress(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate,
	callerID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {

	userID := optionUserID(opts, "user")
	stage := int(optionInt(opts, "stage"))
	if userID == "" {
		respond(s, i, "Name a user.", true)
		return
	}

	err := h.service.SetProgress(ctx, callerID, userID, stage)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotAdmin):
			respond(s, i, rebuffLine, true)
		case errors.Is(err, common.ErrStageOutOfRange):
			respond(s, i, "Stages run from -1 to 20.", true)
		default:
			log.WithError(err).Error("setprogress failed")
			respond(s, i, "The ledger refused the change.", true)
		}
		return
	}
	respond(s, i, fmt.Sprintf("Quest stage for <@%s> set to %d.", userID, stage), true)
}

func (h *Handlers) resetCooldown(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate,
	callerID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {

	userID := optionUserID(opts, "user")
	if userID == "" {
		respond(s, i, "Name a user.", true)
		return
	}

	previous, err := h.service.ResetCooldown(ctx, callerID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotAdmin) {
			respond(s, i, rebuffLine, true)
			return
		}
		log.WithError(err).Error("resetcd failed")
		respond(s, i, "The ledger refused the change.", true)
		return
	}
	if previous == nil {
		respond(s, i, fmt.Sprintf("<@%s> had no cooldown set.", userID), true)
		return
	}
	respond(s, i, fmt.Sprintf("Cooldown for <@%s> cleared (ran until %s UTC).",
		userID, common.FormatDateTime(*previous)), true)
}

func (h *Handlers) setCurrency(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate,
	callerID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {

	userID := optionUserID(opts, "user")
	amount := optionInt(opts, "amount")
	if userID == "" {
		respond(s, i, "Name a user.", true)
		return
	}

	err := h.service.SetCurrency(ctx, callerID, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotAdmin):
			respond(s, i, rebuffLine, true)
		case errors.Is(err, common.ErrInsufficientElectrum):
			respond(s, i, "Balances cannot go below zero.", true)
		default:
			log.WithError(err).Error("setcurrency failed")
			respond(s, i, "The ledger refused the change.", true)
		}
		return
	}
	respond(s, i, fmt.Sprintf("Balance for <@%s> set to %d Electrum.", userID, amount), true)
}

func (h *Handlers) getCurrency(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate,
	callerID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {

	userID := optionUserID(opts, "user")
	if userID == "" {
		respond(s, i, "Name a user.", true)
		return
	}

	balance, err := h.service.GetCurrency(ctx, callerID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotAdmin) {
			respond(s, i, rebuffLine, true)
			return
		}
		log.WithError(err).Error("getcurrency failed")
		respond(s, i, "The ledger is out of reach right now.", true)
		return
	}
	respond(s, i, fmt.Sprintf("<@%s> has %d Electrum.", userID, balance), true)
}

func (h *Handlers) pineapple(s *discordgo.Session, i *discordgo.InteractionCreate, callerID string) {
	err := h.service.Pineapple(callerID)
	if err != nil {
		respond(s, i, rebuffLine, true)
		return
	}
	respond(s, i, "Pineapple acknowledged. Going dark.", true)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
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
