package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
	"github.com/jose-valero/union-circle-bot/internal/infra/storage"
)

// ChannelCfg: presentación del open/close (rename con emoji + permisos).
type ChannelCfg struct {
	LockEmoji     string
	UnlockEmoji   string
	ManagedRoleID string
}

type Router struct {
	s       *discordgo.Session
	guildID string

	channel  ChannelCfg
	queue    *service.QueueService
	register *service.RegisterService
	bans     *storage.BanRepo

	hostRoleIDs  []string
	clickLimiter *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	channel ChannelCfg,
	queue *service.QueueService,
	register *service.RegisterService,
	bans *storage.BanRepo,
	hostRoleIDs []string,
) *Router {
	if channel.LockEmoji == "" {
		channel.LockEmoji = "❌"
	}
	if channel.UnlockEmoji == "" {
		channel.UnlockEmoji = "✅"
	}
	return &Router{
		s:            s,
		guildID:      guildID,
		channel:      channel,
		queue:        queue,
		register:     register,
		bans:         bans,
		hostRoleIDs:  hostRoleIDs,
		clickLimiter: newUserLimiter(1 * time.Second),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		case discordgo.InteractionModalSubmit:
			r.handleModalSubmit(s, ic)
		}
	})
}
