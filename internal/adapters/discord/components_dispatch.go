package discord

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic en component handler: %v", rec)
		}
	}()

	if ic.Member == nil || ic.Member.User == nil {
		return
	}
	if !r.clickLimiter.Allow(ic.Member.User.ID) {
		_ = SendEphemeral(s, ic, "🐢 Tranquilo, un click por segundo.")
		return
	}

	switch ic.MessageComponentData().CustomID {
	case megaSelectID:
		r.handleMegaSelect(s, ic)
	case shinySelectID:
		r.handleShinySelect(s, ic)
	default:
		log.Printf("componente desconocido: %s", ic.MessageComponentData().CustomID)
	}
}

func (r *Router) handleModalSubmit(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic en modal handler: %v", rec)
		}
	}()

	if ic.Member == nil || ic.Member.User == nil {
		return
	}

	switch ic.ModalSubmitData().CustomID {
	case registerModalID:
		r.handleRegisterModal(s, ic)
	case megaDetailModalID:
		r.handleMegaDetailModal(s, ic)
	default:
		log.Printf("modal desconocido: %s", ic.ModalSubmitData().CustomID)
	}
}
