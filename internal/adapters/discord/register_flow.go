package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
)

// IDs del wizard de registro (modales y selects).
const (
	registerModalID   = "uc_register_modal"
	megaDetailModalID = "uc_mega_modal"
	megaSelectID      = "uc_mega_select"
	shinySelectID     = "uc_shiny_select"
)

// handleRegisterCommand arranca el intake: ban + duplicado y recién ahí el
// modal. Un modal no admite defer previo, por eso /register no difiere.
func (r *Router) handleRegisterCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	sc, err := r.intakeScope(ic)
	if err != nil {
		_ = SendEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	status, err := r.register.Begin(ctx, sc)
	if err != nil {
		_ = SendEphemeral(s, ic, registerErrMsg(err, status))
		return
	}

	_ = RespondModal(s, ic, &discordgo.InteractionResponseData{
		CustomID: registerModalID,
		Title:    "Union Circle Registration",
		Components: []discordgo.MessageComponent{
			textRow("ign", "In-Game Name", "Tu nombre dentro del juego", true, 20),
			textRow("pokemon", "Pokémon", "Pokémon que llevás", true, 30),
			textRow("level", "Pokémon Level", "ej: 100 (opcional)", false, 3),
			textRow("item", "Holding Item", "ej: Cherish Ball (opcional)", false, 30),
		},
	})
}

// handleRegisterModal: paso de campos base -> select de mega.
func (r *Router) handleRegisterModal(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	sc, err := r.intakeScope(ic)
	if err != nil {
		_ = SendEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	data := ic.ModalSubmitData()
	fields := service.CoreFields{
		IGN:          modalValue(data, 0),
		Pokemon:      modalValue(data, 1),
		PokemonLevel: modalValue(data, 2),
		HoldingItem:  modalValue(data, 3),
	}

	if err := r.register.SubmitFields(ctx, sc, fields); err != nil {
		_ = SendEphemeral(s, ic, registerErrMsg(err, service.UserStatus{}))
		return
	}

	err = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "¿Tu Pokémon es una Mega Evolución?",
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{yesNoSelect(megaSelectID, "¿Mega Evolución?")},
		},
	})
	if err != nil {
		log.Printf("register: no pude mostrar el select de mega: %v", err)
	}
}

// handleMegaSelect: sí -> modal de detalle; no -> select de shiny.
func (r *Router) handleMegaSelect(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sc, err := r.intakeScope(ic)
	if err != nil {
		_ = SendEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	values := ic.MessageComponentData().Values
	if len(values) == 0 {
		_ = UpdateComponentMessage(s, ic, "⚠️ Selección inválida.", nil)
		return
	}
	mega := values[0] == "Yes"

	needDetail, err := r.register.ChooseMega(sc, mega)
	if err != nil {
		_ = UpdateComponentMessage(s, ic, registerErrMsg(err, service.UserStatus{}), nil)
		return
	}

	if needDetail {
		_ = RespondModal(s, ic, &discordgo.InteractionResponseData{
			CustomID: megaDetailModalID,
			Title:    "Mega Evolution Details",
			Components: []discordgo.MessageComponent{
				textRow("mega_details", "Mega Evolution Details", "ej: Mega Charizard X", true, 30),
			},
		})
		return
	}
	_ = UpdateComponentMessage(s, ic, "¿Tu Pokémon es shiny?",
		[]discordgo.MessageComponent{yesNoSelect(shinySelectID, "¿Shiny?")})
}

// handleMegaDetailModal: guarda el detalle y pasa a shiny.
func (r *Router) handleMegaDetailModal(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sc, err := r.intakeScope(ic)
	if err != nil {
		_ = SendEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	detail := modalValue(ic.ModalSubmitData(), 0)
	if err := r.register.SubmitMegaDetail(sc, detail); err != nil {
		_ = SendEphemeral(s, ic, registerErrMsg(err, service.UserStatus{}))
		return
	}

	err = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "¿Tu Pokémon es shiny?",
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{yesNoSelect(shinySelectID, "¿Shiny?")},
		},
	})
	if err != nil {
		log.Printf("register: no pude mostrar el select de shiny: %v", err)
	}
}

// handleShinySelect: paso final, inserta en la waitlist y confirma.
func (r *Router) handleShinySelect(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	sc, err := r.intakeScope(ic)
	if err != nil {
		_ = SendEphemeral(s, ic, "⚠️ No pude resolver el canal: "+err.Error())
		return
	}

	values := ic.MessageComponentData().Values
	if len(values) == 0 {
		_ = UpdateComponentMessage(s, ic, "⚠️ Selección inválida.", nil)
		return
	}

	res, err := r.register.ChooseShiny(ctx, sc, values[0] == "Yes")
	if err != nil {
		_ = UpdateComponentMessage(s, ic, registerErrMsg(err, service.UserStatus{}), nil)
		return
	}

	_ = UpdateComponentMessage(s, ic, fmt.Sprintf(
		"✅ ¡Registro completo! Sos el número **%d** de la waitlist. Espera estimada: **%s**",
		res.Position, res.Wait.Label), nil)
}

func (r *Router) intakeScope(ic *discordgo.InteractionCreate) (service.Scope, error) {
	key, err := r.channelKey(ic)
	if err != nil {
		return service.Scope{}, err
	}
	return service.Scope{
		ChannelKey: key,
		ChannelID:  ic.ChannelID,
		GuildID:    ic.GuildID,
		UserID:     ic.Member.User.ID,
	}, nil
}

func registerErrMsg(err error, status service.UserStatus) string {
	var banned *service.BannedError
	switch {
	case errors.As(err, &banned):
		return "⛔ " + banned.Error()
	case errors.Is(err, service.ErrAlreadyRegistered):
		msg := "Ya estás registrado en este Union Circle."
		switch status.List {
		case service.InSession:
			msg += fmt.Sprintf(" Estás en la sesión activa, posición %d.", status.Position)
		case service.InQueue:
			msg += fmt.Sprintf(" Estás en la cola principal, posición %d.", status.Position)
		case service.InWaitlist:
			msg += fmt.Sprintf(" Estás en la waitlist, posición %d.", status.Position)
		}
		return msg + " No podés registrarte dos veces."
	case errors.Is(err, service.ErrNoPending):
		return "No encontré un registro en curso. Usá `/register` para empezar de nuevo."
	case errors.Is(err, service.ErrMissingFields):
		return "Faltan campos obligatorios (IGN y Pokémon). Usá `/register` para empezar de nuevo."
	default:
		return "⚠️ No se pudo completar el registro: " + err.Error()
	}
}

func textRow(id, label, placeholder string, required bool, maxLen int) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:    id,
			Label:       label,
			Style:       discordgo.TextInputShort,
			Placeholder: placeholder,
			Required:    required,
			MaxLength:   maxLen,
		},
	}}
}

func yesNoSelect(customID, placeholder string) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    customID,
			Placeholder: placeholder,
			Options: []discordgo.SelectMenuOption{
				{Label: "Yes", Value: "Yes"},
				{Label: "No", Value: "No"},
			},
		},
	}}
}

func modalValue(data discordgo.ModalSubmitInteractionData, idx int) string {
	if idx >= len(data.Components) {
		return ""
	}
	row, ok := data.Components[idx].(*discordgo.ActionsRow)
	if !ok || len(row.Components) == 0 {
		return ""
	}
	input, ok := row.Components[0].(*discordgo.TextInput)
	if !ok {
		return ""
	}
	return input.Value
}
