package discord

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

var reMention = regexp.MustCompile(`<@!?(\d+)>`)

func parseIDs(raw string) []string {
	ids := []string{}
	for _, tok := range strings.Fields(raw) {
		if m := reMention.FindStringSubmatch(tok); len(m) == 2 {
			ids = append(ids, m[1])
			continue
		}
		allDigits := true
		for _, r := range tok {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits && tok != "" {
			ids = append(ids, tok)
		}
	}
	return ids
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionString {
					return so.StringValue(), true
				}
			}
		}
	}
	return "", false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue()), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionInteger {
					return int(so.IntValue()), true
				}
			}
		}
	}
	return 0, false
}

func optUserID(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionUser {
			return o.Value.(string), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionUser {
					return so.Value.(string), true
				}
			}
		}
	}
	return "", false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

func (r *Router) safeGetChannel(id string) (*discordgo.Channel, error) {
	if ch, err := r.s.State.Channel(id); err == nil && ch != nil {
		return ch, nil
	}
	ch, err := r.s.Channel(id)
	if err != nil {
		return nil, err
	}
	_ = r.s.State.ChannelAdd(ch)
	return ch, nil
}

// channelKey resuelve la clave del documento a partir del canal de la
// interacción (mismo saneo que los archivos del bot viejo).
func (r *Router) channelKey(ic *discordgo.InteractionCreate) (string, error) {
	ch, err := r.safeGetChannel(ic.ChannelID)
	if err != nil {
		return "", err
	}
	return domain.NormalizeChannelKey(ch.Name), nil
}

// fmtPlayers arma el bloque de detalle de una sesión, estilo del bot viejo.
func fmtPlayers(entries []domain.Registration) string {
	var b strings.Builder
	for i, reg := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**Player %d:**\nDiscord: <@%s>\nIGN: `%s`\nPokémon: `%s`", i+1, reg.UserID, reg.IGN, reg.Pokemon)
		if reg.PokemonLevel != "" {
			fmt.Fprintf(&b, "\nLevel: `%s`", reg.PokemonLevel)
		}
		if reg.Mega {
			detail := reg.MegaDetails
			if detail == "" {
				detail = "Yes"
			}
			fmt.Fprintf(&b, "\nMega Evolution: `%s`", detail)
		}
		if reg.Shiny {
			b.WriteString("\nShiny: `Yes` ✨")
		}
		if reg.HoldingItem != "" {
			fmt.Fprintf(&b, "\nItem: `%s`", reg.HoldingItem)
		}
	}
	return b.String()
}

// fmtPositions lista entradas numeradas desde start (paginado simple).
func fmtPositions(entries []domain.Registration, start int) string {
	var b strings.Builder
	for i, reg := range entries {
		fmt.Fprintf(&b, "%d) <@%s> — `%s`", start+i, reg.UserID, reg.IGN)
		if reg.Priority > 0 {
			fmt.Fprintf(&b, " ⭐%d", reg.Priority)
		}
		b.WriteString("\n")
	}
	return b.String()
}
