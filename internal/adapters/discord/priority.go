package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// RolePriority deriva la prioridad de waitlist del standing actual del
// usuario: el nivel más alto entre sus roles configurados, 0 si no tiene
// ninguno. Se consulta al finalizar el intake, no al empezarlo.
type RolePriority struct {
	s      *discordgo.Session
	levels map[string]int // roleID -> nivel
}

func NewRolePriority(s *discordgo.Session, levels map[string]int) *RolePriority {
	return &RolePriority{s: s, levels: levels}
}

func (p *RolePriority) Priority(ctx context.Context, guildID, userID string) int {
	if len(p.levels) == 0 {
		return 0
	}

	member, err := p.s.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = p.s.GuildMember(guildID, userID)
		if err != nil {
			log.Printf("priority: no pude leer los roles de %s: %v", userID, err)
			return 0
		}
	}

	best := 0
	for _, rid := range member.Roles {
		if lvl, ok := p.levels[rid]; ok && lvl > best {
			best = lvl
		}
	}
	return best
}
