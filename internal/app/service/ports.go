package service

import (
	"context"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// Lo implementa internal/infra/cache.Cache (write-through sobre el store).
type StateSource interface {
	Get(ctx context.Context, channelKey string) (domain.ChannelState, error)
	Put(ctx context.Context, channelKey string, st domain.ChannelState) error
	Invalidate(channelKey string)
}

type BanStatus struct {
	Banned bool
	Reason string
}

// Lo implementa internal/infra/storage.BanRepo. Consulta pura.
type BanChecker interface {
	CheckBan(ctx context.Context, userID string) (BanStatus, error)
}

// Auditoría masiva de bans (purge); devuelve userID -> razón.
type BanAuditor interface {
	ActiveAmong(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Lo implementa internal/adapters/discord.RolePriority: prioridad según el
// standing actual del usuario (roles), calculada al finalizar el intake.
type StandingProvider interface {
	Priority(ctx context.Context, guildID, userID string) int
}

type SessionRecord struct {
	ID          string
	ChannelKey  string
	GuildID     string
	StartedAt   time.Time
	EndedAt     time.Time
	Players     []domain.Registration
	PlayerCount int
}

// Lo implementa internal/infra/storage.HistoryRepo.
type SessionHistory interface {
	Record(ctx context.Context, rec SessionRecord) error
	CountSince(ctx context.Context, channelKey string, since time.Time) (int, error)
}
