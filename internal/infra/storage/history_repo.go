package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
)

// HistoryRepo archiva las sesiones terminadas; el janitor poda lo viejo.
type HistoryRepo struct{ db *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func (r *HistoryRepo) Record(ctx context.Context, rec service.SessionRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO session_history (id, channel_key, guild_id, started_at, ended_at, players, player_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, rec.ID, rec.ChannelKey, rec.GuildID, rec.StartedAt, rec.EndedAt, players, rec.PlayerCount)
	return err
}

func (r *HistoryRepo) CountSince(ctx context.Context, channelKey string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT count(*)
  FROM session_history
 WHERE channel_key = $1
   AND ended_at >= $2
`, channelKey, since).Scan(&n)
	return n, err
}
