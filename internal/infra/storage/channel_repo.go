package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jose-valero/union-circle-bot/internal/domain"
)

// ChannelRepo guarda un documento jsonb por canal, con la misma forma que
// los archivos `queue/<canal>.json` del bot viejo para que migren tal cual.
type ChannelRepo struct{ db *sql.DB }

func NewChannelRepo(db *sql.DB) *ChannelRepo { return &ChannelRepo{db: db} }

// Load devuelve un estado default si el canal no existe todavía. Un
// documento corrupto se loguea y se trata como "sin datos" (disponibilidad
// antes que consistencia, igual que el original).
func (r *ChannelRepo) Load(ctx context.Context, channelKey string) (domain.ChannelState, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
SELECT state
  FROM channel_states
 WHERE channel_key = $1
`, channelKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.NewChannelState(), nil
	}
	if err != nil {
		return domain.NewChannelState(), fmt.Errorf("load channel %s: %w", channelKey, err)
	}

	var st domain.ChannelState
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Printf("channel %s: documento corrupto, arrancando de cero: %v", channelKey, err)
		return domain.NewChannelState(), nil
	}
	st.Normalize()
	return st, nil
}

// Save sobreescribe el documento completo (upsert).
func (r *ChannelRepo) Save(ctx context.Context, channelKey string, st domain.ChannelState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal channel %s: %w", channelKey, err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO channel_states (channel_key, state)
VALUES ($1, $2)
ON CONFLICT (channel_key) DO UPDATE SET
  state      = EXCLUDED.state,
  updated_at = now()
`, channelKey, raw)
	if err != nil {
		return fmt.Errorf("save channel %s: %w", channelKey, err)
	}
	return nil
}
