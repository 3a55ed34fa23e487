package storage

import (
	"context"
	"database/sql"
	"time"

	pq "github.com/lib/pq"

	"github.com/jose-valero/union-circle-bot/internal/app/service"
)

// BanRepo: ban permanente (expires_at NULL) o temporal. Los vencidos se
// limpian perezosamente al consultarlos, como hacía el banSystem original.
type BanRepo struct{ db *sql.DB }

func NewBanRepo(db *sql.DB) *BanRepo { return &BanRepo{db: db} }

func (r *BanRepo) CheckBan(ctx context.Context, userID string) (service.BanStatus, error) {
	var reason string
	var expires *time.Time
	err := r.db.QueryRowContext(ctx, `
SELECT reason, expires_at
  FROM bans
 WHERE user_id = $1
`, userID).Scan(&reason, &expires)
	if err == sql.ErrNoRows {
		return service.BanStatus{}, nil
	}
	if err != nil {
		return service.BanStatus{}, err
	}

	if expires != nil && time.Now().After(*expires) {
		_, _ = r.db.ExecContext(ctx, `DELETE FROM bans WHERE user_id = $1`, userID)
		return service.BanStatus{}, nil
	}
	if reason == "" {
		reason = "No reason provided"
	}
	return service.BanStatus{Banned: true, Reason: reason}, nil
}

// Set crea o actualiza un ban; expires nil = permanente.
func (r *BanRepo) Set(ctx context.Context, userID, reason string, expires *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO bans (user_id, reason, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
  reason     = EXCLUDED.reason,
  expires_at = EXCLUDED.expires_at,
  created_at = now()
`, userID, reason, expires)
	return err
}

func (r *BanRepo) Remove(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM bans
 WHERE user_id = $1
`, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ActiveAmong devuelve userID -> razón para los bans vigentes del lote.
func (r *BanRepo) ActiveAmong(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := map[string]string{}
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, reason
  FROM bans
 WHERE user_id = ANY($1)
   AND (expires_at IS NULL OR expires_at > now())
`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid, reason string
		if err := rows.Scan(&uid, &reason); err != nil {
			return nil, err
		}
		out[uid] = reason
	}
	return out, rows.Err()
}
