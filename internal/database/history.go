// internal/database/history.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/KRYZL19/memory5/internal/cache"
)

// InsertRoomActions stores a batch of historian records in a single
// transaction. Room state itself is never persisted; this is an
// append-only audit trail.
func InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	tx, err := DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `
		INSERT INTO room_actions (room_id, action_index, actor_id, action_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
	`
	for _, rec := range records {
		if _, err := tx.Exec(ctx, q,
			rec.RoomID, rec.ActionIndex, rec.ActorID, rec.ActionType, rec.Payload, rec.Timestamp,
		); err != nil {
			return fmt.Errorf("insert room action %d: %w", rec.ActionIndex, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertMatchResult records the outcome of a finished game. winner is a
// player name or the draw sentinel.
func InsertMatchResult(ctx context.Context, roomID, winner string, scores map[string]int) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	q := `
		INSERT INTO match_results (room_id, winner, scores, finished_at)
		VALUES ($1, $2, $3, now())
	`
	if _, err := DB.Exec(ctx, q, roomID, winner, scores); err != nil {
		return fmt.Errorf("insert match result for room %s: %w", roomID, err)
	}
	return nil
}
