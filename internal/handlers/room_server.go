// internal/handlers/room_server.go
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KRYZL19/memory5/internal/config"
	"github.com/KRYZL19/memory5/internal/database"
	"github.com/KRYZL19/memory5/internal/game"
	"github.com/KRYZL19/memory5/internal/models"
)

// RoomServer is the high-level struct gluing the room registry to the
// WebSocket layer. It owns the registry, the standard image pool and the
// broadcast plumbing every room gets wired with.
type RoomServer struct {
	Registry       *game.Registry
	Config         config.Config
	Logger         *logrus.Logger
	StandardImages []string
}

func NewRoomServer(cfg config.Config, logger *logrus.Logger) *RoomServer {
	return &RoomServer{
		Registry:       game.NewRegistry(),
		Config:         cfg,
		Logger:         logger,
		StandardImages: game.StandardPool(cfg.StandardPoolSize),
	}
}

// broadcastFunc builds the game.BroadcastFunc every room is wired with.
// It is called while the room lock is held, so it marshals once and only
// enqueues; each connection's write pump drains its queue in emit order.
func (rs *RoomServer) broadcastFunc() game.BroadcastFunc {
	return func(players []*models.Player, ev game.GameEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			rs.Logger.Errorf("Failed to marshal broadcast event (%s): %v", ev.Type, err)
			return
		}
		for _, p := range players {
			rs.enqueue(p, data, ev.Type)
		}
	}
}

// sendToPlayerFunc is the single-recipient variant, used for private events.
func (rs *RoomServer) sendToPlayerFunc() game.BroadcastToPlayerFunc {
	return func(p *models.Player, ev game.GameEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			rs.Logger.Errorf("Failed to marshal private event (%s) for player %s: %v", ev.Type, p.ID, err)
			return
		}
		rs.enqueue(p, data, ev.Type)
	}
}

// enqueue never blocks; a client too slow to drain its queue loses the
// event rather than stalling the room.
func (rs *RoomServer) enqueue(p *models.Player, data []byte, typ game.GameEventType) {
	if p == nil || !p.Connected || p.Out == nil {
		return
	}
	select {
	case p.Out <- data:
	default:
		rs.Logger.Warnf("Dropping event (%s) for player %s: send queue full", typ, p.ID)
	}
}

// recordResult is wired as every room's OnGameEnd callback. It logs the
// outcome and, when Postgres is configured, persists it off the hot path.
func (rs *RoomServer) recordResult(roomID, winner string, scores map[string]int) {
	rs.Logger.WithFields(logrus.Fields{
		"room":   roomID,
		"winner": winner,
		"scores": scores,
	}).Info("Game finished")

	if !rs.Config.PostgresSet || database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.InsertMatchResult(ctx, roomID, winner, scores); err != nil {
			rs.Logger.Errorf("Failed to record match result for room %s: %v", roomID, err)
		}
	}()
}
