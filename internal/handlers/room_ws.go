// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KRYZL19/memory5/internal/game"
	"github.com/KRYZL19/memory5/internal/models"
)

// ClientMessage is the envelope for every inbound WebSocket message. The
// Type discriminator selects the action; the other fields are per-action
// payloads and simply stay zero for the rest.
type ClientMessage struct {
	Type         string   `json:"type"`
	RoomID       string   `json:"roomId,omitempty"`
	PlayerName   string   `json:"playerName,omitempty"`
	TurnTime     int      `json:"turnTime,omitempty"`
	CustomImages []string `json:"customImages,omitempty"`
	PairCount    int      `json:"pairCount,omitempty"`

	// CardID is a pointer so a missing field is distinguishable from index 0.
	CardID *int `json:"cardId,omitempty"`

	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	// outboundBuffer is the per-connection send queue depth. Enqueues
	// never block; see RoomServer.enqueue.
	outboundBuffer = 32
	writeTimeout   = 3 * time.Second
)

// session is one client connection. A fresh player id is minted per
// connection; roomID tracks the room this connection currently occupies
// and is only touched from the connection's own read loop.
type session struct {
	id     uuid.UUID
	conn   *websocket.Conn
	out    chan []byte
	roomID string
}

// RoomWSHandler upgrades the HTTP connection to WebSocket and runs the
// read loop until the client goes away. On exit the player is removed
// from whatever room they were in, per the configured leave policy.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exited")

		sess := &session{id: uuid.New(), conn: c, out: make(chan []byte, outboundBuffer)}
		logger.Infof("Player %s connected from %s", sess.id, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, sess.out, logger, sess.id)

		readRoomMessages(ctx, sess, rs, logger)

		logger.Infof("Player %s read loop exited.", sess.id)
		rs.handleLeave(sess)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}

// readRoomMessages reads, decodes and dispatches client messages until
// the connection closes or the context is cancelled.
func readRoomMessages(ctx context.Context, sess *session, rs *RoomServer, logger *logrus.Logger) {
	for {
		msgType, data, err := sess.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s.", sess.id)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s.", sess.id)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s: %v", sess.id, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s. Ignoring.", msgType, sess.id)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s: %v", sess.id, err)
			rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: "invalid JSON"})
			continue
		}

		logger.Debugf("Player %s action %q (room %q)", sess.id, msg.Type, msg.RoomID)

		switch msg.Type {
		case "createRoom":
			rs.handleCreateRoom(sess, msg)
		case "joinRoom":
			rs.handleJoinRoom(sess, msg)
		case "flipCard":
			rs.handleFlipCard(sess, msg)
		case "sendChatMessage":
			rs.handleChatMessage(sess, msg)
		default:
			logger.Warnf("Unknown message type %q from player %s.", msg.Type, sess.id)
			rs.sendEvent(sess, game.GameEvent{
				Type:    game.EventJoinError,
				Message: fmt.Sprintf("unknown message type: %s", msg.Type),
			})
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// handleCreateRoom validates the create payload, builds the room and
// claims the id in the registry. Failures go back to the caller only,
// as a joinError event.
func (rs *RoomServer) handleCreateRoom(sess *session, msg ClientMessage) {
	creator := models.NewPlayer(sess.id, msg.PlayerName, sess.out)
	room, err := game.NewRoom(game.RoomConfig{
		ID:             msg.RoomID,
		TurnTime:       msg.TurnTime,
		PairCount:      msg.PairCount,
		CustomImages:   msg.CustomImages,
		RevealDelay:    rs.Config.RevealDelay,
		StandardImages: rs.StandardImages,
	}, creator)
	if err != nil {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: err.Error()})
		return
	}
	room.BroadcastFn = rs.broadcastFunc()
	room.BroadcastToPlayerFn = rs.sendToPlayerFunc()
	room.OnGameEnd = rs.recordResult

	if err := rs.Registry.Add(room); err != nil {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: err.Error()})
		return
	}
	sess.roomID = room.ID
	rs.sendEvent(sess, game.GameEvent{Type: game.EventRoomCreated, RoomID: room.ID})
}

func (rs *RoomServer) handleJoinRoom(sess *session, msg ClientMessage) {
	if msg.RoomID == "" || msg.PlayerName == "" {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: game.ErrMissingFields.Error()})
		return
	}
	room, ok := rs.Registry.Get(msg.RoomID)
	if !ok {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: game.ErrRoomNotFound.Error()})
		return
	}
	player := models.NewPlayer(sess.id, msg.PlayerName, sess.out)
	if err := room.Join(player); err != nil {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventJoinError, Message: err.Error()})
		return
	}
	sess.roomID = room.ID
}

func (rs *RoomServer) handleFlipCard(sess *session, msg ClientMessage) {
	room, ok := rs.Registry.Get(msg.RoomID)
	if !ok {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventFlipError, Message: game.ErrRoomUnavailable.Error()})
		return
	}
	if msg.CardID == nil {
		return
	}
	if err := room.Flip(sess.id, *msg.CardID); err != nil {
		rs.sendEvent(sess, game.GameEvent{Type: game.EventFlipError, Message: err.Error()})
	}
}

func (rs *RoomServer) handleChatMessage(sess *session, msg ClientMessage) {
	room, ok := rs.Registry.Get(msg.RoomID)
	if !ok {
		return
	}
	room.AddChat(msg.Name, msg.Message)
}

// handleLeave runs once per connection, after the read loop exits.
func (rs *RoomServer) handleLeave(sess *session) {
	if sess.roomID == "" {
		return
	}
	room, ok := rs.Registry.Get(sess.roomID)
	if !ok {
		return
	}
	room.HandleDisconnect(sess.id, rs.Config.EndOnDisconnect)
}

// sendEvent queues a private event on this session's connection. Private
// events share the queue with room broadcasts, so the client sees both in
// the order the server produced them.
func (rs *RoomServer) sendEvent(sess *session, ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		rs.Logger.Errorf("Failed to marshal event (%s) for player %s: %v", ev.Type, sess.id, err)
		return
	}
	select {
	case sess.out <- data:
	default:
		rs.Logger.Warnf("Dropping event (%s) for player %s: send queue full", ev.Type, sess.id)
	}
}

// writePump is the single writer for one connection. Serializing all
// writes through the queue keeps consecutive events in order on the wire.
func writePump(ctx context.Context, c *websocket.Conn, out <-chan []byte, logger *logrus.Logger, playerID uuid.UUID) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write event to player %s: %v", playerID, err)
				return
			}
		}
	}
}
