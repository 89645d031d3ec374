package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/tambola-arena/tambola-backend/internal/engine"
	"github.com/tambola-arena/tambola-backend/internal/hub"
	"github.com/tambola-arena/tambola-backend/internal/logger"
	"github.com/tambola-arena/tambola-backend/internal/room"
	"github.com/tambola-arena/tambola-backend/pkg/protocol"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection and runs the event loop: inbound frames are
// decoded and routed through the hub to the right room; outbound events arrive
// on the connection's outbox and are written by a dedicated goroutine.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &connection{
			hub:  h,
			conn: conn,
			self: room.Client{
				ID:     uuid.NewString(),
				Outbox: make(chan protocol.ServerEvent, 16),
			},
		}
		c.run(r.Context())
	}
}

type connection struct {
	hub  *hub.Hub
	conn *websocket.Conn
	self room.Client

	// attached is the room whose broadcast set holds this connection. It
	// changes when a host spins up a new game or a player joins with a code.
	attached *room.Room
}

func (c *connection) run(ctx context.Context) {
	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go c.writer(writeCtx)

	defer func() {
		if c.attached != nil {
			c.attached.Inbox() <- room.Leave{ClientID: c.self.ID}
		}
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm protocol.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			c.reply(errorEvent(protocol.CodeInvalidInput, "bad json"))
			continue
		}
		c.dispatch(cm)
	}
}

func (c *connection) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.self.Outbox:
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Log.Errorw("marshal server event", "err", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = c.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
		}
	}
}

func (c *connection) dispatch(cm protocol.ClientMessage) {
	switch cm.Event {
	case protocol.EvtHostCreateGame:
		c.createGame()

	case protocol.EvtHostNewGame:
		c.newGame(cm.OldRoomCode)

	case protocol.EvtHostAddPlayer:
		c.addPlayer(cm.RoomCode, cm.PlayerName)

	case protocol.EvtHostAssignTicket:
		if rm := c.resolveRoom(cm.RoomCode); rm != nil {
			rm.Inbox() <- room.AssignTickets{PlayerCode: cm.PlayerCode, Count: cm.Count, From: c.self}
		}

	case protocol.EvtHostRemovePlayer:
		c.removePlayer(cm.RoomCode, cm.PlayerCode)

	case protocol.EvtHostCallNumber:
		if rm := c.resolveRoom(cm.RoomCode); rm != nil {
			rm.Inbox() <- room.CallNumber{From: c.self}
		}

	case protocol.EvtPlayerJoinWithCode:
		c.joinWithCode(cm.PlayerCode)

	case protocol.EvtPlayerClaim:
		c.claim(cm.RoomCode, cm.PlayerCode, cm.ClaimType)

	default:
		c.reply(errorEvent(protocol.CodeInvalidInput, "unknown event"))
	}
}

func (c *connection) createGame() {
	reply := make(chan hub.CreateResult, 1)
	c.hub.Inbox() <- hub.CreateRoom{Reply: reply}
	res := <-reply
	if res.Err != nil {
		c.reply(errorEvent(protocol.CodeInvalidInput, "failed to create room"))
		return
	}
	c.attach(res.Room)
	c.reply(protocol.ServerEvent{
		Event: protocol.EvtGameCreated,
		Data:  protocol.GameCreated{RoomCode: res.Code},
	})
}

func (c *connection) newGame(oldRoomCode string) {
	reply := make(chan hub.CreateResult, 1)
	c.hub.Inbox() <- hub.CloseAndReplace{OldCode: oldRoomCode, Reply: reply}
	res := <-reply
	if res.Err != nil {
		if errors.Is(res.Err, engine.ErrNotFound) {
			c.reply(errorEvent(protocol.CodeNotFound, "unknown room"))
		} else {
			c.reply(errorEvent(protocol.CodeInvalidInput, "failed to create room"))
		}
		return
	}
	c.attach(res.Room)
	c.reply(protocol.ServerEvent{
		Event: protocol.EvtGameCreated,
		Data:  protocol.GameCreated{RoomCode: res.Code},
	})
}

func (c *connection) addPlayer(roomCode, playerName string) {
	rm := c.resolveRoom(roomCode)
	if rm == nil {
		return
	}
	reply := make(chan hub.RegisterResult, 1)
	c.hub.Inbox() <- hub.RegisterPlayer{RoomCode: roomCode, Reply: reply}
	res := <-reply
	if res.Err != nil {
		c.reply(errorEvent(protocol.CodeNotFound, "unknown room"))
		return
	}
	rm.Inbox() <- room.AddPlayer{Code: res.PlayerCode, Name: playerName, From: c.self}
}

func (c *connection) removePlayer(roomCode, playerCode string) {
	rm := c.resolveRoom(roomCode)
	if rm == nil {
		return
	}
	rm.Inbox() <- room.RemovePlayer{PlayerCode: playerCode, From: c.self}
	c.hub.Inbox() <- hub.UnregisterPlayer{PlayerCode: playerCode}
}

func (c *connection) joinWithCode(playerCode string) {
	reply := make(chan hub.PlayerRoute, 1)
	c.hub.Inbox() <- hub.ResolvePlayer{PlayerCode: playerCode, Reply: reply}
	route := <-reply
	if route.Room == nil {
		c.reply(errorEvent(protocol.CodeNotFound, "unknown player code"))
		return
	}
	if c.attached != nil && c.attached != route.Room {
		c.attached.Inbox() <- room.Leave{ClientID: c.self.ID}
	}
	c.attached = route.Room
	route.Room.Inbox() <- room.JoinPlayer{PlayerCode: playerCode, Client: c.self}
}

func (c *connection) claim(roomCode, playerCode, claimType string) {
	rm := c.resolveRoom(roomCode)
	if rm == nil {
		return
	}
	ct, ok := engine.ParseClaimType(claimType)
	if !ok {
		c.reply(errorEvent(protocol.CodeInvalidInput, "unknown claim type"))
		return
	}
	rm.Inbox() <- room.SubmitClaim{PlayerCode: playerCode, ClaimType: ct, From: c.self}
}

// resolveRoom routes a code to its open room, answering the requester with
// not_found when the room is unknown or closed.
func (c *connection) resolveRoom(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	c.hub.Inbox() <- hub.ResolveRoom{Code: code, Reply: reply}
	rm := <-reply
	if rm == nil {
		c.reply(errorEvent(protocol.CodeNotFound, "unknown room"))
	}
	return rm
}

func (c *connection) attach(rm *room.Room) {
	if c.attached == rm {
		return
	}
	if c.attached != nil {
		c.attached.Inbox() <- room.Leave{ClientID: c.self.ID}
	}
	rm.Inbox() <- room.Join{Client: c.self}
	c.attached = rm
}

func (c *connection) reply(ev protocol.ServerEvent) {
	select {
	case c.self.Outbox <- ev:
	default:
	}
}

func errorEvent(code, message string) protocol.ServerEvent {
	return protocol.ServerEvent{
		Event: protocol.EvtError,
		Data:  protocol.Error{Code: code, Message: message},
	}
}
