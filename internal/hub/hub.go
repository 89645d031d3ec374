package hub

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/tambola-arena/tambola-backend/internal/engine"
	"github.com/tambola-arena/tambola-backend/internal/logger"
	"github.com/tambola-arena/tambola-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Code string
	Room *room.Room
	Err  error
}

// CloseAndReplace retires the old room (idempotent if already closed) and
// creates its successor. The old room notifies and detaches its connections
// before the new code is handed back.
type CloseAndReplace struct {
	OldCode string
	Reply   chan CreateResult
}

// ResolveRoom routes a room code to its open room; nil for unknown or closed.
type ResolveRoom struct {
	Code  string
	Reply chan *room.Room
}

// RegisterPlayer allocates a globally unique player code bound to a room.
type RegisterPlayer struct {
	RoomCode string
	Reply    chan RegisterResult
}

type RegisterResult struct {
	PlayerCode string
	Err        error
}

type UnregisterPlayer struct {
	PlayerCode string
}

// ResolvePlayer routes a player code to its room; Room is nil when the code
// was never issued or the room has been closed.
type ResolvePlayer struct {
	PlayerCode string
	Reply      chan PlayerRoute
}

type PlayerRoute struct {
	Room     *room.Room
	RoomCode string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()       {}
func (CloseAndReplace) isHubMsg()  {}
func (ResolveRoom) isHubMsg()      {}
func (RegisterPlayer) isHubMsg()   {}
func (UnregisterPlayer) isHubMsg() {}
func (ResolvePlayer) isHubMsg()    {}
func (ShutdownHub) isHubMsg()      {}

type Options struct {
	RoomCodeLength int
	// DeckUnique makes every ticket assignment in a room draw from a shared
	// 1..90 pool, so concurrently issued tickets never share a number.
	DeckUnique bool
}

type entry struct {
	room   *room.Room
	closed bool
}

// Hub is the process-wide session registry: it owns room and player code
// generation and routes codes to rooms. It is an actor; all state is confined
// to the loop goroutine. Rooms themselves run their own loops, so work on
// different rooms proceeds in parallel.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*entry
	players map[string]string // playerCode -> roomCode
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc
}

const playerCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const playerCodeLength = 8

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.RoomCodeLength <= 0 {
		opts.RoomCodeLength = 6
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*entry),
		players: make(map[string]string),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.createRoom()

			case CloseAndReplace:
				e := h.rooms[msg.OldCode]
				if e == nil {
					msg.Reply <- CreateResult{Err: engine.ErrNotFound}
					break
				}
				h.closeEntry(msg.OldCode, e)
				msg.Reply <- h.createRoom()

			case ResolveRoom:
				msg.Reply <- h.openRoom(msg.Code)

			case RegisterPlayer:
				if h.openRoom(msg.RoomCode) == nil {
					msg.Reply <- RegisterResult{Err: engine.ErrNotFound}
					break
				}
				code, err := h.newPlayerCode()
				if err != nil {
					msg.Reply <- RegisterResult{Err: err}
					break
				}
				h.players[code] = msg.RoomCode
				msg.Reply <- RegisterResult{PlayerCode: code}

			case UnregisterPlayer:
				delete(h.players, msg.PlayerCode)

			case ResolvePlayer:
				roomCode, ok := h.players[msg.PlayerCode]
				if !ok {
					msg.Reply <- PlayerRoute{}
					break
				}
				msg.Reply <- PlayerRoute{Room: h.openRoom(roomCode), RoomCode: roomCode}

			case ShutdownHub:
				for code, e := range h.rooms {
					h.closeEntry(code, e)
				}
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) createRoom() CreateResult {
	var code string
	for {
		c, err := generateRoomCode(h.opts.RoomCodeLength)
		if err != nil {
			return CreateResult{Err: err}
		}
		// Closed rooms keep their codes reserved, so a reissued code can
		// never alias a room a client still remembers.
		if _, taken := h.rooms[c]; !taken {
			code = c
			break
		}
		logger.Log.Debugw("room code collision, regenerating", "code", c)
	}

	rm := room.NewRoom(h.ctx, code, h.opts.DeckUnique)
	h.rooms[code] = &entry{room: rm}
	logger.Log.Infow("room created", "room", code)
	return CreateResult{Code: code, Room: rm}
}

func (h *Hub) closeEntry(code string, e *entry) {
	if e.closed {
		return
	}
	e.room.Inbox() <- room.Close{}
	e.closed = true
	for playerCode, roomCode := range h.players {
		if roomCode == code {
			delete(h.players, playerCode)
		}
	}
	logger.Log.Infow("room closed", "room", code)
}

func (h *Hub) openRoom(code string) *room.Room {
	e := h.rooms[code]
	if e == nil || e.closed {
		return nil
	}
	return e.room
}

func (h *Hub) newPlayerCode() (string, error) {
	for {
		code, err := gonanoid.Generate(playerCodeAlphabet, playerCodeLength)
		if err != nil {
			return "", err
		}
		if _, taken := h.players[code]; !taken {
			return code, nil
		}
	}
}
