package room

import (
	"context"

	"github.com/tambola-arena/tambola-backend/internal/engine"
	"github.com/tambola-arena/tambola-backend/internal/logger"
	"github.com/tambola-arena/tambola-backend/pkg/protocol"
)

type Msg interface{ isRoomMsg() }

// Client is one websocket connection's view from the room's side. Outbox is
// owned by the connection; the room only ever sends (non-blocking) and drops
// the client when the buffer is full.
type Client struct {
	ID         string
	Outbox     chan protocol.ServerEvent
	PlayerCode string
}

// Join attaches a connection to the broadcast set (host board, spectators).
type Join struct{ Client Client }

// JoinPlayer attaches a connection under a player code and replays that
// player's full view. Used both for first join and reconnects.
type JoinPlayer struct {
	PlayerCode string
	Client     Client
}

type Leave struct{ ClientID string }

// AddPlayer admits a player. The code is allocated by the registry so it is
// unique across rooms.
type AddPlayer struct {
	Code string
	Name string
	From Client
}

// AssignTickets grants Count tickets to a player in one atomic action.
// A repeat assignment overwrites the previous grant.
type AssignTickets struct {
	PlayerCode string
	Count      int
	From       Client
}

type RemovePlayer struct {
	PlayerCode string
	From       Client
}

type CallNumber struct{ From Client }

type SubmitClaim struct {
	PlayerCode string
	ClaimType  engine.ClaimType
	From       Client
}

// Close makes the room permanently read-only: connections are notified and
// detached, and the loop exits.
type Close struct{}

// GetState reflects internal state without data races; test-only.
type GetState struct{ Reply chan View }

func (Join) isRoomMsg()          {}
func (JoinPlayer) isRoomMsg()    {}
func (Leave) isRoomMsg()         {}
func (AddPlayer) isRoomMsg()     {}
func (AssignTickets) isRoomMsg() {}
func (RemovePlayer) isRoomMsg()  {}
func (CallNumber) isRoomMsg()    {}
func (SubmitClaim) isRoomMsg()   {}
func (Close) isRoomMsg()         {}
func (GetState) isRoomMsg()      {}

type View struct {
	Code       string
	Players    map[string]string
	Tickets    map[string][]engine.Ticket
	Called     []int
	Claims     map[engine.ClaimType]string
	NumClients int
}

type player struct {
	code    string
	name    string
	tickets []engine.Ticket
}

// Room owns one game's state. All mutation happens on the loop goroutine,
// which is the room's exclusion boundary: concurrent calls and claims
// serialize on the inbox, so the check-then-set on a claim slot is atomic.
type Room struct {
	inbox      chan Msg
	code       string
	deckUnique bool

	players   map[string]*player
	pool      *engine.Pool
	called    []int
	calledSet map[int]bool
	claims    map[engine.ClaimType]string
	deckUsed  map[int]bool

	clients map[string]Client

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, code string, deckUnique bool) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:      make(chan Msg, 64),
		code:       code,
		deckUnique: deckUnique,
		players:    make(map[string]*player),
		pool:       engine.NewPool(),
		calledSet:  make(map[int]bool),
		claims:     make(map[engine.ClaimType]string),
		deckUsed:   make(map[int]bool),
		clients:    make(map[string]Client),
		ctx:        ctx,
		cancel:     cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }
func (r *Room) Code() string      { return r.code }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.Client.ID] = msg.Client

			case JoinPlayer:
				r.handleJoinPlayer(msg)

			case Leave:
				delete(r.clients, msg.ClientID)

			case AddPlayer:
				r.handleAddPlayer(msg)

			case AssignTickets:
				r.handleAssignTickets(msg)

			case RemovePlayer:
				r.handleRemovePlayer(msg)

			case CallNumber:
				r.handleCallNumber(msg)

			case SubmitClaim:
				r.handleSubmitClaim(msg)

			case GetState:
				msg.Reply <- r.view()

			case Close:
				r.broadcast(protocol.ServerEvent{Event: protocol.EvtRoomClosed})
				r.broadcast(protocol.ServerEvent{Event: protocol.EvtGameReset})
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoinPlayer(msg JoinPlayer) {
	p, ok := r.players[msg.PlayerCode]
	if !ok {
		r.sendTo(msg.Client, errorEvent(protocol.CodeNotFound, "unknown player code"))
		return
	}
	cl := msg.Client
	cl.PlayerCode = msg.PlayerCode
	r.clients[cl.ID] = cl
	r.sendTo(cl, protocol.ServerEvent{Event: protocol.EvtPlayerJoined, Data: r.snapshotFor(p)})
	logger.Log.Infow("player joined", "room", r.code, "player", p.code)
}

func (r *Room) handleAddPlayer(msg AddPlayer) {
	r.players[msg.Code] = &player{code: msg.Code, name: msg.Name}
	r.broadcast(protocol.ServerEvent{
		Event: protocol.EvtPlayerAdded,
		Data:  protocol.PlayerAdded{PlayerCode: msg.Code, PlayerName: msg.Name},
	})
	logger.Log.Infow("player added", "room", r.code, "player", msg.Code, "name", msg.Name)
}

func (r *Room) handleAssignTickets(msg AssignTickets) {
	if msg.Count < 1 {
		r.sendTo(msg.From, errorEvent(protocol.CodeInvalidInput, "ticket count must be positive"))
		return
	}
	p, ok := r.players[msg.PlayerCode]
	if !ok {
		r.sendTo(msg.From, errorEvent(protocol.CodeNotFound, "unknown player"))
		return
	}

	var exclude map[int]bool
	if r.deckUnique {
		// Numbers from the player's previous grant return to the deck before
		// the re-deal draws.
		exclude = make(map[int]bool, len(r.deckUsed))
		for n := range r.deckUsed {
			exclude[n] = true
		}
		for _, t := range p.tickets {
			for _, n := range t.Numbers() {
				delete(exclude, n)
			}
		}
	}

	tickets, err := engine.Generate(msg.Count, exclude)
	if err != nil {
		r.sendTo(msg.From, errorEvent(protocol.CodeInvalidInput, "cannot satisfy ticket request"))
		return
	}
	p.tickets = tickets
	if r.deckUnique {
		r.deckUsed = exclude
	}

	r.broadcast(protocol.ServerEvent{
		Event: protocol.EvtTicketAssigned,
		Data:  protocol.TicketAssigned{PlayerCode: p.code},
	})
	r.sendToPlayer(p.code, protocol.ServerEvent{Event: protocol.EvtPlayerJoined, Data: r.snapshotFor(p)})
	logger.Log.Infow("tickets assigned", "room", r.code, "player", p.code, "count", msg.Count)
}

func (r *Room) handleRemovePlayer(msg RemovePlayer) {
	p, ok := r.players[msg.PlayerCode]
	if !ok {
		r.sendTo(msg.From, errorEvent(protocol.CodeNotFound, "unknown player"))
		return
	}
	if r.deckUnique {
		for _, t := range p.tickets {
			for _, n := range t.Numbers() {
				delete(r.deckUsed, n)
			}
		}
	}
	delete(r.players, msg.PlayerCode)
	r.broadcast(protocol.ServerEvent{
		Event: protocol.EvtPlayerRemoved,
		Data:  protocol.PlayerRemoved{PlayerCode: msg.PlayerCode},
	})
}

func (r *Room) handleCallNumber(msg CallNumber) {
	n, err := r.pool.Next()
	if err != nil {
		r.sendTo(msg.From, errorEvent(protocol.CodeExhausted, "all 90 numbers have been called"))
		return
	}
	r.called = append(r.called, n)
	r.calledSet[n] = true
	r.broadcast(protocol.ServerEvent{
		Event: protocol.EvtNumberCalled,
		Data:  protocol.NumberCalled{Number: n, Called: append([]int(nil), r.called...)},
	})
	logger.Log.Debugw("number called", "room", r.code, "number", n, "total", len(r.called))
}

func (r *Room) handleSubmitClaim(msg SubmitClaim) {
	p, ok := r.players[msg.PlayerCode]
	if !ok {
		r.sendTo(msg.From, errorEvent(protocol.CodeNotFound, "unknown player"))
		return
	}
	if len(p.tickets) == 0 {
		r.sendTo(msg.From, errorEvent(protocol.CodeInvalidInput, "player has no tickets"))
		return
	}
	if winner, taken := r.claims[msg.ClaimType]; taken {
		// First valid claim is final; repeat attempts learn the standing
		// winner but nothing is broadcast.
		r.sendTo(msg.From, protocol.ServerEvent{
			Event: protocol.EvtClaimRejected,
			Data:  protocol.ClaimRejected{ClaimType: msg.ClaimType, Winner: winner},
		})
		return
	}

	satisfied := false
	for _, t := range p.tickets {
		if engine.Evaluate(msg.ClaimType, t, r.calledSet) {
			satisfied = true
			break
		}
	}
	if !satisfied {
		r.sendTo(msg.From, protocol.ServerEvent{
			Event: protocol.EvtClaimRejected,
			Data:  protocol.ClaimRejected{ClaimType: msg.ClaimType},
		})
		logger.Log.Infow("claim rejected", "room", r.code, "player", p.code, "claim", msg.ClaimType)
		return
	}

	r.claims[msg.ClaimType] = p.code
	r.broadcast(protocol.ServerEvent{
		Event: protocol.EvtClaimAccepted,
		Data:  protocol.ClaimAccepted{ClaimType: msg.ClaimType, Winner: p.code},
	})
	logger.Log.Infow("claim accepted", "room", r.code, "player", p.code, "claim", msg.ClaimType)
}

func (r *Room) snapshotFor(p *player) protocol.PlayerJoined {
	var current *int
	if len(r.called) > 0 {
		n := r.called[len(r.called)-1]
		current = &n
	}
	claims := make(map[engine.ClaimType]string, len(r.claims))
	for ct, winner := range r.claims {
		claims[ct] = winner
	}
	return protocol.PlayerJoined{
		PlayerName: p.name,
		Tickets:    append([]engine.Ticket(nil), p.tickets...),
		Called:     append([]int(nil), r.called...),
		Current:    current,
		Claims:     claims,
		RoomCode:   r.code,
	}
}

func (r *Room) shutdown() {
	// Outboxes belong to their connections; detach without closing.
	clear(r.clients)
	r.cancel()
}

func (r *Room) broadcast(ev protocol.ServerEvent) {
	for id, cl := range r.clients {
		select {
		case cl.Outbox <- ev:
		default:
			// Client is slow/full - drop them.
			delete(r.clients, id)
		}
	}
}

func (r *Room) sendToPlayer(playerCode string, ev protocol.ServerEvent) {
	for id, cl := range r.clients {
		if cl.PlayerCode != playerCode {
			continue
		}
		select {
		case cl.Outbox <- ev:
		default:
			delete(r.clients, id)
		}
	}
}

// sendTo answers the requester directly; the connection need not be in the
// broadcast set.
func (r *Room) sendTo(cl Client, ev protocol.ServerEvent) {
	if cl.Outbox == nil {
		return
	}
	select {
	case cl.Outbox <- ev:
	default:
	}
}

func (r *Room) view() View {
	players := make(map[string]string, len(r.players))
	tickets := make(map[string][]engine.Ticket, len(r.players))
	for code, p := range r.players {
		players[code] = p.name
		tickets[code] = append([]engine.Ticket(nil), p.tickets...)
	}
	claims := make(map[engine.ClaimType]string, len(r.claims))
	for ct, w := range r.claims {
		claims[ct] = w
	}
	return View{
		Code:       r.code,
		Players:    players,
		Tickets:    tickets,
		Called:     append([]int(nil), r.called...),
		Claims:     claims,
		NumClients: len(r.clients),
	}
}

func errorEvent(code, message string) protocol.ServerEvent {
	return protocol.ServerEvent{
		Event: protocol.EvtError,
		Data:  protocol.Error{Code: code, Message: message},
	}
}
