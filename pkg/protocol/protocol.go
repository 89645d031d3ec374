// Package protocol defines the JSON messages exchanged over the websocket.
// Each frame is {"event": <name>, ...} client-to-server, or
// {"event": <name>, "data": <payload>} server-to-client.
package protocol

import "github.com/tambola-arena/tambola-backend/internal/engine"

// Client -> server event names.
const (
	EvtHostCreateGame     = "host_create_game"
	EvtHostAddPlayer      = "host_add_player"
	EvtHostAssignTicket   = "host_assign_ticket"
	EvtHostRemovePlayer   = "host_remove_player"
	EvtHostCallNumber     = "host_call_number"
	EvtHostNewGame        = "host_new_game"
	EvtPlayerJoinWithCode = "player_join_with_code"
	EvtPlayerClaim        = "player_claim"
)

// Server -> client event names.
const (
	EvtGameCreated    = "game_created"
	EvtPlayerAdded    = "player_added"
	EvtTicketAssigned = "ticket_assigned"
	EvtPlayerRemoved  = "player_removed"
	EvtNumberCalled   = "number_called"
	EvtRoomClosed     = "room_closed"
	EvtGameReset      = "game_reset"
	EvtPlayerJoined   = "player_joined"
	EvtClaimAccepted  = "claim_accepted"
	EvtClaimRejected  = "claim_rejected"
	EvtError          = "error"
)

// Error codes carried by EvtError payloads.
const (
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeExhausted    = "exhausted"
	CodeInvalidInput = "invalid_input"
)

type ClientMessage struct {
	Event       string `json:"event"`
	RoomCode    string `json:"roomCode,omitempty"`
	OldRoomCode string `json:"oldRoomCode,omitempty"`
	PlayerCode  string `json:"playerCode,omitempty"`
	PlayerName  string `json:"playerName,omitempty"`
	Count       int    `json:"count,omitempty"`
	ClaimType   string `json:"claimType,omitempty"`
}

type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type GameCreated struct {
	RoomCode string `json:"roomCode"`
}

type PlayerAdded struct {
	PlayerCode string `json:"playerCode"`
	PlayerName string `json:"playerName"`
}

type TicketAssigned struct {
	PlayerCode string `json:"playerCode"`
}

type PlayerRemoved struct {
	PlayerCode string `json:"playerCode"`
}

type NumberCalled struct {
	Number int   `json:"number"`
	Called []int `json:"called"`
}

// PlayerJoined is the full per-player view, sent to one connection on join,
// reconnect, and after a ticket (re)assignment. Tickets are 3x9 grids with 0
// for blank cells.
type PlayerJoined struct {
	PlayerName string                      `json:"playerName"`
	Tickets    []engine.Ticket             `json:"tickets"`
	Called     []int                       `json:"called"`
	Current    *int                        `json:"current"`
	Claims     map[engine.ClaimType]string `json:"claims"`
	RoomCode   string                      `json:"roomCode"`
}

type ClaimAccepted struct {
	ClaimType engine.ClaimType `json:"claimType"`
	Winner    string           `json:"winner"`
}

type ClaimRejected struct {
	ClaimType engine.ClaimType `json:"claimType"`
	Winner    string           `json:"winner,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
