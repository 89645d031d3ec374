package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tambola-arena/tambola-backend/internal/engine"
	"github.com/tambola-arena/tambola-backend/internal/room"
	"github.com/tambola-arena/tambola-backend/pkg/protocol"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, Options{})
}

func createRoom(t *testing.T, h *Hub) CreateResult {
	t.Helper()
	reply := make(chan CreateResult, 1)
	h.Inbox() <- CreateRoom{Reply: reply}
	res := <-reply
	if res.Err != nil {
		t.Fatalf("create room: %v", res.Err)
	}
	return res
}

func resolveRoom(t *testing.T, h *Hub, code string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- ResolveRoom{Code: code, Reply: reply}
	return <-reply
}

func resolvePlayer(t *testing.T, h *Hub, code string) PlayerRoute {
	t.Helper()
	reply := make(chan PlayerRoute, 1)
	h.Inbox() <- ResolvePlayer{PlayerCode: code, Reply: reply}
	return <-reply
}

func TestHub_Create_Resolve_SamePointer(t *testing.T) {
	h := newTestHub(t)
	res := createRoom(t, h)

	if got := resolveRoom(t, h, res.Code); got != res.Room {
		t.Fatalf("expected same room pointer")
	}
	if got := resolveRoom(t, h, "NOSUCH"); got != nil {
		t.Fatalf("unknown code must resolve to nil")
	}
}

func TestHub_RoomCodes_Distinct(t *testing.T) {
	h := newTestHub(t)

	codes := map[string]bool{}
	for i := 0; i < 25; i++ {
		res := createRoom(t, h)
		if len(res.Code) != 6 {
			t.Fatalf("unexpected code length: %q", res.Code)
		}
		if codes[res.Code] {
			t.Fatalf("duplicate room code %q", res.Code)
		}
		codes[res.Code] = true
	}
}

func TestHub_CloseAndReplace(t *testing.T) {
	h := newTestHub(t)
	old := createRoom(t, h)

	// A connection on the old room hears about the closure.
	conn := room.Client{ID: "host", Outbox: make(chan protocol.ServerEvent, 4)}
	old.Room.Inbox() <- room.Join{Client: conn}

	reply := make(chan CreateResult, 1)
	h.Inbox() <- CloseAndReplace{OldCode: old.Code, Reply: reply}
	res := <-reply
	if res.Err != nil {
		t.Fatalf("close and replace: %v", res.Err)
	}
	if res.Code == old.Code {
		t.Fatalf("replacement reused code %q", old.Code)
	}

	select {
	case ev := <-conn.Outbox:
		if ev.Event != protocol.EvtRoomClosed {
			t.Fatalf("want room_closed, got %q", ev.Event)
		}
	case <-time.After(time.Second):
		t.Fatalf("old room never notified")
	}

	// Old code is unroutable but stays reserved.
	if got := resolveRoom(t, h, old.Code); got != nil {
		t.Fatalf("closed room must not resolve")
	}
	if got := resolveRoom(t, h, res.Code); got != res.Room {
		t.Fatalf("new room must resolve")
	}

	// Closing an already-closed room is fine and mints yet another room.
	reply = make(chan CreateResult, 1)
	h.Inbox() <- CloseAndReplace{OldCode: old.Code, Reply: reply}
	res2 := <-reply
	if res2.Err != nil {
		t.Fatalf("idempotent close failed: %v", res2.Err)
	}
	if res2.Code == old.Code || res2.Code == res.Code {
		t.Fatalf("room code reused: %q", res2.Code)
	}
}

func TestHub_CloseAndReplace_UnknownRoom(t *testing.T) {
	h := newTestHub(t)

	reply := make(chan CreateResult, 1)
	h.Inbox() <- CloseAndReplace{OldCode: "NOSUCH", Reply: reply}
	res := <-reply
	if !errors.Is(res.Err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", res.Err)
	}
}

func TestHub_PlayerRegistry(t *testing.T) {
	h := newTestHub(t)
	res := createRoom(t, h)

	reply := make(chan RegisterResult, 1)
	h.Inbox() <- RegisterPlayer{RoomCode: res.Code, Reply: reply}
	reg := <-reply
	if reg.Err != nil {
		t.Fatalf("register player: %v", reg.Err)
	}
	if reg.PlayerCode == "" {
		t.Fatalf("empty player code")
	}

	route := resolvePlayer(t, h, reg.PlayerCode)
	if route.Room != res.Room || route.RoomCode != res.Code {
		t.Fatalf("bad route: %+v", route)
	}

	h.Inbox() <- UnregisterPlayer{PlayerCode: reg.PlayerCode}
	if route := resolvePlayer(t, h, reg.PlayerCode); route.Room != nil {
		t.Fatalf("unregistered code still routes")
	}
}

func TestHub_RegisterPlayer_UnknownRoom(t *testing.T) {
	h := newTestHub(t)

	reply := make(chan RegisterResult, 1)
	h.Inbox() <- RegisterPlayer{RoomCode: "NOSUCH", Reply: reply}
	reg := <-reply
	if !errors.Is(reg.Err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", reg.Err)
	}
}

func TestHub_PlayerCodes_DieWithRoom(t *testing.T) {
	h := newTestHub(t)
	res := createRoom(t, h)

	reply := make(chan RegisterResult, 1)
	h.Inbox() <- RegisterPlayer{RoomCode: res.Code, Reply: reply}
	reg := <-reply
	if reg.Err != nil {
		t.Fatalf("register player: %v", reg.Err)
	}

	crReply := make(chan CreateResult, 1)
	h.Inbox() <- CloseAndReplace{OldCode: res.Code, Reply: crReply}
	if cr := <-crReply; cr.Err != nil {
		t.Fatalf("close and replace: %v", cr.Err)
	}

	if route := resolvePlayer(t, h, reg.PlayerCode); route.Room != nil {
		t.Fatalf("player code must not route after its room closed")
	}
}
