package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tambola-arena/tambola-backend/internal/hub"
)

// CreateRoom lets a host open a room over plain HTTP; the returned code is
// then used on the websocket like one minted by host_create_game.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateRoom{Reply: reply}
		res := <-reply
		if res.Err != nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: res.Code})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
