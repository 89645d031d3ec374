package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tambola-arena/tambola-backend/internal/hub"
	"github.com/tambola-arena/tambola-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h))
	return r
}
