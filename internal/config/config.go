package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string
	// TicketDeckUnique makes each room deal all tickets from one shared 1..90
	// pool, so no number appears on two tickets in the same room.
	TicketDeckUnique bool
	RoomCodeLength   int
	Debug            bool
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:             envString("ADDR", ":8080"),
		TicketDeckUnique: envBool("TICKET_DECK_UNIQUE", false),
		RoomCodeLength:   envInt("ROOM_CODE_LENGTH", 6),
		Debug:            envBool("DEBUG", false),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
