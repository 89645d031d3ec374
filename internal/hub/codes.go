package hub

import (
	"crypto/rand"
	"math/big"
)

const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateRoomCode(length int) (string, error) {
	code := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = roomCodeCharset[num.Int64()]
	}
	return string(code), nil
}
