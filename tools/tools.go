package tools

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"math/big"
)

const numbers = "0123456789"
const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

func RandomNumbers(length int) string {
	return randomFrom(numbers, length)
}

// RandomString gera códigos legíveis (sem 0/O/1/I) para convites.
func RandomString(length int) string {
	return randomFrom(charset, length)
}

// RandomToken gera um token opaco em hex (refresh tokens).
func RandomToken(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func randomFrom(alphabet string, length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
