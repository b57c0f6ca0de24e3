package tools

import "golang.org/x/crypto/bcrypt"

// BcryptCost é ajustado pelo config no boot (testes usam bcrypt.MinCost).
var BcryptCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPasswordHash(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
