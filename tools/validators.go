package tools

import (
	"regexp"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// CheckPassword devolve o nome do campo com problema ou "" quando a senha é aceitável.
// Regra: mínimo de 8 caracteres, com letra e número.
func CheckPassword(password string) string {
	if len(password) < 8 {
		return "password"
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "password"
	}
	return ""
}
