package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeWhatsAppTo normaliza um telefone para o formato aceito pela Cloud API
// (apenas dígitos, formato internacional, sem '+').
//
// Heurística (Brasil):
// - remove tudo que não é dígito e zeros à esquerda
// - 10/11 dígitos (DDD+número) recebe o DDI 55
// - com DDI (>= 12 dígitos) fica como está
func NormalizeWhatsAppTo(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := strings.TrimLeft(b.String(), "0")

	if len(phone) == 10 || len(phone) == 11 {
		phone = "55" + phone
	}
	if len(phone) < 12 || len(phone) > 15 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}
