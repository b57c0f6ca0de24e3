package models

import (
	"strings"
	"time"

	"secom/tools"
)

/************************************************
/**** MARK: USER ROLES ****/
/************************************************/
const USER_ROLE_ADMIN = "admin"
const USER_ROLE_COORDENADOR = "coordenador"
const USER_ROLE_ASSESSOR = "assessor"
const USER_ROLE_COLABORADOR = "colaborador"

/************************************************
/**** MARK: USER STATUS ****/
/************************************************/
const USER_STATUS_AVAILABLE = 0
const USER_STATUS_PENDING = 1
const USER_STATUS_BLOCKED = 2

// User representa um usuário da secretaria (tabela usuarios).
type User struct {
	ID                int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Nome              string     `gorm:"not null" json:"nome" form:"nome"`
	Email             string     `gorm:"not null;unique" json:"email" form:"email"`
	Senha             string     `gorm:"not null;default:''" json:"-"`
	Telefone          string     `gorm:"default:''" json:"telefone" form:"telefone"`
	Cargo             string     `gorm:"default:''" json:"cargo" form:"cargo"`
	Role              string     `gorm:"not null;default:'colaborador';index" json:"role" form:"role"`
	AreaID            *int64     `gorm:"index" json:"area_id" form:"area_id"`
	Status            int        `json:"status" form:"status"`
	NotificarWhatsApp bool       `gorm:"column:notificar_whatsapp" json:"notificar_whatsapp" form:"notificar_whatsapp"`
	CreatedAt         *time.Time `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

func (User) TableName() string { return "usuarios" }

func (user User) MissingFields() string {
	if strings.TrimSpace(user.Nome) == "" {
		return "nome"
	} else if strings.TrimSpace(user.Email) == "" {
		return "email"
	}
	return ""
}

func (user User) IsAdmin() bool {
	return user.Role == USER_ROLE_ADMIN
}

// HasRole retorna true se o usuário tem algum dos papéis informados.
// Admin sempre passa.
func (user User) HasRole(roles ...string) bool {
	if user.IsAdmin() {
		return true
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

// CanReview indica se o usuário pode aprovar/rejeitar notas e enviar comunicados.
func (user User) CanReview() bool {
	return user.HasRole(USER_ROLE_COORDENADOR)
}

func IsValidRole(role string) bool {
	switch role {
	case USER_ROLE_ADMIN, USER_ROLE_COORDENADOR, USER_ROLE_ASSESSOR, USER_ROLE_COLABORADOR:
		return true
	}
	return false
}

// WhatsAppPhone devolve o telefone normalizado quando o usuário aceita notificações por WhatsApp.
func (user User) WhatsAppPhone() (string, bool) {
	if !user.NotificarWhatsApp || strings.TrimSpace(user.Telefone) == "" {
		return "", false
	}
	phone, err := tools.NormalizeWhatsAppTo(user.Telefone)
	if err != nil {
		return "", false
	}
	return phone, true
}
