package models

import "time"

/************************************************
/**** MARK: CONVITE STATUS  ****/
/************************************************/
const INVITE_STATUS_PENDING = 0
const INVITE_STATUS_VALIDATED = 1
const INVITE_STATUS_EXPIRED = 2

// Invite é o convite gerado quando um admin cadastra um usuário.
// O código ativa a conta e define a senha.
type Invite struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	InviterID int64      `gorm:"not null" json:"inviter_id"`
	InvitedID int64      `gorm:"not null;index" json:"invited_id"`
	Code      string     `gorm:"not null;unique" json:"code"`
	Status    int64      `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (Invite) TableName() string { return "convites" }

func (invite Invite) MissingFields() string {
	if invite.InviterID == 0 {
		return "inviter_id"
	} else if invite.InvitedID == 0 {
		return "invited_id"
	}
	return ""
}

func (invite Invite) IsExpired(now time.Time) bool {
	return invite.ExpiresAt != nil && now.After(*invite.ExpiresAt)
}
