package controllers

import (
	"net/http"
	"strings"
	"time"

	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

func inviteTTL() time.Duration {
	hours := conf.Security.InviteValidHours
	if hours <= 0 {
		hours = 72
	}
	return time.Duration(hours) * time.Hour
}

func inviteCode() string {
	n := conf.Security.InviteCodeLen
	if n <= 0 {
		n = 8
	}
	return tools.RandomString(n)
}

// createInvite invalida convites pendentes anteriores do usuário e gera um novo.
func createInvite(tx *gorm.DB, inviterID, invitedID int64, now time.Time) (*models.Invite, error) {
	if err := tx.Model(&models.Invite{}).
		Where("invited_id = ? AND status = ?", invitedID, models.INVITE_STATUS_PENDING).
		Update("status", models.INVITE_STATUS_EXPIRED).Error; err != nil {
		return nil, err
	}

	exp := now.Add(inviteTTL())
	invite := models.Invite{
		InviterID: inviterID,
		InvitedID: invitedID,
		Code:      inviteCode(),
		Status:    models.INVITE_STATUS_PENDING,
		ExpiresAt: &exp,
	}
	if err := tx.Create(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// POST /api/usuarios/:id/convite (admin): gera outro código para um usuário pendente.
func ResendInvite(c *gin.Context) {
	admin, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if user.Status != models.USER_STATUS_PENDING {
		RespondError(c, "usuário já está ativo", http.StatusConflict)
		return
	}

	var invite *models.Invite
	err := transaction(db, func(tx *gorm.DB) error {
		var err error
		invite, err = createInvite(tx, admin.ID, user.ID, clock())
		return err
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	sendInviteWhatsApp(c, user, invite.Code)
	RespondSuccess(c, gin.H{"convite": invite})
}

// sendInviteWhatsApp é best-effort: o admin também recebe o código na resposta.
func sendInviteWhatsApp(c *gin.Context, user models.User, code string) {
	if messenger == nil || strings.TrimSpace(user.Telefone) == "" {
		return
	}
	to, err := tools.NormalizeWhatsAppTo(user.Telefone)
	if err != nil {
		return
	}
	msg := "Você foi convidado(a) para o sistema da Secom. Seu código de ativação é: " + code
	if err := messenger.SendText(requestCtx(c), to, msg); err != nil {
		logUserWarn(user.ID, err, "convite: envio por whatsapp falhou")
	}
}
