package controllers

import (
	"net/http"
	"strings"

	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type AcceptInviteRequest struct {
	Password string `json:"password" form:"password"`
}

// AcceptInvite valida o código do convite, define a senha e ativa o usuário.
// POST /api/convites/:code/aceitar
func AcceptInvite(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		RespondError(c, "code é obrigatório", http.StatusBadRequest)
		return
	}
	var req AcceptInviteRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if field := tools.CheckPassword(req.Password); field != "" {
		RespondError(c, "senha fraca: mínimo 8 caracteres com letras e números", http.StatusBadRequest)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var invite models.Invite
	if err := db.Where("code = ?", code).First(&invite).Error; err != nil {
		RespondError(c, "código inválido", http.StatusNotFound)
		return
	}

	now := clock()
	if invite.Status == models.INVITE_STATUS_VALIDATED {
		RespondError(c, "convite já utilizado", http.StatusConflict)
		return
	}
	if invite.Status == models.INVITE_STATUS_EXPIRED || invite.IsExpired(now) {
		_ = db.Model(&invite).Update("status", models.INVITE_STATUS_EXPIRED).Error
		RespondError(c, "código expirado", http.StatusForbidden)
		return
	}

	var user models.User
	if err := db.First(&user, invite.InvitedID).Error; err != nil {
		RespondError(c, "usuário não encontrado", http.StatusNotFound)
		return
	}
	if user.Status == models.USER_STATUS_BLOCKED {
		RespondError(c, "usuário bloqueado", http.StatusForbidden)
		return
	}

	hash, err := tools.HashPassword(req.Password)
	if err != nil {
		RespondError(c, "erro ao processar senha", http.StatusInternalServerError)
		return
	}

	err = transaction(db, func(tx *gorm.DB) error {
		if err := tx.Model(&invite).Update("status", models.INVITE_STATUS_VALIDATED).Error; err != nil {
			return err
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"senha":  hash,
			"status": models.USER_STATUS_AVAILABLE,
		}).Error
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	user.Status = models.USER_STATUS_AVAILABLE
	RespondSuccess(c, gin.H{"status": "activated", "user": user})
}
