package controllers

import (
	"net/http"
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
)

func Me(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	RespondSuccess(c, gin.H{"user": user})
}

type UpdateMeRequest struct {
	Nome              *string `json:"nome"`
	Telefone          *string `json:"telefone"`
	Cargo             *string `json:"cargo"`
	NotificarWhatsApp *bool   `json:"notificar_whatsapp"`
}

// PUT /api/me: o próprio usuário só altera dados de contato.
func UpdateMe(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	if req.Nome != nil {
		if strings.TrimSpace(*req.Nome) == "" {
			RespondError(c, "nome não pode ficar vazio", http.StatusBadRequest)
			return
		}
		updates["nome"] = strings.TrimSpace(*req.Nome)
	}
	if req.Telefone != nil {
		updates["telefone"] = strings.TrimSpace(*req.Telefone)
	}
	if req.Cargo != nil {
		updates["cargo"] = strings.TrimSpace(*req.Cargo)
	}
	if req.NotificarWhatsApp != nil {
		updates["notificar_whatsapp"] = *req.NotificarWhatsApp
	}
	if len(updates) == 0 {
		RespondSuccess(c, gin.H{"user": user})
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"user": fresh})
}
