package controllers

import (
	"net/http"

	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// Refresh troca um refresh token válido por um novo par (access+refresh).
// - só o hash fica no banco
// - rotação: ao usar, todos os refresh tokens ativos do usuário são revogados
func Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		RespondError(c, "refresh_token é obrigatório", http.StatusBadRequest)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	now := clock()
	hash := tools.EncryptTextSHA512(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		RespondError(c, "refresh token inválido", http.StatusUnauthorized)
		return
	}
	if !stored.IsActive(now) {
		RespondError(c, "refresh token expirado", http.StatusUnauthorized)
		return
	}

	var user models.User
	if err := db.First(&user, stored.UserID).Error; err != nil {
		RespondError(c, "usuário não encontrado", http.StatusUnauthorized)
		return
	}
	if user.Status != models.USER_STATUS_AVAILABLE {
		RespondError(c, "usuário sem acesso", http.StatusForbidden)
		return
	}

	var pair TokenPair
	err := transaction(db, func(tx *gorm.DB) error {
		if err := revokeAllUserRefreshTokens(tx, user.ID, now); err != nil {
			return err
		}
		var err error
		pair, err = issueTokenPair(tx, user, now)
		return err
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	RespondSuccess(c, pair)
}
