package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const PASSWORD_RESET_TTL = 15 * time.Minute

func findResetFor(db *gorm.DB, email, token string, now time.Time) (models.User, models.PasswordReset, bool) {
	var user models.User
	if err := db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return user, models.PasswordReset{}, false
	}
	var reset models.PasswordReset
	err := db.
		Where("user_id = ? AND token_hash = ? AND used_at IS NULL", user.ID, tools.EncryptTextSHA512(token)).
		Order("id desc").
		First(&reset).Error
	if err != nil || !reset.IsUsable(now) {
		return user, reset, false
	}
	return user, reset, true
}

// POST /api/senha/esqueci (public)
// Body: { "email": "..." }
// Retorna sempre true (anti enumeração).
func ForgotPassword(c *gin.Context) {
	type Request struct {
		Email string `json:"email" form:"email"`
	}

	var req Request
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		RespondSuccess(c, true)
		return
	}
	db := dbInstance(c)
	if db == nil {
		RespondSuccess(c, true)
		return
	}

	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		RespondSuccess(c, true)
		return
	}
	log := logrus.WithField("user_id", user.ID)

	// 1 código ativo por usuário
	_ = db.Where("user_id = ? AND used_at IS NULL", user.ID).Delete(&models.PasswordReset{}).Error

	tokenText := tools.RandomNumbers(6)
	exp := clock().Add(PASSWORD_RESET_TTL)
	reset := models.PasswordReset{
		UserID:    user.ID,
		TokenHash: tools.EncryptTextSHA512(tokenText),
		Channel:   "whatsapp",
		ExpiresAt: &exp,
	}
	if err := db.Create(&reset).Error; err != nil {
		log.WithError(err).Error("senha: falha ao gravar código")
		RespondSuccess(c, true)
		return
	}

	if messenger == nil {
		log.Warn("senha: whatsapp não configurado, código não enviado")
		RespondSuccess(c, true)
		return
	}
	to, err := tools.NormalizeWhatsAppTo(user.Telefone)
	if err != nil {
		log.WithError(err).Warn("senha: telefone inválido")
		RespondSuccess(c, true)
		return
	}
	msg := fmt.Sprintf("*Recuperação de senha*\n\nCódigo: ```%s```\n\n_Válido por 15 minutos. Nunca compartilhe este código._", tokenText)
	if err := messenger.SendText(requestCtx(c), to, msg); err != nil {
		log.WithError(err).Warn("senha: envio por whatsapp falhou")
	}
	RespondSuccess(c, true)
}

// POST /api/senha/verificar (public)
// Body: { "email": "...", "token": "123456" }
// Retorna true/false sem consumir o código.
func CheckResetToken(c *gin.Context) {
	type Request struct {
		Email string `json:"email" form:"email"`
		Token string `json:"token" form:"token"`
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		RespondSuccess(c, false)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Token = strings.TrimSpace(req.Token)
	if req.Email == "" || req.Token == "" {
		RespondSuccess(c, false)
		return
	}
	db := dbInstance(c)
	if db == nil {
		RespondSuccess(c, false)
		return
	}

	_, _, ok := findResetFor(db, req.Email, req.Token, clock())
	RespondSuccess(c, ok)
}

// POST /api/senha/redefinir (public)
// Body: { "email": "...", "token": "123456", "password": "..." }
// Consome o código, troca a senha e revoga as sessões.
func ResetPassword(c *gin.Context) {
	type Request struct {
		Email    string `json:"email" form:"email"`
		Token    string `json:"token" form:"token"`
		Password string `json:"password" form:"password"`
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Token = strings.TrimSpace(req.Token)
	if req.Email == "" || req.Token == "" {
		RespondError(c, "email e token são obrigatórios", http.StatusBadRequest)
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

	now := clock()
	user, reset, ok := findResetFor(db, req.Email, req.Token, now)
	if !ok {
		RespondError(c, "código inválido ou expirado", http.StatusBadRequest)
		return
	}

	hash, err := tools.HashPassword(req.Password)
	if err != nil {
		RespondError(c, "erro ao processar senha", http.StatusInternalServerError)
		return
	}

	err = transaction(db, func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("senha", hash).Error; err != nil {
			return err
		}
		if err := tx.Model(&reset).Update("used_at", now).Error; err != nil {
			return err
		}
		return revokeAllUserRefreshTokens(tx, user.ID, now)
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	RespondSuccess(c, true)
}
