package controllers

import (
	"net/http"
	"strings"

	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type LoginResponse struct {
	TokenPair
	User models.User `json:"user"`
}

// POST /api/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		RespondError(c, "email e password são obrigatórios", http.StatusBadRequest)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		RespondError(c, "usuário ou senha inválidos", http.StatusUnauthorized)
		return
	}
	if user.Senha == "" || !tools.CheckPasswordHash(user.Senha, req.Password) {
		RespondError(c, "usuário ou senha inválidos", http.StatusUnauthorized)
		return
	}

	if user.Status == models.USER_STATUS_PENDING {
		RespondError(c, "usuário pendente de ativação", http.StatusForbidden)
		return
	}
	if user.Status == models.USER_STATUS_BLOCKED {
		RespondError(c, "usuário bloqueado", http.StatusForbidden)
		return
	}

	pair, err := issueTokenPair(db, user, clock())
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("login: falha ao emitir tokens")
		RespondError(c, "erro ao assinar token", http.StatusInternalServerError)
		return
	}

	logrus.WithField("user_id", user.ID).Info("login efetuado")
	RespondSuccess(c, LoginResponse{TokenPair: pair, User: user})
}

// POST /api/logout: revoga todas as sessões (refresh tokens) do usuário.
func Logout(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if err := revokeAllUserRefreshTokens(db, user.ID, clock()); err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, true)
}
