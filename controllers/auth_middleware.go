package controllers

import (
	"net/http"
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const ctxUserKey = "auth_user"

// AuthRequired valida o Bearer token e carrega o usuário no contexto.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			RespondError(c, "token ausente", http.StatusUnauthorized)
			c.Abort()
			return
		}
		user, ok := userFromToken(c, strings.TrimSpace(h[len("Bearer "):]))
		if !ok {
			c.Abort()
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func userFromToken(c *gin.Context, token string) (models.User, bool) {
	uid, err := parseAccessToken(token)
	if err != nil {
		logrus.WithError(err).Debug("auth: token rejeitado")
		RespondError(c, "token inválido ou expirado", http.StatusUnauthorized)
		return models.User{}, false
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return models.User{}, false
	}
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		RespondError(c, "usuário não encontrado", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

// GetUserLogged devolve o usuário carregado por AuthRequired.
func GetUserLogged(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
