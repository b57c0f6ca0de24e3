package router

import (
	"net/http"

	"secom/controllers"
	"secom/models"

	"github.com/gin-gonic/gin"
)

func loggedOrAbort(c *gin.Context) (models.User, bool) {
	user, ok := controllers.GetUserLogged(c)
	if !ok {
		controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
		c.Abort()
	}
	return user, ok
}

// Authorizer libera apenas contas ativas e com papel conhecido.
func Authorizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loggedOrAbort(c)
		if !ok {
			return
		}

		var msg string
		switch {
		case user.Status == models.USER_STATUS_PENDING:
			msg = "necessário ativar a conta pelo convite"
		case user.Status == models.USER_STATUS_BLOCKED:
			msg = "usuário bloqueado"
		case !models.IsValidRole(user.Role):
			msg = "usuário sem papel definido"
		}
		if msg != "" {
			controllers.RespondError(c, msg, http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles libera apenas os papéis informados. Admin sempre passa.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loggedOrAbort(c)
		if !ok {
			return
		}
		if !user.HasRole(roles...) {
			controllers.RespondError(c, "permissão insuficiente", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func Adminizer() gin.HandlerFunc {
	return RequireRoles(models.USER_ROLE_ADMIN)
}
