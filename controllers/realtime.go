package controllers

import (
	"net/http"
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkWSOrigin,
}

// checkWSOrigin aceita qualquer origem quando a lista está vazia.
func checkWSOrigin(r *http.Request) bool {
	allowed := strings.TrimSpace(conf.Security.AllowedWSOrigins)
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range strings.Split(allowed, ",") {
		if strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}

// GET /api/realtime?token=<jwt>
// Navegadores não mandam Authorization no handshake, por isso o token vem na query.
func Realtime(c *gin.Context) {
	if hub == nil {
		RespondError(c, "realtime indisponível", http.StatusServiceUnavailable)
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		RespondError(c, "token ausente", http.StatusUnauthorized)
		return
	}
	user, ok := userFromToken(c, token)
	if !ok {
		return
	}
	if user.Status != models.USER_STATUS_AVAILABLE {
		RespondError(c, "usuário sem acesso", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("realtime: upgrade falhou")
		return
	}
	hub.Serve(conn, user.ID)
}
