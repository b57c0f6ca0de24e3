package controllers

import (
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
)

// GET /api/notificacoes?lida=false&limit=&offset=
func GetNotificacoes(c *gin.Context) {
	user, _ := GetUserLogged(c)
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	query := db.Model(&models.Notificacao{}).Where("user_id = ?", user.ID)
	switch strings.TrimSpace(c.Query("lida")) {
	case "true":
		query = query.Where("lida = ?", true)
	case "false":
		query = query.Where("lida = ?", false)
	}
	limit := clampInt(queryInt(c, "limit", 50), 1, 200)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	var items []models.Notificacao
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		respondDBError(c, err)
		return
	}

	var naoLidas int
	if err := db.Model(&models.Notificacao{}).Where("user_id = ? AND lida = ?", user.ID, false).Count(&naoLidas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"notificacoes": items, "nao_lidas": naoLidas})
}

// POST /api/notificacoes/:id/lida: lida só vai de false para true.
func MarcarNotificacaoLida(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var n models.Notificacao
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&n).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !n.Lida {
		now := clock()
		if err := db.Model(&n).Updates(map[string]interface{}{"lida": true, "lida_em": now}).Error; err != nil {
			respondDBError(c, err)
			return
		}
		n.Lida = true
		n.LidaEm = &now
	}
	RespondSuccess(c, gin.H{"notificacao": n})
}

// POST /api/notificacoes/lidas: marca todas as pendentes do usuário.
func MarcarTodasNotificacoesLidas(c *gin.Context) {
	user, _ := GetUserLogged(c)
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	res := db.Model(&models.Notificacao{}).
		Where("user_id = ? AND lida = ?", user.ID, false).
		Updates(map[string]interface{}{"lida": true, "lida_em": clock()})
	if res.Error != nil {
		respondDBError(c, res.Error)
		return
	}
	RespondSuccess(c, gin.H{"atualizadas": res.RowsAffected})
}
