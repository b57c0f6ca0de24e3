package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type LayoutRequest struct {
	Layout json.RawMessage `json:"layout"`
	Versao int             `json:"versao"`
}

// GET /api/dashboard/layouts
func GetDashboardLayouts(c *gin.Context) {
	user, _ := GetUserLogged(c)
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var layouts []models.DashboardLayout
	if err := db.Where("user_id = ?", user.ID).Order("nome asc").Find(&layouts).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"layouts": layouts})
}

// GET /api/dashboard/layouts/:nome
func GetDashboardLayout(c *gin.Context) {
	user, _ := GetUserLogged(c)
	nome := strings.TrimSpace(c.Param("nome"))
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var layout models.DashboardLayout
	if err := db.Where("user_id = ? AND nome = ?", user.ID, nome).First(&layout).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"layout": layout})
}

// PUT /api/dashboard/layouts/:nome {layout, versao}
// versao deve bater com a gravada (0 cria). Layout idêntico não gera nova versão.
func SaveDashboardLayout(c *gin.Context) {
	user, _ := GetUserLogged(c)
	nome := strings.TrimSpace(c.Param("nome"))
	if nome == "" || len(nome) > 64 {
		RespondError(c, "nome inválido", http.StatusBadRequest)
		return
	}
	var req LayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var layout models.DashboardLayout
	var changed bool
	err := transaction(db, func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND nome = ?", user.ID, nome).First(&layout).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			return err
		}
		if gorm.IsRecordNotFoundError(err) {
			layout = models.DashboardLayout{UserID: user.ID, Nome: nome}
		}

		changed, err = layout.Apply(string(req.Layout), req.Versao)
		if err != nil || !changed {
			return err
		}
		if layout.ID == 0 {
			return tx.Create(&layout).Error
		}
		// trava otimista: outra aba pode ter salvo no meio
		res := tx.Model(&models.DashboardLayout{}).
			Where("id = ? AND versao = ?", layout.ID, req.Versao).
			Updates(map[string]interface{}{"layout": layout.Layout, "versao": layout.Versao})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrVersaoConflitante
		}
		return nil
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"layout": layout, "alterado": changed})
}
