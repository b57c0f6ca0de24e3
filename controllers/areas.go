package controllers

import (
	"net/http"
	"strings"

	"secom/models"

	"github.com/gin-gonic/gin"
)

type AreaRequest struct {
	Nome          string `json:"nome" form:"nome"`
	Descricao     string `json:"descricao" form:"descricao"`
	CoordenadorID *int64 `json:"coordenador_id" form:"coordenador_id"`
	Ativa         *bool  `json:"ativa" form:"ativa"`
}

func GetAreas(c *gin.Context) {
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	query := db.Model(&models.Area{})
	if !queryBool(c, "todas") {
		query = query.Where("ativa = ?", true)
	}
	var areas []models.Area
	if err := query.Order("nome asc").Find(&areas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"areas": areas})
}

func GetAreaByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var area models.Area
	if err := db.First(&area, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"area": area})
}

func checkCoordenador(c *gin.Context, id *int64) bool {
	if id == nil {
		return true
	}
	db := dbInstance(c)
	var user models.User
	if err := db.First(&user, *id).Error; err != nil {
		RespondError(c, "coordenador não encontrado", http.StatusBadRequest)
		return false
	}
	if !user.HasRole(models.USER_ROLE_COORDENADOR) {
		RespondError(c, "usuário não é coordenador", http.StatusBadRequest)
		return false
	}
	return true
}

func CreateArea(c *gin.Context) {
	var req AreaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	area := models.Area{
		Nome:          strings.TrimSpace(req.Nome),
		Descricao:     strings.TrimSpace(req.Descricao),
		CoordenadorID: req.CoordenadorID,
		Ativa:         true,
	}
	if req.Ativa != nil {
		area.Ativa = *req.Ativa
	}
	if missing := area.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if !checkCoordenador(c, area.CoordenadorID) {
		return
	}

	var count int
	db.Model(&models.Area{}).Where("nome = ?", area.Nome).Count(&count)
	if count > 0 {
		RespondError(c, "já existe uma área com esse nome", http.StatusConflict)
		return
	}

	if err := db.Create(&area).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondCreated(c, gin.H{"area": area})
}

func UpdateArea(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req AreaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var area models.Area
	if err := db.First(&area, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	updates := map[string]interface{}{}
	if v := strings.TrimSpace(req.Nome); v != "" && v != area.Nome {
		var count int
		db.Model(&models.Area{}).Where("nome = ? AND id <> ?", v, area.ID).Count(&count)
		if count > 0 {
			RespondError(c, "já existe uma área com esse nome", http.StatusConflict)
			return
		}
		updates["nome"] = v
	}
	if req.Descricao != "" {
		updates["descricao"] = strings.TrimSpace(req.Descricao)
	}
	if req.CoordenadorID != nil {
		if *req.CoordenadorID <= 0 {
			updates["coordenador_id"] = nil
		} else {
			if !checkCoordenador(c, req.CoordenadorID) {
				return
			}
			updates["coordenador_id"] = *req.CoordenadorID
		}
	}
	if req.Ativa != nil {
		updates["ativa"] = *req.Ativa
	}

	if len(updates) > 0 {
		if err := db.Model(&area).Updates(updates).Error; err != nil {
			respondDBError(c, err)
			return
		}
	}
	if err := db.First(&area, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"area": area})
}

// DeleteArea recusa áreas que ainda têm demandas em aberto.
func DeleteArea(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var area models.Area
	if err := db.First(&area, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	var abertas int
	if err := db.Model(&models.Demanda{}).
		Where("area_id = ? AND status NOT IN (?)", id, []string{
			models.DEMANDA_STATUS_RESPONDIDA,
			models.DEMANDA_STATUS_ARQUIVADA,
			models.DEMANDA_STATUS_CANCELADA,
		}).
		Count(&abertas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if abertas > 0 {
		RespondError(c, "área possui demandas em aberto", http.StatusConflict)
		return
	}

	if err := db.Delete(&area).Error; err != nil {
		respondDBError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, true)
}
