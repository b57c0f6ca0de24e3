package controllers

import (
	"net/http"
	"strings"
	"time"

	"secom/metrics"
	"secom/models"
	"secom/services"

	"github.com/gin-gonic/gin"
)

type ComunicadoRequest struct {
	Titulo       string `json:"titulo" form:"titulo"`
	Conteudo     string `json:"conteudo" form:"conteudo"`
	Prioridade   string `json:"prioridade" form:"prioridade"`
	DestinoTipo  string `json:"destino_tipo" form:"destino_tipo"`
	DestinoIDs   string `json:"destino_ids" form:"destino_ids"`
	AgendadoPara string `json:"agendado_para" form:"agendado_para"`
}

type comunicadoView struct {
	models.Comunicado
	Lido   bool       `json:"lido"`
	LidoEm *time.Time `json:"lido_em,omitempty"`
}

func canManageComunicado(user models.User, com models.Comunicado) bool {
	return user.IsAdmin() || com.AutorID == user.ID
}

// GET /api/comunicados
// Coordenação/admin veem todos; os demais só os endereçados a eles (com "lido").
func GetComunicados(c *gin.Context) {
	user, _ := GetUserLogged(c)
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	limit := clampInt(queryInt(c, "limit", 50), 1, 200)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	if user.CanReview() {
		query := db.Model(&models.Comunicado{})
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			query = query.Where("status = ?", status)
		}
		var comunicados []models.Comunicado
		if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&comunicados).Error; err != nil {
			respondDBError(c, err)
			return
		}
		RespondSuccess(c, gin.H{"comunicados": comunicados})
		return
	}

	var leituras []models.ComunicadoLeitura
	if err := db.Where("user_id = ?", user.ID).Order("comunicado_id desc").Limit(limit).Offset(offset).Find(&leituras).Error; err != nil {
		respondDBError(c, err)
		return
	}
	ids := make([]int64, 0, len(leituras))
	for _, l := range leituras {
		ids = append(ids, l.ComunicadoID)
	}
	byID := map[int64]models.Comunicado{}
	if len(ids) > 0 {
		var comunicados []models.Comunicado
		if err := db.Where("id IN (?)", ids).Find(&comunicados).Error; err != nil {
			respondDBError(c, err)
			return
		}
		for _, com := range comunicados {
			byID[com.ID] = com
		}
	}

	views := make([]comunicadoView, 0, len(leituras))
	for _, l := range leituras {
		com, ok := byID[l.ComunicadoID]
		if !ok {
			continue
		}
		views = append(views, comunicadoView{Comunicado: com, Lido: l.LidoEm != nil, LidoEm: l.LidoEm})
	}
	RespondSuccess(c, gin.H{"comunicados": views})
}

func GetComunicadoByID(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var com models.Comunicado
	if err := db.First(&com, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !user.CanReview() {
		var leitura models.ComunicadoLeitura
		if err := db.Where("comunicado_id = ? AND user_id = ?", id, user.ID).First(&leitura).Error; err != nil {
			RespondError(c, "registro não encontrado", http.StatusNotFound)
			return
		}
		RespondSuccess(c, gin.H{"comunicado": comunicadoView{Comunicado: com, Lido: leitura.LidoEm != nil, LidoEm: leitura.LidoEm}})
		return
	}
	RespondSuccess(c, gin.H{"comunicado": com})
}

func applyComunicadoRequest(c *gin.Context, com *models.Comunicado, req ComunicadoRequest) bool {
	if v := strings.TrimSpace(req.Titulo); v != "" {
		com.Titulo = v
	}
	if v := strings.TrimSpace(req.Conteudo); v != "" {
		com.Conteudo = v
	}
	if v := strings.TrimSpace(req.Prioridade); v != "" {
		if !models.IsValidPrioridade(v) {
			RespondError(c, "prioridade inválida", http.StatusBadRequest)
			return false
		}
		com.Prioridade = v
	}
	if v := strings.TrimSpace(req.DestinoTipo); v != "" {
		if !models.IsValidDestinoTipo(v) {
			RespondError(c, "destino_tipo inválido", http.StatusBadRequest)
			return false
		}
		com.DestinoTipo = v
		com.DestinoIDs = strings.TrimSpace(req.DestinoIDs)
	}
	if req.AgendadoPara != "" {
		agendado, err := parseOptionalTime(req.AgendadoPara)
		if err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return false
		}
		com.AgendadoPara = agendado
	}
	if missing := com.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return false
	}
	com.ScheduleStatus(clock())
	return true
}

// POST /api/comunicados (coordenador/admin)
func CreateComunicado(c *gin.Context) {
	user, _ := GetUserLogged(c)
	var req ComunicadoRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	com := models.Comunicado{
		AutorID:     user.ID,
		Prioridade:  models.PRIORIDADE_MEDIA,
		DestinoTipo: models.DESTINO_TODOS,
	}
	if !applyComunicadoRequest(c, &com, req) {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if err := db.Create(&com).Error; err != nil {
		respondDBError(c, err)
		return
	}
	metrics.RecordCreated("comunicado")
	RespondCreated(c, gin.H{"comunicado": com})
}

// PUT /api/comunicados/:id: só enquanto rascunho/agendado.
func UpdateComunicado(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req ComunicadoRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var com models.Comunicado
	if err := db.First(&com, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !canManageComunicado(user, com) {
		RespondError(c, "sem permissão para alterar este comunicado", http.StatusForbidden)
		return
	}
	if !com.IsEditable() {
		RespondDomainError(c, models.ErrComunicadoEnviado)
		return
	}
	if !applyComunicadoRequest(c, &com, req) {
		return
	}
	if err := db.Save(&com).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"comunicado": com})
}

// DELETE /api/comunicados/:id: só enquanto não enviado.
func DeleteComunicado(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var com models.Comunicado
	if err := db.First(&com, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !canManageComunicado(user, com) {
		RespondError(c, "sem permissão para excluir este comunicado", http.StatusForbidden)
		return
	}
	if !com.IsEditable() {
		RespondDomainError(c, models.ErrComunicadoEnviado)
		return
	}
	if err := db.Delete(&com).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, true)
}

// POST /api/comunicados/:id/enviar
func EnviarComunicado(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var com models.Comunicado
	if err := db.First(&com, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !canManageComunicado(user, com) && !user.CanReview() {
		RespondError(c, "sem permissão para enviar este comunicado", http.StatusForbidden)
		return
	}

	total, err := services.DispatchComunicado(requestCtx(c), db, notifier, &com, clock())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"comunicado": com, "total_destinatarios": total})
}

// POST /api/comunicados/:id/lido: idempotente.
func MarcarComunicadoLido(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var leitura models.ComunicadoLeitura
	if err := db.Where("comunicado_id = ? AND user_id = ?", id, user.ID).First(&leitura).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if leitura.LidoEm == nil {
		now := clock()
		if err := db.Model(&leitura).Update("lido_em", now).Error; err != nil {
			respondDBError(c, err)
			return
		}
		leitura.LidoEm = &now
	}
	RespondSuccess(c, gin.H{"leitura": leitura})
}

type leituraView struct {
	UserID int64      `json:"user_id"`
	Nome   string     `json:"nome"`
	Lido   bool       `json:"lido"`
	LidoEm *time.Time `json:"lido_em"`
}

// GET /api/comunicados/:id/leituras (autor/admin)
func GetComunicadoLeituras(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var com models.Comunicado
	if err := db.First(&com, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !canManageComunicado(user, com) {
		RespondError(c, "sem permissão", http.StatusForbidden)
		return
	}

	var leituras []models.ComunicadoLeitura
	if err := db.Where("comunicado_id = ?", id).Order("user_id asc").Find(&leituras).Error; err != nil {
		respondDBError(c, err)
		return
	}
	names, err := userNames(db)
	if err != nil {
		respondDBError(c, err)
		return
	}

	lidos := 0
	items := make([]leituraView, 0, len(leituras))
	for _, l := range leituras {
		if l.LidoEm != nil {
			lidos++
		}
		items = append(items, leituraView{UserID: l.UserID, Nome: names[l.UserID], Lido: l.LidoEm != nil, LidoEm: l.LidoEm})
	}
	RespondSuccess(c, gin.H{
		"total":     len(leituras),
		"lidos":     lidos,
		"nao_lidos": len(leituras) - lidos,
		"leituras":  items,
	})
}
