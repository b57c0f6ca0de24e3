package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"secom/metrics"
	"secom/models"
	"secom/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

const PROTOCOLO_DEMANDA = "DEM"

const prioridadeOrderExpr = "CASE prioridade WHEN 'urgente' THEN 3 WHEN 'alta' THEN 2 WHEN 'media' THEN 1 ELSE 0 END"

var demandaAbertaStatus = []string{
	models.DEMANDA_STATUS_ABERTA,
	models.DEMANDA_STATUS_EM_ANDAMENTO,
	models.DEMANDA_STATUS_AGUARDANDO,
}

type DemandaRequest struct {
	Titulo              string `json:"titulo" form:"titulo"`
	Descricao           string `json:"descricao" form:"descricao"`
	Origem              string `json:"origem" form:"origem"`
	Veiculo             string `json:"veiculo" form:"veiculo"`
	SolicitanteNome     string `json:"solicitante_nome" form:"solicitante_nome"`
	SolicitanteEmail    string `json:"solicitante_email" form:"solicitante_email"`
	SolicitanteTelefone string `json:"solicitante_telefone" form:"solicitante_telefone"`
	AreaID              *int64 `json:"area_id" form:"area_id"`
	ResponsavelID       *int64 `json:"responsavel_id" form:"responsavel_id"`
	Prioridade          string `json:"prioridade" form:"prioridade"`
	Prazo               string `json:"prazo" form:"prazo"`
}

type StatusRequest struct {
	Status     string `json:"status" form:"status"`
	Comentario string `json:"comentario" form:"comentario"`
	Resposta   string `json:"resposta" form:"resposta"`
}

// canEditDemanda: coordenação/assessoria editam qualquer demanda; os demais só as próprias.
func canEditDemanda(user models.User, d models.Demanda) bool {
	if user.HasRole(models.USER_ROLE_COORDENADOR, models.USER_ROLE_ASSESSOR) {
		return true
	}
	return d.AutorID == user.ID || services.PtrID(d.ResponsavelID) == user.ID
}

func checkResponsavel(db *gorm.DB, id *int64) error {
	if id == nil {
		return nil
	}
	var user models.User
	if err := db.First(&user, *id).Error; err != nil {
		return fmt.Errorf("responsável não encontrado")
	}
	if user.Status != models.USER_STATUS_AVAILABLE {
		return fmt.Errorf("responsável inativo")
	}
	return nil
}

// GET /api/demandas
// Query params:
// - status, area_id, responsavel_id, prioridade, origem (optional)
// - q=texto -> busca em titulo, descricao, protocolo e veiculo
// - atrasadas=true
// - sort_by=created_at|prazo|prioridade|id (default: created_at), order=asc|desc
// - limit (default 50, max 200), offset
func GetDemandas(c *gin.Context) {
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	query := db.Model(&models.Demanda{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status IN (?)", strings.Split(status, ","))
	}
	if areaID := queryID(c, "area_id"); areaID > 0 {
		query = query.Where("area_id = ?", areaID)
	}
	if respID := queryID(c, "responsavel_id"); respID > 0 {
		query = query.Where("responsavel_id = ?", respID)
	}
	if p := strings.TrimSpace(c.Query("prioridade")); p != "" {
		query = query.Where("prioridade = ?", p)
	}
	if o := strings.TrimSpace(c.Query("origem")); o != "" {
		query = query.Where("origem = ?", o)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		query = query.Where("titulo LIKE ? OR descricao LIKE ? OR protocolo LIKE ? OR veiculo LIKE ?", like, like, like, like)
	}
	if queryBool(c, "atrasadas") {
		query = query.Where("status IN (?) AND prazo IS NOT NULL AND prazo < ?", demandaAbertaStatus, clock())
	}

	limit := clampInt(queryInt(c, "limit", 50), 1, 200)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	var total int
	if err := query.Count(&total).Error; err != nil {
		respondDBError(c, err)
		return
	}

	sortBy := strings.TrimSpace(c.DefaultQuery("sort_by", "created_at"))
	order := orderClause(sortBy, []string{"created_at", "prazo", "prioridade", "id"}, "created_at", c.DefaultQuery("order", "desc"))
	if sortBy == "prioridade" {
		order = strings.Replace(order, "prioridade", prioridadeOrderExpr, 1)
	}

	var demandas []models.Demanda
	if err := query.Order(order).Order("id desc").Limit(limit).Offset(offset).Find(&demandas).Error; err != nil {
		respondDBError(c, err)
		return
	}

	RespondSuccess(c, gin.H{
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"demandas": demandas,
	})
}

// GET /api/demandas/:id: demanda + notas + histórico.
func GetDemandaByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var demanda models.Demanda
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var notas []models.NotaOficial
	if err := db.Where("demanda_id = ?", id).Order("id asc").Find(&notas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	historico, err := services.LoadHistory(db, models.ENTIDADE_DEMANDA, id)
	if err != nil {
		respondDBError(c, err)
		return
	}

	RespondSuccess(c, gin.H{
		"demanda":   demanda,
		"atrasada":  demanda.IsAtrasada(clock()),
		"notas":     notas,
		"historico": historico,
	})
}

func CreateDemanda(c *gin.Context) {
	user, _ := GetUserLogged(c)
	var req DemandaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	now := clock()
	demanda := models.Demanda{
		Titulo:              strings.TrimSpace(req.Titulo),
		Descricao:           strings.TrimSpace(req.Descricao),
		Origem:              strings.TrimSpace(req.Origem),
		Veiculo:             strings.TrimSpace(req.Veiculo),
		SolicitanteNome:     strings.TrimSpace(req.SolicitanteNome),
		SolicitanteEmail:    strings.TrimSpace(req.SolicitanteEmail),
		SolicitanteTelefone: strings.TrimSpace(req.SolicitanteTelefone),
		AreaID:              req.AreaID,
		ResponsavelID:       req.ResponsavelID,
		AutorID:             user.ID,
		Prioridade:          strings.TrimSpace(req.Prioridade),
		Status:              models.DEMANDA_STATUS_ABERTA,
		Protocolo:           "TMP-" + uuid.NewString(),
	}
	if demanda.Origem == "" {
		demanda.Origem = models.ORIGEM_IMPRENSA
	}
	if demanda.Prioridade == "" {
		demanda.Prioridade = models.PRIORIDADE_MEDIA
	}

	if missing := demanda.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return
	}
	if !models.IsValidOrigem(demanda.Origem) {
		RespondError(c, "origem inválida", http.StatusBadRequest)
		return
	}
	if !models.IsValidPrioridade(demanda.Prioridade) {
		RespondError(c, "prioridade inválida", http.StatusBadRequest)
		return
	}
	prazo, err := parseOptionalTime(req.Prazo)
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if prazo == nil {
		p := models.PrazoPadrao(demanda.Prioridade, now)
		prazo = &p
	}
	demanda.Prazo = prazo

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if !checkArea(db, demanda.AreaID) {
		RespondError(c, "área não encontrada", http.StatusBadRequest)
		return
	}
	if err := checkResponsavel(db, demanda.ResponsavelID); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	err = transaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&demanda).Error; err != nil {
			return err
		}
		demanda.Protocolo = models.FormatProtocolo(PROTOCOLO_DEMANDA, now.Year(), demanda.ID)
		if err := tx.Model(&demanda).Update("protocolo", demanda.Protocolo).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_DEMANDA, demanda.ID, "", demanda.Status, user.ID, "")
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	metrics.RecordCreated(models.ENTIDADE_DEMANDA)
	if respID := services.PtrID(demanda.ResponsavelID); respID > 0 && respID != user.ID {
		notifyDemanda(c, db, []int64{respID}, demanda, "Nova demanda atribuída",
			fmt.Sprintf("%s: %s", demanda.Protocolo, demanda.Titulo))
	}
	notifier.Broadcast("demanda.criada", gin.H{"id": demanda.ID, "protocolo": demanda.Protocolo})
	bumpDashboard(c)

	RespondCreated(c, gin.H{"demanda": demanda})
}

func UpdateDemanda(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req DemandaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	// troca de responsável passa pela atribuição, que notifica o novo responsável
	if req.ResponsavelID != nil {
		RespondError(c, "use /api/demandas/:id/atribuir para trocar o responsável", http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var demanda models.Demanda
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if demanda.IsTerminal() {
		RespondDomainError(c, models.ErrRegistroEncerrado)
		return
	}
	if !canEditDemanda(user, demanda) {
		RespondError(c, "sem permissão para editar esta demanda", http.StatusForbidden)
		return
	}

	updates := map[string]interface{}{}
	setString := func(column, value string) {
		if v := strings.TrimSpace(value); v != "" {
			updates[column] = v
		}
	}
	setString("titulo", req.Titulo)
	setString("descricao", req.Descricao)
	setString("veiculo", req.Veiculo)
	setString("solicitante_nome", req.SolicitanteNome)
	setString("solicitante_email", req.SolicitanteEmail)
	setString("solicitante_telefone", req.SolicitanteTelefone)

	if v := strings.TrimSpace(req.Origem); v != "" {
		if !models.IsValidOrigem(v) {
			RespondError(c, "origem inválida", http.StatusBadRequest)
			return
		}
		updates["origem"] = v
	}
	if v := strings.TrimSpace(req.Prioridade); v != "" {
		if !models.IsValidPrioridade(v) {
			RespondError(c, "prioridade inválida", http.StatusBadRequest)
			return
		}
		updates["prioridade"] = v
	}
	if req.Prazo != "" {
		prazo, err := parseOptionalTime(req.Prazo)
		if err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}
		updates["prazo"] = *prazo
		updates["alerta_atraso_em"] = nil
	}
	if req.AreaID != nil {
		if !checkArea(db, req.AreaID) {
			RespondError(c, "área não encontrada", http.StatusBadRequest)
			return
		}
		updates["area_id"] = *req.AreaID
	}

	if len(updates) > 0 {
		if err := db.Model(&demanda).Updates(updates).Error; err != nil {
			respondDBError(c, err)
			return
		}
	}
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"demanda": demanda})
}

// POST /api/demandas/:id/status {status, comentario}
func UpdateDemandaStatus(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		RespondError(c, "status é obrigatório", http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var demanda models.Demanda
	var de string
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.First(&demanda, id).Error; err != nil {
			return err
		}
		if !canEditDemanda(user, demanda) {
			return errSemPermissao
		}
		de = demanda.Status
		if err := demanda.Transition(req.Status, req.Comentario, clock()); err != nil {
			return err
		}
		if err := tx.Save(&demanda).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_DEMANDA, demanda.ID, de, demanda.Status, user.ID, req.Comentario)
	})
	if err != nil {
		if errors.Is(err, errSemPermissao) {
			RespondError(c, "sem permissão para alterar esta demanda", http.StatusForbidden)
			return
		}
		RespondDomainError(c, err)
		return
	}

	afterDemandaStatus(c, db, demanda, de, user.ID)
	RespondSuccess(c, gin.H{"demanda": demanda})
}

// afterDemandaStatus notifica autor e responsável e avisa os painéis.
func afterDemandaStatus(c *gin.Context, db *gorm.DB, demanda models.Demanda, de string, actorID int64) {
	var ids []int64
	for _, uid := range []int64{demanda.AutorID, services.PtrID(demanda.ResponsavelID)} {
		if uid != actorID {
			ids = append(ids, uid)
		}
	}
	notifyDemanda(c, db, ids, demanda, "Demanda atualizada",
		fmt.Sprintf("%s: %s → %s", demanda.Protocolo, de, demanda.Status))
	notifier.Broadcast("demanda.status", gin.H{"id": demanda.ID, "de": de, "para": demanda.Status})
	bumpDashboard(c)
}

type AtribuirRequest struct {
	ResponsavelID *int64 `json:"responsavel_id" form:"responsavel_id"`
	AreaID        *int64 `json:"area_id" form:"area_id"`
}

// POST /api/demandas/:id/atribuir {responsavel_id, area_id}
func AtribuirDemanda(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req AtribuirRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ResponsavelID == nil && req.AreaID == nil {
		RespondError(c, "informe responsavel_id e/ou area_id", http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var demanda models.Demanda
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if demanda.IsTerminal() {
		RespondDomainError(c, models.ErrRegistroEncerrado)
		return
	}
	if err := checkResponsavel(db, req.ResponsavelID); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if !checkArea(db, req.AreaID) {
		RespondError(c, "área não encontrada", http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	if req.ResponsavelID != nil {
		updates["responsavel_id"] = *req.ResponsavelID
	}
	if req.AreaID != nil {
		updates["area_id"] = *req.AreaID
	}
	if err := db.Model(&demanda).Updates(updates).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	if respID := services.PtrID(req.ResponsavelID); respID > 0 && respID != user.ID {
		notifyDemanda(c, db, []int64{respID}, demanda, "Demanda atribuída a você",
			fmt.Sprintf("%s: %s", demanda.Protocolo, demanda.Titulo))
	}
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"demanda": demanda})
}

// DELETE /api/demandas/:id (admin): só sem notas vinculadas.
func DeleteDemanda(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var demanda models.Demanda
	if err := db.First(&demanda, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var notas int
	if err := db.Model(&models.NotaOficial{}).Where("demanda_id = ?", id).Count(&notas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if notas > 0 {
		RespondError(c, "demanda possui notas vinculadas", http.StatusConflict)
		return
	}

	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.Where("entidade = ? AND entidade_id = ?", models.ENTIDADE_DEMANDA, id).Delete(&models.HistoricoStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&demanda).Error
	})
	if err != nil {
		respondDBError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, true)
}

func notifyDemanda(c *gin.Context, db *gorm.DB, ids []int64, demanda models.Demanda, titulo, mensagem string) {
	_, err := notifier.Notify(requestCtx(c), db, ids, models.Notificacao{
		Tipo:       models.NOTIFICACAO_DEMANDA,
		Titulo:     titulo,
		Mensagem:   mensagem,
		Entidade:   models.ENTIDADE_DEMANDA,
		EntidadeID: demanda.ID,
		Urgente:    demanda.Prioridade == models.PRIORIDADE_URGENTE,
	})
	if err != nil {
		logUserWarn(0, err, "demanda: falha ao notificar")
	}
}

func bumpDashboard(c *gin.Context) {
	dashCache.Bump(requestCtx(c), DASHBOARD_CACHE_NS)
}
