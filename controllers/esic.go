package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"secom/metrics"
	"secom/models"
	"secom/services"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

var esicPendenteStatus = []string{
	models.ESIC_STATUS_ABERTO,
	models.ESIC_STATUS_EM_ANALISE,
	models.ESIC_STATUS_PRORROGADO,
	models.ESIC_STATUS_RECURSO,
}

type EsicRequest struct {
	Protocolo        string `json:"protocolo" form:"protocolo"`
	Assunto          string `json:"assunto" form:"assunto"`
	Descricao        string `json:"descricao" form:"descricao"`
	Solicitante      string `json:"solicitante" form:"solicitante"`
	SolicitanteEmail string `json:"solicitante_email" form:"solicitante_email"`
	AreaID           *int64 `json:"area_id" form:"area_id"`
	ResponsavelID    *int64 `json:"responsavel_id" form:"responsavel_id"`
	DataRecebimento  string `json:"data_recebimento" form:"data_recebimento"`
}

type JustificativaRequest struct {
	Tipo          string `json:"tipo" form:"tipo"`
	Texto         string `json:"texto" form:"texto"`
	Justificativa string `json:"justificativa" form:"justificativa"`
}

func esicPrazoDias() int {
	if conf.Esic.PrazoDias > 0 {
		return conf.Esic.PrazoDias
	}
	return 20
}

func esicProrrogacaoDias() int {
	if conf.Esic.ProrrogacaoDias > 0 {
		return conf.Esic.ProrrogacaoDias
	}
	return 10
}

func esicAlertaDias() int {
	if conf.Esic.AlertaDias > 0 {
		return conf.Esic.AlertaDias
	}
	return 5
}

// GET /api/esic?status=&area_id=&responsavel_id=&q=&vencendo=true&vencidos=true
func GetEsicProcessos(c *gin.Context) {
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	now := clock()

	query := db.Model(&models.EsicProcesso{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status IN (?)", strings.Split(status, ","))
	}
	if id := queryID(c, "area_id"); id > 0 {
		query = query.Where("area_id = ?", id)
	}
	if id := queryID(c, "responsavel_id"); id > 0 {
		query = query.Where("responsavel_id = ?", id)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		query = query.Where("protocolo LIKE ? OR assunto LIKE ? OR solicitante LIKE ?", like, like, like)
	}
	if queryBool(c, "vencendo") {
		query = query.Where("status IN (?) AND prazo_final >= ? AND prazo_final <= ?",
			esicPendenteStatus, now, now.AddDate(0, 0, esicAlertaDias()))
	}
	if queryBool(c, "vencidos") {
		query = query.Where("status IN (?) AND prazo_final < ?", esicPendenteStatus, now)
	}

	limit := clampInt(queryInt(c, "limit", 50), 1, 200)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	var total int
	if err := query.Count(&total).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var processos []models.EsicProcesso
	if err := query.Order("prazo_final asc").Order("id asc").Limit(limit).Offset(offset).Find(&processos).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"total": total, "processos": processos})
}

func GetEsicByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var processo models.EsicProcesso
	if err := db.First(&processo, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var justificativas []models.EsicJustificativa
	if err := db.Where("processo_id = ?", id).Order("id asc").Find(&justificativas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	historico, err := services.LoadHistory(db, models.ENTIDADE_ESIC, id)
	if err != nil {
		respondDBError(c, err)
		return
	}
	now := clock()
	RespondSuccess(c, gin.H{
		"processo":       processo,
		"dias_restantes": processo.DiasRestantes(now),
		"vencido":        processo.IsVencido(now),
		"justificativas": justificativas,
		"historico":      historico,
	})
}

func CreateEsic(c *gin.Context) {
	user, _ := GetUserLogged(c)
	var req EsicRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	processo := models.EsicProcesso{
		Protocolo:        strings.TrimSpace(req.Protocolo),
		Assunto:          strings.TrimSpace(req.Assunto),
		Descricao:        strings.TrimSpace(req.Descricao),
		Solicitante:      strings.TrimSpace(req.Solicitante),
		SolicitanteEmail: strings.TrimSpace(req.SolicitanteEmail),
		AreaID:           req.AreaID,
		ResponsavelID:    req.ResponsavelID,
		Status:           models.ESIC_STATUS_ABERTO,
	}
	if missing := processo.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return
	}
	recebimento, err := parseOptionalTime(req.DataRecebimento)
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	now := clock()
	if recebimento == nil {
		recebimento = &now
	}
	processo.StartDeadline(*recebimento, esicPrazoDias())

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if !checkArea(db, processo.AreaID) {
		RespondError(c, "área não encontrada", http.StatusBadRequest)
		return
	}
	if err := checkResponsavel(db, processo.ResponsavelID); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	var count int
	if err := db.Model(&models.EsicProcesso{}).Where("protocolo = ?", processo.Protocolo).Count(&count).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if count > 0 {
		RespondError(c, "protocolo já cadastrado", http.StatusConflict)
		return
	}

	err = transaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&processo).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_ESIC, processo.ID, "", processo.Status, user.ID, "")
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	metrics.RecordCreated(models.ENTIDADE_ESIC)
	if ids := services.OwnerOrCoordinator(db, processo.ResponsavelID, processo.AreaID); len(ids) > 0 {
		notifyEsic(c, db, ids, processo, "Novo pedido e-SIC", false)
	}
	bumpDashboard(c)
	RespondCreated(c, gin.H{"processo": processo})
}

func UpdateEsic(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req EsicRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var processo models.EsicProcesso
	if err := db.First(&processo, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if processo.IsClosed() {
		RespondDomainError(c, models.ErrRegistroEncerrado)
		return
	}

	updates := map[string]interface{}{}
	if v := strings.TrimSpace(req.Assunto); v != "" {
		updates["assunto"] = v
	}
	if v := strings.TrimSpace(req.Descricao); v != "" {
		updates["descricao"] = v
	}
	if v := strings.TrimSpace(req.Solicitante); v != "" {
		updates["solicitante"] = v
	}
	if v := strings.TrimSpace(req.SolicitanteEmail); v != "" {
		updates["solicitante_email"] = v
	}
	if req.AreaID != nil {
		if !checkArea(db, req.AreaID) {
			RespondError(c, "área não encontrada", http.StatusBadRequest)
			return
		}
		updates["area_id"] = *req.AreaID
	}
	if req.ResponsavelID != nil {
		if err := checkResponsavel(db, req.ResponsavelID); err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}
		updates["responsavel_id"] = *req.ResponsavelID
	}

	if len(updates) > 0 {
		if err := db.Model(&processo).Updates(updates).Error; err != nil {
			respondDBError(c, err)
			return
		}
	}
	if err := db.First(&processo, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"processo": processo})
}

// POST /api/esic/:id/status {status, comentario, resposta}
func UpdateEsicStatus(c *gin.Context) {
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

	var processo models.EsicProcesso
	var de string
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.First(&processo, id).Error; err != nil {
			return err
		}
		de = processo.Status
		if err := processo.Transition(req.Status, req.Comentario, req.Resposta, clock()); err != nil {
			return err
		}
		if err := tx.Save(&processo).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_ESIC, processo.ID, de, processo.Status, user.ID, req.Comentario)
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	ids := services.OwnerOrCoordinator(db, processo.ResponsavelID, processo.AreaID)
	var others []int64
	for _, uid := range ids {
		if uid != user.ID {
			others = append(others, uid)
		}
	}
	notifyEsic(c, db, others, processo, fmt.Sprintf("e-SIC %s: %s → %s", processo.Protocolo, de, processo.Status), false)
	notifier.Broadcast("esic.status", gin.H{"id": processo.ID, "de": de, "para": processo.Status})
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"processo": processo})
}

// POST /api/esic/:id/prorrogar {justificativa}
func ProrrogarEsic(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req JustificativaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	texto := strings.TrimSpace(req.Justificativa)
	if texto == "" {
		texto = strings.TrimSpace(req.Texto)
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var processo models.EsicProcesso
	var de string
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.First(&processo, id).Error; err != nil {
			return err
		}
		de = processo.Status
		if err := processo.Prorrogar(texto, esicProrrogacaoDias(), clock()); err != nil {
			return err
		}
		if err := tx.Save(&processo).Error; err != nil {
			return err
		}
		j := models.EsicJustificativa{
			ProcessoID: processo.ID,
			Tipo:       models.JUSTIFICATIVA_PRORROGACAO,
			Texto:      texto,
			AutorID:    user.ID,
		}
		if err := tx.Create(&j).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_ESIC, processo.ID, de, processo.Status, user.ID, texto)
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	notifier.Broadcast("esic.status", gin.H{"id": processo.ID, "de": de, "para": processo.Status})
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"processo": processo})
}

// POST /api/esic/:id/justificativas {tipo, texto}
func AddEsicJustificativa(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req JustificativaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	j := models.EsicJustificativa{
		ProcessoID: id,
		Tipo:       strings.TrimSpace(req.Tipo),
		Texto:      strings.TrimSpace(req.Texto),
		AutorID:    user.ID,
	}
	if !models.IsValidJustificativaTipo(j.Tipo) {
		RespondError(c, "tipo de justificativa inválido", http.StatusBadRequest)
		return
	}
	if j.Texto == "" {
		RespondDomainError(c, models.ErrJustificativaVazia)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var processo models.EsicProcesso
	if err := db.First(&processo, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if processo.IsClosed() {
		RespondDomainError(c, models.ErrRegistroEncerrado)
		return
	}
	if err := db.Create(&j).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondCreated(c, gin.H{"justificativa": j})
}

// GET /api/esic/:id/prazo
func GetEsicPrazo(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var processo models.EsicProcesso
	if err := db.First(&processo, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	now := clock()
	RespondSuccess(c, gin.H{
		"prazo_final":    processo.PrazoFinal,
		"dias_restantes": processo.DiasRestantes(now),
		"vencido":        processo.IsVencido(now),
		"prorrogado":     processo.Prorrogado,
	})
}

func notifyEsic(c *gin.Context, db *gorm.DB, ids []int64, processo models.EsicProcesso, titulo string, urgente bool) {
	_, err := notifier.Notify(requestCtx(c), db, ids, models.Notificacao{
		Tipo:       models.NOTIFICACAO_ESIC,
		Titulo:     titulo,
		Mensagem:   fmt.Sprintf("%s: %s", processo.Protocolo, processo.Assunto),
		Entidade:   models.ENTIDADE_ESIC,
		EntidadeID: processo.ID,
		Urgente:    urgente,
	})
	if err != nil {
		logUserWarn(0, err, "esic: falha ao notificar")
	}
}
