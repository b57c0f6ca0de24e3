package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"secom/metrics"
	"secom/models"
	"secom/services"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

type NotaRequest struct {
	DemandaID *int64 `json:"demanda_id" form:"demanda_id"`
	Titulo    string `json:"titulo" form:"titulo"`
	Texto     string `json:"texto" form:"texto"`
}

type RejeitarRequest struct {
	Motivo string `json:"motivo" form:"motivo"`
}

var errAutoAprovacao = errors.New("autor não pode aprovar nem rejeitar a própria nota")

func canEditNota(user models.User, n models.NotaOficial) bool {
	return user.IsAdmin() || n.AutorID == user.ID
}

// GET /api/notas?status=&demanda_id=&autor_id=&q=&limit=&offset=
func GetNotas(c *gin.Context) {
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	query := db.Model(&models.NotaOficial{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status IN (?)", strings.Split(status, ","))
	}
	if id := queryID(c, "demanda_id"); id > 0 {
		query = query.Where("demanda_id = ?", id)
	}
	if id := queryID(c, "autor_id"); id > 0 {
		query = query.Where("autor_id = ?", id)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		query = query.Where("titulo LIKE ? OR texto LIKE ?", like, like)
	}

	limit := clampInt(queryInt(c, "limit", 50), 1, 200)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	var total int
	if err := query.Count(&total).Error; err != nil {
		respondDBError(c, err)
		return
	}
	var notas []models.NotaOficial
	if err := query.Order("updated_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&notas).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"total": total, "notas": notas})
}

func GetNotaByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var nota models.NotaOficial
	if err := db.First(&nota, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	historico, err := services.LoadHistory(db, models.ENTIDADE_NOTA, id)
	if err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"nota": nota, "historico": historico})
}

func CreateNota(c *gin.Context) {
	user, _ := GetUserLogged(c)
	var req NotaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	nota := models.NotaOficial{
		DemandaID: req.DemandaID,
		Titulo:    strings.TrimSpace(req.Titulo),
		Texto:     strings.TrimSpace(req.Texto),
		AutorID:   user.ID,
		Status:    models.NOTA_STATUS_RASCUNHO,
		Versao:    1,
	}
	if missing := nota.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if nota.DemandaID != nil {
		var demanda models.Demanda
		if err := db.First(&demanda, *nota.DemandaID).Error; err != nil {
			RespondError(c, "demanda não encontrada", http.StatusBadRequest)
			return
		}
		if demanda.IsTerminal() {
			RespondDomainError(c, models.ErrRegistroEncerrado)
			return
		}
	}

	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&nota).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_NOTA, nota.ID, "", nota.Status, user.ID, "")
	})
	if err != nil {
		respondDBError(c, err)
		return
	}
	metrics.RecordCreated(models.ENTIDADE_NOTA)
	bumpDashboard(c)
	RespondCreated(c, gin.H{"nota": nota})
}

// PUT /api/notas/:id: rascunho ou rejeitada, só autor/admin. Cada edição gera nova versão.
func UpdateNota(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req NotaRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var nota models.NotaOficial
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.First(&nota, id).Error; err != nil {
			return err
		}
		if !canEditNota(user, nota) {
			return errSemPermissao
		}
		de := nota.Status
		if err := nota.Edit(strings.TrimSpace(req.Titulo), strings.TrimSpace(req.Texto)); err != nil {
			return err
		}
		if err := tx.Save(&nota).Error; err != nil {
			return err
		}
		if de != nota.Status {
			return services.RecordHistory(tx, models.ENTIDADE_NOTA, nota.ID, de, nota.Status, user.ID, "nova versão")
		}
		return nil
	})
	if err != nil {
		respondNotaError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"nota": nota})
}

// notaTransition carrega a nota, aplica fn e grava histórico na mesma transação.
func notaTransition(c *gin.Context, comentario string, fn func(tx *gorm.DB, user models.User, nota *models.NotaOficial) error) (models.NotaOficial, bool) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return models.NotaOficial{}, false
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return models.NotaOficial{}, false
	}

	var nota models.NotaOficial
	var de string
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.First(&nota, id).Error; err != nil {
			return err
		}
		de = nota.Status
		if err := fn(tx, user, &nota); err != nil {
			return err
		}
		if err := tx.Save(&nota).Error; err != nil {
			return err
		}
		return services.RecordHistory(tx, models.ENTIDADE_NOTA, nota.ID, de, nota.Status, user.ID, comentario)
	})
	if err != nil {
		respondNotaError(c, err)
		return nota, false
	}

	if nota.AutorID != user.ID {
		notifyNota(c, db, []int64{nota.AutorID}, nota, fmt.Sprintf("Nota %s", strings.ReplaceAll(nota.Status, "_", " ")))
	}
	notifier.Broadcast("nota.status", gin.H{"id": nota.ID, "de": de, "para": nota.Status})
	bumpDashboard(c)
	RespondSuccess(c, gin.H{"nota": nota})
	return nota, true
}

// POST /api/notas/:id/enviar-revisao
func EnviarNotaRevisao(c *gin.Context) {
	var reviewers []int64
	nota, ok := notaTransition(c, "", func(tx *gorm.DB, user models.User, nota *models.NotaOficial) error {
		if !canEditNota(user, *nota) {
			return errSemPermissao
		}
		if err := nota.SubmitForReview(clock()); err != nil {
			return err
		}
		var areaID *int64
		if nota.DemandaID != nil {
			var demanda models.Demanda
			if err := tx.First(&demanda, *nota.DemandaID).Error; err == nil {
				areaID = demanda.AreaID
			}
		}
		ids, err := services.ReviewersFor(tx, areaID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if id != nota.AutorID {
				reviewers = append(reviewers, id)
			}
		}
		return nil
	})
	if ok && len(reviewers) > 0 {
		notifyNota(c, dbInstance(c), reviewers, nota, "Nota aguardando revisão")
	}
}

// POST /api/notas/:id/aprovar: coordenador/admin; autor só aprova a própria se for admin.
// A demanda vinculada (não encerrada) passa a respondida.
func AprovarNota(c *gin.Context) {
	_, _ = notaTransition(c, "", func(tx *gorm.DB, user models.User, nota *models.NotaOficial) error {
		if nota.AutorID == user.ID && !user.IsAdmin() {
			return errAutoAprovacao
		}
		now := clock()
		if err := nota.Approve(user.ID, now); err != nil {
			return err
		}
		return respondDemandaVinculada(tx, nota, user.ID, now)
	})
}

func respondDemandaVinculada(tx *gorm.DB, nota *models.NotaOficial, userID int64, now time.Time) error {
	if nota.DemandaID == nil {
		return nil
	}
	var demanda models.Demanda
	if err := tx.First(&demanda, *nota.DemandaID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil
		}
		return err
	}
	if demanda.IsTerminal() || demanda.Status == models.DEMANDA_STATUS_RESPONDIDA {
		return nil
	}
	de := demanda.Status
	if err := tx.Model(&demanda).Updates(map[string]interface{}{
		"status":        models.DEMANDA_STATUS_RESPONDIDA,
		"respondida_em": now,
	}).Error; err != nil {
		return err
	}
	return services.RecordHistory(tx, models.ENTIDADE_DEMANDA, demanda.ID, de, models.DEMANDA_STATUS_RESPONDIDA, userID,
		fmt.Sprintf("nota #%d aprovada", nota.ID))
}

// POST /api/notas/:id/rejeitar {motivo}: mesma regra de autoria da aprovação.
func RejeitarNota(c *gin.Context) {
	var req RejeitarRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	_, _ = notaTransition(c, req.Motivo, func(tx *gorm.DB, user models.User, nota *models.NotaOficial) error {
		if nota.AutorID == user.ID && !user.IsAdmin() {
			return errAutoAprovacao
		}
		return nota.Reject(user.ID, req.Motivo)
	})
}

// POST /api/notas/:id/publicar: o embedding é calculado depois (best-effort).
func PublicarNota(c *gin.Context) {
	nota, ok := notaTransition(c, "", func(tx *gorm.DB, user models.User, nota *models.NotaOficial) error {
		return nota.Publish(clock())
	})
	if ok {
		storeNotaEmbedding(requestCtx(c), dbInstance(c), nota)
	}
}

func storeNotaEmbedding(ctx context.Context, db *gorm.DB, nota models.NotaOficial) {
	if aiClient == nil || db == nil {
		return
	}
	log := logrus.WithField("nota_id", nota.ID)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	vec, err := aiClient.Embed(ctx, nota.Titulo+"\n\n"+nota.Texto)
	if err != nil {
		log.WithError(err).Warn("embedding: falha ao calcular")
		metrics.AIRequest("embedding", "erro")
		return
	}
	metrics.AIRequest("embedding", "ok")
	if err := db.Model(&nota).Update("embedding", tools.EncodeEmbedding(vec)).Error; err != nil {
		log.WithError(err).Warn("embedding: falha ao gravar")
	}
}

// DELETE /api/notas/:id: só rascunho, só autor/admin.
func DeleteNota(c *gin.Context) {
	user, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var nota models.NotaOficial
	if err := db.First(&nota, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if !canEditNota(user, nota) {
		RespondError(c, "sem permissão para excluir esta nota", http.StatusForbidden)
		return
	}
	if nota.Status != models.NOTA_STATUS_RASCUNHO {
		RespondError(c, "só é possível excluir notas em rascunho", http.StatusConflict)
		return
	}
	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.Where("entidade = ? AND entidade_id = ?", models.ENTIDADE_NOTA, id).Delete(&models.HistoricoStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&nota).Error
	})
	if err != nil {
		respondDBError(c, err)
		return
	}
	bumpDashboard(c)
	RespondSuccess(c, true)
}

func respondNotaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errSemPermissao):
		RespondError(c, "sem permissão para alterar esta nota", http.StatusForbidden)
	case errors.Is(err, errAutoAprovacao):
		RespondError(c, err.Error(), http.StatusForbidden)
	default:
		RespondDomainError(c, err)
	}
}

func notifyNota(c *gin.Context, db *gorm.DB, ids []int64, nota models.NotaOficial, titulo string) {
	_, err := notifier.Notify(requestCtx(c), db, ids, models.Notificacao{
		Tipo:       models.NOTIFICACAO_NOTA,
		Titulo:     titulo,
		Mensagem:   nota.Titulo,
		Entidade:   models.ENTIDADE_NOTA,
		EntidadeID: nota.ID,
	})
	if err != nil {
		logrus.WithError(err).WithField("nota_id", nota.ID).Warn("nota: falha ao notificar")
	}
}
