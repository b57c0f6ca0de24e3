package services

import (
	"context"
	"fmt"
	"time"

	dbpkg "secom/db"
	"secom/models"

	"github.com/jinzhu/gorm"
)

// DispatchComunicado resolve os destinatários, cria os recibos de leitura e marca o
// comunicado como enviado. Notificações saem depois do commit.
// Um comunicado já enviado devolve models.ErrComunicadoEnviado.
func DispatchComunicado(ctx context.Context, db *gorm.DB, notifier *Notifier, c *models.Comunicado, now time.Time) (int, error) {
	if c.Status == models.COMUNICADO_STATUS_ENVIADO {
		return 0, models.ErrComunicadoEnviado
	}

	recipients, err := ResolveRecipients(db, *c)
	if err != nil {
		return 0, err
	}

	err = dbpkg.Transaction(db, func(tx *gorm.DB) error {
		// Trava otimista: só um envio vence.
		res := tx.Model(&models.Comunicado{}).
			Where("id = ? AND status IN (?)", c.ID, []string{
				models.COMUNICADO_STATUS_RASCUNHO,
				models.COMUNICADO_STATUS_AGENDADO,
				models.COMUNICADO_STATUS_ENVIANDO,
			}).
			Updates(map[string]interface{}{
				"status":              models.COMUNICADO_STATUS_ENVIADO,
				"enviado_em":          now,
				"total_destinatarios": len(recipients),
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrComunicadoEnviado
		}

		for _, uid := range recipients {
			leitura := models.ComunicadoLeitura{ComunicadoID: c.ID, UserID: uid}
			if err := tx.Create(&leitura).Error; err != nil {
				return fmt.Errorf("recibo comunicado=%d user=%d: %w", c.ID, uid, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.Status = models.COMUNICADO_STATUS_ENVIADO
	c.EnviadoEm = &now
	c.TotalDestinatarios = len(recipients)

	if notifier != nil {
		_, nerr := notifier.Notify(ctx, db, recipients, models.Notificacao{
			Tipo:       models.NOTIFICACAO_COMUNICADO,
			Titulo:     c.Titulo,
			Mensagem:   c.Conteudo,
			Entidade:   "comunicado",
			EntidadeID: c.ID,
			Urgente:    c.Prioridade == models.PRIORIDADE_URGENTE,
		})
		if nerr != nil {
			notifier.log.WithError(nerr).WithField("comunicado_id", c.ID).Warn("falha ao notificar destinatários")
		}
		notifier.Broadcast("comunicado.enviado", map[string]interface{}{"id": c.ID, "total": c.TotalDestinatarios})
	}
	return len(recipients), nil
}
