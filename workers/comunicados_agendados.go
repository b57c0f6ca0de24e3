package workers

import (
	"context"
	"errors"
	"fmt"

	"secom/models"
	"secom/services"
)

// ComunicadosAgendados dispara os comunicados agendados cujo horário já passou.
// Cada um é travado (agendado -> enviando) antes do envio, então só uma instância envia.
func (j *Jobs) ComunicadosAgendados(ctx context.Context) (int, error) {
	now := j.now()

	var due []models.Comunicado
	if err := j.DB.
		Where("status = ?", models.COMUNICADO_STATUS_AGENDADO).
		Where("agendado_para IS NOT NULL AND agendado_para <= ?", now).
		Order("agendado_para asc, id asc").
		Limit(JOB_BATCH_SIZE).
		Find(&due).Error; err != nil {
		return 0, fmt.Errorf("comunicados agendados: query: %w", err)
	}

	total := 0
	for _, c := range due {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		res := j.DB.Model(&models.Comunicado{}).
			Where("id = ? AND status = ?", c.ID, models.COMUNICADO_STATUS_AGENDADO).
			Update("status", models.COMUNICADO_STATUS_ENVIANDO)
		if res.Error != nil {
			return total, fmt.Errorf("comunicados agendados: comunicado %d: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		c.Status = models.COMUNICADO_STATUS_ENVIANDO

		log := j.log.WithField("comunicado_id", c.ID)
		n, err := services.DispatchComunicado(ctx, j.DB, j.Notifier, &c, now)
		if errors.Is(err, models.ErrComunicadoEnviado) {
			continue
		}
		if err != nil {
			// devolve para a fila; a próxima rodada tenta de novo
			log.WithError(err).Error("comunicados agendados: falha no envio")
			if rerr := j.DB.Model(&models.Comunicado{}).
				Where("id = ? AND status = ?", c.ID, models.COMUNICADO_STATUS_ENVIANDO).
				Update("status", models.COMUNICADO_STATUS_AGENDADO).Error; rerr != nil {
				log.WithError(rerr).Error("comunicados agendados: falha ao devolver para a fila")
			}
			continue
		}
		log.WithField("destinatarios", n).Info("comunicado agendado enviado")
		total++
	}
	return total, nil
}
