package workers

import (
	"context"
	"fmt"

	"secom/models"
	"secom/services"
)

// DemandasAtrasadas avisa responsável e autor das demandas abertas com prazo vencido.
func (j *Jobs) DemandasAtrasadas(ctx context.Context) (int, error) {
	now := j.now()

	var demandas []models.Demanda
	if err := j.DB.
		Where("status IN (?)", demandaAbertaStatus).
		Where("prazo IS NOT NULL AND prazo < ?", now).
		Where("alerta_atraso_em IS NULL").
		Order("prazo asc, id asc").
		Limit(JOB_BATCH_SIZE).
		Find(&demandas).Error; err != nil {
		return 0, fmt.Errorf("demandas atrasadas: query: %w", err)
	}

	total := 0
	for _, d := range demandas {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		res := j.DB.Model(&models.Demanda{}).
			Where("id = ? AND alerta_atraso_em IS NULL", d.ID).
			Update("alerta_atraso_em", now)
		if res.Error != nil {
			return total, fmt.Errorf("demandas atrasadas: demanda %d: %w", d.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		total++

		if j.Notifier == nil {
			continue
		}
		dest := []int64{services.PtrID(d.ResponsavelID), d.AutorID}
		if _, err := j.Notifier.Notify(ctx, j.DB, dest, models.Notificacao{
			Tipo:       models.NOTIFICACAO_DEMANDA,
			Titulo:     "Demanda atrasada",
			Mensagem:   fmt.Sprintf("A demanda %s (%s) passou do prazo.", d.Protocolo, d.Titulo),
			Entidade:   models.ENTIDADE_DEMANDA,
			EntidadeID: d.ID,
			Urgente:    d.Prioridade == models.PRIORIDADE_URGENTE,
		}); err != nil {
			j.log.WithError(err).WithField("demanda_id", d.ID).Warn("demandas atrasadas: falha ao notificar")
		}
	}
	return total, nil
}
