package workers

import (
	"context"
	"fmt"

	"secom/models"
	"secom/services"
)

// EsicAlertas avisa o responsável (ou o coordenador da área) dos processos cujo prazo final
// entra na janela de alerta. Cada processo é avisado uma vez; a prorrogação zera o aviso.
func (j *Jobs) EsicAlertas(ctx context.Context) (int, error) {
	now := j.now()
	limite := now.AddDate(0, 0, j.Conf.Esic.AlertaDias)

	var processos []models.EsicProcesso
	if err := j.DB.
		Where("status IN (?)", esicPendenteStatus).
		Where("prazo_final IS NOT NULL AND prazo_final <= ?", limite).
		Where("alerta_prazo_em IS NULL").
		Order("prazo_final asc, id asc").
		Limit(JOB_BATCH_SIZE).
		Find(&processos).Error; err != nil {
		return 0, fmt.Errorf("esic alertas: query: %w", err)
	}

	total := 0
	for _, p := range processos {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		// lock otimista: outra instância pode ter avisado antes
		res := j.DB.Model(&models.EsicProcesso{}).
			Where("id = ? AND alerta_prazo_em IS NULL", p.ID).
			Update("alerta_prazo_em", now)
		if res.Error != nil {
			return total, fmt.Errorf("esic alertas: processo %d: %w", p.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		total++

		dest := services.OwnerOrCoordinator(j.DB, p.ResponsavelID, p.AreaID)
		if len(dest) == 0 {
			j.log.WithField("processo_id", p.ID).Warn("esic alertas: processo sem responsável nem coordenador")
			continue
		}

		vencido := p.IsVencido(now)
		titulo := "Prazo do e-SIC se aproximando"
		mensagem := fmt.Sprintf("Processo %s (%s) vence em %d dia(s).", p.Protocolo, p.Assunto, p.DiasRestantes(now))
		if vencido {
			titulo = "Prazo do e-SIC vencido"
			mensagem = fmt.Sprintf("Processo %s (%s) está com o prazo vencido.", p.Protocolo, p.Assunto)
		}

		if j.Notifier == nil {
			continue
		}
		if _, err := j.Notifier.Notify(ctx, j.DB, dest, models.Notificacao{
			Tipo:       models.NOTIFICACAO_ESIC,
			Titulo:     titulo,
			Mensagem:   mensagem,
			Entidade:   models.ENTIDADE_ESIC,
			EntidadeID: p.ID,
			Urgente:    vencido,
		}); err != nil {
			j.log.WithError(err).WithField("processo_id", p.ID).Warn("esic alertas: falha ao notificar")
		}
	}
	return total, nil
}
