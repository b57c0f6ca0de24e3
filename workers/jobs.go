package workers

import (
	"context"
	"time"

	"secom/config"
	"secom/metrics"
	"secom/models"
	"secom/services"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const JOB_ESIC_ALERTAS = "esic-alertas"
const JOB_DEMANDAS_ATRASADAS = "demandas-atrasadas"
const JOB_COMUNICADOS_AGENDADOS = "comunicados-agendados"

// Limite de registros por execução; o restante fica para a próxima rodada.
const JOB_BATCH_SIZE = 200

var esicPendenteStatus = []string{
	models.ESIC_STATUS_ABERTO,
	models.ESIC_STATUS_EM_ANALISE,
	models.ESIC_STATUS_PRORROGADO,
	models.ESIC_STATUS_RECURSO,
}

var demandaAbertaStatus = []string{
	models.DEMANDA_STATUS_ABERTA,
	models.DEMANDA_STATUS_EM_ANDAMENTO,
	models.DEMANDA_STATUS_AGUARDANDO,
}

// Jobs reúne as rotinas periódicas do sistema.
type Jobs struct {
	DB       *gorm.DB
	Notifier *services.Notifier
	Conf     config.Configuration
	Now      func() time.Time

	log *logrus.Entry
}

func NewJobs(db *gorm.DB, notifier *services.Notifier, conf config.Configuration) *Jobs {
	return &Jobs{
		DB:       db,
		Notifier: notifier,
		Conf:     conf,
		Now:      time.Now,
		log:      logrus.WithField("component", "workers"),
	}
}

func (j *Jobs) now() time.Time {
	if j.Now == nil {
		return time.Now()
	}
	return j.Now()
}

// run executa um job registrando duração, quantidade processada e resultado.
func (j *Jobs) run(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	start := time.Now()
	log := j.log.WithField("job", name)

	n, err := fn(ctx)
	metrics.JobRun(name, err == nil)
	if err != nil {
		log.WithError(err).WithField("processados", n).Error("job falhou")
		return
	}
	if n > 0 {
		log.WithFields(logrus.Fields{"processados": n, "duracao": time.Since(start).String()}).Info("job concluído")
	} else {
		log.Debug("job sem pendências")
	}
}
