package workers

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NewScheduler registra os jobs nas specs configuradas.
// Uma execução que ainda não terminou faz a seguinte ser pulada.
func NewScheduler(ctx context.Context, j *Jobs) (*cron.Cron, error) {
	logger := cron.PrintfLogger(logrus.WithField("component", "cron"))
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	specs := []struct {
		name string
		spec string
		fn   func(context.Context) (int, error)
	}{
		{JOB_ESIC_ALERTAS, j.Conf.Jobs.EsicAlertas, j.EsicAlertas},
		{JOB_DEMANDAS_ATRASADAS, j.Conf.Jobs.DemandasAtrasadas, j.DemandasAtrasadas},
		{JOB_COMUNICADOS_AGENDADOS, j.Conf.Jobs.ComunicadosAgendados, j.ComunicadosAgendados},
	}
	for _, s := range specs {
		s := s
		if _, err := c.AddFunc(s.spec, func() { j.run(ctx, s.name, s.fn) }); err != nil {
			return nil, fmt.Errorf("job %s (%q): %w", s.name, s.spec, err)
		}
	}
	return c, nil
}

// Run inicia o agendador e bloqueia até ctx terminar, aguardando os jobs em andamento.
func Run(ctx context.Context, j *Jobs) error {
	c, err := NewScheduler(ctx, j)
	if err != nil {
		return err
	}
	c.Start()
	j.log.WithField("jobs", len(c.Entries())).Info("agendador iniciado")

	<-ctx.Done()
	<-c.Stop().Done()
	j.log.Info("agendador parado")
	return nil
}
