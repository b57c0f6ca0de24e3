package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"secom/config"
	"secom/db/dbtest"
	"secom/models"
	"secom/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu        sync.Mutex
	perUser   map[int64]int
	broadcast []string
}

func (p *recordingPublisher) PublishUser(userID int64, tipo string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.perUser == nil {
		p.perUser = map[int64]int{}
	}
	p.perUser[userID]++
}

func (p *recordingPublisher) Broadcast(tipo string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, tipo)
}

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)

func newTestJobs(database *gorm.DB) (*Jobs, *recordingPublisher) {
	pub := &recordingPublisher{}
	j := NewJobs(database, services.NewNotifier(pub, nil), config.Default())
	j.Now = func() time.Time { return fixedNow }
	return j, pub
}

func countNotificacoes(t *testing.T, database *gorm.DB, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, database.Model(&models.Notificacao{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func timePtr(t time.Time) *time.Time { return &t }

func TestEsicAlertasNotifiesCoordinatorOnce(t *testing.T) {
	database := dbtest.Open(t)
	coord := dbtest.CreateUser(t, database, "carla", models.USER_ROLE_COORDENADOR, nil)
	area := dbtest.CreateArea(t, database, "Saúde", &coord.ID)

	vencendo := models.EsicProcesso{
		Protocolo:  "ESIC-1",
		Assunto:    "Contratos",
		AreaID:     &area.ID,
		Status:     models.ESIC_STATUS_ABERTO,
		PrazoFinal: timePtr(fixedNow.AddDate(0, 0, 2)),
	}
	distante := models.EsicProcesso{
		Protocolo:  "ESIC-2",
		Assunto:    "Obras",
		AreaID:     &area.ID,
		Status:     models.ESIC_STATUS_ABERTO,
		PrazoFinal: timePtr(fixedNow.AddDate(0, 0, 15)),
	}
	encerrado := models.EsicProcesso{
		Protocolo:  "ESIC-3",
		Assunto:    "Folha",
		AreaID:     &area.ID,
		Status:     models.ESIC_STATUS_ENCERRADO,
		PrazoFinal: timePtr(fixedNow.AddDate(0, 0, -1)),
	}
	for _, p := range []*models.EsicProcesso{&vencendo, &distante, &encerrado} {
		require.NoError(t, database.Create(p).Error)
	}

	j, pub := newTestJobs(database)
	n, err := j.EsicAlertas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countNotificacoes(t, database, coord.ID))
	assert.Equal(t, 1, pub.perUser[coord.ID])

	var reloaded models.EsicProcesso
	require.NoError(t, database.First(&reloaded, vencendo.ID).Error)
	assert.NotNil(t, reloaded.AlertaPrazoEm)

	n, err = j.EsicAlertas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, countNotificacoes(t, database, coord.ID))
}

func TestEsicAlertasPrefersResponsavel(t *testing.T) {
	database := dbtest.Open(t)
	coord := dbtest.CreateUser(t, database, "carla", models.USER_ROLE_COORDENADOR, nil)
	resp := dbtest.CreateUser(t, database, "rui", models.USER_ROLE_ASSESSOR, nil)
	area := dbtest.CreateArea(t, database, "Educação", &coord.ID)

	p := models.EsicProcesso{
		Protocolo:     "ESIC-9",
		Assunto:       "Merenda",
		AreaID:        &area.ID,
		ResponsavelID: &resp.ID,
		Status:        models.ESIC_STATUS_EM_ANALISE,
		PrazoFinal:    timePtr(fixedNow.AddDate(0, 0, -1)),
	}
	require.NoError(t, database.Create(&p).Error)

	j, _ := newTestJobs(database)
	n, err := j.EsicAlertas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countNotificacoes(t, database, resp.ID))
	assert.Equal(t, 0, countNotificacoes(t, database, coord.ID))

	var notif models.Notificacao
	require.NoError(t, database.Where("user_id = ?", resp.ID).First(&notif).Error)
	assert.True(t, notif.Urgente)
	assert.Equal(t, "Prazo do e-SIC vencido", notif.Titulo)
}

func TestDemandasAtrasadasNotifiesResponsavelAndAutor(t *testing.T) {
	database := dbtest.Open(t)
	autor := dbtest.CreateUser(t, database, "ana", models.USER_ROLE_ASSESSOR, nil)
	resp := dbtest.CreateUser(t, database, "rui", models.USER_ROLE_ASSESSOR, nil)

	atrasada := models.Demanda{
		Protocolo:     "DEM-2026-000001",
		Titulo:        "Buraco na avenida",
		AutorID:       autor.ID,
		ResponsavelID: &resp.ID,
		Status:        models.DEMANDA_STATUS_EM_ANDAMENTO,
		Prioridade:    models.PRIORIDADE_ALTA,
		Origem:        models.ORIGEM_IMPRENSA,
		Prazo:         timePtr(fixedNow.Add(-2 * time.Hour)),
	}
	respondida := models.Demanda{
		Protocolo:  "DEM-2026-000002",
		Titulo:     "Já respondida",
		AutorID:    autor.ID,
		Status:     models.DEMANDA_STATUS_RESPONDIDA,
		Prioridade: models.PRIORIDADE_MEDIA,
		Origem:     models.ORIGEM_IMPRENSA,
		Prazo:      timePtr(fixedNow.AddDate(0, 0, -3)),
	}
	noPrazo := models.Demanda{
		Protocolo:  "DEM-2026-000003",
		Titulo:     "Dentro do prazo",
		AutorID:    autor.ID,
		Status:     models.DEMANDA_STATUS_ABERTA,
		Prioridade: models.PRIORIDADE_MEDIA,
		Origem:     models.ORIGEM_CIDADAO,
		Prazo:      timePtr(fixedNow.AddDate(0, 0, 3)),
	}
	for _, d := range []*models.Demanda{&atrasada, &respondida, &noPrazo} {
		require.NoError(t, database.Create(d).Error)
	}

	j, _ := newTestJobs(database)
	n, err := j.DemandasAtrasadas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countNotificacoes(t, database, autor.ID))
	assert.Equal(t, 1, countNotificacoes(t, database, resp.ID))

	n, err = j.DemandasAtrasadas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestComunicadosAgendadosDispatchesDueOnly(t *testing.T) {
	database := dbtest.Open(t)
	autor := dbtest.CreateUser(t, database, "carla", models.USER_ROLE_COORDENADOR, nil)
	dbtest.CreateUser(t, database, "ana", models.USER_ROLE_ASSESSOR, nil)
	dbtest.CreateUser(t, database, "rui", models.USER_ROLE_COLABORADOR, nil)

	due := models.Comunicado{
		Titulo:       "Expediente reduzido",
		Conteudo:     "Na sexta o expediente vai até 14h.",
		AutorID:      autor.ID,
		Prioridade:   models.PRIORIDADE_MEDIA,
		DestinoTipo:  models.DESTINO_TODOS,
		Status:       models.COMUNICADO_STATUS_AGENDADO,
		AgendadoPara: timePtr(fixedNow.Add(-time.Minute)),
	}
	future := models.Comunicado{
		Titulo:       "Campanha de vacinação",
		AutorID:      autor.ID,
		Prioridade:   models.PRIORIDADE_MEDIA,
		DestinoTipo:  models.DESTINO_TODOS,
		Status:       models.COMUNICADO_STATUS_AGENDADO,
		AgendadoPara: timePtr(fixedNow.Add(time.Hour)),
	}
	require.NoError(t, database.Create(&due).Error)
	require.NoError(t, database.Create(&future).Error)

	j, pub := newTestJobs(database)
	n, err := j.ComunicadosAgendados(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var sent, pending models.Comunicado
	require.NoError(t, database.First(&sent, due.ID).Error)
	require.NoError(t, database.First(&pending, future.ID).Error)
	assert.Equal(t, models.COMUNICADO_STATUS_ENVIADO, sent.Status)
	assert.Equal(t, 3, sent.TotalDestinatarios)
	assert.Equal(t, models.COMUNICADO_STATUS_AGENDADO, pending.Status)

	var leituras int
	require.NoError(t, database.Model(&models.ComunicadoLeitura{}).Where("comunicado_id = ?", due.ID).Count(&leituras).Error)
	assert.Equal(t, 3, leituras)
	assert.Equal(t, []string{"comunicado.enviado"}, pub.broadcast)

	n, err = j.ComunicadosAgendados(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestComunicadosAgendadosSkipsAlreadyLocked(t *testing.T) {
	database := dbtest.Open(t)
	autor := dbtest.CreateUser(t, database, "carla", models.USER_ROLE_COORDENADOR, nil)

	c := models.Comunicado{
		Titulo:       "Aviso",
		AutorID:      autor.ID,
		Prioridade:   models.PRIORIDADE_MEDIA,
		DestinoTipo:  models.DESTINO_TODOS,
		Status:       models.COMUNICADO_STATUS_ENVIANDO,
		AgendadoPara: timePtr(fixedNow.Add(-time.Minute)),
	}
	require.NoError(t, database.Create(&c).Error)

	j, _ := newTestJobs(database)
	n, err := j.ComunicadosAgendados(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, countNotificacoes(t, database, autor.ID))
}

func newMockJobs(t *testing.T) (*Jobs, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	database, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	j, _ := newTestJobs(database)
	return j, mock
}

func TestJobsReturnQueryErrors(t *testing.T) {
	cases := []struct {
		name  string
		table string
		run   func(*Jobs) (int, error)
	}{
		{JOB_ESIC_ALERTAS, "esic_processos", func(j *Jobs) (int, error) { return j.EsicAlertas(context.Background()) }},
		{JOB_DEMANDAS_ATRASADAS, "demandas", func(j *Jobs) (int, error) { return j.DemandasAtrasadas(context.Background()) }},
		{JOB_COMUNICADOS_AGENDADOS, "comunicados", func(j *Jobs) (int, error) { return j.ComunicadosAgendados(context.Background()) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j, mock := newMockJobs(t)
			mock.ExpectQuery(`SELECT \* FROM "` + tc.table + `"`).WillReturnError(errors.New("conexão perdida"))

			n, err := tc.run(j)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "conexão perdida")
			assert.Equal(t, 0, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEsicAlertasStopsOnLockError(t *testing.T) {
	j, mock := newMockJobs(t)
	rows := sqlmock.NewRows([]string{"id", "protocolo", "assunto", "status"}).
		AddRow(7, "ESIC-7", "Licitação", models.ESIC_STATUS_ABERTO)
	mock.ExpectQuery(`SELECT \* FROM "esic_processos"`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "esic_processos" SET`).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	n, err := j.EsicAlertas(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processo 7")
	assert.Equal(t, 0, n)
}
