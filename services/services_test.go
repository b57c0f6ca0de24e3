package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"secom/db/dbtest"
	"secom/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	perUser   map[int64][]string
	broadcast []string
}

func (f *fakePublisher) PublishUser(userID int64, tipo string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.perUser == nil {
		f.perUser = map[int64][]string{}
	}
	f.perUser[userID] = append(f.perUser[userID], tipo)
}

func (f *fakePublisher) Broadcast(tipo string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, tipo)
}

type fakeMessenger struct {
	sent []string
	err  error
}

func (f *fakeMessenger) SendText(ctx context.Context, to, text string) error {
	f.sent = append(f.sent, to)
	return f.err
}

func TestNotifyCreatesOnePerRecipient(t *testing.T) {
	database := dbtest.Open(t)
	a := dbtest.CreateUser(t, database, "ana", models.USER_ROLE_ASSESSOR, nil)
	b := dbtest.CreateUser(t, database, "bruno", models.USER_ROLE_ASSESSOR, nil)

	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)

	created, err := n.Notify(context.Background(), database, []int64{a.ID, b.ID, a.ID, 0}, models.Notificacao{
		Tipo:   models.NOTIFICACAO_DEMANDA,
		Titulo: "Nova demanda",
		Lida:   true,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	var count int
	require.NoError(t, database.Model(&models.Notificacao{}).Where("lida = ?", false).Count(&count).Error)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"notificacao.nova"}, pub.perUser[a.ID])
	assert.Equal(t, []string{"notificacao.nova"}, pub.perUser[b.ID])
}

func TestNotifyUrgentSendsWhatsAppOnlyToOptedIn(t *testing.T) {
	database := dbtest.Open(t)
	a := dbtest.CreateUser(t, database, "ana", models.USER_ROLE_ASSESSOR, nil)
	b := dbtest.CreateUser(t, database, "bruno", models.USER_ROLE_ASSESSOR, nil)
	require.NoError(t, database.Model(&a).Updates(map[string]interface{}{
		"telefone":           "(11) 98765-4321",
		"notificar_whatsapp": true,
	}).Error)
	require.NoError(t, database.Model(&b).Updates(map[string]interface{}{
		"telefone": "11912345678",
	}).Error)

	msg := &fakeMessenger{err: errors.New("boom")}
	n := NewNotifier(nil, msg)

	_, err := n.Notify(context.Background(), database, []int64{a.ID, b.ID}, models.Notificacao{
		Tipo:    models.NOTIFICACAO_ESIC,
		Titulo:  "Prazo vencendo",
		Urgente: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"5511987654321"}, msg.sent)
}

func TestRecordHistory(t *testing.T) {
	database := dbtest.Open(t)

	require.NoError(t, RecordHistory(database, models.ENTIDADE_DEMANDA, 7, "aberta", "em_andamento", 1, "  iniciando "))
	require.NoError(t, RecordHistory(database, models.ENTIDADE_DEMANDA, 7, "em_andamento", "respondida", 1, ""))
	require.NoError(t, RecordHistory(database, models.ENTIDADE_ESIC, 7, "", "aberto", 1, ""))

	items, err := LoadHistory(database, models.ENTIDADE_DEMANDA, 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "iniciando", items[0].Comentario)
	assert.Equal(t, "respondida", items[1].Para)
}

func TestResolveRecipients(t *testing.T) {
	database := dbtest.Open(t)
	area := dbtest.CreateArea(t, database, "Imprensa", nil)
	a := dbtest.CreateUser(t, database, "ana", models.USER_ROLE_COORDENADOR, &area.ID)
	b := dbtest.CreateUser(t, database, "bruno", models.USER_ROLE_ASSESSOR, nil)
	blocked := dbtest.CreateUser(t, database, "carla", models.USER_ROLE_ASSESSOR, &area.ID)
	require.NoError(t, database.Model(&blocked).Update("status", models.USER_STATUS_BLOCKED).Error)

	ids, err := ResolveRecipients(database, models.Comunicado{DestinoTipo: models.DESTINO_TODOS})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids)

	ids, err = ResolveRecipients(database, models.Comunicado{DestinoTipo: models.DESTINO_AREAS, DestinoIDs: "99, x," + itoa(area.ID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids)

	ids, err = ResolveRecipients(database, models.Comunicado{DestinoTipo: models.DESTINO_ROLES, DestinoIDs: "assessor"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids)

	ids, err = ResolveRecipients(database, models.Comunicado{DestinoTipo: models.DESTINO_USUARIOS, DestinoIDs: itoa(b.ID) + "," + itoa(blocked.ID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids)

	_, err = ResolveRecipients(database, models.Comunicado{DestinoTipo: "planeta"})
	assert.Error(t, err)
}

func TestReviewersFor(t *testing.T) {
	database := dbtest.Open(t)
	admin := dbtest.CreateUser(t, database, "admin", models.USER_ROLE_ADMIN, nil)
	coord := dbtest.CreateUser(t, database, "coord", models.USER_ROLE_COORDENADOR, nil)
	area := dbtest.CreateArea(t, database, "Saúde", &coord.ID)
	vazia := dbtest.CreateArea(t, database, "Obras", nil)

	ids, err := ReviewersFor(database, &area.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{coord.ID}, ids)

	ids, err = ReviewersFor(database, &vazia.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{admin.ID, coord.ID}, ids)

	assert.Equal(t, []int64{coord.ID}, OwnerOrCoordinator(database, nil, &area.ID))
	assert.Equal(t, []int64{admin.ID}, OwnerOrCoordinator(database, &admin.ID, &area.ID))
	assert.Nil(t, OwnerOrCoordinator(database, nil, nil))
}

func TestDispatchComunicado(t *testing.T) {
	database := dbtest.Open(t)
	autor := dbtest.CreateUser(t, database, "autor", models.USER_ROLE_COORDENADOR, nil)
	dest := dbtest.CreateUser(t, database, "dest", models.USER_ROLE_COLABORADOR, nil)

	c := models.Comunicado{
		Titulo:      "Expediente",
		Conteudo:    "Ponto facultativo amanhã",
		AutorID:     autor.ID,
		Prioridade:  models.PRIORIDADE_MEDIA,
		DestinoTipo: models.DESTINO_ROLES,
		DestinoIDs:  models.USER_ROLE_COLABORADOR,
		Status:      models.COMUNICADO_STATUS_RASCUNHO,
	}
	require.NoError(t, database.Create(&c).Error)

	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	total, err := DispatchComunicado(context.Background(), database, n, &c, now)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.COMUNICADO_STATUS_ENVIADO, c.Status)

	var stored models.Comunicado
	require.NoError(t, database.First(&stored, c.ID).Error)
	assert.Equal(t, models.COMUNICADO_STATUS_ENVIADO, stored.Status)
	assert.Equal(t, 1, stored.TotalDestinatarios)

	var leituras []models.ComunicadoLeitura
	require.NoError(t, database.Where("comunicado_id = ?", c.ID).Find(&leituras).Error)
	require.Len(t, leituras, 1)
	assert.Equal(t, dest.ID, leituras[0].UserID)
	assert.Nil(t, leituras[0].LidoEm)

	assert.Equal(t, []string{"notificacao.nova"}, pub.perUser[dest.ID])
	assert.Equal(t, []string{"comunicado.enviado"}, pub.broadcast)

	_, err = DispatchComunicado(context.Background(), database, n, &c, now)
	assert.ErrorIs(t, err, models.ErrComunicadoEnviado)

	// cópia desatualizada em memória: a trava no banco barra o segundo envio
	stale := stored
	stale.Status = models.COMUNICADO_STATUS_AGENDADO
	_, err = DispatchComunicado(context.Background(), database, n, &stale, now)
	assert.ErrorIs(t, err, models.ErrComunicadoEnviado)
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, UniqueIDs([]int64{3, 0, 1, 3, -1, 2, 1}))
	assert.Empty(t, UniqueIDs(nil))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
