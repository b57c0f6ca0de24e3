package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local)

func TestDemandaTransition(t *testing.T) {
	d := Demanda{Status: DEMANDA_STATUS_ABERTA}

	err := d.Transition(DEMANDA_STATUS_RESPONDIDA, "", base)
	assert.ErrorIs(t, err, ErrTransicaoInvalida)

	require.NoError(t, d.Transition(DEMANDA_STATUS_EM_ANDAMENTO, "", base))
	require.NoError(t, d.Transition(DEMANDA_STATUS_RESPONDIDA, "", base))
	require.NotNil(t, d.RespondidaEm)
	assert.False(t, d.IsOpen())

	// reabrir limpa a data de resposta
	require.NoError(t, d.Transition(DEMANDA_STATUS_EM_ANDAMENTO, "", base))
	assert.Nil(t, d.RespondidaEm)

	assert.ErrorIs(t, d.Transition(DEMANDA_STATUS_CANCELADA, "  ", base), ErrComentarioObrigatorio)
	require.NoError(t, d.Transition(DEMANDA_STATUS_CANCELADA, "duplicada", base))
	assert.True(t, d.IsTerminal())
	assert.ErrorIs(t, d.Transition(DEMANDA_STATUS_EM_ANDAMENTO, "", base), ErrTransicaoInvalida)
}

func TestDemandaAtrasada(t *testing.T) {
	prazo := base.Add(-time.Hour)
	d := Demanda{Status: DEMANDA_STATUS_EM_ANDAMENTO, Prazo: &prazo}
	assert.True(t, d.IsAtrasada(base))

	d.Status = DEMANDA_STATUS_RESPONDIDA
	assert.False(t, d.IsAtrasada(base))

	d = Demanda{Status: DEMANDA_STATUS_ABERTA}
	assert.False(t, d.IsAtrasada(base))
}

func TestPrazoPadraoAndProtocolo(t *testing.T) {
	assert.Equal(t, base.AddDate(0, 0, 1), PrazoPadrao(PRIORIDADE_URGENTE, base))
	assert.Equal(t, base.AddDate(0, 0, 5), PrazoPadrao(PRIORIDADE_MEDIA, base))
	assert.Equal(t, base.AddDate(0, 0, 10), PrazoPadrao(PRIORIDADE_BAIXA, base))
	assert.Greater(t, PrioridadeRank(PRIORIDADE_URGENTE), PrioridadeRank(PRIORIDADE_ALTA))
	assert.Equal(t, "DEM-2026-000042", FormatProtocolo("DEM", 2026, 42))
}

func TestNotaWorkflow(t *testing.T) {
	n := NotaOficial{Titulo: "t", Texto: "x", Status: NOTA_STATUS_RASCUNHO, Versao: 1}

	assert.ErrorIs(t, n.Approve(2, base), ErrTransicaoInvalida)
	require.NoError(t, n.SubmitForReview(base))
	assert.ErrorIs(t, n.Edit("novo", ""), ErrNotaNaoEditavel)

	assert.ErrorIs(t, n.Reject(2, ""), ErrMotivoObrigatorio)
	require.NoError(t, n.Reject(2, "ajustar tom"))
	assert.Equal(t, "ajustar tom", n.MotivoRejeicao)

	require.NoError(t, n.Edit("", "texto novo"))
	assert.Equal(t, NOTA_STATUS_RASCUNHO, n.Status)
	assert.Equal(t, "t", n.Titulo)
	assert.Equal(t, 2, n.Versao)

	require.NoError(t, n.SubmitForReview(base))
	assert.Empty(t, n.MotivoRejeicao)
	require.NoError(t, n.Approve(2, base))
	require.NoError(t, n.Publish(base))
	assert.ErrorIs(t, n.Publish(base), ErrTransicaoInvalida)
}

func TestEsicDeadline(t *testing.T) {
	var p EsicProcesso
	p.Status = ESIC_STATUS_ABERTO
	p.StartDeadline(base, 20)
	require.NotNil(t, p.PrazoFinal)
	assert.Equal(t, time.Date(2026, 3, 30, 23, 59, 59, 0, time.Local), *p.PrazoFinal)
	assert.Equal(t, 21, p.DiasRestantes(base))
	assert.False(t, p.IsVencido(base))
	assert.True(t, p.IsVencido(p.PrazoFinal.Add(time.Second)))
	assert.Equal(t, -1, p.DiasRestantes(p.PrazoFinal.Add(2*time.Hour)))
}

func TestEsicProrrogar(t *testing.T) {
	p := EsicProcesso{Status: ESIC_STATUS_EM_ANALISE}
	p.StartDeadline(base, 20)
	alerta := base
	p.AlertaPrazoEm = &alerta

	assert.ErrorIs(t, p.Prorrogar(" ", 10, base), ErrJustificativaVazia)
	require.NoError(t, p.Prorrogar("volume de documentos", 10, base))
	assert.Equal(t, time.Date(2026, 4, 9, 23, 59, 59, 0, time.Local), *p.PrazoFinal)
	assert.Equal(t, ESIC_STATUS_PRORROGADO, p.Status)
	assert.Nil(t, p.AlertaPrazoEm)
	assert.ErrorIs(t, p.Prorrogar("de novo", 10, base), ErrProrrogacaoDuplicada)

	vencido := EsicProcesso{Status: ESIC_STATUS_ABERTO}
	vencido.StartDeadline(base.AddDate(0, 0, -30), 20)
	assert.ErrorIs(t, vencido.Prorrogar("tarde", 10, base), ErrPrazoExpirado)
}

func TestEsicTransition(t *testing.T) {
	p := EsicProcesso{Status: ESIC_STATUS_ABERTO}
	assert.ErrorIs(t, p.Transition(ESIC_STATUS_ENCERRADO, "", "", base), ErrComentarioObrigatorio)
	require.NoError(t, p.Transition(ESIC_STATUS_EM_ANALISE, "", "", base))
	assert.ErrorIs(t, p.Transition(ESIC_STATUS_RESPONDIDO, "", "", base), ErrRespostaObrigatoria)
	require.NoError(t, p.Transition(ESIC_STATUS_RESPONDIDO, "", " segue resposta ", base))
	assert.Equal(t, "segue resposta", p.Resposta)
	assert.False(t, p.IsPending())

	require.NoError(t, p.Transition(ESIC_STATUS_RECURSO, "", "", base))
	assert.True(t, p.IsPending())
	// recurso pode reaproveitar a resposta anterior
	require.NoError(t, p.Transition(ESIC_STATUS_RESPONDIDO, "", "", base))
	require.NoError(t, p.Transition(ESIC_STATUS_ENCERRADO, "", "", base))
	assert.True(t, p.IsClosed())
}

func TestComunicadoDestinos(t *testing.T) {
	c := Comunicado{Titulo: "t", Conteudo: "c", DestinoTipo: DESTINO_USUARIOS, DestinoIDs: " 3, x,,7 ,-1"}
	assert.Equal(t, []string{"3", "x", "7", "-1"}, c.Destinos())
	assert.Equal(t, []int64{3, 7}, c.DestinoIDsInt())
	assert.Empty(t, c.MissingFields())

	c.DestinoIDs = " , "
	assert.Equal(t, "destino_ids", c.MissingFields())

	c.DestinoTipo = DESTINO_TODOS
	assert.Empty(t, c.MissingFields())
	assert.False(t, IsValidDestinoTipo("planeta"))
}

func TestComunicadoScheduleStatus(t *testing.T) {
	var c Comunicado
	c.ScheduleStatus(base)
	assert.Equal(t, COMUNICADO_STATUS_RASCUNHO, c.Status)

	future := base.Add(time.Hour)
	c.AgendadoPara = &future
	c.ScheduleStatus(base)
	assert.Equal(t, COMUNICADO_STATUS_AGENDADO, c.Status)
	assert.True(t, c.IsEditable())

	past := base.Add(-time.Hour)
	c.AgendadoPara = &past
	c.ScheduleStatus(base)
	assert.Equal(t, COMUNICADO_STATUS_RASCUNHO, c.Status)
}

func TestDashboardLayoutApply(t *testing.T) {
	var l DashboardLayout
	raw := `{"widgets":[{"id":"a","tipo":"resumo"}]}`

	changed, err := l.Apply(raw, 0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, l.Versao)

	_, err = l.Apply(raw, 0)
	assert.ErrorIs(t, err, ErrVersaoConflitante)

	changed, err = l.Apply(" "+raw+"\n", 1)
	require.NoError(t, err)
	assert.False(t, changed)

	for _, bad := range []string{``, `[]`, `{"widgets":{}}`, `{"widgets":[{"id":"a"}]}`, `{nope`} {
		assert.ErrorIs(t, ValidateLayout(bad), ErrLayoutInvalido, bad)
	}
}

func TestUserRoles(t *testing.T) {
	admin := User{Role: USER_ROLE_ADMIN}
	coord := User{Role: USER_ROLE_COORDENADOR}
	assessor := User{Role: USER_ROLE_ASSESSOR}

	assert.True(t, admin.CanReview())
	assert.True(t, coord.CanReview())
	assert.False(t, assessor.CanReview())
	assert.True(t, admin.HasRole(USER_ROLE_COORDENADOR))
	assert.False(t, IsValidRole("root"))
}

func TestTokensExpiry(t *testing.T) {
	exp := base.Add(time.Hour)
	rt := RefreshToken{ExpiresAt: &exp}
	assert.True(t, rt.IsActive(base))
	assert.False(t, rt.IsActive(exp.Add(time.Second)))
	rt.RevokedAt = &base
	assert.False(t, rt.IsActive(base))

	inv := Invite{ExpiresAt: &exp}
	assert.False(t, inv.IsExpired(base))
	assert.True(t, inv.IsExpired(exp.Add(time.Minute)))

	pr := PasswordReset{ExpiresAt: &exp}
	assert.True(t, pr.IsUsable(base))
	pr.UsedAt = &base
	assert.False(t, pr.IsUsable(base))
}
