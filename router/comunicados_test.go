package router

import (
	"net/http"
	"testing"
	"time"

	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComunicadoDispatchAndReceipts(t *testing.T) {
	s := newTestServer(t)
	_, coord := s.userToken("carla", models.USER_ROLE_COORDENADOR, nil)
	ana, anaToken := s.userToken("ana", models.USER_ROLE_ASSESSOR, nil)
	_, _ = s.userToken("rui", models.USER_ROLE_COLABORADOR, nil)

	w := s.do(http.MethodPost, "/api/comunicados", anaToken, gin.H{"titulo": "x", "conteudo": "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/comunicados", coord, gin.H{
		"titulo":       "Reunião geral",
		"conteudo":     "Sexta às 10h no auditório.",
		"destino_tipo": models.DESTINO_ROLES,
		"destino_ids":  "assessor,colaborador",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Comunicado models.Comunicado `json:"comunicado"`
	}
	decode(t, w, &created)
	assert.Equal(t, models.COMUNICADO_STATUS_RASCUNHO, created.Comunicado.Status)

	path := "/api/comunicados/" + itoa(created.Comunicado.ID)
	w = s.do(http.MethodPost, path+"/enviar", coord, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent struct {
		Total int `json:"total_destinatarios"`
	}
	decode(t, w, &sent)
	assert.Equal(t, 2, sent.Total)

	w = s.do(http.MethodPost, path+"/enviar", coord, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPut, path, coord, gin.H{"titulo": "Mudou"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// destinatário vê o comunicado como não lido
	w = s.do(http.MethodGet, "/api/comunicados", anaToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Comunicados []struct {
			ID   int64 `json:"id"`
			Lido bool  `json:"lido"`
		} `json:"comunicados"`
	}
	decode(t, w, &list)
	require.Len(t, list.Comunicados, 1)
	assert.False(t, list.Comunicados[0].Lido)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path+"/lido", anaToken, nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path+"/lido", anaToken, nil).Code)

	w = s.do(http.MethodGet, path+"/leituras", coord, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var leituras struct {
		Total    int `json:"total"`
		Lidos    int `json:"lidos"`
		NaoLidos int `json:"nao_lidos"`
	}
	decode(t, w, &leituras)
	assert.Equal(t, 2, leituras.Total)
	assert.Equal(t, 1, leituras.Lidos)
	assert.Equal(t, 1, leituras.NaoLidos)

	w = s.do(http.MethodGet, path+"/leituras", anaToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// o próprio coordenador não estava entre os destinatários
	var count int
	require.NoError(t, s.db.Model(&models.Notificacao{}).Where("user_id = ?", ana.ID).Count(&count).Error)
	assert.Equal(t, 1, count)
}

func TestComunicadoScheduledInFuture(t *testing.T) {
	s := newTestServer(t)
	_, coord := s.userToken("carla", models.USER_ROLE_COORDENADOR, nil)

	w := s.do(http.MethodPost, "/api/comunicados", coord, gin.H{
		"titulo":        "Campanha",
		"conteudo":      "Começa amanhã.",
		"agendado_para": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Comunicado models.Comunicado `json:"comunicado"`
	}
	decode(t, w, &created)
	assert.Equal(t, models.COMUNICADO_STATUS_AGENDADO, created.Comunicado.Status)

	w = s.do(http.MethodPost, "/api/comunicados", coord, gin.H{"titulo": "x", "conteudo": "y", "destino_tipo": "planeta"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificacoesInbox(t *testing.T) {
	s := newTestServer(t)
	ana, token := s.userToken("ana", models.USER_ROLE_ASSESSOR, nil)
	outro, _ := s.userToken("rui", models.USER_ROLE_ASSESSOR, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.db.Create(&models.Notificacao{UserID: ana.ID, Tipo: models.NOTIFICACAO_SISTEMA, Titulo: "aviso"}).Error)
	}
	foreign := models.Notificacao{UserID: outro.ID, Tipo: models.NOTIFICACAO_SISTEMA, Titulo: "de outro"}
	require.NoError(t, s.db.Create(&foreign).Error)

	w := s.do(http.MethodGet, "/api/notificacoes?lida=false", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox struct {
		Notificacoes []models.Notificacao `json:"notificacoes"`
		NaoLidas     int                  `json:"nao_lidas"`
	}
	decode(t, w, &inbox)
	require.Len(t, inbox.Notificacoes, 3)
	assert.Equal(t, 3, inbox.NaoLidas)

	w = s.do(http.MethodPost, "/api/notificacoes/"+itoa(inbox.Notificacoes[0].ID)+"/lida", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/notificacoes/"+itoa(foreign.ID)+"/lida", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/notificacoes/lidas", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var marked struct {
		Atualizadas int `json:"atualizadas"`
	}
	decode(t, w, &marked)
	assert.Equal(t, 2, marked.Atualizadas)

	w = s.do(http.MethodGet, "/api/notificacoes", token, nil)
	decode(t, w, &inbox)
	assert.Equal(t, 0, inbox.NaoLidas)
}

func TestRealtimeUnavailableWithoutHub(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/realtime", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
