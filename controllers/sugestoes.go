package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"secom/metrics"
	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	SIMILAR_NOTAS_K         = 3
	SIMILAR_NOTAS_THRESHOLD = 0.75
	AI_TIMEOUT              = 45 * time.Second
)

var (
	aiLimitersMu sync.Mutex
	aiLimiters   = map[int64]*rate.Limiter{}
)

func resetAILimiters() {
	aiLimitersMu.Lock()
	aiLimiters = map[int64]*rate.Limiter{}
	aiLimitersMu.Unlock()
}

// allowAI aplica o limite de requisições por minuto de cada usuário.
func allowAI(userID int64) bool {
	rpm := conf.OpenAI.RequestsPerMinute
	if rpm <= 0 {
		rpm = 6
	}
	aiLimitersMu.Lock()
	lim, ok := aiLimiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
		aiLimiters[userID] = lim
	}
	aiLimitersMu.Unlock()
	return lim.Allow()
}

func aiSystemPrompt() string {
	if p := strings.TrimSpace(conf.OpenAI.SystemPrompt); p != "" {
		return p
	}
	return "Você é assessor(a) de comunicação de uma prefeitura. Escreva em português do Brasil."
}

// runAI centraliza disponibilidade, limite e tratamento de erro das sugestões.
func runAI(c *gin.Context, tipo string, build func(db *gorm.DB) (string, string, error)) {
	user, _ := GetUserLogged(c)
	if aiClient == nil {
		metrics.AIRequest(tipo, "desabilitado")
		RespondError(c, "sugestões de IA não configuradas", http.StatusServiceUnavailable)
		return
	}
	if !allowAI(user.ID) {
		metrics.AIRequest(tipo, "limitado")
		RespondError(c, "limite de sugestões atingido, aguarde um instante", http.StatusTooManyRequests)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	instructions, input, err := build(db)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(requestCtx(c), AI_TIMEOUT)
	defer cancel()
	text, err := aiClient.Complete(ctx, instructions, input)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"tipo": tipo, "user_id": user.ID}).Warn("ia: falha na sugestão")
		metrics.AIRequest(tipo, "erro")
		RespondError(c, "falha ao gerar sugestão", http.StatusBadGateway)
		return
	}
	metrics.AIRequest(tipo, "ok")
	RespondSuccess(c, gin.H{"sugestao": text})
}

// POST /api/demandas/:id/sugestao-nota
func SugerirNota(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	runAI(c, "sugestao_nota", func(db *gorm.DB) (string, string, error) {
		var demanda models.Demanda
		if err := db.First(&demanda, id).Error; err != nil {
			return "", "", err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Demanda %s (%s, origem %s)\n", demanda.Protocolo, demanda.Prioridade, demanda.Origem)
		if demanda.Veiculo != "" {
			fmt.Fprintf(&sb, "Veículo: %s\n", demanda.Veiculo)
		}
		fmt.Fprintf(&sb, "Título: %s\n\n%s\n", demanda.Titulo, demanda.Descricao)

		similares := similarNotas(requestCtx(c), db, demanda.Titulo+"\n\n"+demanda.Descricao)
		if len(similares) > 0 {
			sb.WriteString("\nNotas publicadas sobre temas parecidos (use como referência de tom e fatos):\n")
			for _, n := range similares {
				fmt.Fprintf(&sb, "---\n%s\n%s\n", n.Titulo, n.Texto)
			}
		}

		instructions := aiSystemPrompt() + "\nRedija uma nota oficial de resposta à demanda abaixo. " +
			"Não invente dados; quando faltar informação, indique entre colchetes."
		return instructions, sb.String(), nil
	})
}

// POST /api/notas/:id/revisao-ia
func RevisarNotaIA(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	runAI(c, "revisao_nota", func(db *gorm.DB) (string, string, error) {
		var nota models.NotaOficial
		if err := db.First(&nota, id).Error; err != nil {
			return "", "", err
		}
		instructions := aiSystemPrompt() + "\nRevise o texto a seguir: corrija gramática, clareza e tom institucional, " +
			"sem alterar fatos. Devolva apenas o texto revisado."
		return instructions, nota.Titulo + "\n\n" + nota.Texto, nil
	})
}

// POST /api/esic/:id/sugestao-resposta
func SugerirRespostaEsic(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	runAI(c, "resposta_esic", func(db *gorm.DB) (string, string, error) {
		var processo models.EsicProcesso
		if err := db.First(&processo, id).Error; err != nil {
			return "", "", err
		}
		var justificativas []models.EsicJustificativa
		if err := db.Where("processo_id = ?", id).Order("id asc").Find(&justificativas).Error; err != nil {
			return "", "", err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Pedido %s de %s\nAssunto: %s\n\n%s\n", processo.Protocolo, processo.Solicitante, processo.Assunto, processo.Descricao)
		for _, j := range justificativas {
			fmt.Fprintf(&sb, "\nJustificativa (%s): %s\n", j.Tipo, j.Texto)
		}
		instructions := aiSystemPrompt() + "\nRedija a resposta a um pedido de acesso à informação (Lei 12.527/2011), " +
			"cordial e objetiva, citando a base legal quando houver negativa ou sigilo."
		return instructions, sb.String(), nil
	})
}

// similarNotas busca notas publicadas parecidas com o texto (best-effort: erro vira lista vazia).
func similarNotas(ctx context.Context, db *gorm.DB, text string) []models.NotaOficial {
	var publicadas []models.NotaOficial
	if err := db.Select("id, embedding").
		Where("status = ? AND embedding <> ''", models.NOTA_STATUS_PUBLICADA).
		Find(&publicadas).Error; err != nil || len(publicadas) == 0 {
		return nil
	}

	query, err := aiClient.Embed(ctx, text)
	if err != nil {
		logrus.WithError(err).Debug("ia: embedding da consulta falhou")
		metrics.AIRequest("embedding", "erro")
		return nil
	}
	metrics.AIRequest("embedding", "ok")

	candidates := make(map[int64]string, len(publicadas))
	for _, n := range publicadas {
		candidates[n.ID] = n.Embedding
	}
	top := tools.TopSimilar(query, candidates, SIMILAR_NOTAS_K, SIMILAR_NOTAS_THRESHOLD)
	if len(top) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(top))
	for _, s := range top {
		ids = append(ids, s.ID)
	}
	var notas []models.NotaOficial
	if err := db.Where("id IN (?)", ids).Find(&notas).Error; err != nil {
		return nil
	}
	byID := make(map[int64]models.NotaOficial, len(notas))
	for _, n := range notas {
		byID[n.ID] = n
	}
	out := make([]models.NotaOficial, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
