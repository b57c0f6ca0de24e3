package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

/************************************************
/**** MARK: ESIC STATUS ****/
/************************************************/
const ESIC_STATUS_ABERTO = "aberto"
const ESIC_STATUS_EM_ANALISE = "em_analise"
const ESIC_STATUS_PRORROGADO = "prorrogado"
const ESIC_STATUS_RESPONDIDO = "respondido"
const ESIC_STATUS_RECURSO = "recurso"
const ESIC_STATUS_ENCERRADO = "encerrado"

/************************************************
/**** MARK: ESIC JUSTIFICATIVA TIPOS ****/
/************************************************/
const JUSTIFICATIVA_PRORROGACAO = "prorrogacao"
const JUSTIFICATIVA_NEGATIVA = "negativa"
const JUSTIFICATIVA_SIGILO = "sigilo"
const JUSTIFICATIVA_RECURSO = "recurso"
const JUSTIFICATIVA_OUTRO = "outro"

var esicTransitions = map[string][]string{
	ESIC_STATUS_ABERTO:     {ESIC_STATUS_EM_ANALISE, ESIC_STATUS_ENCERRADO},
	ESIC_STATUS_EM_ANALISE: {ESIC_STATUS_RESPONDIDO, ESIC_STATUS_ENCERRADO},
	ESIC_STATUS_PRORROGADO: {ESIC_STATUS_RESPONDIDO, ESIC_STATUS_ENCERRADO},
	ESIC_STATUS_RESPONDIDO: {ESIC_STATUS_RECURSO, ESIC_STATUS_ENCERRADO},
	ESIC_STATUS_RECURSO:    {ESIC_STATUS_RESPONDIDO, ESIC_STATUS_ENCERRADO},
}

// EsicProcesso acompanha um pedido de acesso à informação (LAI).
type EsicProcesso struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Protocolo        string     `gorm:"not null;unique_index" json:"protocolo" form:"protocolo"`
	Assunto          string     `gorm:"not null" json:"assunto" form:"assunto"`
	Descricao        string     `gorm:"type:text" json:"descricao" form:"descricao"`
	Solicitante      string     `gorm:"default:''" json:"solicitante" form:"solicitante"`
	SolicitanteEmail string     `gorm:"default:''" json:"solicitante_email" form:"solicitante_email"`
	AreaID           *int64     `gorm:"index" json:"area_id" form:"area_id"`
	ResponsavelID    *int64     `gorm:"index" json:"responsavel_id" form:"responsavel_id"`
	Status           string     `gorm:"not null;default:'aberto';index" json:"status"`
	DataRecebimento  *time.Time `json:"data_recebimento" form:"data_recebimento"`
	PrazoFinal       *time.Time `gorm:"index" json:"prazo_final"`
	Prorrogado       bool       `json:"prorrogado"`
	Resposta         string     `gorm:"type:text" json:"resposta"`
	RespondidoEm     *time.Time `json:"respondido_em"`
	AlertaPrazoEm    *time.Time `json:"alerta_prazo_em"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

func (EsicProcesso) TableName() string { return "esic_processos" }

// EsicJustificativa registra justificativas (prorrogação, negativa, sigilo...).
type EsicJustificativa struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ProcessoID int64      `gorm:"not null;index" json:"processo_id"`
	Tipo       string     `gorm:"not null" json:"tipo" form:"tipo"`
	Texto      string     `gorm:"type:text;not null" json:"texto" form:"texto"`
	AutorID    int64      `gorm:"not null" json:"autor_id"`
	CreatedAt  *time.Time `json:"created_at"`
}

func (EsicJustificativa) TableName() string { return "esic_justificativas" }

func IsValidJustificativaTipo(t string) bool {
	switch t {
	case JUSTIFICATIVA_PRORROGACAO, JUSTIFICATIVA_NEGATIVA, JUSTIFICATIVA_SIGILO, JUSTIFICATIVA_RECURSO, JUSTIFICATIVA_OUTRO:
		return true
	}
	return false
}

func (p EsicProcesso) MissingFields() string {
	if strings.TrimSpace(p.Protocolo) == "" {
		return "protocolo"
	} else if strings.TrimSpace(p.Assunto) == "" {
		return "assunto"
	}
	return ""
}

func (p EsicProcesso) IsClosed() bool {
	return p.Status == ESIC_STATUS_ENCERRADO
}

// IsPending indica processos que ainda correm prazo.
func (p EsicProcesso) IsPending() bool {
	switch p.Status {
	case ESIC_STATUS_ABERTO, ESIC_STATUS_EM_ANALISE, ESIC_STATUS_PRORROGADO, ESIC_STATUS_RECURSO:
		return true
	}
	return false
}

// StartDeadline fixa data de recebimento e prazo final (dias corridos).
func (p *EsicProcesso) StartDeadline(recebimento time.Time, prazoDias int) {
	p.DataRecebimento = &recebimento
	prazo := endOfDay(recebimento.AddDate(0, 0, prazoDias))
	p.PrazoFinal = &prazo
}

// DiasRestantes devolve dias até o prazo final (negativo quando vencido).
func (p EsicProcesso) DiasRestantes(now time.Time) int {
	if p.PrazoFinal == nil {
		return 0
	}
	d := p.PrazoFinal.Sub(now).Hours() / 24
	if d < 0 {
		return int(math.Floor(d))
	}
	return int(math.Ceil(d))
}

func (p EsicProcesso) IsVencido(now time.Time) bool {
	return p.IsPending() && p.PrazoFinal != nil && now.After(*p.PrazoFinal)
}

func CanTransitionEsic(from, to string) bool {
	for _, s := range esicTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition aplica a transição. Encerrar antes de responder exige comentário,
// e responder exige o texto da resposta.
func (p *EsicProcesso) Transition(to, comentario, resposta string, now time.Time) error {
	if !CanTransitionEsic(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, p.Status, to)
	}

	switch to {
	case ESIC_STATUS_RESPONDIDO:
		if strings.TrimSpace(resposta) == "" && strings.TrimSpace(p.Resposta) == "" {
			return ErrRespostaObrigatoria
		}
		if strings.TrimSpace(resposta) != "" {
			p.Resposta = strings.TrimSpace(resposta)
		}
		p.RespondidoEm = &now
	case ESIC_STATUS_ENCERRADO:
		unanswered := p.Status == ESIC_STATUS_ABERTO || p.Status == ESIC_STATUS_EM_ANALISE || p.Status == ESIC_STATUS_PRORROGADO
		if unanswered && strings.TrimSpace(comentario) == "" {
			return ErrComentarioObrigatorio
		}
	}
	p.Status = to
	return nil
}

// Prorrogar estende o prazo uma única vez, antes do vencimento.
func (p *EsicProcesso) Prorrogar(justificativa string, dias int, now time.Time) error {
	if strings.TrimSpace(justificativa) == "" {
		return ErrJustificativaVazia
	}
	if p.Prorrogado {
		return ErrProrrogacaoDuplicada
	}
	if p.Status != ESIC_STATUS_ABERTO && p.Status != ESIC_STATUS_EM_ANALISE {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, p.Status, ESIC_STATUS_PRORROGADO)
	}
	if p.PrazoFinal != nil && now.After(*p.PrazoFinal) {
		return ErrPrazoExpirado
	}

	base := now
	if p.PrazoFinal != nil {
		base = *p.PrazoFinal
	}
	novo := endOfDay(base.AddDate(0, 0, dias))
	p.PrazoFinal = &novo
	p.Prorrogado = true
	p.Status = ESIC_STATUS_PRORROGADO
	p.AlertaPrazoEm = nil
	return nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
