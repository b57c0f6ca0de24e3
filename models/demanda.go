package models

import (
	"fmt"
	"strings"
	"time"
)

/************************************************
/**** MARK: DEMANDA STATUS ****/
/************************************************/
const DEMANDA_STATUS_ABERTA = "aberta"
const DEMANDA_STATUS_EM_ANDAMENTO = "em_andamento"
const DEMANDA_STATUS_AGUARDANDO = "aguardando_resposta"
const DEMANDA_STATUS_RESPONDIDA = "respondida"
const DEMANDA_STATUS_ARQUIVADA = "arquivada"
const DEMANDA_STATUS_CANCELADA = "cancelada"

/************************************************
/**** MARK: DEMANDA PRIORIDADE ****/
/************************************************/
const PRIORIDADE_BAIXA = "baixa"
const PRIORIDADE_MEDIA = "media"
const PRIORIDADE_ALTA = "alta"
const PRIORIDADE_URGENTE = "urgente"

/************************************************
/**** MARK: DEMANDA ORIGEM ****/
/************************************************/
const ORIGEM_IMPRENSA = "imprensa"
const ORIGEM_CIDADAO = "cidadao"
const ORIGEM_INTERNA = "interna"
const ORIGEM_OUVIDORIA = "ouvidoria"

var demandaTransitions = map[string][]string{
	DEMANDA_STATUS_ABERTA:       {DEMANDA_STATUS_EM_ANDAMENTO, DEMANDA_STATUS_CANCELADA},
	DEMANDA_STATUS_EM_ANDAMENTO: {DEMANDA_STATUS_AGUARDANDO, DEMANDA_STATUS_RESPONDIDA, DEMANDA_STATUS_CANCELADA},
	DEMANDA_STATUS_AGUARDANDO:   {DEMANDA_STATUS_EM_ANDAMENTO, DEMANDA_STATUS_RESPONDIDA, DEMANDA_STATUS_CANCELADA},
	DEMANDA_STATUS_RESPONDIDA:   {DEMANDA_STATUS_ARQUIVADA, DEMANDA_STATUS_EM_ANDAMENTO},
}

// Demanda é uma solicitação de imprensa/cidadão acompanhada por um fluxo de status.
type Demanda struct {
	ID                  int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Protocolo           string     `gorm:"unique_index" json:"protocolo"`
	Titulo              string     `gorm:"not null" json:"titulo" form:"titulo"`
	Descricao           string     `gorm:"type:text" json:"descricao" form:"descricao"`
	Origem              string     `gorm:"not null;default:'imprensa';index" json:"origem" form:"origem"`
	Veiculo             string     `gorm:"default:''" json:"veiculo" form:"veiculo"`
	SolicitanteNome     string     `gorm:"default:''" json:"solicitante_nome" form:"solicitante_nome"`
	SolicitanteEmail    string     `gorm:"default:''" json:"solicitante_email" form:"solicitante_email"`
	SolicitanteTelefone string     `gorm:"default:''" json:"solicitante_telefone" form:"solicitante_telefone"`
	AreaID              *int64     `gorm:"index" json:"area_id" form:"area_id"`
	ResponsavelID       *int64     `gorm:"index" json:"responsavel_id" form:"responsavel_id"`
	AutorID             int64      `gorm:"not null;index" json:"autor_id"`
	Prioridade          string     `gorm:"not null;default:'media';index" json:"prioridade" form:"prioridade"`
	Status              string     `gorm:"not null;default:'aberta';index" json:"status"`
	Prazo               *time.Time `gorm:"index" json:"prazo" form:"prazo"`
	RespondidaEm        *time.Time `json:"respondida_em"`
	ArquivadaEm         *time.Time `json:"arquivada_em"`
	AlertaAtrasoEm      *time.Time `json:"alerta_atraso_em"`
	CreatedAt           *time.Time `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

func (Demanda) TableName() string { return "demandas" }

func (d Demanda) MissingFields() string {
	if strings.TrimSpace(d.Titulo) == "" {
		return "titulo"
	}
	return ""
}

// IsTerminal indica status em que a demanda não aceita mais edição.
func (d Demanda) IsTerminal() bool {
	return d.Status == DEMANDA_STATUS_ARQUIVADA || d.Status == DEMANDA_STATUS_CANCELADA
}

// IsOpen indica demandas que ainda exigem ação (contam para atraso).
func (d Demanda) IsOpen() bool {
	return !d.IsTerminal() && d.Status != DEMANDA_STATUS_RESPONDIDA
}

func (d Demanda) IsAtrasada(now time.Time) bool {
	return d.IsOpen() && d.Prazo != nil && now.After(*d.Prazo)
}

// CanTransitionDemanda valida a transição de status.
func CanTransitionDemanda(from, to string) bool {
	for _, s := range demandaTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition aplica a transição, preenchendo os carimbos de data.
// Cancelamento exige comentário.
func (d *Demanda) Transition(to, comentario string, now time.Time) error {
	if !CanTransitionDemanda(d.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, d.Status, to)
	}
	if to == DEMANDA_STATUS_CANCELADA && strings.TrimSpace(comentario) == "" {
		return ErrComentarioObrigatorio
	}

	switch to {
	case DEMANDA_STATUS_RESPONDIDA:
		d.RespondidaEm = &now
	case DEMANDA_STATUS_ARQUIVADA:
		d.ArquivadaEm = &now
	case DEMANDA_STATUS_EM_ANDAMENTO:
		if d.Status == DEMANDA_STATUS_RESPONDIDA {
			d.RespondidaEm = nil
		}
	}
	d.Status = to
	return nil
}

func IsValidPrioridade(p string) bool {
	switch p {
	case PRIORIDADE_BAIXA, PRIORIDADE_MEDIA, PRIORIDADE_ALTA, PRIORIDADE_URGENTE:
		return true
	}
	return false
}

func IsValidOrigem(o string) bool {
	switch o {
	case ORIGEM_IMPRENSA, ORIGEM_CIDADAO, ORIGEM_INTERNA, ORIGEM_OUVIDORIA:
		return true
	}
	return false
}

// PrazoPadrao devolve o prazo default de resposta conforme a prioridade.
func PrazoPadrao(prioridade string, from time.Time) time.Time {
	days := 5
	switch prioridade {
	case PRIORIDADE_URGENTE:
		days = 1
	case PRIORIDADE_ALTA:
		days = 2
	case PRIORIDADE_BAIXA:
		days = 10
	}
	return from.AddDate(0, 0, days)
}

// PrioridadeRank ordena prioridades da mais baixa (0) para a mais alta (3).
func PrioridadeRank(p string) int {
	switch p {
	case PRIORIDADE_URGENTE:
		return 3
	case PRIORIDADE_ALTA:
		return 2
	case PRIORIDADE_MEDIA:
		return 1
	}
	return 0
}

// FormatProtocolo monta o protocolo público (ex: DEM-2026-000042).
func FormatProtocolo(prefix string, year int, id int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, id)
}
