package models

import (
	"fmt"
	"strings"
	"time"
)

/************************************************
/**** MARK: NOTA STATUS ****/
/************************************************/
const NOTA_STATUS_RASCUNHO = "rascunho"
const NOTA_STATUS_EM_REVISAO = "em_revisao"
const NOTA_STATUS_APROVADA = "aprovada"
const NOTA_STATUS_REJEITADA = "rejeitada"
const NOTA_STATUS_PUBLICADA = "publicada"

// NotaOficial é a resposta/nota à imprensa ligada (ou não) a uma demanda.
type NotaOficial struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	DemandaID        *int64     `gorm:"index" json:"demanda_id" form:"demanda_id"`
	Titulo           string     `gorm:"not null" json:"titulo" form:"titulo"`
	Texto            string     `gorm:"type:text" json:"texto" form:"texto"`
	AutorID          int64      `gorm:"not null;index" json:"autor_id"`
	Status           string     `gorm:"not null;default:'rascunho';index" json:"status"`
	Versao           int        `gorm:"not null;default:1" json:"versao"`
	RevisorID        *int64     `json:"revisor_id"`
	EnviadaRevisaoEm *time.Time `json:"enviada_revisao_em"`
	AprovadaEm       *time.Time `json:"aprovada_em"`
	MotivoRejeicao   string     `gorm:"type:text" json:"motivo_rejeicao"`
	PublicadaEm      *time.Time `json:"publicada_em"`
	Embedding        string     `gorm:"type:text" json:"-"` // JSON array (ex: [0.1,0.2,...])
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

func (NotaOficial) TableName() string { return "notas_oficiais" }

func (n NotaOficial) MissingFields() string {
	if strings.TrimSpace(n.Titulo) == "" {
		return "titulo"
	} else if strings.TrimSpace(n.Texto) == "" {
		return "texto"
	}
	return ""
}

func (n NotaOficial) IsEditable() bool {
	return n.Status == NOTA_STATUS_RASCUNHO || n.Status == NOTA_STATUS_REJEITADA
}

// Edit aplica uma nova redação. Uma nota rejeitada volta a rascunho.
func (n *NotaOficial) Edit(titulo, texto string) error {
	if !n.IsEditable() {
		return ErrNotaNaoEditavel
	}
	if strings.TrimSpace(titulo) != "" {
		n.Titulo = titulo
	}
	if strings.TrimSpace(texto) != "" {
		n.Texto = texto
	}
	n.Status = NOTA_STATUS_RASCUNHO
	n.Versao++
	return nil
}

func (n *NotaOficial) SubmitForReview(now time.Time) error {
	if n.Status != NOTA_STATUS_RASCUNHO {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, n.Status, NOTA_STATUS_EM_REVISAO)
	}
	n.Status = NOTA_STATUS_EM_REVISAO
	n.EnviadaRevisaoEm = &now
	n.MotivoRejeicao = ""
	return nil
}

func (n *NotaOficial) Approve(revisorID int64, now time.Time) error {
	if n.Status != NOTA_STATUS_EM_REVISAO {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, n.Status, NOTA_STATUS_APROVADA)
	}
	n.Status = NOTA_STATUS_APROVADA
	n.RevisorID = &revisorID
	n.AprovadaEm = &now
	return nil
}

func (n *NotaOficial) Reject(revisorID int64, motivo string) error {
	if n.Status != NOTA_STATUS_EM_REVISAO {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, n.Status, NOTA_STATUS_REJEITADA)
	}
	if strings.TrimSpace(motivo) == "" {
		return ErrMotivoObrigatorio
	}
	n.Status = NOTA_STATUS_REJEITADA
	n.RevisorID = &revisorID
	n.MotivoRejeicao = strings.TrimSpace(motivo)
	return nil
}

func (n *NotaOficial) Publish(now time.Time) error {
	if n.Status != NOTA_STATUS_APROVADA {
		return fmt.Errorf("%w: %s -> %s", ErrTransicaoInvalida, n.Status, NOTA_STATUS_PUBLICADA)
	}
	n.Status = NOTA_STATUS_PUBLICADA
	n.PublicadaEm = &now
	return nil
}
