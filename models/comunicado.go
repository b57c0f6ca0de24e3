package models

import (
	"strconv"
	"strings"
	"time"
)

/************************************************
/**** MARK: COMUNICADO STATUS ****/
/************************************************/
const COMUNICADO_STATUS_RASCUNHO = "rascunho"
const COMUNICADO_STATUS_AGENDADO = "agendado"
const COMUNICADO_STATUS_ENVIANDO = "enviando"
const COMUNICADO_STATUS_ENVIADO = "enviado"

/************************************************
/**** MARK: COMUNICADO DESTINO ****/
/************************************************/
const DESTINO_TODOS = "todos"
const DESTINO_USUARIOS = "usuarios"
const DESTINO_AREAS = "areas"
const DESTINO_ROLES = "roles"

// Comunicado é um aviso enviado a usuários, áreas ou papéis.
type Comunicado struct {
	ID                 int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Titulo             string     `gorm:"not null" json:"titulo" form:"titulo"`
	Conteudo           string     `gorm:"type:text" json:"conteudo" form:"conteudo"`
	AutorID            int64      `gorm:"not null;index" json:"autor_id"`
	Prioridade         string     `gorm:"not null;default:'media'" json:"prioridade" form:"prioridade"`
	DestinoTipo        string     `gorm:"not null;default:'todos'" json:"destino_tipo" form:"destino_tipo"`
	DestinoIDs         string     `gorm:"column:destino_ids;default:''" json:"destino_ids" form:"destino_ids"` // CSV: ids ou roles
	Status             string     `gorm:"not null;default:'rascunho';index" json:"status"`
	AgendadoPara       *time.Time `gorm:"index" json:"agendado_para" form:"agendado_para"`
	EnviadoEm          *time.Time `json:"enviado_em"`
	TotalDestinatarios int        `json:"total_destinatarios"`
	CreatedAt          *time.Time `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
}

func (Comunicado) TableName() string { return "comunicados" }

// ComunicadoLeitura é o recibo de leitura/entrega por destinatário.
type ComunicadoLeitura struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ComunicadoID int64      `gorm:"not null;unique_index:ux_comunicado_leitura" json:"comunicado_id"`
	UserID       int64      `gorm:"not null;unique_index:ux_comunicado_leitura;index" json:"user_id"`
	LidoEm       *time.Time `json:"lido_em"`
	CreatedAt    *time.Time `json:"created_at"`
}

func (ComunicadoLeitura) TableName() string { return "comunicado_leituras" }

func (c Comunicado) MissingFields() string {
	if strings.TrimSpace(c.Titulo) == "" {
		return "titulo"
	} else if strings.TrimSpace(c.Conteudo) == "" {
		return "conteudo"
	} else if c.DestinoTipo != DESTINO_TODOS && len(c.Destinos()) == 0 {
		return "destino_ids"
	}
	return ""
}

func (c Comunicado) IsEditable() bool {
	return c.Status == COMUNICADO_STATUS_RASCUNHO || c.Status == COMUNICADO_STATUS_AGENDADO
}

func IsValidDestinoTipo(t string) bool {
	switch t {
	case DESTINO_TODOS, DESTINO_USUARIOS, DESTINO_AREAS, DESTINO_ROLES:
		return true
	}
	return false
}

// Destinos devolve os valores do CSV sem espaços e sem vazios.
func (c Comunicado) Destinos() []string {
	var out []string
	for _, p := range strings.Split(c.DestinoIDs, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DestinoIDsInt devolve os destinos numéricos (usuarios/areas), ignorando lixo.
func (c Comunicado) DestinoIDsInt() []int64 {
	var out []int64
	for _, p := range c.Destinos() {
		id, err := strconv.ParseInt(p, 10, 64)
		if err == nil && id > 0 {
			out = append(out, id)
		}
	}
	return out
}

// ScheduleStatus decide entre rascunho e agendado a partir de agendado_para.
func (c *Comunicado) ScheduleStatus(now time.Time) {
	if c.AgendadoPara != nil && c.AgendadoPara.After(now) {
		c.Status = COMUNICADO_STATUS_AGENDADO
		return
	}
	c.Status = COMUNICADO_STATUS_RASCUNHO
}
