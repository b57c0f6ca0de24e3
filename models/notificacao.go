package models

import "time"

/************************************************
/**** MARK: NOTIFICACAO TIPOS ****/
/************************************************/
const NOTIFICACAO_DEMANDA = "demanda"
const NOTIFICACAO_NOTA = "nota"
const NOTIFICACAO_ESIC = "esic"
const NOTIFICACAO_COMUNICADO = "comunicado"
const NOTIFICACAO_SISTEMA = "sistema"

// Notificacao é a caixa de entrada do usuário. Lida só vai de false para true.
type Notificacao struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     int64      `gorm:"not null;index" json:"user_id"`
	Tipo       string     `gorm:"not null;index" json:"tipo"`
	Titulo     string     `gorm:"not null" json:"titulo"`
	Mensagem   string     `gorm:"type:text" json:"mensagem"`
	Entidade   string     `gorm:"default:''" json:"entidade"`
	EntidadeID int64      `json:"entidade_id"`
	Urgente    bool       `json:"urgente"`
	Lida       bool       `gorm:"index" json:"lida"`
	LidaEm     *time.Time `json:"lida_em"`
	CreatedAt  *time.Time `json:"created_at"`
}

func (Notificacao) TableName() string { return "notificacoes" }
