package models

import "time"

const ENTIDADE_DEMANDA = "demanda"
const ENTIDADE_NOTA = "nota"
const ENTIDADE_ESIC = "esic"

// HistoricoStatus guarda cada mudança de status (trilha de auditoria).
type HistoricoStatus struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Entidade   string     `gorm:"not null;index:ix_historico_entidade" json:"entidade"`
	EntidadeID int64      `gorm:"not null;index:ix_historico_entidade" json:"entidade_id"`
	De         string     `gorm:"default:''" json:"de"`
	Para       string     `gorm:"not null" json:"para"`
	UserID     int64      `gorm:"not null" json:"user_id"`
	Comentario string     `gorm:"type:text" json:"comentario"`
	CreatedAt  *time.Time `json:"created_at"`
}

func (HistoricoStatus) TableName() string { return "historico_status" }
