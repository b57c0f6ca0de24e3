package models

import (
	"strings"
	"time"
)

// Area representa uma área de coordenação (tabela areas_coordenacao).
type Area struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Nome          string     `gorm:"not null;unique" json:"nome" form:"nome"`
	Descricao     string     `gorm:"type:text" json:"descricao" form:"descricao"`
	CoordenadorID *int64     `gorm:"index" json:"coordenador_id" form:"coordenador_id"`
	Ativa         bool       `json:"ativa" form:"ativa"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

func (Area) TableName() string { return "areas_coordenacao" }

func (area Area) MissingFields() string {
	if strings.TrimSpace(area.Nome) == "" {
		return "nome"
	}
	return ""
}
