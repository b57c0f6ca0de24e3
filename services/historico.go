package services

import (
	"fmt"
	"strings"

	"secom/metrics"
	"secom/models"

	"github.com/jinzhu/gorm"
)

// RecordHistory grava a transição na trilha de auditoria.
func RecordHistory(tx *gorm.DB, entidade string, entidadeID int64, de, para string, userID int64, comentario string) error {
	h := models.HistoricoStatus{
		Entidade:   entidade,
		EntidadeID: entidadeID,
		De:         de,
		Para:       para,
		UserID:     userID,
		Comentario: strings.TrimSpace(comentario),
	}
	if err := tx.Create(&h).Error; err != nil {
		return fmt.Errorf("gravar histórico %s/%d: %w", entidade, entidadeID, err)
	}
	metrics.StatusTransition(entidade, para)
	return nil
}

func LoadHistory(db *gorm.DB, entidade string, entidadeID int64) ([]models.HistoricoStatus, error) {
	var items []models.HistoricoStatus
	err := db.Where("entidade = ? AND entidade_id = ?", entidade, entidadeID).
		Order("id asc").
		Find(&items).Error
	return items, err
}
