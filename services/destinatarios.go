package services

import (
	"fmt"

	"secom/models"

	"github.com/jinzhu/gorm"
)

// activeUserIDs aplica o filtro extra (opcional) sobre os usuários ativos.
func activeUserIDs(db *gorm.DB, where string, args ...interface{}) ([]int64, error) {
	q := db.Model(&models.User{}).Where("status = ?", models.USER_STATUS_AVAILABLE)
	if where != "" {
		q = q.Where(where, args...)
	}
	var ids []int64
	if err := q.Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ResolveRecipients expande o destino do comunicado em ids de usuários ativos.
func ResolveRecipients(db *gorm.DB, c models.Comunicado) ([]int64, error) {
	switch c.DestinoTipo {
	case models.DESTINO_TODOS, "":
		return activeUserIDs(db, "")
	case models.DESTINO_USUARIOS:
		ids := c.DestinoIDsInt()
		if len(ids) == 0 {
			return nil, nil
		}
		return activeUserIDs(db, "id IN (?)", ids)
	case models.DESTINO_AREAS:
		ids := c.DestinoIDsInt()
		if len(ids) == 0 {
			return nil, nil
		}
		return activeUserIDs(db, "area_id IN (?)", ids)
	case models.DESTINO_ROLES:
		roles := c.Destinos()
		if len(roles) == 0 {
			return nil, nil
		}
		return activeUserIDs(db, "role IN (?)", roles)
	}
	return nil, fmt.Errorf("destino_tipo desconhecido: %s", c.DestinoTipo)
}

// ReviewersFor devolve quem revisa notas de uma área: coordenador da área e coordenadores
// lotados nela. Sem área (ou sem ninguém), todos os coordenadores e admins.
func ReviewersFor(db *gorm.DB, areaID *int64) ([]int64, error) {
	var ids []int64
	if areaID != nil {
		var area models.Area
		if err := db.First(&area, *areaID).Error; err == nil && area.CoordenadorID != nil {
			ids = append(ids, *area.CoordenadorID)
		}
		fromArea, err := activeUserIDs(db, "role = ? AND area_id = ?", models.USER_ROLE_COORDENADOR, *areaID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromArea...)
	}
	if len(ids) > 0 {
		return UniqueIDs(ids), nil
	}
	return activeUserIDs(db, "role IN (?)", []string{models.USER_ROLE_COORDENADOR, models.USER_ROLE_ADMIN})
}

// OwnerOrCoordinator devolve o responsável; sem responsável, o coordenador da área.
func OwnerOrCoordinator(db *gorm.DB, responsavelID, areaID *int64) []int64 {
	if responsavelID != nil && *responsavelID > 0 {
		return []int64{*responsavelID}
	}
	if areaID != nil {
		var area models.Area
		if err := db.First(&area, *areaID).Error; err == nil && area.CoordenadorID != nil {
			return []int64{*area.CoordenadorID}
		}
	}
	return nil
}
