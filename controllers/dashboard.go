package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"secom/cache"
	"secom/models"
	"secom/reports"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const DASHBOARD_CACHE_NS = "dashboard"

// colunas usadas pelas agregações
const demandaProjection = "id, protocolo, titulo, origem, area_id, responsavel_id, prioridade, status, prazo, respondida_em, created_at"

func cacheTTL() time.Duration {
	if conf.Redis.CacheTTLSeconds > 0 {
		return time.Duration(conf.Redis.CacheTTLSeconds) * time.Second
	}
	return time.Minute
}

// respondCached serve a resposta do cache ou calcula, grava e responde.
func respondCached(c *gin.Context, suffix string, compute func(db *gorm.DB) (any, error)) {
	ctx := requestCtx(c)
	key := cache.Key(ctx, dashCache, DASHBOARD_CACHE_NS, suffix)
	if b, ok := dashCache.Get(ctx, key); ok {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	payload, err := compute(db)
	if err != nil {
		respondDBError(c, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("dashboard: falha ao serializar")
		RespondError(c, "erro interno, tente novamente", http.StatusInternalServerError)
		return
	}
	dashCache.Set(ctx, key, b, cacheTTL())
	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

func demandasCriadasEntre(db *gorm.DB, from, toExclusive time.Time) ([]models.Demanda, error) {
	var rows []models.Demanda
	err := db.Select(demandaProjection).
		Where("created_at >= ? AND created_at < ?", from, toExclusive).
		Order("id asc").
		Find(&rows).Error
	return rows, err
}

func areaNames(db *gorm.DB) (map[int64]string, error) {
	var areas []models.Area
	if err := db.Select("id, nome").Find(&areas).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(areas))
	for _, a := range areas {
		out[a.ID] = a.Nome
	}
	return out, nil
}

func userNames(db *gorm.DB) (map[int64]string, error) {
	var users []models.User
	if err := db.Select("id, nome").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Nome
	}
	return out, nil
}

// GET /api/dashboard/resumo
func GetDashboardResumo(c *gin.Context) {
	respondCached(c, "resumo", func(db *gorm.DB) (any, error) {
		var demandas []models.Demanda
		if err := db.Select("id, status, prazo").Find(&demandas).Error; err != nil {
			return nil, err
		}
		var notaStatus []string
		if err := db.Model(&models.NotaOficial{}).Pluck("status", &notaStatus).Error; err != nil {
			return nil, err
		}
		var processos []models.EsicProcesso
		if err := db.Select("id, status, prazo_final").Find(&processos).Error; err != nil {
			return nil, err
		}
		return reports.BuildResumo(demandas, notaStatus, processos, clock(), esicAlertaDias()), nil
	})
}

// GET /api/dashboard/demandas-por-dia?from=YYYY-MM-DD&to=YYYY-MM-DD
// Retorna uma série diária (inclui dias com 0).
func GetDemandasPorDia(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	suffix := fmt.Sprintf("por-dia:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	respondCached(c, suffix, func(db *gorm.DB) (any, error) {
		rows, err := demandasCriadasEntre(db, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		return gin.H{
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
			"series": reports.DailySeries(rows, from, to, time.Local),
		}, nil
	})
}

// GET /api/dashboard/demandas-por-mes?ano=YYYY
func GetDemandasPorMes(c *gin.Context) {
	ano, ok := parseYear(c)
	if !ok {
		return
	}
	respondCached(c, fmt.Sprintf("por-mes:%d", ano), func(db *gorm.DB) (any, error) {
		start := time.Date(ano, time.January, 1, 0, 0, 0, 0, time.Local)
		end := start.AddDate(1, 0, 0)
		var rows []models.Demanda
		err := db.Select(demandaProjection).
			Where("(created_at >= ? AND created_at < ?) OR (respondida_em >= ? AND respondida_em < ?)", start, end, start, end).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		return gin.H{"ano": ano, "meses": reports.MonthlySeries(rows, ano, time.Local)}, nil
	})
}

// GET /api/dashboard/ranking-areas?from&to
func GetRankingAreas(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	suffix := fmt.Sprintf("ranking-areas:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	respondCached(c, suffix, func(db *gorm.DB) (any, error) {
		rows, err := demandasCriadasEntre(db, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		names, err := areaNames(db)
		if err != nil {
			return nil, err
		}
		return gin.H{"ranking": reports.RankAreas(rows, names, clock())}, nil
	})
}

// GET /api/dashboard/ranking-responsaveis?from&to&limit=
func GetRankingResponsaveis(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	limit := clampInt(queryInt(c, "limit", 10), 1, 100)
	suffix := fmt.Sprintf("ranking-responsaveis:%s:%s:%d", from.Format("2006-01-02"), to.Format("2006-01-02"), limit)
	respondCached(c, suffix, func(db *gorm.DB) (any, error) {
		rows, err := demandasCriadasEntre(db, from, to.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		names, err := userNames(db)
		if err != nil {
			return nil, err
		}
		return gin.H{"ranking": reports.RankResponsaveis(rows, names, clock(), limit)}, nil
	})
}

// GET /api/relatorios/demandas.csv?from&to
func GetRelatorioDemandasCSV(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	rows, err := demandasCriadasEntre(db, from, to.AddDate(0, 0, 1))
	if err != nil {
		respondDBError(c, err)
		return
	}
	areas, err := areaNames(db)
	if err != nil {
		respondDBError(c, err)
		return
	}
	users, err := userNames(db)
	if err != nil {
		respondDBError(c, err)
		return
	}

	filename := fmt.Sprintf("demandas_%s_%s.csv", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := reports.WriteDemandasCSV(c.Writer, rows, areas, users, clock()); err != nil {
		logrus.WithError(err).Error("relatorio: falha ao escrever csv")
	}
}
