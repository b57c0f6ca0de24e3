package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	dbpkg "secom/db"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

func dbInstance(c *gin.Context) *gorm.DB {
	return dbpkg.DBInstance(c)
}

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondError(c, name+" é obrigatório", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, name+" inválido", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	if err != nil {
		return def
	}
	return n
}

// queryID lê um id opcional da query (0 quando ausente/inválido).
func queryID(c *gin.Context, key string) int64 {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	// defaults: últimos 30 dias
	now := clock()
	defTo := now
	defFrom := now.AddDate(0, 0, -29)

	fromStr := strings.TrimSpace(c.Query("from"))
	toStr := strings.TrimSpace(c.Query("to"))

	from := defFrom
	to := defTo
	var err error

	if fromStr != "" {
		from, err = time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			RespondError(c, "from inválido (use YYYY-MM-DD)", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
	}
	if toStr != "" {
		to, err = time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			RespondError(c, "to inválido (use YYYY-MM-DD)", http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
	}
	if from.After(to) {
		RespondError(c, "from não pode ser maior que to", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}

	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.Local)
	return from, to, true
}

func parseYear(c *gin.Context) (int, bool) {
	ano := queryInt(c, "ano", clock().Year())
	if ano < 2000 || ano > 2100 {
		RespondError(c, "ano inválido", http.StatusBadRequest)
		return 0, false
	}
	return ano, true
}

// parseOptionalTime aceita RFC3339 ou YYYY-MM-DD (fim do dia, horário local).
func parseOptionalTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("data inválida: %s", v)
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.Local)
	return &t, nil
}

func likePattern(q string) string {
	return "%" + q + "%"
}

func orderClause(sortBy string, allowed []string, def, order string) string {
	ok := false
	for _, a := range allowed {
		if a == sortBy {
			ok = true
			break
		}
	}
	if !ok {
		sortBy = def
	}
	if strings.ToLower(order) == "asc" {
		order = "asc"
	} else {
		order = "desc"
	}
	return sortBy + " " + order
}

func requestCtx(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

func transaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return dbpkg.Transaction(db, fn)
}

func logUserWarn(userID int64, err error, msg string) {
	logrus.WithError(err).WithField("user_id", userID).Warn(msg)
}
