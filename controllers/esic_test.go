package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dbpkg "secom/db"
	"secom/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEsicProtocoloLookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	database, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	mock.ExpectQuery(`SELECT count\(\*\) FROM "esic_processos"`).
		WillReturnError(errors.New("conexão perdida"))

	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(database))
	r.POST("/esic", func(c *gin.Context) {
		c.Set(ctxUserKey, models.User{ID: 1, Role: models.USER_ROLE_ASSESSOR, Status: models.USER_STATUS_AVAILABLE})
		CreateEsic(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/esic", strings.NewReader(`{"protocolo":"ESIC-1","assunto":"Contratos"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
