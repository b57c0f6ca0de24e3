// Package dbtest abre um sqlite em memória já migrado para os testes dos outros pacotes.
package dbtest

import (
	"testing"

	dbpkg "secom/db"
	"secom/models"
	"secom/tools"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	database, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// cada conexão teria seu próprio banco em memória
	database.DB().SetMaxOpenConns(1)
	require.NoError(t, dbpkg.Migrate(database))

	tools.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { database.Close() })
	return database
}

// CreateUser grava um usuário ativo com senha "senha123".
func CreateUser(t testing.TB, database *gorm.DB, nome, role string, areaID *int64) models.User {
	t.Helper()

	hash, err := tools.HashPassword("senha123")
	require.NoError(t, err)
	user := models.User{
		Nome:   nome,
		Email:  nome + "@prefeitura.test",
		Senha:  hash,
		Role:   role,
		AreaID: areaID,
		Status: models.USER_STATUS_AVAILABLE,
	}
	require.NoError(t, database.Create(&user).Error)
	return user
}

func CreateArea(t testing.TB, database *gorm.DB, nome string, coordenadorID *int64) models.Area {
	t.Helper()

	area := models.Area{Nome: nome, CoordenadorID: coordenadorID, Ativa: true}
	require.NoError(t, database.Create(&area).Error)
	return area
}
