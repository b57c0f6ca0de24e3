package main

import (
	"testing"

	"secom/db/dbtest"
	"secom/models"
	"secom/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdminCreatesUser(t *testing.T) {
	database := dbtest.Open(t)

	user, created, err := seedAdmin(database, " Admin@Prefeitura.test ", "Admin", "segura123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@prefeitura.test", user.Email)
	assert.Equal(t, models.USER_ROLE_ADMIN, user.Role)
	assert.True(t, tools.CheckPasswordHash(user.Senha, "segura123"))
}

func TestSeedAdminPromotesExisting(t *testing.T) {
	database := dbtest.Open(t)
	existing := dbtest.CreateUser(t, database, "ana", models.USER_ROLE_ASSESSOR, nil)
	require.NoError(t, database.Model(&existing).Update("status", models.USER_STATUS_BLOCKED).Error)

	_, created, err := seedAdmin(database, existing.Email, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	var reloaded models.User
	require.NoError(t, database.First(&reloaded, existing.ID).Error)
	assert.Equal(t, models.USER_ROLE_ADMIN, reloaded.Role)
	assert.Equal(t, models.USER_STATUS_AVAILABLE, reloaded.Status)
	assert.True(t, tools.CheckPasswordHash(reloaded.Senha, "senha123"))
}

func TestSeedAdminRejectsWeakPasswordAndBadEmail(t *testing.T) {
	database := dbtest.Open(t)

	_, _, err := seedAdmin(database, "admin@prefeitura.test", "Admin", "curta")
	assert.ErrorIs(t, err, errSenhaFraca)

	_, _, err = seedAdmin(database, "não-é-email", "Admin", "segura123")
	assert.Error(t, err)
}
