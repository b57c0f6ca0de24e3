package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "8080", c.ApiPort)
	assert.Equal(t, "sqlite3", c.Database)
	assert.Equal(t, 20, c.Esic.PrazoDias)
	assert.Equal(t, 10, c.Esic.ProrrogacaoDias)
	assert.Equal(t, "@every 1m", c.Jobs.ComunicadosAgendados)
	assert.False(t, c.WhatsAppEnabled())
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_port: "9000"
database: postgres
security:
  jwt_secret: segredo
esic:
  alerta_dias: 3
whatsapp:
  enabled: true
  access_token: tok
`), 0o600))
	t.Setenv("SECOM_DB_HOST", "db.interno")
	t.Setenv("SECOM_ESIC_ALERTA_DIAS", "2")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", c.ApiPort)
	assert.Equal(t, "postgres", c.Database)
	assert.Equal(t, "db.interno", c.DbHost)
	assert.Equal(t, "segredo", c.Security.JwtSecret)
	assert.Equal(t, 2, c.Esic.AlertaDias)
	assert.Equal(t, 20, c.Esic.PrazoDias)
	// sem phone_number_id o canal continua desligado
	assert.False(t, c.WhatsAppEnabled())
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"debug","redis":{"addr":"localhost:6379"}}`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, 60, c.Redis.CacheTTLSeconds)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nao-existe.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "ruim.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
