package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	ApiPort  string `json:"api_port" yaml:"api_port" env:"SECOM_API_PORT"`
	LogPath  string `json:"log_path" yaml:"log_path" env:"SECOM_LOG_PATH"`
	LogLevel string `json:"log_level" yaml:"log_level" env:"SECOM_LOG_LEVEL"`

	Database    string `json:"database" yaml:"database" env:"SECOM_DATABASE"` // "sqlite3" ou "postgres"
	DbHost      string `json:"db_host" yaml:"db_host" env:"SECOM_DB_HOST"`
	DbPort      string `json:"db_port" yaml:"db_port" env:"SECOM_DB_PORT"`
	DbUser      string `json:"db_user" yaml:"db_user" env:"SECOM_DB_USER"`
	DbName      string `json:"db_name" yaml:"db_name" env:"SECOM_DB_NAME"`
	DbPass      string `json:"db_pass" yaml:"db_pass" env:"SECOM_DB_PASS"`
	SqlitePath  string `json:"sqlite_path" yaml:"sqlite_path" env:"SECOM_SQLITE_PATH"`
	AutoMigrate bool   `json:"automigrate" yaml:"automigrate" env:"SECOM_AUTOMIGRATE"`

	Security struct {
		JwtSecret        string `json:"jwt_secret" yaml:"jwt_secret" env:"SECOM_JWT_SECRET"`
		AccessTTLMinutes int    `json:"access_ttl_minutes" yaml:"access_ttl_minutes" env:"SECOM_JWT_ACCESS_TTL_MINUTES"`
		RefreshTTLDays   int    `json:"refresh_ttl_days" yaml:"refresh_ttl_days" env:"SECOM_REFRESH_TTL_DAYS"`
		InviteCodeLen    int    `json:"invite_code_len" yaml:"invite_code_len" env:"SECOM_INVITE_CODE_LEN"`
		InviteValidHours int    `json:"invite_valid_hours" yaml:"invite_valid_hours" env:"SECOM_INVITE_VALID_HOURS"`
		BcryptCost       int    `json:"bcrypt_cost" yaml:"bcrypt_cost" env:"SECOM_BCRYPT_COST"`
		AllowedWSOrigins string `json:"allowed_ws_origins" yaml:"allowed_ws_origins" env:"SECOM_ALLOWED_WS_ORIGINS"`
	} `json:"security" yaml:"security"`

	Redis struct {
		Addr            string `json:"addr" yaml:"addr" env:"SECOM_REDIS_ADDR"`
		Password        string `json:"password" yaml:"password" env:"SECOM_REDIS_PASSWORD"`
		DB              int    `json:"db" yaml:"db" env:"SECOM_REDIS_DB"`
		CacheTTLSeconds int    `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" env:"SECOM_CACHE_TTL_SECONDS"`
	} `json:"redis" yaml:"redis"`

	OpenAI struct {
		ApiKey            string `json:"api_key" yaml:"api_key" env:"OPENAI_API_KEY"`
		BaseURL           string `json:"base_url" yaml:"base_url" env:"OPENAI_BASE_URL"`
		Model             string `json:"model" yaml:"model" env:"OPENAI_MODEL"`
		EmbeddingModel    string `json:"embedding_model" yaml:"embedding_model" env:"OPENAI_EMBEDDING_MODEL"`
		SystemPrompt      string `json:"system_prompt" yaml:"system_prompt" env:"OPENAI_SYSTEM_PROMPT"`
		RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute" env:"OPENAI_REQUESTS_PER_MINUTE"`
	} `json:"openai" yaml:"openai"`

	WhatsApp struct {
		Enabled       bool   `json:"enabled" yaml:"enabled" env:"WHATSAPP_ENABLED"`
		AccessToken   string `json:"access_token" yaml:"access_token" env:"WHATSAPP_ACCESS_TOKEN"`
		PhoneNumberID string `json:"phone_number_id" yaml:"phone_number_id" env:"WHATSAPP_PHONE_NUMBER_ID"`
		ApiVersion    string `json:"api_version" yaml:"api_version" env:"WHATSAPP_API_VERSION"`
		BaseURL       string `json:"base_url" yaml:"base_url" env:"WHATSAPP_BASE_URL"`
	} `json:"whatsapp" yaml:"whatsapp"`

	Esic struct {
		PrazoDias       int `json:"prazo_dias" yaml:"prazo_dias" env:"SECOM_ESIC_PRAZO_DIAS"`
		ProrrogacaoDias int `json:"prorrogacao_dias" yaml:"prorrogacao_dias" env:"SECOM_ESIC_PRORROGACAO_DIAS"`
		AlertaDias      int `json:"alerta_dias" yaml:"alerta_dias" env:"SECOM_ESIC_ALERTA_DIAS"`
	} `json:"esic" yaml:"esic"`

	Jobs struct {
		EsicAlertas          string `json:"esic_alertas" yaml:"esic_alertas" env:"SECOM_JOB_ESIC_ALERTAS"`
		DemandasAtrasadas    string `json:"demandas_atrasadas" yaml:"demandas_atrasadas" env:"SECOM_JOB_DEMANDAS_ATRASADAS"`
		ComunicadosAgendados string `json:"comunicados_agendados" yaml:"comunicados_agendados" env:"SECOM_JOB_COMUNICADOS_AGENDADOS"`
	} `json:"jobs" yaml:"jobs"`
}

// Load lê o arquivo (json ou yaml), aplica overrides de ambiente e preenche defaults.
// Um path vazio significa "somente ambiente + defaults".
func Load(path string) (Configuration, error) {
	var c Configuration

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &c)
		default:
			err = json.Unmarshal(b, &c)
		}
		if err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&c)
	return c, nil
}

// Get mantém o comportamento antigo: qualquer erro derruba o processo.
func Get(path string) Configuration {
	c, err := Load(path)
	if err != nil {
		logrus.WithError(err).Fatal("config: não foi possível carregar a configuração")
	}
	return c
}

// Default devolve a configuração somente com os valores padrão.
func Default() Configuration {
	var c Configuration
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.SqlitePath == "" {
		c.SqlitePath = "db/database.db"
	}

	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Security.AccessTTLMinutes <= 0 {
		c.Security.AccessTTLMinutes = 24 * 60
	}
	if c.Security.RefreshTTLDays <= 0 {
		c.Security.RefreshTTLDays = 30
	}
	if c.Security.InviteCodeLen <= 0 {
		c.Security.InviteCodeLen = 8
	}
	if c.Security.InviteValidHours <= 0 {
		c.Security.InviteValidHours = 72
	}
	if c.Security.BcryptCost <= 0 {
		c.Security.BcryptCost = 10
	}

	if c.Redis.CacheTTLSeconds <= 0 {
		c.Redis.CacheTTLSeconds = 60
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4.1-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.SystemPrompt == "" {
		c.OpenAI.SystemPrompt = "Você é assessor(a) de comunicação de uma prefeitura. " +
			"Escreva em português do Brasil, com tom institucional, claro e objetivo."
	}
	if c.OpenAI.RequestsPerMinute <= 0 {
		c.OpenAI.RequestsPerMinute = 6
	}

	if c.WhatsApp.ApiVersion == "" {
		c.WhatsApp.ApiVersion = "v24.0"
	}

	// LAI (Lei 12.527/2011): 20 dias corridos, prorrogáveis por mais 10.
	if c.Esic.PrazoDias <= 0 {
		c.Esic.PrazoDias = 20
	}
	if c.Esic.ProrrogacaoDias <= 0 {
		c.Esic.ProrrogacaoDias = 10
	}
	if c.Esic.AlertaDias <= 0 {
		c.Esic.AlertaDias = 5
	}

	if c.Jobs.EsicAlertas == "" {
		c.Jobs.EsicAlertas = "@every 1h"
	}
	if c.Jobs.DemandasAtrasadas == "" {
		c.Jobs.DemandasAtrasadas = "@every 1h"
	}
	if c.Jobs.ComunicadosAgendados == "" {
		c.Jobs.ComunicadosAgendados = "@every 1m"
	}
}

// AIEnabled indica se as sugestões de IA estão configuradas.
func (c Configuration) AIEnabled() bool {
	return strings.TrimSpace(c.OpenAI.ApiKey) != ""
}

// WhatsAppEnabled indica se o canal de WhatsApp pode ser usado.
func (c Configuration) WhatsAppEnabled() bool {
	return c.WhatsApp.Enabled &&
		strings.TrimSpace(c.WhatsApp.AccessToken) != "" &&
		strings.TrimSpace(c.WhatsApp.PhoneNumberID) != ""
}
