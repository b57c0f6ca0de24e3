package db

import (
	"fmt"
	"os"
	"path/filepath"

	"secom/config"
	"secom/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"
)

// Connect abre conexão com o banco (sqlite3 por padrão).
// Com conf.AutoMigrate (ou AUTOMIGRATE=1) o schema é migrado na subida.
func Connect(conf config.Configuration) (*gorm.DB, error) {
	var (
		database *gorm.DB
		err      error
	)

	switch conf.Database {
	case "postgres", "postgresql":
		logrus.WithField("host", conf.DbHost).Info("db: utilizando conexão com o postgresql")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass + " sslmode=disable"
		database, err = gorm.Open("postgres", path)
	default:
		logrus.WithField("path", conf.SqlitePath).Info("db: utilizando conexão com o sqlite3")
		if dir := filepath.Dir(conf.SqlitePath); dir != "" && dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", mkErr)
			}
		}
		database, err = gorm.Open("sqlite3", conf.SqlitePath+"?_foreign_keys=1&_busy_timeout=5000")
		if err == nil {
			// sqlite não lida bem com escrita concorrente
			database.DB().SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", conf.Database, err)
	}

	database.LogMode(conf.LogLevel == "debug")
	database.SetLogger(gormLogger{})

	if conf.AutoMigrate || os.Getenv("AUTOMIGRATE") == "1" {
		if err := Migrate(database); err != nil {
			return nil, err
		}
	}
	return database, nil
}

// Models lista todas as tabelas do sistema.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Area{},
		&models.Invite{},
		&models.RefreshToken{},
		&models.PasswordReset{},
		&models.Demanda{},
		&models.NotaOficial{},
		&models.EsicProcesso{},
		&models.EsicJustificativa{},
		&models.Comunicado{},
		&models.ComunicadoLeitura{},
		&models.Notificacao{},
		&models.HistoricoStatus{},
		&models.DashboardLayout{},
	}
}

func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...).Error; err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

type gormLogger struct{}

func (gormLogger) Print(v ...interface{}) {
	logrus.WithField("component", "gorm").Debug(v...)
}
