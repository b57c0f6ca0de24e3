package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"secom/config"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	// .env é opcional (em produção as variáveis vêm do ambiente)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "secom",
		Short:         "API da Secretaria de Comunicação (demandas, notas oficiais, e-SIC e comunicados)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SECOM_CONFIG"), "arquivo de configuração (json ou yaml)")

	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd())

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("secom: falha")
		os.Exit(1)
	}
}

// loadConfig carrega a configuração e prepara o logrus (stdout + arquivo).
func loadConfig() (config.Configuration, io.Closer, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return conf, nil, err
	}

	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := os.MkdirAll(filepath.Dir(conf.LogPath), 0o755); err != nil {
		return conf, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(conf.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return conf, nil, fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, f))
	return conf, f, nil
}
