package main

import (
	"errors"
	"fmt"
	"strings"

	dbpkg "secom/db"
	"secom/models"
	"secom/tools"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errSenhaFraca = errors.New("senha fraca: mínimo de 8 caracteres, com letras e números")

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Cria/atualiza as tabelas e sai",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()

			database, err := dbpkg.Connect(conf)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := dbpkg.Migrate(database); err != nil {
				return err
			}
			logrus.Info("migrate: schema atualizado")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Cria (ou promove) um administrador",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()
			tools.BcryptCost = conf.Security.BcryptCost

			database, err := dbpkg.Connect(conf)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := dbpkg.Migrate(database); err != nil {
				return err
			}

			user, created, err := seedAdmin(database, email, name, password)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email, "novo": created}).Info("seed-admin: administrador pronto")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email do administrador")
	cmd.Flags().StringVar(&name, "name", "Administrador", "nome")
	cmd.Flags().StringVar(&password, "password", "", "senha (obrigatória para um usuário novo)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// seedAdmin cria o admin, ou promove e reativa um usuário existente com o mesmo email.
func seedAdmin(database *gorm.DB, email, name, password string) (models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !tools.ValidateEmail(email) {
		return models.User{}, false, fmt.Errorf("email inválido: %q", email)
	}

	var user models.User
	err := database.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"role":   models.USER_ROLE_ADMIN,
			"status": models.USER_STATUS_AVAILABLE,
		}
		if password != "" {
			if tools.CheckPassword(password) != "" {
				return user, false, errSenhaFraca
			}
			hash, err := tools.HashPassword(password)
			if err != nil {
				return user, false, err
			}
			updates["senha"] = hash
		}
		if err := database.Model(&user).Updates(updates).Error; err != nil {
			return user, false, err
		}
		return user, false, nil
	case !gorm.IsRecordNotFoundError(err):
		return user, false, err
	}

	if tools.CheckPassword(password) != "" {
		return user, false, errSenhaFraca
	}
	hash, err := tools.HashPassword(password)
	if err != nil {
		return user, false, err
	}
	user = models.User{
		Nome:   strings.TrimSpace(name),
		Email:  email,
		Senha:  hash,
		Role:   models.USER_ROLE_ADMIN,
		Status: models.USER_STATUS_AVAILABLE,
	}
	if err := database.Create(&user).Error; err != nil {
		return user, false, err
	}
	return user, true, nil
}
