package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const dbKey = "db"

// SetDBtoContext injeta a conexão em cada request.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbKey, database)
		c.Next()
	}
}

func DBInstance(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	database, _ := v.(*gorm.DB)
	return database
}

// Transaction roda fn dentro de uma transação: erro (ou panic) faz rollback.
func Transaction(database *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := database.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
