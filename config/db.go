package config

import (
	"fmt"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB открывает соединение с базой: postgres при заданном DATABASE_URL,
// иначе локальный sqlite-файл (как в первой версии приложения).
func InitDB() error {
	var (
		db  *gorm.DB
		err error
	)
	if App.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(App.DatabaseURL), &gorm.Config{TranslateError: true})
	} else {
		db, err = gorm.Open(sqlite.Open(filepath.Join(App.DataDir, "app.db")), &gorm.Config{TranslateError: true})
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	DB = db
	return nil
}
