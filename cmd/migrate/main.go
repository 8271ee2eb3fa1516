package main

import (
	"embed"
	"errors"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"

	"github.com/wingopay/backend/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		log.Fatalf("[MIGRATE] Failed to load migrations: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, database.DSN())
	if err != nil {
		log.Fatalf("[MIGRATE] Failed to initialize: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("[MIGRATE] Migration failed: %v", err)
	}

	log.Println("[MIGRATE] Migrations applied")
}
