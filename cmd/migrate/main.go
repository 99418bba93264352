package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vibtrix/vibtrix-api/internal/config"
)

// Управление схемой БД вне основного сервиса:
//
//	migrate up
//	migrate down -steps 1
//	migrate force -version 3
//	migrate version
func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back (down)")
	version := flag.Int("version", -1, "schema version to force (force)")
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH)")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [-steps N] [-version V] up|down|force|version")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf(".env файл не найден: %v", err)
	}
	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal(err)
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-*steps)
	case "force":
		if *version < 0 {
			log.Fatal("force requires -version")
		}
		// Сбрасывает dirty-состояние после неудачной миграции
		err = m.Force(*version)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatal(verr)
		}
		fmt.Printf("version %d, dirty %t\n", v, dirty)
		return
	default:
		log.Fatalf("unknown command %q", command)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate %s failed: %v", command, err)
	}
	fmt.Printf("migrate %s: done\n", command)
}
