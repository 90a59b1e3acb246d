package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/repository/postgres"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/repository/sqlite"
)

// Usage: migrate [postgres|sqlite]. Defaults to PROGRESS_BACKEND.
func main() {
	backend := getEnv("PROGRESS_BACKEND", config.BackendPostgres)
	if len(os.Args) > 1 {
		backend = os.Args[1]
	}

	switch backend {
	case config.BackendSQLite:
		path := getEnv("SQLITE_PATH", "progress.db")
		db, err := sqlite.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to migrate %s: %v\n", path, err)
			os.Exit(1)
		}
		db.Close()
		fmt.Printf("SQLite database %s is up to date\n", path)

	case config.BackendPostgres:
		migratePostgres()

	default:
		fmt.Fprintf(os.Stderr, "Unknown backend %q (want postgres or sqlite)\n", backend)
		os.Exit(2)
	}
}

func migratePostgres() {
	dbCfg := config.DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "candleadmin"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// First, connect to postgres database to create the target database if needed
	adminCfg := dbCfg
	adminCfg.DBName = "postgres"
	postgresDB, err := sql.Open("postgres", adminCfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to postgres database: %v\n", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	var exists bool
	err = postgresDB.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbCfg.DBName,
	).Scan(&exists)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to check database existence: %v\n", err)
		os.Exit(1)
	}

	if !exists {
		fmt.Printf("Database '%s' does not exist. Creating...\n", dbCfg.DBName)
		if _, err := postgresDB.Exec(fmt.Sprintf("CREATE DATABASE %q", dbCfg.DBName)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create database: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Database '%s' created successfully.\n", dbCfg.DBName)
	}

	dsn := dbCfg.DSN()
	if dsnEnv := os.Getenv("DATABASE_URL"); dsnEnv != "" {
		dsn = dsnEnv
	}
	db, err := postgres.Open(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing migrations: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully!")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
