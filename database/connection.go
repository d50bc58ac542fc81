package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/example/phoneproof/internal/models"
)

var DB *gorm.DB

// Connect opens the PostgreSQL connection and runs migrations. DATABASE_URL
// wins when set; otherwise the discrete DB_* variables are used, with
// INSTANCE_CONNECTION_NAME switching to the Cloud SQL unix socket.
func Connect() error {
	dsn := buildDSN()

	if err := ensureDatabase(dsn); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.AutoMigrate(&models.User{}, &models.PhoneVerification{}); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	DB = conn
	log.Println("✅ Database connected successfully!")
	return nil
}

func buildDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		dbUser = "postgres"
	}
	dbPass := os.Getenv("DB_PASS")
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "phoneproof"
	}
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	// For Cloud Run with Cloud SQL
	if instanceConnectionName := os.Getenv("INSTANCE_CONNECTION_NAME"); instanceConnectionName != "" {
		log.Printf("Connecting to Cloud SQL via socket: %s", instanceConnectionName)
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			instanceConnectionName, dbUser, dbPass, dbName)
	}

	log.Println("Connecting to PostgreSQL over TCP")
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		dbHost, dbUser, dbPass, dbName, dbPort)
}

// ensureDatabase creates the target database when it doesn't exist yet. Only
// URL-style DSNs carry enough structure to attempt this.
func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
