package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLBackend stores every document as one row of a `documents` table.
// Useful when the bot runs somewhere without a persistent disk.
type MySQLBackend struct {
	DB *sql.DB
}

// OpenMySQL connects to MySQL, verifies the connection and ensures the
// documents table exists.
func OpenMySQL(user, pass, host, port, name string) (*MySQLBackend, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			name       VARCHAR(191) PRIMARY KEY,
			body       MEDIUMBLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`); err != nil {
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &MySQLBackend{DB: db}, nil
}

func (m *MySQLBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := m.DB.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE name=? LIMIT 1", name).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return body, nil
}

func (m *MySQLBackend) Save(ctx context.Context, name string, data []byte) error {
	_, err := m.DB.ExecContext(ctx,
		"INSERT INTO documents (name, body) VALUES (?,?) ON DUPLICATE KEY UPDATE body=VALUES(body)",
		name, data)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
