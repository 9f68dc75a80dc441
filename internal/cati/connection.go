// Package cati reads dial history from the Blaise CATI MySQL database.
package cati

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/config"
)

// Connection wraps the connection pool to the CATI database
type Connection struct {
	DB *sql.DB
}

// NewConnection opens and pings the CATI database
func NewConnection(ctx context.Context, cfg config.MySQLConfig) (*Connection, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	return &Connection{DB: db}, nil
}

// Close closes the connection pool
func (c *Connection) Close() error {
	return c.DB.Close()
}
