// Package mariadb stores profiles and attendance in MariaDB. Embeddings are
// kept as JSON in a MEDIUMBLOB column and ranked in memory.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool. The DSN must set parseTime=true.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		employee_id   VARCHAR(64)  NOT NULL UNIQUE,
		department    VARCHAR(255) NOT NULL,
		embedding     MEDIUMBLOB   NULL,
		model         VARCHAR(64)  NOT NULL DEFAULT '',
		registered_at DATETIME(6)  NOT NULL,
		INDEX idx_profiles_registered_at (registered_at)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		profile_id  VARCHAR(64)  NULL,
		name        VARCHAR(255) NOT NULL,
		employee_id VARCHAR(64)  NOT NULL DEFAULT '',
		department  VARCHAR(255) NOT NULL DEFAULT '',
		confidence  DOUBLE       NOT NULL,
		status      VARCHAR(16)  NOT NULL,
		recorded_at DATETIME(6)  NOT NULL,
		INDEX idx_attendance_recorded_at (recorded_at)
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Initialize connects, creates the schema and registers MariaDB as the
// storage backend.
func Initialize(ctx context.Context, dsn string, useHNSW bool) (*Pool, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	var profiles database.ProfileWriter = NewProfileRepository(pool)
	if useHNSW {
		idx, err := database.NewProfileIndex(ctx, profiles)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("building profile index: %w", err)
		}
		database.RegisterIndexRebuilder(idx)
		profiles = idx
	}
	attendance := NewAttendanceRepository(pool)

	database.RegisterBackend("mariadb",
		func() database.ProfileWriter { return profiles },
		func() database.AttendanceWriter { return attendance },
	)
	return pool, nil
}
