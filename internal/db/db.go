// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unclebandit/coldmail-backend/pkg/logger"
)

// Settings are the connection parts; URL wins when set.
type Settings struct {
	URL      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

func (s Settings) DSN() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		s.User, s.Password, s.Host, s.Port, s.Name,
	)
}

// Open connects and pings the database.
func Open(ctx context.Context, s Settings) (*sql.DB, error) {
	logger.Info("connecting to database", zap.String("host", s.Host), zap.String("name", s.Name))

	conn, err := sql.Open("postgres", s.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("✅ Connected to database")
	return conn, nil
}
