package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

var connectionErrors = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"connection timed out",
	"eof",
	"bad connection",
	"invalid connection",
	"closed network connection",
	"connection lost",
	"server closed",
}

// ReconnectPlugin pings the pool before each statement and waits for the
// database to come back when the connection has dropped.
type ReconnectPlugin struct {
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	reconnects atomic.Int64
}

// NewReconnectPlugin creates a new reconnect plugin.
func NewReconnectPlugin(logger *slog.Logger) *ReconnectPlugin {
	return &ReconnectPlugin{
		logger:     logger,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Name returns the plugin name.
func (p *ReconnectPlugin) Name() string {
	return "reconnect_plugin"
}

// Initialize registers the health check ahead of every gorm operation.
func (p *ReconnectPlugin) Initialize(db *gorm.DB) error {
	callbacks := db.Callback()
	registrations := []struct {
		name     string
		register func() error
	}{
		{"query", func() error { return callbacks.Query().Before("gorm:query").Register("reconnect:before_query", p.beforeStatement) }},
		{"create", func() error { return callbacks.Create().Before("gorm:create").Register("reconnect:before_create", p.beforeStatement) }},
		{"update", func() error { return callbacks.Update().Before("gorm:update").Register("reconnect:before_update", p.beforeStatement) }},
		{"delete", func() error { return callbacks.Delete().Before("gorm:delete").Register("reconnect:before_delete", p.beforeStatement) }},
		{"row", func() error { return callbacks.Row().Before("gorm:row").Register("reconnect:before_row", p.beforeStatement) }},
		{"raw", func() error { return callbacks.Raw().Before("gorm:raw").Register("reconnect:before_raw", p.beforeStatement) }},
	}

	for _, r := range registrations {
		if err := r.register(); err != nil {
			return err
		}
	}
	return nil
}

func (p *ReconnectPlugin) beforeStatement(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	err = sqlDB.PingContext(ctx)
	if !p.shouldReconnect(err) {
		return
	}

	p.logger.Warn("database connection lost, attempting to reconnect", slog.String("error", err.Error()))
	if !p.attemptReconnect(ctx, sqlDB) {
		p.logger.Error("database reconnection failed after retries")
	}
}

func (p *ReconnectPlugin) shouldReconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *ReconnectPlugin) attemptReconnect(ctx context.Context, sqlDB *sql.DB) bool {
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}

		if err := sqlDB.PingContext(ctx); err == nil {
			total := p.reconnects.Add(1)
			p.logger.Info("database reconnection successful",
				slog.Int("attempt", attempt),
				slog.Int64("total_reconnects", total),
			)
			return true
		}

		p.logger.Warn("reconnection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", p.maxRetries),
		)
	}
	return false
}
