package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/maxmaster/portal-server-go/internal/features/company"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), quietLogger(), false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = Close(db, quietLogger()) })

	require.NoError(t, Migrate(db, quietLogger()))
	assert.True(t, db.Migrator().HasTable(&company.Company{}))
	require.NoError(t, Ping(context.Background(), db))

	_, err = company.Create(db, company.CreateInput{Name: "Acme", TaxID: "1234563218"})
	require.NoError(t, err)

	// Bypass the store pre-check to reach the unique index.
	dup := company.Company{Name: "Dup", TaxID: "1234563218", Slug: "dup", Status: "trial"}
	err = db.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestExtractOperationAndTable(t *testing.T) {
	tests := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT * FROM "companies" WHERE id = $1`, "SELECT", "companies"},
		{`INSERT INTO "companies" ("id","name") VALUES ($1,$2)`, "INSERT", "companies"},
		{`UPDATE "companies" SET "name"=$1`, "UPDATE", "companies"},
		{`delete from companies where id = 1`, "DELETE", "companies"},
		{`SELECT 1`, "SELECT", "unknown"},
		{``, "UNKNOWN", "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.operation, extractOperation(tt.sql), tt.sql)
		assert.Equal(t, tt.table, extractTableName(tt.sql), tt.sql)
	}
}

func TestBackoffGrows(t *testing.T) {
	first := backoff(100*time.Millisecond, 1)
	third := backoff(100*time.Millisecond, 3)

	assert.GreaterOrEqual(t, first, 100*time.Millisecond)
	assert.LessOrEqual(t, first, 125*time.Millisecond)
	assert.GreaterOrEqual(t, third, 400*time.Millisecond)
	assert.LessOrEqual(t, third, 500*time.Millisecond)
}

func TestShouldReconnect(t *testing.T) {
	p := NewReconnectPlugin(quietLogger())

	assert.False(t, p.shouldReconnect(nil))
	assert.False(t, p.shouldReconnect(errors.New("syntax error at or near")))
	assert.True(t, p.shouldReconnect(errors.New("driver: bad connection")))
	assert.True(t, p.shouldReconnect(fmt.Errorf("query: %w", sql.ErrConnDone)))
}
