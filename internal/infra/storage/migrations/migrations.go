// Package migrations embeds the store schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

func init() {
	goose.SetLogger(slogLogger{})
}

// slogLogger routes goose output through the default slog logger, resolved
// per call so it follows handlers installed after init.
type slogLogger struct{}

func (slogLogger) Printf(format string, v ...any) {
	logger().Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (slogLogger) Fatalf(format string, v ...any) {
	logger().Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func logger() *slog.Logger {
	return slog.Default().With("component", "migrations")
}

// Up applies all pending migrations. dialect is a goose dialect name
// ("postgres", "sqlite3").
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}
