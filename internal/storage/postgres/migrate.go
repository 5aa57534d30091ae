package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/azhengyongqin/transcribe-hub/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate 执行内嵌的 goose 迁移
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// gooseLogger 把 goose 日志转到 zerolog
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) { logger.L.Info().Msgf(format, v...) }
func (gooseLogger) Fatalf(format string, v ...interface{}) { logger.L.Fatal().Msgf(format, v...) }
