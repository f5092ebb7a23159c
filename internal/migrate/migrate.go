package migrate

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var migrations embed.FS

// Up applies all pending migrations. Goose wants a *sql.DB, so we
// bridge from the pgx pool; closing the bridge does not close the pool.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(migrations)

	sqldb := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqldb.Close() }()

	if err := goose.UpContext(ctx, sqldb, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
