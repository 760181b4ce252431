// Package relational implements the relational backend over
// database/sql. The driver is chosen from the DSN: postgres:// DSNs go
// through the pgx stdlib driver, anything else is treated as a SQLite
// file path. Schema management is an idempotent goose migration run at
// connect time.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/datavault/internal/dbx"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/migrations"
)

const name = "relational"

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

// Backend persists users, items, and sessions in users / data_items /
// sessions tables. Unlike the other backends it cascades item deletion
// when a user row is removed; that behavior is relational-specific and
// not part of the shared contract.
type Backend struct {
	db         *sql.DB
	driver     string
	sessionTTL time.Duration
}

// Open connects to the database described by dsn, runs migrations, and
// seeds the store when the users table is empty. sessionTTL bounds the
// lifetime of issued sessions.
func Open(ctx context.Context, dsn string, sessionTTL time.Duration) (*Backend, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("relational DSN is required")
	}

	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	} else if !strings.Contains(dsn, "_pragma=") {
		// cascade deletes require foreign keys, which SQLite keeps
		// off by default
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	b := &Backend{db: db, driver: driver, sessionTTL: sessionTTL}

	if err := b.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	if err := b.seed(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed error: %w", err)
	}

	return b, nil
}

func (b *Backend) Name() string { return name }

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// HealthCheck pings the database. It never returns an error.
func (b *Backend) HealthCheck(ctx context.Context) bool {
	if b == nil || b.db == nil {
		return false
	}
	return b.db.PingContext(ctx) == nil
}

func (b *Backend) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	dialect := "sqlite3"
	if b.driver == driverPostgres {
		dialect = "pgx"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, b.db, ".")
}

// seed inserts the test user and starter items when the users table is
// empty, inside one transaction.
func (b *Backend) seed(ctx context.Context) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n > 0 {
			return nil
		}

		user, items := backend.Seed(time.Now().UTC())

		query := fmt.Sprintf(
			`INSERT INTO users (id, email, password, created_at) VALUES (%s, %s, %s, %s)`,
			b.ph(1), b.ph(2), b.ph(3), b.ph(4))
		if _, err := tx.ExecContext(ctx, query, user.ID, user.Email, user.Password, user.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		for _, item := range items {
			query := fmt.Sprintf(
				`INSERT INTO data_items (id, name, description, status, category, quantity, user_id, created_at, updated_at)
				 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
				b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7), b.ph(8), b.ph(9))
			if _, err := tx.ExecContext(ctx, query,
				item.ID, item.Name, item.Description, item.Status, item.Category,
				item.Quantity, item.UserID, item.CreatedAt, item.UpdatedAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

// ph returns the positional placeholder for argument n in the dialect
// of the active driver ($n for PostgreSQL, ? for SQLite).
func (b *Backend) ph(n int) string {
	if b.driver == driverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
