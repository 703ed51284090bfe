// Caminho: internal/db/db.go
// Resumo: Conexão com o banco de dados (Postgres via pgx ou SQLite puro Go) e helpers de dialeto.

package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registra driver pgx
	_ "modernc.org/sqlite"             // registra driver sqlite puro Go
)

// DB agrega o *sql.DB e o driver em uso, para que consultas possam ser reescritas
// no dialeto correto.
type DB struct {
	*sql.DB
	Driver Driver
}

// Connect estabelece a conexão com o banco de dados a partir de DATABASE_URL.
// Suporta postgres (pgx) e sqlite (modernc sqlite).
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn := ParseDSN(databaseURL)
	sqldb, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite serializa escritas; uma única conexão evita SQLITE_BUSY entre conexões do pool.
		sqldb.SetMaxOpenConns(1)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: sqldb, Driver: driver}, nil
}

// IsPostgres reports whether the active driver is Postgres.
func (d *DB) IsPostgres() bool { return d.Driver == DriverPostgres }

// Rebind converts '?' placeholders to the driver-specific format.
func (d *DB) Rebind(query string) string { return Rebind(d.Driver, query) }
