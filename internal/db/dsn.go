// Caminho: internal/db/dsn.go
// Resumo: Utilidades para interpretar DATABASE_URL e produzir DSN apropriado para drivers suportados.

package db

import (
	"fmt"
	"net/url"
	"strings"
)

// Driver representa os drivers suportados.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

// DefaultSQLitePath é o arquivo usado quando DATABASE_URL não é informado.
const DefaultSQLitePath = "portal_morador.db"

// ParseDSN interpreta DATABASE_URL e retorna o driver e o DSN compatível com database/sql.
// Suporta esquemas: sqlite:///path.db e postgres://...
func ParseDSN(databaseURL string) (Driver, string) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return DriverSQLite, sqliteDSN(DefaultSQLitePath)
	}

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		// pgx aceita DSN URL nativamente
		return DriverPostgres, databaseURL
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// Formatos aceitos: sqlite:///absolute/path.db ou sqlite://relative/path.db
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(databaseURL, "sqlite://"))
	}

	// Tenta parsear como URL genericamente para decidir
	if u, err := url.Parse(databaseURL); err == nil && u.Scheme != "" && u.Scheme != "file" {
		switch u.Scheme {
		case "postgres", "postgresql":
			return DriverPostgres, databaseURL
		}
	}

	// Fallback: tratar como caminho de arquivo SQLite
	return DriverSQLite, sqliteDSN(strings.TrimPrefix(databaseURL, "file:"))
}

// sqliteDSN monta o DSN do modernc sqlite com pragmas de concorrência.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}
