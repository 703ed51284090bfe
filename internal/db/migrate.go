// Caminho: internal/db/migrate.go
// Resumo: Migrações mínimas para criar as tabelas do portal (invitation_links, visitors).

package db

import "context"

// Timestamps são gravados como epoch em milissegundos (BIGINT), o que mantém o
// mesmo DDL válido em Postgres e SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS invitation_links (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		visitors_valid_until BIGINT NOT NULL,
		access_schedule TEXT NOT NULL,
		max_visitors INTEGER NOT NULL CHECK (max_visitors BETWEEN 1 AND 50),
		registered_visitors INTEGER NOT NULL DEFAULT 0 CHECK (registered_visitors <= max_visitors),
		expires_at BIGINT NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_invitation_links_resident_id ON invitation_links(resident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_invitation_links_revoked_expires ON invitation_links(revoked, expires_at);`,
	`CREATE INDEX IF NOT EXISTS idx_invitation_links_created_at ON invitation_links(created_at);`,
	`CREATE TABLE IF NOT EXISTS visitors (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL,
		name TEXT NOT NULL,
		document TEXT NOT NULL,
		phone TEXT NULL,
		valid_until BIGINT NOT NULL,
		access_schedule TEXT NOT NULL,
		registered_via_link BOOLEAN NOT NULL DEFAULT FALSE,
		invitation_link_id TEXT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_resident_id ON visitors(resident_id);`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_document ON visitors(document);`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_invitation_link_id ON visitors(invitation_link_id);`,
}

// Migrate aplica o schema necessário; é idempotente.
func Migrate(ctx context.Context, d *DB) error {
	for _, s := range schema {
		if _, err := d.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
