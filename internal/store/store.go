// Caminho: internal/store/store.go
// Resumo: Armazenamento durável (fonte da verdade) de links de convite e visitantes sobre database/sql.
// A checagem de capacidade é um UPDATE condicional, atômico no próprio banco.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/db"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
)

// Erros do armazenamento; o motor de links os traduz em erros de domínio.
var (
	ErrNotFound        = errors.New("store: not found")
	ErrDuplicate       = errors.New("store: duplicate key")
	ErrSlotUnavailable = errors.New("store: no registration slot available")
)

const linkColumns = `id, resident_id, token, visitors_valid_until, access_schedule, max_visitors,
	registered_visitors, expires_at, revoked, created_at, updated_at`

const visitorColumns = `id, resident_id, name, document, phone, valid_until, access_schedule,
	registered_via_link, invitation_link_id, active, created_at`

// toMillis normaliza timestamps em milissegundos UTC para gravação.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

// fromMillis restaura o timestamp em UTC.
func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Store persiste links e visitantes.
type Store struct {
	db *db.DB
}

// New cria o Store sobre uma conexão já migrada.
func New(d *db.DB) *Store { return &Store{db: d} }

// StaleLink identifica um link vencido ainda não revogado.
type StaleLink struct {
	ID    string
	Token string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (domain.InvitationLink, error) {
	var (
		l                                         domain.InvitationLink
		validUntil, expiresAt, createdAt, updated int64
	)
	if err := row.Scan(&l.ID, &l.ResidentID, &l.Token, &validUntil, &l.AccessSchedule, &l.MaxVisitors,
		&l.RegisteredVisitors, &expiresAt, &l.Revoked, &createdAt, &updated); err != nil {
		return domain.InvitationLink{}, err
	}
	l.VisitorsValidUntil = fromMillis(validUntil)
	l.ExpiresAt = fromMillis(expiresAt)
	l.CreatedAt = fromMillis(createdAt)
	l.UpdatedAt = fromMillis(updated)
	return l, nil
}

func scanVisitor(row rowScanner) (domain.Visitor, error) {
	var (
		v                     domain.Visitor
		phone, linkID         sql.NullString
		validUntil, createdAt int64
	)
	if err := row.Scan(&v.ID, &v.ResidentID, &v.Name, &v.Document, &phone, &validUntil, &v.AccessSchedule,
		&v.RegisteredViaLink, &linkID, &v.Active, &createdAt); err != nil {
		return domain.Visitor{}, err
	}
	v.Phone = phone.String
	v.InvitationLinkID = linkID.String
	v.ValidUntil = fromMillis(validUntil)
	v.CreatedAt = fromMillis(createdAt)
	return v, nil
}

// CreateLink insere um novo link. Token ou id repetido retorna ErrDuplicate, nunca sobrescreve.
func (s *Store) CreateLink(ctx context.Context, l domain.InvitationLink) error {
	q := s.db.Rebind(`INSERT INTO invitation_links (` + linkColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	_, err := s.db.ExecContext(ctx, q, l.ID, l.ResidentID, l.Token, toMillis(l.VisitorsValidUntil), l.AccessSchedule,
		l.MaxVisitors, l.RegisteredVisitors, toMillis(l.ExpiresAt), l.Revoked, toMillis(l.CreatedAt), toMillis(l.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert link: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *Store) getLink(ctx context.Context, where string, args ...any) (domain.InvitationLink, error) {
	q := s.db.Rebind(`SELECT ` + linkColumns + ` FROM invitation_links WHERE ` + where)
	l, err := scanLink(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InvitationLink{}, ErrNotFound
	}
	if err != nil {
		return domain.InvitationLink{}, fmt.Errorf("select link: %w", err)
	}
	return l, nil
}

// GetLinkByToken busca o link pelo token público.
func (s *Store) GetLinkByToken(ctx context.Context, token string) (domain.InvitationLink, error) {
	return s.getLink(ctx, `token = ?`, token)
}

// GetLinkByID busca o link pelo id.
func (s *Store) GetLinkByID(ctx context.Context, id string) (domain.InvitationLink, error) {
	return s.getLink(ctx, `id = ?`, id)
}

// GetLinkForResident busca o link pelo id restrito ao morador dono; links de outros
// moradores são indistinguíveis de inexistentes.
func (s *Store) GetLinkForResident(ctx context.Context, id, residentID string) (domain.InvitationLink, error) {
	return s.getLink(ctx, `id = ? AND resident_id = ?`, id, residentID)
}

// ListLinksByResident lista os links do morador, do mais recente para o mais antigo.
func (s *Store) ListLinksByResident(ctx context.Context, residentID string) ([]domain.InvitationLink, error) {
	q := s.db.Rebind(`SELECT ` + linkColumns + ` FROM invitation_links WHERE resident_id = ? ORDER BY created_at DESC, id DESC`)
	rows, err := s.db.QueryContext(ctx, q, residentID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := make([]domain.InvitationLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// RevokeLink marca o link do morador como revogado. Revogar de novo não altera nada.
func (s *Store) RevokeLink(ctx context.Context, id, residentID string, now time.Time) error {
	q := s.db.Rebind(`UPDATE invitation_links SET revoked = TRUE, updated_at = ? WHERE id = ? AND resident_id = ? AND revoked = FALSE`)
	if _, err := s.db.ExecContext(ctx, q, toMillis(now), id, residentID); err != nil {
		return fmt.Errorf("revoke link: %w", err)
	}
	return nil
}

// RegisterVisitor ocupa uma vaga do link e grava o visitante na mesma transação.
// O UPDATE só se aplica se o link ainda estiver utilizável em now; caso contrário
// retorna ErrSlotUnavailable e nada é gravado.
func (s *Store) RegisterVisitor(ctx context.Context, linkID string, now time.Time, v domain.Visitor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	claim := s.db.Rebind(`UPDATE invitation_links
		SET registered_visitors = registered_visitors + 1, updated_at = ?
		WHERE id = ? AND revoked = FALSE AND expires_at > ? AND registered_visitors < max_visitors`)
	res, err := tx.ExecContext(ctx, claim, toMillis(now), linkID, toMillis(now))
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if n == 0 {
		return ErrSlotUnavailable
	}

	var phone any
	if strings.TrimSpace(v.Phone) != "" {
		phone = v.Phone
	}
	ins := s.db.Rebind(`INSERT INTO visitors (` + visitorColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if _, err := tx.ExecContext(ctx, ins, v.ID, v.ResidentID, v.Name, v.Document, phone, toMillis(v.ValidUntil),
		v.AccessSchedule, v.RegisteredViaLink, v.InvitationLinkID, v.Active, toMillis(v.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert visitor: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert visitor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

// ListVisitorsByLink lista os visitantes cadastrados por um link, na ordem de cadastro.
func (s *Store) ListVisitorsByLink(ctx context.Context, linkID string) ([]domain.Visitor, error) {
	q := s.db.Rebind(`SELECT ` + visitorColumns + ` FROM visitors WHERE invitation_link_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, q, linkID)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	defer rows.Close()

	visitors := make([]domain.Visitor, 0)
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, nil
}

// ListStaleLinks retorna links com expires_at < now ainda não revogados.
func (s *Store) ListStaleLinks(ctx context.Context, now time.Time) ([]StaleLink, error) {
	q := s.db.Rebind(`SELECT id, token FROM invitation_links WHERE revoked = FALSE AND expires_at < ? ORDER BY expires_at ASC`)
	rows, err := s.db.QueryContext(ctx, q, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list stale links: %w", err)
	}
	defer rows.Close()

	var stale []StaleLink
	for rows.Next() {
		var sl StaleLink
		if err := rows.Scan(&sl.ID, &sl.Token); err != nil {
			return nil, fmt.Errorf("scan stale link: %w", err)
		}
		stale = append(stale, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stale links: %w", err)
	}
	return stale, nil
}

// ExpireLink revoga um link vencido. Retorna false se ele já estava revogado
// (outra execução da varredura, ou o morador, chegou antes).
func (s *Store) ExpireLink(ctx context.Context, id string, now time.Time) (bool, error) {
	q := s.db.Rebind(`UPDATE invitation_links SET revoked = TRUE, updated_at = ? WHERE id = ? AND revoked = FALSE`)
	res, err := s.db.ExecContext(ctx, q, toMillis(now), id)
	if err != nil {
		return false, fmt.Errorf("expire link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire link: %w", err)
	}
	return n > 0, nil
}

// PurgeLinksCreatedBefore apaga definitivamente links criados antes de cutoff,
// revogados ou não, e devolve os tokens removidos.
func (s *Store) PurgeLinksCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	q := s.db.Rebind(`DELETE FROM invitation_links WHERE created_at < ? RETURNING token`)
	rows, err := s.db.QueryContext(ctx, q, toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("purge links: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan purged token: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purge links: %w", err)
	}
	return tokens, nil
}

// isUniqueViolation detecta violação de UNIQUE/PRIMARY KEY em Postgres e SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			(strings.Contains(sqliteErr.Error(), "UNIQUE") || strings.Contains(sqliteErr.Error(), "PRIMARY KEY"))
	}
	return false
}
