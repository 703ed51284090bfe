// Caminho: internal/services/links/service.go
// Resumo: Motor do ciclo de vida dos links de convite: emissão, resolução, cadastro de
// visitantes com limite de capacidade, revogação e varredura periódica.
// O banco é a fonte da verdade; o cache é só um atalho de leitura.

package linksvc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/cache"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/clock"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/services/notify"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/store"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/token"
)

const (
	DefaultMaxVisitors    = 5
	MinVisitorsPerLink    = 1
	MaxVisitorsPerLink    = 50
	DefaultAccessSchedule = "Qualquer horário"
	MinNameLength         = 3

	DefaultSweepInterval = 5 * time.Minute

	MsgVisitorRegistered = "Cadastro realizado com sucesso!"
	MsgLinkRevoked       = "Link revogado com sucesso"
)

const tracerName = "github.com/dayvidcds/vigiae-remote-concierge/internal/services/links"

// Store é o armazenamento durável usado pelo motor. *store.Store o implementa.
type Store interface {
	CreateLink(ctx context.Context, l domain.InvitationLink) error
	GetLinkByToken(ctx context.Context, token string) (domain.InvitationLink, error)
	GetLinkByID(ctx context.Context, id string) (domain.InvitationLink, error)
	GetLinkForResident(ctx context.Context, id, residentID string) (domain.InvitationLink, error)
	ListLinksByResident(ctx context.Context, residentID string) ([]domain.InvitationLink, error)
	RevokeLink(ctx context.Context, id, residentID string, now time.Time) error
	RegisterVisitor(ctx context.Context, linkID string, now time.Time, v domain.Visitor) error
	ListVisitorsByLink(ctx context.Context, linkID string) ([]domain.Visitor, error)
	ListStaleLinks(ctx context.Context, now time.Time) ([]store.StaleLink, error)
	ExpireLink(ctx context.Context, id string, now time.Time) (bool, error)
	PurgeLinksCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

var _ Store = (*store.Store)(nil)

// Config são os parâmetros do motor, resolvidos uma vez na inicialização.
type Config struct {
	ExpirationHours int
	BaseURL         string
	RetentionDays   int
	// Location define o "hoje" usado na validação de visitorsValidUntil.
	Location *time.Location
}

// Deps agrupa os colaboradores do motor. Campos nil recebem implementações padrão,
// exceto Store.
type Deps struct {
	Store    Store
	Cache    cache.LinkCache
	Clock    clock.Clock
	Tokens   token.Generator
	Notifier notify.Notifier
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Service implementa as operações sobre links de convite.
type Service struct {
	cfg      Config
	store    Store
	cache    cache.LinkCache
	clock    clock.Clock
	tokens   token.Generator
	notifier notify.Notifier
	log      *slog.Logger
	tracer   trace.Tracer
}

// New cria o motor de links.
func New(cfg Config, deps Deps) *Service {
	if cfg.ExpirationHours < 1 {
		cfg.ExpirationHours = 1
	}
	if cfg.RetentionDays < 1 {
		cfg.RetentionDays = 7
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		cache:    deps.Cache,
		clock:    deps.Clock,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		log:      deps.Logger,
		tracer:   deps.Tracer,
	}
	if s.cache == nil {
		s.cache = cache.NewMemory(cache.DefaultMaxEntries, time.Hour)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.tokens == nil {
		s.tokens = token.Random{}
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// ShareableURL monta a URL pública do convite.
func (s *Service) ShareableURL(tok string) string {
	return s.cfg.BaseURL + "/convite/" + tok
}

// cacheGet lê do cache; falhas viram miss.
func (s *Service) cacheGet(ctx context.Context, tok string) (domain.LinkSnapshot, bool) {
	snap, ok, err := s.cache.Get(ctx, tok)
	if err != nil {
		s.log.WarnContext(ctx, "cache get failed", "key", cache.Key(tok), "error", err)
		return domain.LinkSnapshot{}, false
	}
	return snap, ok
}

func (s *Service) cacheSet(ctx context.Context, tok string, snap domain.LinkSnapshot) {
	if err := s.cache.Set(ctx, tok, snap); err != nil {
		s.log.WarnContext(ctx, "cache set failed", "key", cache.Key(tok), "error", err)
	}
}

func (s *Service) cacheDelete(ctx context.Context, tok string) {
	if err := s.cache.Delete(ctx, tok); err != nil {
		s.log.WarnContext(ctx, "cache delete failed", "key", cache.Key(tok), "error", err)
	}
}

func storageErr(err error) error {
	return domain.Wrap(domain.CodeStorage, domain.ErrStorage.Message, err)
}

func invalidInput(msg string) error {
	return domain.NewError(domain.CodeInvalidInput, msg)
}

// endSpan registra o erro, se houver, e fecha o span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.CodeOf(err)))
	}
	span.End()
}
