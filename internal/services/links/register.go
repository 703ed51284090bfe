package linksvc

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/document"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/store"
)

// VisitorInput são os dados preenchidos pelo visitante.
type VisitorInput struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone,omitempty"`
}

// VisitorSummary é o resumo devolvido ao visitante após o cadastro.
type VisitorSummary struct {
	Name           string    `json:"name"`
	ValidUntil     time.Time `json:"validUntil"`
	AccessSchedule string    `json:"accessSchedule"`
}

// RegisteredVisitor é a resposta de um cadastro bem-sucedido.
type RegisteredVisitor struct {
	Message string         `json:"message"`
	Visitor VisitorSummary `json:"visitor"`
}

// RegisterVisitor cadastra um visitante pelo link. A vaga é ocupada por um UPDATE
// condicional na mesma transação que grava o visitante, então o limite vale mesmo
// com várias instâncias do serviço.
func (s *Service) RegisterVisitor(ctx context.Context, tok string, in VisitorInput) (out RegisteredVisitor, err error) {
	ctx, span := s.tracer.Start(ctx, "links.RegisterVisitor")
	defer func() { endSpan(span, err) }()

	snap, err := s.Resolve(ctx, tok)
	if err != nil {
		return RegisteredVisitor{}, err
	}
	span.SetAttributes(attribute.String("link.id", snap.ID))

	name := norm.NFC.String(strings.TrimSpace(in.Name))
	if utf8.RuneCountInString(name) < MinNameLength {
		return RegisteredVisitor{}, invalidInput("Nome deve ter no mínimo 3 caracteres")
	}
	if !document.ValidCPF(in.Document) {
		return RegisteredVisitor{}, domain.ErrInvalidDocument
	}

	now := s.clock.Now()
	visitor := domain.Visitor{
		ID:                uuid.NewString(),
		ResidentID:        snap.ResidentID,
		Name:              name,
		Document:          document.Normalize(in.Document),
		Phone:             strings.TrimSpace(in.Phone),
		ValidUntil:        snap.VisitorsValidUntil,
		AccessSchedule:    snap.AccessSchedule,
		RegisteredViaLink: true,
		InvitationLinkID:  snap.ID,
		Active:            true,
		CreatedAt:         now,
	}

	err = s.store.RegisterVisitor(ctx, snap.ID, now, visitor)
	switch {
	case errors.Is(err, store.ErrSlotUnavailable):
		return RegisteredVisitor{}, s.explainUnavailable(ctx, snap.ID, strings.TrimSpace(tok), now)
	case errors.Is(err, store.ErrDuplicate):
		return RegisteredVisitor{}, domain.Wrap(domain.CodeConflict, domain.ErrConflict.Message, err)
	case err != nil:
		return RegisteredVisitor{}, storageErr(err)
	}

	s.refreshCache(ctx, snap.ID, strings.TrimSpace(tok))
	s.log.InfoContext(ctx, "visitor registered via link", "link_id", snap.ID, "visitor_id", visitor.ID)

	evt := domain.VisitorRegistered{
		ResidentID:       visitor.ResidentID,
		VisitorID:        visitor.ID,
		VisitorName:      visitor.Name,
		VisitorDocument:  visitor.Document,
		InvitationLinkID: visitor.InvitationLinkID,
		ValidUntil:       visitor.ValidUntil,
		AccessSchedule:   visitor.AccessSchedule,
		RegisteredAt:     now,
	}
	if err := s.notifier.VisitorRegistered(ctx, evt); err != nil {
		s.log.WarnContext(ctx, "visitor notification failed", "visitor_id", visitor.ID, "error", err)
	}

	return RegisteredVisitor{
		Message: MsgVisitorRegistered,
		Visitor: VisitorSummary{
			Name:           visitor.Name,
			ValidUntil:     visitor.ValidUntil,
			AccessSchedule: visitor.AccessSchedule,
		},
	}, nil
}

// explainUnavailable relê o link depois de um UPDATE sem efeito para dizer ao
// visitante o motivo real, e corrige o cache que estava desatualizado.
func (s *Service) explainUnavailable(ctx context.Context, linkID, tok string, now time.Time) error {
	link, err := s.store.GetLinkByID(ctx, linkID)
	if errors.Is(err, store.ErrNotFound) {
		s.cacheDelete(ctx, tok)
		return domain.ErrNotFound
	}
	if err != nil {
		return storageErr(err)
	}
	s.cacheSet(ctx, tok, link.Snapshot())
	if err := usable(link.Snapshot(), now); err != nil {
		return err
	}
	return domain.ErrCapacityExceeded
}

// refreshCache regrava o snapshot a partir do banco; se a leitura falhar a entrada é
// removida para não servir contador antigo.
func (s *Service) refreshCache(ctx context.Context, linkID, tok string) {
	link, err := s.store.GetLinkByID(ctx, linkID)
	if err != nil {
		s.log.WarnContext(ctx, "reload link for cache failed", "link_id", linkID, "error", err)
		s.cacheDelete(ctx, tok)
		return
	}
	s.cacheSet(ctx, tok, link.Snapshot())
}

func traceAttrs(linkID string) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(attribute.String("link.id", linkID))}
}
