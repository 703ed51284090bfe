package linksvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/store"
	"github.com/google/uuid"
)

// CreateInput são os dados informados pelo morador ao gerar um link.
type CreateInput struct {
	VisitorsValidUntil time.Time `json:"visitorsValidUntil"`
	AccessSchedule     string    `json:"accessSchedule,omitempty"`
	// MaxVisitors nil usa DefaultMaxVisitors.
	MaxVisitors *int `json:"maxVisitors,omitempty"`
}

// LinkWithURL é o link recém-criado acompanhado da URL para compartilhar.
type LinkWithURL struct {
	domain.InvitationLink
	ShareableURL string `json:"shareableUrl"`
}

// PublicLink é o que o visitante vê antes de se cadastrar.
type PublicLink struct {
	ValidUntilForVisitors time.Time `json:"validUntilForVisitors"`
	AccessSchedule        string    `json:"accessSchedule"`
	MaxVisitors           int       `json:"maxVisitors"`
	RegisteredVisitors    int       `json:"registeredVisitors"`
	ExpiresAt             time.Time `json:"expiresAt"`
}

// Ack é uma confirmação simples.
type Ack struct {
	Message string `json:"message"`
}

// Create valida a entrada, emite um token e grava o link com contador zerado.
func (s *Service) Create(ctx context.Context, residentID string, in CreateInput) (out LinkWithURL, err error) {
	ctx, span := s.tracer.Start(ctx, "links.Create")
	defer func() { endSpan(span, err) }()

	residentID = strings.TrimSpace(residentID)
	if residentID == "" {
		return LinkWithURL{}, invalidInput("Morador não informado")
	}
	now := s.clock.Now()
	if in.VisitorsValidUntil.IsZero() {
		return LinkWithURL{}, invalidInput("Data de validade dos visitantes é obrigatória")
	}
	if dateOnly(in.VisitorsValidUntil, s.cfg.Location).Before(dateOnly(now, s.cfg.Location)) {
		return LinkWithURL{}, invalidInput("Data de validade não pode ser no passado")
	}
	maxVisitors := DefaultMaxVisitors
	if in.MaxVisitors != nil {
		maxVisitors = *in.MaxVisitors
	}
	if maxVisitors < MinVisitorsPerLink {
		return LinkWithURL{}, invalidInput(fmt.Sprintf("Mínimo de %d visitante", MinVisitorsPerLink))
	}
	if maxVisitors > MaxVisitorsPerLink {
		return LinkWithURL{}, invalidInput(fmt.Sprintf("Máximo de %d visitantes", MaxVisitorsPerLink))
	}
	schedule := strings.TrimSpace(in.AccessSchedule)
	if schedule == "" {
		schedule = DefaultAccessSchedule
	}

	tok, err := s.tokens.Generate()
	if err != nil {
		return LinkWithURL{}, storageErr(err)
	}
	link := domain.InvitationLink{
		ID:                 uuid.NewString(),
		ResidentID:         residentID,
		Token:              tok,
		VisitorsValidUntil: in.VisitorsValidUntil,
		AccessSchedule:     schedule,
		MaxVisitors:        maxVisitors,
		RegisteredVisitors: 0,
		ExpiresAt:          now.Add(time.Duration(s.cfg.ExpirationHours) * time.Hour),
		Revoked:            false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	span.SetAttributes(attribute.String("link.id", link.ID), attribute.Int("link.max_visitors", maxVisitors))

	if err := s.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return LinkWithURL{}, domain.Wrap(domain.CodeConflict, domain.ErrConflict.Message, err)
		}
		return LinkWithURL{}, storageErr(err)
	}
	s.cacheSet(ctx, tok, link.Snapshot())

	s.log.InfoContext(ctx, "invitation link created", "link_id", link.ID, "resident_id", residentID, "max_visitors", maxVisitors)
	return LinkWithURL{InvitationLink: link, ShareableURL: s.ShareableURL(tok)}, nil
}

// Resolve devolve o snapshot de um link utilizável. Lê do cache e, em caso de miss,
// do banco, repovoando o cache.
func (s *Service) Resolve(ctx context.Context, tok string) (snap domain.LinkSnapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "links.Resolve")
	defer func() { endSpan(span, err) }()

	snap, err = s.lookup(ctx, tok)
	if err != nil {
		return domain.LinkSnapshot{}, err
	}
	span.SetAttributes(attribute.String("link.id", snap.ID))
	if err := usable(snap, s.clock.Now()); err != nil {
		return domain.LinkSnapshot{}, err
	}
	return snap, nil
}

// lookup busca o snapshot sem aplicar as regras de uso.
func (s *Service) lookup(ctx context.Context, tok string) (domain.LinkSnapshot, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return domain.LinkSnapshot{}, domain.ErrNotFound
	}
	if snap, ok := s.cacheGet(ctx, tok); ok {
		return snap, nil
	}
	link, err := s.store.GetLinkByToken(ctx, tok)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LinkSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LinkSnapshot{}, storageErr(err)
	}
	snap := link.Snapshot()
	s.cacheSet(ctx, tok, snap)

	// Uma revogação entre a leitura e o Set acima já teria removido a entrada;
	// relendo depois do Set, qualquer escrita concorrente aparece aqui.
	again, err := s.store.GetLinkByToken(ctx, tok)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.cacheDelete(ctx, tok)
		return domain.LinkSnapshot{}, domain.ErrNotFound
	case err != nil:
		s.log.WarnContext(ctx, "reload link after cache fill failed", "link_id", link.ID, "error", err)
		s.cacheDelete(ctx, tok)
	case again.Revoked != link.Revoked || again.RegisteredVisitors != link.RegisteredVisitors || !again.UpdatedAt.Equal(link.UpdatedAt):
		snap = again.Snapshot()
		s.cacheSet(ctx, tok, snap)
	}
	return snap, nil
}

// usable aplica, nesta ordem: revogado, expirado, lotado.
func usable(snap domain.LinkSnapshot, now time.Time) error {
	switch {
	case snap.Revoked:
		return domain.ErrRevoked
	case !now.Before(snap.ExpiresAt):
		return domain.ErrExpired
	case snap.RegisteredVisitors >= snap.MaxVisitors:
		return domain.ErrCapacityExceeded
	}
	return nil
}

// PublicView projeta o link resolvido para o visitante.
func (s *Service) PublicView(ctx context.Context, tok string) (PublicLink, error) {
	snap, err := s.Resolve(ctx, tok)
	if err != nil {
		return PublicLink{}, err
	}
	return PublicLink{
		ValidUntilForVisitors: snap.VisitorsValidUntil,
		AccessSchedule:        snap.AccessSchedule,
		MaxVisitors:           snap.MaxVisitors,
		RegisteredVisitors:    snap.RegisteredVisitors,
		ExpiresAt:             snap.ExpiresAt,
	}, nil
}

// Revoke revoga o link do morador e remove a entrada do cache. Revogar duas vezes
// tem o mesmo efeito de uma. Link de outro morador responde como inexistente.
func (s *Service) Revoke(ctx context.Context, linkID, residentID string) (ack Ack, err error) {
	ctx, span := s.tracer.Start(ctx, "links.Revoke", traceAttrs(linkID)...)
	defer func() { endSpan(span, err) }()

	link, err := s.ownedLink(ctx, linkID, residentID)
	if err != nil {
		return Ack{}, err
	}
	if !link.Revoked {
		if err := s.store.RevokeLink(ctx, link.ID, link.ResidentID, s.clock.Now()); err != nil {
			return Ack{}, storageErr(err)
		}
		s.log.InfoContext(ctx, "invitation link revoked", "link_id", link.ID, "resident_id", link.ResidentID)
	}
	s.cacheDelete(ctx, link.Token)
	return Ack{Message: MsgLinkRevoked}, nil
}

// ListByResident lista os links do morador, mais recentes primeiro.
func (s *Service) ListByResident(ctx context.Context, residentID string) (links []domain.InvitationLink, err error) {
	ctx, span := s.tracer.Start(ctx, "links.ListByResident")
	defer func() { endSpan(span, err) }()

	residentID = strings.TrimSpace(residentID)
	if residentID == "" {
		return nil, invalidInput("Morador não informado")
	}
	links, err = s.store.ListLinksByResident(ctx, residentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return links, nil
}

// ListVisitors lista os visitantes cadastrados por um link do morador.
func (s *Service) ListVisitors(ctx context.Context, linkID, residentID string) (visitors []domain.Visitor, err error) {
	ctx, span := s.tracer.Start(ctx, "links.ListVisitors", traceAttrs(linkID)...)
	defer func() { endSpan(span, err) }()

	link, err := s.ownedLink(ctx, linkID, residentID)
	if err != nil {
		return nil, err
	}
	visitors, err = s.store.ListVisitorsByLink(ctx, link.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	return visitors, nil
}

func (s *Service) ownedLink(ctx context.Context, linkID, residentID string) (domain.InvitationLink, error) {
	linkID, residentID = strings.TrimSpace(linkID), strings.TrimSpace(residentID)
	if linkID == "" || residentID == "" {
		return domain.InvitationLink{}, domain.ErrNotFound
	}
	link, err := s.store.GetLinkForResident(ctx, linkID, residentID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.InvitationLink{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.InvitationLink{}, storageErr(err)
	}
	return link, nil
}

// dateOnly trunca t para a meia-noite do seu dia em loc.
func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
