// Caminho: internal/services/notify/notify.go
// Resumo: Sinais de "visitante cadastrado". Entrega best-effort: uma falha aqui nunca
// desfaz nem bloqueia o cadastro.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/contants"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/document"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/kv"
	emailsvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/email"
)

// Notifier recebe o evento de cadastro concluído.
type Notifier interface {
	VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error
}

// Func adapta uma função a Notifier.
type Func func(ctx context.Context, evt domain.VisitorRegistered) error

// VisitorRegistered chama f.
func (f Func) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	return f(ctx, evt)
}

// Nop descarta eventos.
type Nop struct{}

func (Nop) VisitorRegistered(context.Context, domain.VisitorRegistered) error { return nil }

// Log registra o evento no logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	l.Logger.InfoContext(ctx, "visitor registered",
		"resident_id", evt.ResidentID,
		"visitor_id", evt.VisitorID,
		"invitation_link_id", evt.InvitationLinkID,
	)
	return nil
}

// Publisher é a parte do cliente Redis usada para publicar eventos.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

var _ Publisher = (*kv.Client)(nil)

// Redis publica o evento em JSON num canal pub/sub, consumido pelo app do morador.
type Redis struct {
	pub     Publisher
	channel string
}

// NewRedis cria o publicador no canal informado.
func NewRedis(pub Publisher, channel string) *Redis {
	return &Redis{pub: pub, channel: channel}
}

func (r *Redis) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Mailer é a parte do serviço de e-mail usada pelas notificações.
type Mailer interface {
	Send(ctx context.Context, p emailsvc.Params) error
}

// Email avisa a portaria por e-mail.
type Email struct {
	mailer Mailer
	to     []string
	loc    *time.Location
}

// NewEmail cria o notificador; datas são exibidas em loc.
func NewEmail(m Mailer, to []string, loc *time.Location) *Email {
	if loc == nil {
		loc = time.UTC
	}
	return &Email{mailer: m, to: to, loc: loc}
}

func (e *Email) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	return e.mailer.Send(ctx, emailsvc.Params{
		To:           e.to,
		Subject:      contants.EmailSubjectVisitorRegistered + evt.VisitorName,
		TemplateName: contants.TemplateVisitorRegistered,
		Data: map[string]any{
			"VisitorName":    evt.VisitorName,
			"Document":       document.FormatCPF(evt.VisitorDocument),
			"ResidentID":     evt.ResidentID,
			"ValidUntil":     evt.ValidUntil.In(e.loc).Format(contants.DateLayoutBR),
			"AccessSchedule": evt.AccessSchedule,
			"RegisteredAt":   evt.RegisteredAt.In(e.loc).Format(contants.DateTimeLayoutBR),
		},
	})
}

// Multi entrega para todos os destinos e junta os erros.
type Multi []Notifier

func (m Multi) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	var errs []error
	for _, n := range m {
		if err := n.VisitorRegistered(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async entrega em segundo plano, com no máximo limit entregas simultâneas.
// Eventos acima do limite são descartados com aviso no log.
type Async struct {
	next    Notifier
	log     *slog.Logger
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

// NewAsync embrulha next. timeout limita cada entrega.
func NewAsync(next Notifier, log *slog.Logger, limit int64, timeout time.Duration) *Async {
	if limit < 1 {
		limit = 1
	}
	return &Async{next: next, log: log, timeout: timeout, sem: semaphore.NewWeighted(limit)}
}

// VisitorRegistered agenda a entrega e retorna imediatamente.
func (a *Async) VisitorRegistered(ctx context.Context, evt domain.VisitorRegistered) error {
	if !a.sem.TryAcquire(1) {
		a.log.WarnContext(ctx, "notification dropped: too many in flight", "visitor_id", evt.VisitorID)
		return nil
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.sem.Release(1)
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.VisitorRegistered(dctx, evt); err != nil {
			a.log.Warn("notification failed", "visitor_id", evt.VisitorID, "error", err)
		}
	}()
	return nil
}

// Wait bloqueia até as entregas em andamento terminarem.
func (a *Async) Wait() { a.wg.Wait() }
