// Caminho: internal/app/app.go
// Resumo: Montagem das dependências (banco, cache, notificações, motor de links e rotas HTTP)
// a partir da configuração. Usado pelo servidor local, pelo handler serverless e pelos utilitários.

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/cache"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/db"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/kv"
	emailsvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/email"
	linksvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/links"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/services/notify"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/store"
	"github.com/dayvidcds/vigiae-remote-concierge/pkg/httpapi"
)

const (
	notifyConcurrency = 8
	notifyTimeout     = 15 * time.Second
)

// App agrega os componentes prontos para uso.
type App struct {
	Config  *config.Config
	DB      *db.DB
	KV      *kv.Client
	Links   *linksvc.Service
	Handler *httpapi.Server

	log      *slog.Logger
	notifier *notify.Async
}

// Build conecta no banco, aplica as migrações e monta o motor de links.
// Redis é opcional: se estiver configurado mas inacessível, o cache fica em memória.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	d, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, d); err != nil {
		_ = d.Close()
		return nil, err
	}
	a := &App{Config: cfg, DB: d, log: log}

	if cfg.RedisEnabled() {
		client, err := kv.New(cfg.RedisURL, cfg.RedisHost, cfg.RedisPort, cfg.RedisPass, cfg.RedisTLS)
		if err == nil {
			err = client.Ping(ctx)
			if err != nil {
				_ = client.Close()
			}
		}
		if err != nil {
			log.Warn("redis init failed; using in-memory cache", "error", err)
		} else {
			a.KV = client
		}
	}

	var linkCache cache.LinkCache
	if a.KV != nil {
		linkCache = cache.NewRedis(a.KV, cfg.CacheTTL)
	} else {
		linkCache = cache.NewMemory(cfg.CacheMaxEntries, cfg.CacheTTL)
	}

	a.notifier = notify.NewAsync(a.notifiers(), log, notifyConcurrency, notifyTimeout)

	a.Links = linksvc.New(linksvc.Config{
		ExpirationHours: cfg.LinkExpirationHours,
		BaseURL:         cfg.LinkBaseURL,
		RetentionDays:   cfg.LinkRetentionDays,
		Location:        cfg.Location(),
	}, linksvc.Deps{
		Store:    store.New(d),
		Cache:    linkCache,
		Notifier: a.notifier,
		Logger:   log,
	})

	a.Handler = httpapi.New(a.Links, httpapi.Options{
		SecretKey:       cfg.SecretKey,
		SecretAlgorithm: cfg.SecretAlgorithm,
		ServiceName:     cfg.ServiceName,
		Version:         cfg.Version,
		Location:        cfg.Location(),
		Logger:          log,
		Ready:           d.PingContext,
	})
	return a, nil
}

// notifiers monta os destinos do evento "visitante cadastrado".
func (a *App) notifiers() notify.Notifier {
	sinks := notify.Multi{notify.Log{Logger: a.log}}
	if a.KV != nil && strings.TrimSpace(a.Config.NotifyRedisChannel) != "" {
		sinks = append(sinks, notify.NewRedis(a.KV, a.Config.NotifyRedisChannel))
	}
	mailer := emailsvc.FromConfig(a.Config)
	to := splitList(a.Config.NotifyEmailTo)
	switch {
	case mailer == nil:
		a.log.Info("email disabled: missing EMAIL_SERVER_SMTP_HOST; skipping mail send")
	case len(to) == 0:
		a.log.Info("email disabled: NOTIFY_EMAIL_TO is empty")
	default:
		sinks = append(sinks, notify.NewEmail(mailer, to, a.Config.Location()))
	}
	return sinks
}

// Close aguarda as notificações pendentes (até ctx expirar) e libera as conexões.
func (a *App) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown: pending notifications abandoned")
	}

	var errs []error
	if a.KV != nil {
		errs = append(errs, a.KV.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
