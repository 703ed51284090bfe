package linksvc

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SweepReport resume uma execução da varredura.
type SweepReport struct {
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
	Purged  int `json:"purged"`
}

// Sweep revoga os links vencidos e apaga os criados há mais de RetentionDays.
// Nunca retorna erro: falhas são registradas e contadas em Failed, e um registro
// com problema não impede os demais.
func (s *Service) Sweep(ctx context.Context) SweepReport {
	ctx, span := s.tracer.Start(ctx, "links.Sweep")
	defer span.End()

	var rep SweepReport
	now := s.clock.Now()

	stale, err := s.store.ListStaleLinks(ctx, now)
	if err != nil {
		s.log.ErrorContext(ctx, "sweep: list stale links failed", "error", err)
		rep.Failed++
	}
	for _, l := range stale {
		if ctx.Err() != nil {
			break
		}
		changed, err := s.store.ExpireLink(ctx, l.ID, now)
		if err != nil {
			s.log.WarnContext(ctx, "sweep: expire link failed", "link_id", l.ID, "error", err)
			rep.Failed++
			continue
		}
		if changed {
			rep.Expired++
		}
		s.cacheDelete(ctx, l.Token)
	}

	cutoff := now.AddDate(0, 0, -s.cfg.RetentionDays)
	purged, err := s.store.PurgeLinksCreatedBefore(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "sweep: purge failed", "cutoff", cutoff, "error", err)
		rep.Failed++
	}
	for _, tok := range purged {
		s.cacheDelete(ctx, tok)
	}
	rep.Purged = len(purged)

	span.SetAttributes(
		attribute.Int("sweep.expired", rep.Expired),
		attribute.Int("sweep.failed", rep.Failed),
		attribute.Int("sweep.purged", rep.Purged),
	)
	s.log.InfoContext(ctx, "sweep finished", "expired", rep.Expired, "failed", rep.Failed, "purged", rep.Purged)
	return rep
}

// RunSweeper executa Sweep imediatamente e depois a cada interval, até ctx ser cancelado.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
