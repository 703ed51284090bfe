package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/cache"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/logging"
	linksvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/links"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "portal.db"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestBuildWithoutRedis(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close(ctx)

	if a.KV != nil {
		t.Fatal("expected no redis client")
	}
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}
}

func TestBuildWithRedisCachesLinks(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	a, err := Build(ctx, testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close(ctx)

	if a.KV == nil {
		t.Fatal("expected redis client")
	}
	out, err := a.Links.Create(ctx, "res-1", linksvc.CreateInput{VisitorsValidUntil: time.Now().AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists(cache.Key(out.Token)) {
		t.Fatalf("expected %s cached in redis", cache.Key(out.Token))
	}
}

func TestBuildFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	t.Setenv("REDIS_URL", "redis://"+addr)

	a, err := Build(ctx, testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close(ctx)
	if a.KV != nil {
		t.Fatal("expected fallback to in-memory cache")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a@example.com, ,b@example.com ")
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Fatalf("unexpected list %v", got)
	}
	if splitList("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
