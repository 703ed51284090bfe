package linksvc

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/cache"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/clock"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/db"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/logging"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/services/notify"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/store"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/token"
)

const (
	validCPF   = "529.982.247-25"
	resident   = "res-1"
	baseURL    = "https://portal.example.com/"
	shortWait  = 5 * time.Second
	expiration = 1
)

var start = time.Date(2026, 5, 9, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc    *Service
	store  *store.Store
	cache  *cache.Memory
	clock  *clock.FakeClock
	mu     sync.Mutex
	events []domain.VisitorRegistered
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	d, err := db.Connect(ctx, "sqlite://"+filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(ctx, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(d)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, newStore(t), nil)
}

func newHarnessWith(t *testing.T, st *store.Store, override func(*Deps)) *harness {
	t.Helper()
	h := &harness{store: st, cache: cache.NewMemory(100, time.Hour), clock: clock.Fake(start)}
	deps := Deps{
		Store:  st,
		Cache:  h.cache,
		Clock:  h.clock,
		Logger: logging.Discard(),
		Notifier: notify.Func(func(_ context.Context, evt domain.VisitorRegistered) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, evt)
			return nil
		}),
	}
	if override != nil {
		override(&deps)
	}
	h.svc = New(Config{ExpirationHours: expiration, BaseURL: baseURL, RetentionDays: 7, Location: time.UTC}, deps)
	return h
}

func (h *harness) eventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func intPtr(n int) *int { return &n }

func (h *harness) create(t *testing.T, maxVisitors int) LinkWithURL {
	t.Helper()
	return h.createUntil(t, maxVisitors, h.clock.Now().AddDate(0, 0, 1))
}

func (h *harness) createUntil(t *testing.T, maxVisitors int, validUntil time.Time) LinkWithURL {
	t.Helper()
	out, err := h.svc.Create(context.Background(), resident, CreateInput{
		VisitorsValidUntil: validUntil,
		MaxVisitors:        intPtr(maxVisitors),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return out
}

func visitor(name string) VisitorInput {
	return VisitorInput{Name: name, Document: validCPF, Phone: " 11 99999-0000 "}
}

func TestCreateDefaults(t *testing.T) {
	h := newHarness(t)
	out, err := h.svc.Create(context.Background(), resident, CreateInput{VisitorsValidUntil: start.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.MaxVisitors != DefaultMaxVisitors || out.AccessSchedule != DefaultAccessSchedule {
		t.Fatalf("expected defaults, got max=%d schedule=%q", out.MaxVisitors, out.AccessSchedule)
	}
	if out.AccessSchedule != "Qualquer horário" {
		t.Fatalf("expected portuguese default schedule, got %q", out.AccessSchedule)
	}
	if out.RegisteredVisitors != 0 || out.Revoked {
		t.Fatalf("expected fresh link, got %+v", out.InvitationLink)
	}
	if !out.ExpiresAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected expiresAt %v, got %v", start.Add(time.Hour), out.ExpiresAt)
	}
	if len(out.Token) != 2*token.Bytes {
		t.Fatalf("expected %d-char token, got %d", 2*token.Bytes, len(out.Token))
	}
	if want := "https://portal.example.com/convite/" + out.Token; out.ShareableURL != want {
		t.Fatalf("expected url %q, got %q", want, out.ShareableURL)
	}
	if _, ok, _ := h.cache.Get(context.Background(), out.Token); !ok {
		t.Fatal("expected snapshot cached after create")
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	tomorrow := start.AddDate(0, 0, 1)
	tests := []struct {
		name     string
		resident string
		in       CreateInput
	}{
		{name: "past date", resident: resident, in: CreateInput{VisitorsValidUntil: start.AddDate(0, 0, -1)}},
		{name: "zero date", resident: resident, in: CreateInput{}},
		{name: "max zero", resident: resident, in: CreateInput{VisitorsValidUntil: tomorrow, MaxVisitors: intPtr(0)}},
		{name: "max above limit", resident: resident, in: CreateInput{VisitorsValidUntil: tomorrow, MaxVisitors: intPtr(51)}},
		{name: "missing resident", resident: " ", in: CreateInput{VisitorsValidUntil: tomorrow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Create(context.Background(), tt.resident, tt.in)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
	links, err := h.svc.ListByResident(context.Background(), resident)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links written, got %d", len(links))
	}
}

func TestCreateAcceptsTodayInConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	h := newHarness(t)
	h.svc.cfg.Location = loc
	// 01:00 UTC on May 10 is still May 9 in São Paulo
	h.clock.Set(time.Date(2026, 5, 10, 1, 0, 0, 0, time.UTC))

	today := time.Date(2026, 5, 9, 0, 0, 0, 0, loc)
	if _, err := h.svc.Create(context.Background(), resident, CreateInput{VisitorsValidUntil: today}); err != nil {
		t.Fatalf("expected local today accepted, got %v", err)
	}
	yesterday := today.AddDate(0, 0, -1)
	if _, err := h.svc.Create(context.Background(), resident, CreateInput{VisitorsValidUntil: yesterday}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected yesterday rejected, got %v", err)
	}
}

func TestResolveAfterCreateMatchesInput(t *testing.T) {
	h := newHarness(t)
	validUntil := start.AddDate(0, 0, 3)
	out, err := h.svc.Create(context.Background(), resident, CreateInput{
		VisitorsValidUntil: validUntil,
		AccessSchedule:     "08:00-18:00",
		MaxVisitors:        intPtr(7),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, label := range []string{"cached", "from store"} {
		if label == "from store" {
			_ = h.cache.Delete(context.Background(), out.Token)
		}
		snap, err := h.svc.Resolve(context.Background(), out.Token)
		if err != nil {
			t.Fatalf("%s: resolve: %v", label, err)
		}
		if snap.ID != out.ID || snap.ResidentID != resident || snap.MaxVisitors != 7 ||
			snap.AccessSchedule != "08:00-18:00" || !snap.VisitorsValidUntil.Equal(validUntil) {
			t.Fatalf("%s: unexpected snapshot %+v", label, snap)
		}
	}
	if _, ok, _ := h.cache.Get(context.Background(), out.Token); !ok {
		t.Fatal("expected cache repopulated on miss")
	}
}

func TestResolveUnknownToken(t *testing.T) {
	h := newHarness(t)
	for _, tok := range []string{"", "deadbeef"} {
		if _, err := h.svc.Resolve(context.Background(), tok); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found for %q, got %v", tok, err)
		}
	}
}

func TestUsableCheckOrder(t *testing.T) {
	snap := domain.LinkSnapshot{MaxVisitors: 1, RegisteredVisitors: 1, ExpiresAt: start, Revoked: true}
	if err := usable(snap, start); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked first, got %v", err)
	}
	snap.Revoked = false
	if err := usable(snap, start); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired before capacity, got %v", err)
	}
	snap.ExpiresAt = start.Add(time.Second)
	if err := usable(snap, start); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity, got %v", err)
	}
	snap.MaxVisitors = 2
	if err := usable(snap, start); err != nil {
		t.Fatalf("expected usable, got %v", err)
	}
}

func TestRegisterVisitor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	out, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("  Maria Silva "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if out.Message != MsgVisitorRegistered || out.Visitor.Name != "Maria Silva" || out.Visitor.AccessSchedule != DefaultAccessSchedule {
		t.Fatalf("unexpected response %+v", out)
	}
	if !out.Visitor.ValidUntil.Equal(link.VisitorsValidUntil) {
		t.Fatalf("expected validUntil copied from link, got %v", out.Visitor.ValidUntil)
	}

	snap, err := h.svc.Resolve(ctx, link.Token)
	if err != nil || snap.RegisteredVisitors != 1 {
		t.Fatalf("expected counter 1, got %d err=%v", snap.RegisteredVisitors, err)
	}
	visitors, err := h.svc.ListVisitors(ctx, link.ID, resident)
	if err != nil {
		t.Fatalf("list visitors: %v", err)
	}
	if len(visitors) != 1 {
		t.Fatalf("expected 1 visitor, got %d", len(visitors))
	}
	v := visitors[0]
	if v.Document != "52998224725" || v.Phone != "11 99999-0000" || !v.RegisteredViaLink || !v.Active || v.InvitationLinkID != link.ID {
		t.Fatalf("unexpected visitor %+v", v)
	}
	if h.eventCount() != 1 || h.events[0].VisitorID != v.ID {
		t.Fatalf("expected one event for %s, got %+v", v.ID, h.events)
	}
}

func TestRegisterVisitorSingleSlot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 1)

	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("Maria Silva")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("João Souza")); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if _, err := h.svc.PublicView(ctx, link.Token); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected public view to report capacity, got %v", err)
	}
	got, _ := h.store.GetLinkByID(ctx, link.ID)
	if got.RegisteredVisitors != 1 {
		t.Fatalf("expected counter 1, got %d", got.RegisteredVisitors)
	}
}

func TestConcurrentRegistrationLastSlot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 3)
	for _, name := range []string{"Ana Lima", "Bruno Reis"} {
		if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor(name)); err != nil {
			t.Fatalf("seed register: %v", err)
		}
	}

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		other     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("Carla Dias"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrCapacityExceeded):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if len(other) != 0 {
		t.Fatalf("expected only capacity errors, got %v", other)
	}
	got, _ := h.store.GetLinkByID(ctx, link.ID)
	if got.RegisteredVisitors != 3 {
		t.Fatalf("expected counter 3, got %d", got.RegisteredVisitors)
	}
	visitors, _ := h.store.ListVisitorsByLink(ctx, link.ID)
	if len(visitors) != 3 {
		t.Fatalf("expected 3 visitors, got %d", len(visitors))
	}
}

func TestCapacityHoldsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	a := newHarnessWith(t, st, nil)
	b := newHarnessWith(t, st, nil)
	link := a.create(t, 1)

	// a's cache still says 0 registered after b fills the link
	if _, err := b.svc.RegisterVisitor(ctx, link.Token, visitor("Maria Silva")); err != nil {
		t.Fatalf("register via b: %v", err)
	}
	if _, err := a.svc.RegisterVisitor(ctx, link.Token, visitor("João Souza")); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity via stale instance, got %v", err)
	}
	snap, ok, _ := a.cache.Get(ctx, link.Token)
	if !ok || snap.RegisteredVisitors != 1 {
		t.Fatalf("expected stale cache corrected, got %+v ok=%v", snap, ok)
	}
}

func TestRevokedLinkRejectsRegistration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	ack, err := h.svc.Revoke(ctx, link.ID, resident)
	if err != nil || ack.Message != MsgLinkRevoked {
		t.Fatalf("revoke: ack=%+v err=%v", ack, err)
	}
	if _, ok, _ := h.cache.Get(ctx, link.Token); ok {
		t.Fatal("expected cache entry evicted on revoke")
	}
	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("Maria Silva")); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
	if h.eventCount() != 0 {
		t.Fatal("expected no notification")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	for i := 0; i < 2; i++ {
		if _, err := h.svc.Revoke(ctx, link.ID, resident); err != nil {
			t.Fatalf("revoke #%d: %v", i+1, err)
		}
	}
	got, _ := h.store.GetLinkByID(ctx, link.ID)
	if !got.Revoked {
		t.Fatal("expected link revoked")
	}
	if _, err := h.svc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}

func TestRevokeOtherResidentIsNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	if _, err := h.svc.Revoke(ctx, link.ID, "res-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.svc.Revoke(ctx, "missing", resident); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.svc.ListVisitors(ctx, link.ID, "res-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for visitors, got %v", err)
	}
	if _, err := h.svc.Resolve(ctx, link.Token); err != nil {
		t.Fatalf("expected link still usable, got %v", err)
	}
}

func TestExpiredLink(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	h.clock.Advance(59 * time.Minute)
	if _, err := h.svc.Resolve(ctx, link.Token); err != nil {
		t.Fatalf("expected usable before expiry, got %v", err)
	}
	h.clock.Advance(time.Minute)
	if _, err := h.svc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired at expiresAt, got %v", err)
	}
	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("Maria Silva")); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired on register, got %v", err)
	}
}

func TestInvalidVisitorWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)

	tests := []struct {
		name string
		in   VisitorInput
		want error
	}{
		{name: "bad check digit", in: VisitorInput{Name: "Maria Silva", Document: "529.982.247-26"}, want: domain.ErrInvalidDocument},
		{name: "repeated digits", in: VisitorInput{Name: "Maria Silva", Document: "111.111.111-11"}, want: domain.ErrInvalidDocument},
		{name: "short document", in: VisitorInput{Name: "Maria Silva", Document: "123"}, want: domain.ErrInvalidDocument},
		{name: "short name", in: VisitorInput{Name: " Jo ", Document: validCPF}, want: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.RegisterVisitor(ctx, link.Token, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	got, _ := h.store.GetLinkByID(ctx, link.ID)
	if got.RegisteredVisitors != 0 {
		t.Fatalf("expected counter 0, got %d", got.RegisteredVisitors)
	}
	visitors, _ := h.store.ListVisitorsByLink(ctx, link.ID)
	if len(visitors) != 0 || h.eventCount() != 0 {
		t.Fatalf("expected nothing written, got %d visitors %d events", len(visitors), h.eventCount())
	}
}

func TestSweepRevokesAndEvicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link := h.create(t, 5)
	h.create(t, 5)

	h.clock.Advance(2 * time.Hour)
	later := h.create(t, 5)

	rep := h.svc.Sweep(ctx)
	if rep.Expired != 2 || rep.Failed != 0 || rep.Purged != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if _, ok, _ := h.cache.Get(ctx, link.Token); ok {
		t.Fatal("expected swept link evicted from cache")
	}
	if _, err := h.svc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked after sweep, got %v", err)
	}
	if _, err := h.svc.Resolve(ctx, later.Token); err != nil {
		t.Fatalf("expected unexpired link untouched, got %v", err)
	}

	if rep := h.svc.Sweep(ctx); rep.Expired != 0 {
		t.Fatalf("expected second sweep to find nothing, got %+v", rep)
	}
}

func TestSweepPurgesOldLinks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	old := h.create(t, 5)
	if _, err := h.svc.Revoke(ctx, old.ID, resident); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	unrevoked := h.create(t, 5)

	if _, ok, _ := h.cache.Get(ctx, unrevoked.Token); !ok {
		t.Fatal("expected unrevoked link cached before sweep")
	}

	h.clock.Advance(8 * 24 * time.Hour)
	recent := h.createUntil(t, 5, h.clock.Now().AddDate(0, 0, 2))

	rep := h.svc.Sweep(ctx)
	if rep.Purged != 2 || rep.Failed != 0 {
		t.Fatalf("expected 2 purged, got %+v", rep)
	}
	for _, tok := range []string{old.Token, unrevoked.Token} {
		if _, ok, _ := h.cache.Get(ctx, tok); ok {
			t.Fatalf("expected purged token %s evicted from cache", tok)
		}
		if _, err := h.svc.Resolve(ctx, tok); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected purged link gone, got %v", err)
		}
	}
	if _, err := h.svc.Resolve(ctx, recent.Token); err != nil {
		t.Fatalf("expected recent link kept, got %v", err)
	}
}

type flakyStore struct {
	*store.Store
	failID string
}

func (f flakyStore) ExpireLink(ctx context.Context, id string, now time.Time) (bool, error) {
	if id == f.failID {
		return false, errors.New("disk on fire")
	}
	return f.Store.ExpireLink(ctx, id, now)
}

func TestSweepIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	h := newHarnessWith(t, st, nil)
	bad := h.create(t, 5)
	good := h.create(t, 5)

	h.svc.store = flakyStore{Store: st, failID: bad.ID}
	h.clock.Advance(2 * time.Hour)

	rep := h.svc.Sweep(ctx)
	if rep.Expired != 1 || rep.Failed != 1 {
		t.Fatalf("expected 1 expired and 1 failed, got %+v", rep)
	}
	got, _ := st.GetLinkByID(ctx, good.ID)
	if !got.Revoked {
		t.Fatal("expected healthy record revoked despite sibling failure")
	}
}

func TestTokenCollisionIsConflict(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWith(t, newStore(t), func(d *Deps) {
		d.Tokens = token.GeneratorFunc(func() (string, error) { return "fixed-token", nil })
	})
	first := h.create(t, 5)

	_, err := h.svc.Create(ctx, "res-2", CreateInput{VisitorsValidUntil: start.AddDate(0, 0, 1)})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	snap, err := h.svc.Resolve(ctx, "fixed-token")
	if err != nil || snap.ID != first.ID || snap.ResidentID != resident {
		t.Fatalf("expected original link intact, got %+v err=%v", snap, err)
	}
}

// revokingStore revoga o link logo depois da primeira leitura por token, como um
// Revoke concorrente que termina antes do resolve gravar o cache.
type revokingStore struct {
	*store.Store
	cache cache.LinkCache
	now   time.Time
	once  sync.Once
}

func (r *revokingStore) GetLinkByToken(ctx context.Context, tok string) (domain.InvitationLink, error) {
	link, err := r.Store.GetLinkByToken(ctx, tok)
	if err == nil {
		r.once.Do(func() {
			_ = r.Store.RevokeLink(ctx, link.ID, link.ResidentID, r.now)
			_ = r.cache.Delete(ctx, tok)
		})
	}
	return link, err
}

func TestResolveDoesNotCacheSnapshotOverConcurrentRevoke(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	rs := &revokingStore{Store: st, now: start.Add(time.Minute)}
	h := newHarnessWith(t, st, func(d *Deps) { d.Store = rs })
	rs.cache = h.cache
	link := h.create(t, 5)
	_ = h.cache.Delete(ctx, link.Token)

	if _, err := h.svc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked on racing resolve, got %v", err)
	}
	snap, ok, _ := h.cache.Get(ctx, link.Token)
	if !ok || !snap.Revoked {
		t.Fatalf("expected cache to hold the revoked snapshot, got %+v ok=%v", snap, ok)
	}
	if _, err := h.svc.PublicView(ctx, link.Token); !errors.Is(err, domain.ErrRevoked) {
		t.Fatalf("expected revoked on later view, got %v", err)
	}
}

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) (domain.LinkSnapshot, bool, error) {
	return domain.LinkSnapshot{}, false, errCacheDown
}
func (brokenCache) Set(context.Context, string, domain.LinkSnapshot) error { return errCacheDown }
func (brokenCache) Delete(context.Context, string) error                   { return errCacheDown }

func TestCacheOutageFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWith(t, newStore(t), func(d *Deps) { d.Cache = brokenCache{} })
	link := h.create(t, 1)

	if _, err := h.svc.Resolve(ctx, link.Token); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("Maria Silva")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := h.svc.RegisterVisitor(ctx, link.Token, visitor("João Souza")); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity, got %v", err)
	}
	if _, err := h.svc.Revoke(ctx, link.ID, resident); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if rep := h.svc.Sweep(ctx); rep.Failed != 0 {
		t.Fatalf("expected cache errors not counted as failures, got %+v", rep)
	}
}

func TestNotifierFailureDoesNotFailRegistration(t *testing.T) {
	h := newHarnessWith(t, newStore(t), func(d *Deps) {
		d.Notifier = notify.Func(func(context.Context, domain.VisitorRegistered) error { return errors.New("smtp down") })
	})
	link := h.create(t, 5)
	if _, err := h.svc.RegisterVisitor(context.Background(), link.Token, visitor("Maria Silva")); err != nil {
		t.Fatalf("expected success despite notifier failure, got %v", err)
	}
}

func TestListByResidentNewestFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, h.create(t, 5).ID)
		h.clock.Advance(time.Minute)
	}
	links, err := h.svc.ListByResident(ctx, resident)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 3 || links[0].ID != ids[2] || links[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %v", links)
	}
}

func TestPublicView(t *testing.T) {
	h := newHarness(t)
	link := h.create(t, 4)
	view, err := h.svc.PublicView(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("public view: %v", err)
	}
	if view.MaxVisitors != 4 || view.RegisteredVisitors != 0 || !view.ExpiresAt.Equal(link.ExpiresAt) ||
		!view.ValidUntilForVisitors.Equal(link.VisitorsValidUntil) {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestRunSweeperSweepsAndStops(t *testing.T) {
	h := newHarness(t)
	link := h.create(t, 5)
	h.clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.svc.RunSweeper(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(shortWait)
	for {
		got, _ := h.store.GetLinkByID(context.Background(), link.ID)
		if got.Revoked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected initial sweep to revoke link")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(shortWait):
		t.Fatal("expected sweeper to stop on cancel")
	}
}

func TestSpansRecordErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarnessWith(t, newStore(t), func(d *Deps) { d.Tracer = tp.Tracer("test") })
	_, _ = h.svc.Resolve(context.Background(), "missing")

	var found bool
	for _, span := range sr.Ended() {
		if span.Name() == "links.Resolve" {
			found = true
			if span.Status().Code != codes.Error || !strings.Contains(span.Status().Description, string(domain.CodeNotFound)) {
				t.Fatalf("expected error status, got %+v", span.Status())
			}
		}
	}
	if !found {
		t.Fatal("expected links.Resolve span")
	}
}
