package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/infra/cache"
	"github.com/vietddude/dexcache/internal/infra/catalog"
	"github.com/vietddude/dexcache/internal/infra/storage"
	"github.com/vietddude/dexcache/internal/infra/storage/memory"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlite"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlrepo"
)

// stubCache records calls and serves from a plain map.
type stubCache struct {
	mu   sync.Mutex
	data map[string]*domain.NormalizedView
	gets int32
	puts []string
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string]*domain.NormalizedView)}
}

func (c *stubCache) Get(_ context.Context, key string) (*domain.NormalizedView, bool) {
	atomic.AddInt32(&c.gets, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *stubCache) Put(_ context.Context, key string, view *domain.NormalizedView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = view
	c.puts = append(c.puts, key)
}

// stubStore serves records from a map and can be told to fail.
type stubStore struct {
	mu       sync.Mutex
	records  map[string]domain.RawRecord
	finds    []string
	upserts  []domain.RawRecord
	findErr  error
	writeErr error
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]domain.RawRecord)}
}

func (s *stubStore) FindByKey(_ context.Context, key string) (*domain.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds = append(s.finds, key)
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	return &rec, nil
}

func (s *stubStore) Upsert(_ context.Context, rec *domain.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, *rec)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records[rec.Key] = *rec
	return nil
}

// stubFetcher returns a fixed result and counts calls.
type stubFetcher struct {
	result  catalog.Result
	calls   int32
	release chan struct{}
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) catalog.Result {
	atomic.AddInt32(&f.calls, 1)
	if f.release != nil {
		<-f.release
	}
	return f.result
}

func (f *stubFetcher) URL(key string) string {
	return "https://catalog.test/pokemon/" + key
}

func TestResolve_BlankKey(t *testing.T) {
	c, s, f := newStubCache(), newStubStore(), &stubFetcher{}
	r := New(c, s, f)

	for _, key := range []string{"", "   "} {
		_, _, err := r.Resolve(context.Background(), key)
		if !errors.Is(err, ErrBlankKey) {
			t.Errorf("Resolve(%q) error = %v, want ErrBlankKey", key, err)
		}
	}
	if c.gets != 0 || len(s.finds) != 0 || f.calls != 0 {
		t.Error("blank keys must not reach any tier")
	}
}

func TestResolve_CacheShortCircuit(t *testing.T) {
	c, s, f := newStubCache(), newStubStore(), &stubFetcher{}
	c.data["pikachu"] = domain.MinimalView(25, "pikachu", "local")
	r := New(c, s, f)

	view, ok, err := r.Resolve(context.Background(), "Pikachu")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if view.ID != 25 {
		t.Errorf("unexpected view: %+v", view)
	}
	if len(s.finds) != 0 || f.calls != 0 {
		t.Errorf("expected no store or remote calls, got %d finds and %d fetches", len(s.finds), f.calls)
	}
}

func TestResolve_StoreShortCircuit(t *testing.T) {
	c, s, f := newStubCache(), newStubStore(), &stubFetcher{}
	s.records["Pikachu"] = domain.RawRecord{Key: "Pikachu", NumericID: 25, Payload: pikachuPayload}
	r := New(c, s, f)

	view, ok, _ := r.Resolve(context.Background(), "Pikachu")
	if !ok {
		t.Fatal("expected store hit")
	}
	if f.calls != 0 {
		t.Errorf("expected no remote calls, got %d", f.calls)
	}
	if len(s.finds) != 1 || s.finds[0] != "Pikachu" {
		t.Errorf("expected store probed with original key, got %v", s.finds)
	}

	if view.ID != 25 || view.Identifier != "Pikachu" || view.SourceURL != domain.LocalSourceURL {
		t.Errorf("unexpected minimal view: %+v", view)
	}
	if len(view.Types) != 0 || len(view.Abilities) != 0 || len(view.BaseStats) != 0 {
		t.Errorf("store hits must not parse the payload: %+v", view)
	}
	if len(c.puts) != 1 || c.puts[0] != "pikachu" {
		t.Errorf("expected cache populated under lowercased key, got %v", c.puts)
	}
}

func TestResolve_RemoteFoundPersistsThenCaches(t *testing.T) {
	c, s := newStubCache(), newStubStore()
	f := &stubFetcher{result: catalog.Result{Outcome: catalog.Found, Body: pikachuPayload, Attempts: 1, Status: 200}}
	r := New(c, s, f)

	view, ok, _ := r.Resolve(context.Background(), "Pikachu")
	if !ok {
		t.Fatal("expected remote hit")
	}
	if len(s.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(s.upserts))
	}
	if rec := s.upserts[0]; rec.Key != "Pikachu" || rec.Payload != pikachuPayload || rec.NumericID != 25 {
		t.Errorf("unexpected persisted record: %+v", rec)
	}
	if len(c.puts) != 1 || c.puts[0] != "pikachu" {
		t.Errorf("expected cache write under lowercased key, got %v", c.puts)
	}
	if view.SourceURL != "https://catalog.test/pokemon/Pikachu" {
		t.Errorf("source_url = %q", view.SourceURL)
	}
	if view.Identifier != "pikachu" || len(view.Types) != 1 {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestResolve_RemoteMissWritesNothing(t *testing.T) {
	for _, outcome := range []catalog.Outcome{catalog.NotFound, catalog.Unavailable} {
		t.Run(outcome.String(), func(t *testing.T) {
			c, s := newStubCache(), newStubStore()
			f := &stubFetcher{result: catalog.Result{Outcome: outcome}}
			r := New(c, s, f)

			view, ok, err := r.Resolve(context.Background(), "missingno")
			if err != nil || ok || view != nil {
				t.Fatalf("expected miss, got view=%v ok=%v err=%v", view, ok, err)
			}
			if len(s.upserts) != 0 || len(c.puts) != 0 {
				t.Errorf("expected no writes, got %d upserts and %d cache puts", len(s.upserts), len(c.puts))
			}
		})
	}
}

func TestResolve_ParseFallback(t *testing.T) {
	c, s := newStubCache(), newStubStore()
	f := &stubFetcher{result: catalog.Result{Outcome: catalog.Found, Body: "not-a-json"}}
	r := New(c, s, f)

	view, ok, _ := r.Resolve(context.Background(), "Pikachu")
	if !ok {
		t.Fatal("expected fallback view")
	}
	if view.ID != 0 || view.Identifier != "Pikachu" || view.SourceURL != "https://catalog.test/pokemon/Pikachu" {
		t.Errorf("unexpected fallback view: %+v", view)
	}
	if s.records["Pikachu"].Payload != "not-a-json" {
		t.Errorf("expected raw body retained, got %q", s.records["Pikachu"].Payload)
	}
	if _, cached := c.data["pikachu"]; !cached {
		t.Error("expected fallback view cached")
	}
}

func TestResolve_StoreFailuresDegrade(t *testing.T) {
	c, s := newStubCache(), newStubStore()
	s.findErr = errors.New("connection refused")
	s.writeErr = errors.New("connection refused")
	f := &stubFetcher{result: catalog.Result{Outcome: catalog.Found, Body: pikachuPayload}}
	r := New(c, s, f)

	view, ok, err := r.Resolve(context.Background(), "pikachu")
	if err != nil || !ok {
		t.Fatalf("expected remote answer despite store failure, got ok=%v err=%v", ok, err)
	}
	if view.ID != 25 {
		t.Errorf("unexpected view: %+v", view)
	}
	if f.calls != 1 {
		t.Errorf("expected remote fallthrough, got %d calls", f.calls)
	}
	if _, cached := c.data["pikachu"]; !cached {
		t.Error("expected view cached even when persisting failed")
	}
}

func TestResolve_DedupeCollapsesConcurrentMisses(t *testing.T) {
	const callers = 8
	c, s := newStubCache(), newStubStore()
	f := &stubFetcher{
		result:  catalog.Result{Outcome: catalog.Found, Body: pikachuPayload},
		release: make(chan struct{}),
	}
	r := New(c, s, f, WithDedupe())

	var wg sync.WaitGroup
	views := make([]*domain.NormalizedView, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			views[i], _, _ = r.Resolve(context.Background(), "pikachu")
		}(i)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&c.gets) < callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	if f.calls != 1 {
		t.Errorf("expected one remote call, got %d", f.calls)
	}
	for i, v := range views {
		if v == nil || v.ID != 25 {
			t.Fatalf("caller %d got %+v", i, v)
		}
	}
	if views[0] == views[1] {
		t.Error("callers must receive independent copies")
	}
}

// The end-to-end path runs through the real in-process tiers and an HTTP catalog.
func TestResolve_EndToEnd(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/pokemon/pikachu" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pikachuPayload))
	}))
	defer srv.Close()

	client := catalog.NewClient(catalog.Config{
		BaseURL:        srv.URL + "/pokemon",
		RequestTimeout: time.Second,
		ConnectTimeout: time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	})
	defer client.Close()

	store := memory.NewRecordRepo(0)
	r := New(cache.NewMemory(time.Hour, 100), store, client)
	ctx := context.Background()

	view, ok, err := r.Resolve(ctx, "pikachu")
	if err != nil || !ok {
		t.Fatalf("expected found, got ok=%v err=%v", ok, err)
	}
	if view.ID != 25 || view.Identifier != "pikachu" ||
		len(view.Types) != 1 || view.Types[0] != "electric" ||
		view.BaseStats["speed"] != 90 ||
		view.Sprites["front_default"] == nil || *view.Sprites["front_default"] != "https://x/y.png" ||
		len(view.Abilities) != 1 || view.Abilities[0] != "static" ||
		view.SourceURL != srv.URL+"/pokemon/pikachu" {
		t.Errorf("unexpected view: %+v", view)
	}

	if _, ok, _ := r.Resolve(ctx, "pikachu"); !ok {
		t.Fatal("expected second lookup to hit")
	}
	if hits != 1 {
		t.Errorf("expected a single remote call, got %d", hits)
	}

	rec, err := store.FindByKey(ctx, "pikachu")
	if err != nil || rec.Payload != pikachuPayload {
		t.Errorf("expected raw payload persisted, got %+v (%v)", rec, err)
	}

	if _, ok, _ := r.Resolve(ctx, "missingno"); ok {
		t.Error("expected 404 to read as not found")
	}
}

// cancellingFetcher answers Found but cancels the caller's context first,
// as a client disconnect or request deadline would.
type cancellingFetcher struct {
	cancel context.CancelFunc
	body   string
}

func (f *cancellingFetcher) Fetch(_ context.Context, _ string) catalog.Result {
	f.cancel()
	return catalog.Result{Outcome: catalog.Found, Body: f.body, Attempts: 1, Status: 200}
}

func (f *cancellingFetcher) URL(key string) string {
	return "https://catalog.test/pokemon/" + key
}

func TestResolve_PersistsAfterCallerCancels(t *testing.T) {
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "dex.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store := sqlrepo.NewRecordRepo(db.DB, 0)
	c := cache.NewMemory(time.Hour, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(c, store, &cancellingFetcher{cancel: cancel, body: pikachuPayload})

	if _, ok, _ := r.Resolve(ctx, "pikachu"); !ok {
		t.Fatal("expected found")
	}
	if ctx.Err() == nil {
		t.Fatal("expected caller context cancelled")
	}

	rec, err := store.FindByKey(context.Background(), "pikachu")
	if err != nil {
		t.Fatalf("expected payload persisted despite cancellation, got %v", err)
	}
	if rec.Payload != pikachuPayload || rec.NumericID != 25 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if _, ok := c.Get(context.Background(), "pikachu"); !ok {
		t.Error("expected view cached despite cancellation")
	}
}
