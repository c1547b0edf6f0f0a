package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/celltrack/crawler/internal/browser"
	"github.com/celltrack/crawler/internal/catalog"
	"github.com/celltrack/crawler/internal/models"
)

type fakeFactory struct {
	newSession func() browser.Session
}

func (f *fakeFactory) NewSession(ctx context.Context) (browser.Session, error) {
	return f.newSession(), nil
}

// fakeBackend is a minimal in-memory catalog service.
type fakeBackend struct {
	mu      sync.Mutex
	brands  []string
	known   []string
	created []models.ProductRecord
	upserts []models.ProductRecord
	// toCreate is what the next upsert asks the crawler to POST.
	toCreate []string
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/brands/amazon", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"brands": b.brands})
	})
	mux.HandleFunc("/api/products/amazon/id", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"asins": b.known})
	})
	mux.HandleFunc("/api/products/amazon", func(w http.ResponseWriter, r *http.Request) {
		var records []models.ProductRecord
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			t.Errorf("decode %s body: %v", r.Method, err)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			b.upserts = append(b.upserts, records...)
			json.NewEncoder(w).Encode(map[string]any{"to_create": b.toCreate})
		case http.MethodPost:
			b.created = append(b.created, records...)
			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	return mux
}

func TestManagerRunEndToEnd(t *testing.T) {
	backend := &fakeBackend{
		brands:   []string{"Xiaomi", "generic", ""},
		known:    []string{"B0VAR1"},
		toCreate: []string{"B0PHONE1"},
	}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := catalog.NewClient(server.URL, "amazon", server.Client(), testLogger())
	sessions := catalog.NewSessionManager(client, nil, testLogger())
	sessions.SetCredentials("token", "")

	resultsURL := siteURL + "/s?k=xiaomi"
	pages := map[string]string{
		siteURL:                  homePage,
		resultsURL:               resultsPage,
		siteURL + "/dp/B0PHONE1": phonePage,
		siteURL + "/dp/B0VAR2":   phonePage,
	}
	factory := &fakeFactory{newSession: func() browser.Session {
		sess := newFakeSession(pages)
		sess.onKeys = func(s *fakeSession, el *fakeElement, keys string) error {
			return s.load(resultsURL)
		}
		return sess
	}}

	manager := NewManager(ManagerOptions{
		Sessions: sessions,
		Browsers: factory,
		Limiter:  testLimiter(),
		Logger:   testLogger(),
		SiteURL:  siteURL,
		Workers:  1,
	})

	var progressItems int
	manager.OnItem = func() { progressItems++ }

	if err := manager.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// B0VAR1 is already in the catalog; only the two fresh identifiers
	// get detail extraction.
	if progressItems != 2 {
		t.Errorf("progress reported %d items, want 2", progressItems)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.upserts) != 2 {
		t.Fatalf("backend received %d upserted records, want 2", len(backend.upserts))
	}
	// Only the exact subset the backend asked for is POSTed.
	if len(backend.created) != 1 || backend.created[0].Identifier != "B0PHONE1" {
		t.Errorf("created = %+v, want just B0PHONE1", backend.created)
	}
}

func TestManagerBrandsFallsBackToDefaults(t *testing.T) {
	backend := &fakeBackend{brands: []string{"", "generic"}}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	client := catalog.NewClient(server.URL, "amazon", server.Client(), testLogger())
	sessions := catalog.NewSessionManager(client, nil, testLogger())
	sessions.SetCredentials("token", "")

	manager := NewManager(ManagerOptions{
		Sessions: sessions,
		Limiter:  testLimiter(),
		Logger:   testLogger(),
	})

	brands, err := manager.Brands(context.Background())
	if err != nil {
		t.Fatalf("Brands: %v", err)
	}
	if len(brands) != len(DefaultRules().KnownBrands) {
		t.Errorf("got %d brands, want the default set of %d", len(brands), len(DefaultRules().KnownBrands))
	}
}

func TestManagerReconcileSkipsEmptyBatch(t *testing.T) {
	// No backend: an empty batch must not issue any call.
	manager := NewManager(ManagerOptions{Logger: testLogger()})
	if err := manager.Reconcile(context.Background(), "apple", nil); err != nil {
		t.Fatalf("Reconcile(empty): %v", err)
	}
}
