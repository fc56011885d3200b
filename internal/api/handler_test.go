//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/vocabook/internal/config"
	"github.com/ashureev/vocabook/internal/domain"
	"github.com/ashureev/vocabook/internal/identity"
	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/source"
	"github.com/ashureev/vocabook/internal/store"
	"github.com/ashureev/vocabook/internal/study"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// fakeRepo implements the parts of store.Repository the handlers use.
type fakeRepo struct {
	store.Repository

	mu       sync.Mutex
	learners map[string]*domain.Learner
	records  []*domain.StudySessionRecord
	pingErr  error
	listErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{learners: map[string]*domain.Learner{
		testLearner: {LearnerID: testLearner, Username: "anon-learner"},
	}}
}

func (f *fakeRepo) GetLearner(_ context.Context, id string) (*domain.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.learners[id], nil
}

func (f *fakeRepo) RecordStudySession(_ context.Context, rec *domain.StudySessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = fmt.Sprintf("rec-%d", len(f.records)+1)
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRepo) ListStudySessions(_ context.Context, learnerID string, limit int) ([]*domain.StudySessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.StudySessionRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].LearnerID == learnerID && (limit <= 0 || len(out) < limit) {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) Ping(context.Context) error { return f.pingErr }

const testLearner = "anon_0123456789abcdef0123456789abcdef"

func testFixture() source.Static {
	return source.Static{
		sheet.Noun:    {{"term", "translation"}, {"apple", "りんご"}, {"book", "本"}},
		sheet.Verb:    {{"term", "translation"}, {"run", "走る"}, {"", "skipped"}},
		sheet.IngOrTo: {{"prompt", "answer"}, {"I enjoy ___", "swimming"}},
		sheet.Idiom:   {{"term"}},
	}
}

type testServer struct {
	router   chi.Router
	repo     *fakeRepo
	sessions *study.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := newFakeRepo()
	sessions := study.NewManager(testFixture(), nil)
	sessions.SetHistory(repo)
	cfg := &config.Config{
		Sheets: config.SheetsConfig{Concurrency: 4},
		Study:  config.StudyConfig{SessionTTL: time.Hour},
	}
	base := NewHandler(repo, sessions, sheet.DefaultCatalog(), testFixture(), cfg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := identity.WithLearner(req.Context(), testLearner, req.Header.Get(identity.SessionHeaderName))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHealthHandler(repo, sessions).RegisterHealth(r)
	NewSheetHandler(base).RegisterRoutes(r)
	NewSessionHandler(base).RegisterRoutes(r)
	return &testServer{router: r, repo: repo, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(identity.SessionHeaderName, "tab-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "no data")

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"no data"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{study.ErrEmptySelection, http.StatusBadRequest},
		{study.ErrFixedSelection, http.StatusBadRequest},
		{fmt.Errorf("parse: %w", sheet.ErrUnknownSheet), http.StatusBadRequest},
		{study.ErrEmptyDeck, http.StatusConflict},
		{study.ErrSuperseded, http.StatusConflict},
		{study.ErrNotStarted, http.StatusConflict},
		{study.ErrClosed, http.StatusConflict},
		{fmt.Errorf("start session: %w", context.Canceled), http.StatusRequestTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	s.repo.pingErr = errors.New("disk I/O error")
	rec = s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	body := decode[map[string]interface{}](t, rec)
	if body["status"] != "degraded" {
		t.Errorf("Expected degraded, got %v", body["status"])
	}
}
