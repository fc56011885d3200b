package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGoogleSheets_FetchRequestsCatalogRanges(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPaths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPaths = append(gotPaths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"range":"noun!A1:E1000","majorDimension":"ROWS","values":[["word","meaning"],["apple","りんご"]]}`)
	}))
	defer srv.Close()

	g := NewGoogleSheets(GoogleSheetsConfig{
		BaseURL:       srv.URL + "/",
		SpreadsheetID: "sheet-123",
		APIKey:        "test-key",
		Concurrency:   1,
		HTTPClient:    srv.Client(),
	}, sheet.DefaultCatalog())

	tables := g.Fetch(context.Background(), []sheet.ID{sheet.Noun})

	require.Len(t, tables, 1)
	assert.Equal(t, sheet.Noun, tables[0].Sheet)
	assert.Equal(t, [][]string{{"word", "meaning"}, {"apple", "りんご"}}, tables[0].Rows)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/v4/spreadsheets/sheet-123/values/noun!A1:E"}, gotPaths)
}

func TestGoogleSheets_FailuresDegradeToEmptyRows(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(r.URL.Path, "/values/noun"):
			return jsonResponse(http.StatusOK, `{"values":[["h"],["cat"]]}`), nil
		case strings.Contains(r.URL.Path, "/values/verb"):
			return jsonResponse(http.StatusForbidden, `{"error":{"message":"API key not valid"}}`), nil
		case strings.Contains(r.URL.Path, "/values/idiom"):
			// Sheets omits "values" entirely for an empty range.
			return jsonResponse(http.StatusOK, `{"range":"idiom!A1:E"}`), nil
		case strings.Contains(r.URL.Path, "/values/adverb"):
			return jsonResponse(http.StatusOK, `not json`), nil
		default:
			return nil, errors.New("connection refused")
		}
	})}

	g := NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "id", APIKey: "k", HTTPClient: client}, sheet.DefaultCatalog())
	ids := []sheet.ID{sheet.Verb, sheet.Noun, sheet.Idiom, sheet.Adverb, sheet.Adjective, "unknown"}
	tables := g.Fetch(context.Background(), ids)

	require.Len(t, tables, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, tables[i].Sheet, "tables keep request order")
	}
	assert.Empty(t, tables[0].Rows)
	assert.Equal(t, [][]string{{"h"}, {"cat"}}, tables[1].Rows)
	assert.Empty(t, tables[2].Rows)
	assert.Empty(t, tables[3].Rows)
	assert.Empty(t, tables[4].Rows)
	assert.Empty(t, tables[5].Rows)
}

func TestGoogleSheets_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return jsonResponse(http.StatusOK, `{"values":[["h"]]}`), nil
	})}

	g := NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "id", APIKey: "k", Concurrency: 2, HTTPClient: client}, sheet.DefaultCatalog())
	tables := g.Fetch(context.Background(), sheet.DefaultCatalog().Group(sheet.GroupVocabulary))

	assert.Len(t, tables, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGoogleSheets_CancelledContextReturnsNothing(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})}

	g := NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "id", APIKey: "k", HTTPClient: client}, sheet.DefaultCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	assert.Empty(t, g.Fetch(ctx, []sheet.ID{sheet.Noun, sheet.Verb}))
}

func TestGoogleSheets_TimeoutPerSheet(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, "/values/verb") {
			<-r.Context().Done()
			return nil, r.Context().Err()
		}
		return jsonResponse(http.StatusOK, `{"values":[["h"],["ok"]]}`), nil
	})}

	g := NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "id", APIKey: "k", Timeout: 20 * time.Millisecond, HTTPClient: client}, sheet.DefaultCatalog())
	tables := g.Fetch(context.Background(), []sheet.ID{sheet.Noun, sheet.Verb})

	require.Len(t, tables, 2)
	assert.Len(t, tables[0].Rows, 2)
	assert.Empty(t, tables[1].Rows)
}
