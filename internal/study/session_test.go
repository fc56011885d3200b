package study

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource wraps a Static source and counts fetches.
type countingSource struct {
	source.Static
	calls atomic.Int32
}

func (c *countingSource) Fetch(ctx context.Context, ids []sheet.ID) []sheet.Table {
	c.calls.Add(1)
	return c.Static.Fetch(ctx, ids)
}

// gatedSource blocks fetches of the gated sheet until the fetch context is
// cancelled, then returns stale rows anyway.
type gatedSource struct {
	source.Static
	gated   sheet.ID
	started chan struct{}
	once    sync.Once
}

func (g *gatedSource) Fetch(ctx context.Context, ids []sheet.ID) []sheet.Table {
	for _, id := range ids {
		if id == g.gated {
			g.once.Do(func() { close(g.started) })
			<-ctx.Done()
			return []sheet.Table{{Sheet: id, Rows: [][]string{{"h"}, {"stale"}}}}
		}
	}
	return g.Static.Fetch(ctx, ids)
}

func fixture() source.Static {
	return source.Static{
		"A":           {{"h"}, {"x", "1"}, {"", "2"}, {"y", "3"}},
		"B":           {{"h"}, {"z", "9"}},
		sheet.IngOrTo: {{"prompt", "answer"}, {"I enjoy ___", "swimming"}, {"I decided ___", "to go"}},
		"blank":       {{"h"}, {" "}},
	}
}

func TestSession_StartRejectsEmptySelection(t *testing.T) {
	src := &countingSource{Static: fixture()}
	s := NewSession(src, nil)

	assert.ErrorIs(t, s.Start(context.Background(), Multi()), ErrEmptySelection)
	assert.ErrorIs(t, s.Start(context.Background(), Multi("", " ")), ErrEmptySelection)
	assert.ErrorIs(t, s.Start(context.Background(), Fixed("")), ErrEmptySelection)
	assert.ErrorIs(t, s.Start(context.Background(), Config{Kind: KindFixed, Sheets: []sheet.ID{"A", "B"}}), ErrFixedSelection)

	assert.Zero(t, src.calls.Load(), "no fetch may be issued")
	assert.Equal(t, PhaseIdle, s.Snapshot().Phase)
	assert.ErrorIs(t, s.Reveal(), ErrNotStarted)
	_, err := s.Advance()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSession_MultiSourceDeck(t *testing.T) {
	s := NewSession(fixture(), nil)
	require.NoError(t, s.Start(context.Background(), Multi("A", "B", "A")))

	snap := s.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, []sheet.ID{"A", "B"}, snap.Selection.IDs())
	assert.Equal(t, KindMulti, snap.Kind)
	assert.Equal(t, 3, s.DeckSize())

	var terms []string
	for i := 0; i < 3; i++ {
		row, ok := s.CurrentCard()
		require.True(t, ok)
		terms = append(terms, row.Term())
		_, err := s.Advance()
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"x", "y", "z"}, terms)
}

func TestSession_FixedQuiz(t *testing.T) {
	s := NewSession(fixture(), nil)
	require.NoError(t, s.Start(context.Background(), Fixed(sheet.IngOrTo)))

	p, ok := s.Progress()
	require.True(t, ok)
	assert.Equal(t, Progress{Current: 1, Total: 2, Percent: 50}, p)

	require.NoError(t, s.Reveal())
	assert.True(t, s.Snapshot().AnswerVisible)

	reshuffled, err := s.Advance()
	require.NoError(t, err)
	assert.False(t, reshuffled)
	assert.False(t, s.Snapshot().AnswerVisible)

	reshuffled, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, reshuffled)
	p, _ = s.Progress()
	assert.Equal(t, 1, p.Current)
}

func TestSession_NoRowsIsEmptyState(t *testing.T) {
	s := NewSession(fixture(), nil)
	require.NoError(t, s.Start(context.Background(), Multi("blank", "missing")))

	snap := s.Snapshot()
	assert.Equal(t, PhaseEmpty, snap.Phase)
	assert.False(t, snap.HasCard)
	assert.False(t, snap.HasProgress)

	_, ok := s.CurrentCard()
	assert.False(t, ok)
	_, ok = s.Progress()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Reveal(), ErrEmptyDeck)

	// A new selection recovers.
	require.NoError(t, s.Start(context.Background(), Multi("B")))
	assert.Equal(t, PhaseActive, s.Snapshot().Phase)
}

func TestSession_StaleStartCannotOverwriteNewerDeck(t *testing.T) {
	src := &gatedSource{Static: fixture(), gated: "A", started: make(chan struct{})}
	s := NewSession(src, nil)

	staleErr := make(chan error, 1)
	go func() {
		staleErr <- s.Start(context.Background(), Multi("A"))
	}()

	select {
	case <-src.started:
	case <-time.After(time.Second):
		t.Fatal("first fetch never started")
	}
	assert.Equal(t, PhaseLoading, s.Snapshot().Phase)

	require.NoError(t, s.Start(context.Background(), Multi("B")))

	select {
	case err := <-staleErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("stale start did not return")
	}

	row, ok := s.CurrentCard()
	require.True(t, ok)
	assert.Equal(t, "z", row.Term())
	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, []sheet.ID{"B"}, snap.Selection.IDs())
}

func TestSession_CallerCancellationKeepsPreviousDeck(t *testing.T) {
	src := &gatedSource{Static: fixture(), gated: "A", started: make(chan struct{})}
	s := NewSession(src, nil)
	require.NoError(t, s.Start(context.Background(), Multi("B")))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx, Multi("A")) }()
	<-src.started
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)

	row, ok := s.CurrentCard()
	require.True(t, ok)
	assert.Equal(t, "z", row.Term())
	assert.Equal(t, PhaseActive, s.Snapshot().Phase)
}

func TestSession_Close(t *testing.T) {
	src := &gatedSource{Static: fixture(), gated: "A", started: make(chan struct{})}
	s := NewSession(src, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background(), Multi("A")) }()
	<-src.started

	s.Close()
	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.ErrorIs(t, s.Start(context.Background(), Multi("B")), ErrClosed)
}

func TestSnapshot_View(t *testing.T) {
	s := NewSession(source.Static{sheet.IngOrTo: {{"h"}, {"I enjoy ___", "swimming", "", "泳ぐのを楽しむ"}}}, nil)
	require.NoError(t, s.Start(context.Background(), Fixed(sheet.IngOrTo)))

	catalog := sheet.DefaultCatalog()
	v := s.Snapshot().View(catalog)
	assert.Equal(t, PhaseActive, v.State)
	assert.Equal(t, "fixed", v.Kind)
	require.NotNil(t, v.Card)
	assert.Equal(t, "I enjoy ___", v.Card.Term)
	assert.True(t, v.Card.Fields[1].Hidden)
	assert.Empty(t, v.Card.Fields[1].Value)
	require.NotNil(t, v.Progress)
	assert.Equal(t, 1, v.Progress.Total)

	require.NoError(t, s.Reveal())
	v = s.Snapshot().View(catalog)
	assert.Equal(t, "swimming", v.Card.Fields[1].Value)

	idle := NewSession(source.Static{}, nil).Snapshot().View(catalog)
	assert.Equal(t, PhaseIdle, idle.State)
	assert.Nil(t, idle.Card)
	assert.Nil(t, idle.Progress)
}
