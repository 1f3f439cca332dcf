package cards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func catalogServer(t *testing.T, cards map[string]CardMetadata, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		id := strings.TrimPrefix(r.URL.Path, "/cards/")
		meta, ok := cards[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(meta)
	}))
}

func TestResolve(t *testing.T) {
	srv := catalogServer(t, map[string]CardMetadata{
		"abc": {
			ScryfallID: "abc",
			Name:       "Llanowar Elves",
			TypeLine:   "Creature — Elf Druid",
			ManaCost:   "{G}",
			CMC:        1,
			Power:      "1",
			Toughness:  "1",
		},
	}, nil)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zap.NewNop())

	meta, err := client.Resolve(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Llanowar Elves", meta.Name)
	assert.Equal(t, "1", meta.Power)
}

func TestResolveMissIsNotAnError(t *testing.T) {
	srv := catalogServer(t, nil, nil)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zap.NewNop())

	meta, err := client.Resolve(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = client.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestResolveCaches(t *testing.T) {
	var hits atomic.Int64
	srv := catalogServer(t, map[string]CardMetadata{
		"abc": {ScryfallID: "abc", Name: "Sol Ring"},
	}, &hits)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, CacheTTL: time.Minute}, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := client.Resolve(context.Background(), "abc")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), hits.Load(), "repeated lookups must be served from cache")
	assert.Equal(t, 1, client.CachedCards())
}

func TestResolveManyToleratesMisses(t *testing.T) {
	srv := catalogServer(t, map[string]CardMetadata{
		"a": {ScryfallID: "a", Name: "A"},
		"b": {ScryfallID: "b", Name: "B"},
	}, nil)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, MaxConcurrent: 3}, zap.NewNop())

	results, err := client.ResolveMany(context.Background(), []string{"a", "b", "missing", "a", ""})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "A", results["a"].Name)
	assert.NotContains(t, results, "missing")
}

func TestResolveManyEmpty(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:0"}, zap.NewNop())
	results, err := client.ResolveMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateCommander(t *testing.T) {
	srv := catalogServer(t, map[string]CardMetadata{
		"cmd": {ScryfallID: "cmd", Name: "Atraxa", TypeLine: "Legendary Creature — Phyrexian Angel"},
		"elf": {ScryfallID: "elf", Name: "Llanowar Elves", TypeLine: "Creature — Elf Druid"},
	}, nil)
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL}, zap.NewNop())
	ctx := context.Background()

	v, err := client.ValidateCommander(ctx, "cmd")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	require.NotNil(t, v.Card)
	assert.Equal(t, "Atraxa", v.Card.Name)

	v, err = client.ValidateCommander(ctx, "elf")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "commander must be a legendary creature", v.Reason)

	v, err = client.ValidateCommander(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "card not found", v.Reason)
}

func TestFrontImageURIs(t *testing.T) {
	single := &CardMetadata{ImageURIs: map[string]string{"normal": "https://img/x.jpg"}}
	assert.Equal(t, "https://img/x.jpg", single.FrontImageURIs()["normal"])

	dfc := &CardMetadata{
		CardFaces: []CardFace{
			{Name: "Front", ImageURIs: map[string]string{"normal": "https://img/front.jpg"}},
			{Name: "Back", ImageURIs: map[string]string{"normal": "https://img/back.jpg"}},
		},
	}
	assert.Equal(t, "https://img/front.jpg", dfc.FrontImageURIs()["normal"])

	assert.Nil(t, (&CardMetadata{}).FrontImageURIs())
}
