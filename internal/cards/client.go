// Package cards is the client for the external card-database collaborator
// (a Scryfall-compatible API). Lookups are cached and misses are non-fatal:
// a card the catalog cannot resolve is reported as absent, never as an error,
// so one bad deck entry does not block a game from starting.
package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL       = "https://api.scryfall.com"
	defaultTimeout       = 30 * time.Second
	defaultMaxConcurrent = 10
	defaultCacheTTL      = 24 * time.Hour
)

// Resolver is the lookup surface the session core depends on. A (nil, nil)
// return from Resolve means the catalog has no such card.
type Resolver interface {
	Resolve(ctx context.Context, scryfallID string) (*CardMetadata, error)
	ResolveMany(ctx context.Context, scryfallIDs []string) (map[string]*CardMetadata, error)
}

// CommanderValidation is the result of a commander legality check.
type CommanderValidation struct {
	Valid  bool
	Reason string
	Card   *CardMetadata
}

// Options tune the client; zero values fall back to defaults.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
	CacheTTL      time.Duration
}

// Client resolves card metadata over HTTP with an in-process TTL cache and a
// bounded number of in-flight requests toward the catalog.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	cache         *metadataCache
	maxConcurrent int
	logger        *zap.Logger
}

// NewClient creates a card-database client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	return &Client{
		baseURL:       opts.BaseURL,
		httpClient:    &http.Client{Timeout: opts.Timeout},
		cache:         newMetadataCache(opts.CacheTTL),
		maxConcurrent: opts.MaxConcurrent,
		logger:        logger,
	}
}

// Resolve fetches one card by scryfall ID, serving from cache when possible.
func (c *Client) Resolve(ctx context.Context, scryfallID string) (*CardMetadata, error) {
	if scryfallID == "" {
		return nil, nil
	}

	if meta, ok := c.cache.get(scryfallID); ok {
		return meta, nil
	}

	url := fmt.Sprintf("%s/cards/%s", c.baseURL, scryfallID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch card %s: %w", scryfallID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch card %s: unexpected status %d", scryfallID, resp.StatusCode)
	}

	var meta CardMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode card %s: %w", scryfallID, err)
	}

	c.cache.put(scryfallID, &meta)
	return &meta, nil
}

// ResolveMany fetches a batch of cards in parallel, capped at the configured
// number of concurrent catalog requests. Individual failures and misses leave
// the card absent from the result map rather than failing the batch.
func (c *Client) ResolveMany(ctx context.Context, scryfallIDs []string) (map[string]*CardMetadata, error) {
	results := make(map[string]*CardMetadata, len(scryfallIDs))
	if len(scryfallIDs) == 0 {
		return results, nil
	}

	seen := make(map[string]bool, len(scryfallIDs))
	unique := make([]string, 0, len(scryfallIDs))
	for _, id := range scryfallIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)

	for _, id := range unique {
		id := id
		g.Go(func() error {
			meta, err := c.Resolve(gctx, id)
			if err != nil {
				c.logger.Warn("card lookup failed",
					zap.String("scryfall_id", id),
					zap.Error(err),
				)
				return nil
			}
			if meta == nil {
				return nil
			}
			mu.Lock()
			results[id] = meta
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ValidateCommander checks that the card exists and is a legendary creature.
func (c *Client) ValidateCommander(ctx context.Context, scryfallID string) (CommanderValidation, error) {
	meta, err := c.Resolve(ctx, scryfallID)
	if err != nil {
		return CommanderValidation{}, err
	}
	if meta == nil {
		return CommanderValidation{Valid: false, Reason: "card not found"}, nil
	}
	if !meta.IsLegendaryCreature() {
		return CommanderValidation{Valid: false, Reason: "commander must be a legendary creature", Card: meta}, nil
	}
	return CommanderValidation{Valid: true, Card: meta}, nil
}

// CachedCards returns the number of cards currently cached.
func (c *Client) CachedCards() int {
	return c.cache.len()
}
