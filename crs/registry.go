package crs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/muesli/reflow/truncate"
	"go.uber.org/zap"
)

// ErrUnresolved is returned when a CRS definition could not be obtained:
// the identifier is not cached, and the lookup service is absent, answered
// 404, timed out, or returned a definition that does not parse.
var ErrUnresolved = fmt.Errorf("unresolved crs")

// DefaultLookupTimeout bounds a single definition lookup.
const DefaultLookupTimeout = 500 * time.Millisecond

const logFieldMaxLen = 120

// Config configures a Registry. The zero value gives a registry with the
// built-in definitions and no lookup service.
type Config struct {
	// LookupURL is the base URL of the external definition service
	// (GET {LookupURL}/definition/{crsId}). Empty disables lookups.
	LookupURL string
	// Client used for lookups. Defaults to http.DefaultClient.
	Client *http.Client
	// Timeout per lookup. Defaults to DefaultLookupTimeout.
	Timeout time.Duration
	// Seed replaces the built-in definitions when non-nil. Pass an empty,
	// non-nil map for a registry without any pre-resolved definition.
	Seed map[ID]*Definition
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Registry resolves CRS identifiers to definitions. Resolved definitions are
// cached for the process lifetime; definitions are static, so entries are
// never expired or replaced with different content. Safe for concurrent use.
// Concurrent lookups for the same identifier are not deduplicated: duplicate
// fetches are harmless since writes are idempotent.
type Registry struct {
	mu   sync.RWMutex
	defs map[ID]*Definition

	lookupURL string
	client    *http.Client
	timeout   time.Duration
	log       *zap.Logger
}

func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		defs:      cfg.Seed,
		lookupURL: cfg.LookupURL,
		client:    cfg.Client,
		timeout:   cfg.Timeout,
		log:       cfg.Logger,
	}
	if r.defs == nil {
		r.defs = builtinDefinitions()
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	if r.timeout <= 0 {
		r.timeout = DefaultLookupTimeout
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// Resolve returns the definition for id, fetching it from the lookup service
// on a cache miss. Failures wrap ErrUnresolved; failed lookups are not
// cached, so a caller that wants a retry simply calls Resolve again.
func (r *Registry) Resolve(ctx context.Context, id ID) (*Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[id]
	r.mu.RUnlock()
	if ok {
		return def, nil
	}

	if r.lookupURL == "" {
		return nil, fmt.Errorf("%w: %v (no lookup service configured)", ErrUnresolved, id)
	}

	def, err := r.fetch(ctx, id)
	if err != nil {
		r.log.Warn("crs definition lookup failed", zap.String("crs", id.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v: %v", ErrUnresolved, id, err)
	}

	r.mu.Lock()
	r.defs[id] = def // last writer wins
	r.mu.Unlock()
	r.log.Debug("crs definition resolved",
		zap.String("crs", id.String()),
		zap.String("definition", truncate.StringWithTail(def.Raw(), logFieldMaxLen, "...")))
	return def, nil
}

func (r *Registry) fetch(ctx context.Context, id ID) (*Definition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lookup := r.lookupURL + "/definition/" + url.PathEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("definition service does not know %v", id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("definition service answered %v", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, err
	}
	return ParseProj4(id, string(body))
}

// Known reports whether id is currently resolved, without triggering a lookup.
func (r *Registry) Known(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[id]
	return ok
}
