// Package stmtcache keeps a bounded, least-recently-used set of prepared
// statements keyed by their SQL text.
package stmtcache

import (
	"context"
	"database/sql"

	"github.com/hashicorp/golang-lru"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/logger"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 1000

// Preparer compiles SQL on a live connection. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Recorder observes cache activity. The metrics package provides one.
type Recorder interface {
	CacheHit()
	CacheMiss()
	CacheEvicted()
}

// Cache maps SQL text to a prepared statement. Evicted and purged
// statements are closed.
type Cache struct {
	lru      *lru.Cache
	capacity int
	rec      Recorder
}

type Option func(*Cache)

func WithRecorder(r Recorder) Option { return func(c *Cache) { c.rec = r } }

// New returns a Cache holding at most capacity statements.
func New(capacity int, log *logger.Logger, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	log = logger.OrNop(log).Component("stmtcache")

	c := &Cache{capacity: capacity}
	cache, err := lru.NewWithEvict(capacity, func(key, value interface{}) {
		if err := value.(*sql.Stmt).Close(); err != nil {
			log.WarnWith("failed to close evicted statement", err, map[string]interface{}{"sql": key})
		}
	})
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	c.lru = cache
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the statement cached for query, refreshing its
// recency, or prepares it on p and caches it. Preparation errors are
// returned unwrapped for the caller's vendor error mapper.
func (c *Cache) GetOrCreate(ctx context.Context, p Preparer, query string) (*sql.Stmt, error) {
	if v, ok := c.lru.Get(query); ok {
		c.record(Recorder.CacheHit)
		return v.(*sql.Stmt), nil
	}
	c.record(Recorder.CacheMiss)

	if p == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "no connection to prepare statement on")
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	if prev, found, evicted := c.lru.PeekOrAdd(query, stmt); found {
		_ = stmt.Close()
		return prev.(*sql.Stmt), nil
	} else if evicted {
		c.record(Recorder.CacheEvicted)
	}
	return stmt, nil
}

// Contains reports whether query is cached without touching its recency.
func (c *Cache) Contains(query string) bool { return c.lru.Contains(query) }

func (c *Cache) Len() int      { return c.lru.Len() }
func (c *Cache) Capacity() int { return c.capacity }

// Keys returns the cached SQL texts, oldest first.
func (c *Cache) Keys() []string {
	keys := c.lru.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.(string)
	}
	return out
}

// Purge closes and drops every cached statement.
func (c *Cache) Purge() { c.lru.Purge() }

func (c *Cache) record(fn func(Recorder)) {
	if c.rec != nil {
		fn(c.rec)
	}
}
