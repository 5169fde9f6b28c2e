// internal/directory/directory.go
package directory

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"finsight/internal/analytics"
	"finsight/internal/common/config"
	"finsight/internal/common/database"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"golang.org/x/sync/errgroup"
)

const cacheKey = "directory:snapshot"

// SymbolLister is the provider surface the directory needs.
type SymbolLister interface {
	ListSymbols(ctx context.Context, namespace string) ([]analytics.SymbolListing, error)
}

// Entry is one instrument in the directory snapshot.
type Entry struct {
	Ticker    string           `json:"ticker"`
	Namespace models.Namespace `json:"namespace"`
	Name      string           `json:"name"`
	Currency  string           `json:"currency"`
}

// ID returns the qualified identifier of the entry.
func (e Entry) ID() string {
	return e.Ticker + "." + string(e.Namespace)
}

// Snapshot is an immutable point-in-time copy of the symbol directory.
// Resolution always runs against a single snapshot so one query never
// sees two directory states.
type Snapshot struct {
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetchedAt"`

	byNamespace map[models.Namespace][]Entry
	byID        map[string]Entry
}

// NewSnapshot builds an indexed snapshot from a fixed entry list.
func NewSnapshot(entries []Entry) *Snapshot {
	snap := &Snapshot{Entries: entries, FetchedAt: time.Now().UTC()}
	snap.index()
	return snap
}

// index builds the lookup maps. Called once after load or decode.
func (s *Snapshot) index() {
	s.byNamespace = make(map[models.Namespace][]Entry)
	s.byID = make(map[string]Entry, len(s.Entries))
	for _, e := range s.Entries {
		s.byNamespace[e.Namespace] = append(s.byNamespace[e.Namespace], e)
		s.byID[e.ID()] = e
	}
}

// InNamespace returns all entries of one namespace.
func (s *Snapshot) InNamespace(ns models.Namespace) []Entry {
	return s.byNamespace[ns]
}

// Lookup finds an entry by qualified identifier, case-insensitive.
func (s *Snapshot) Lookup(id string) (Entry, bool) {
	e, ok := s.byID[strings.ToUpper(id)]
	return e, ok
}

// Size returns the number of entries.
func (s *Snapshot) Size() int {
	return len(s.Entries)
}

// Service keeps the current directory snapshot in memory, backed by a
// redis cache so restarts do not hammer the provider.
type Service struct {
	provider SymbolLister
	redis    *database.RedisClient
	cacheTTL time.Duration
	logger   logger.Logger

	current atomic.Pointer[Snapshot]
}

func NewService(provider SymbolLister, redis *database.RedisClient, cfg config.DirectoryConfig, log logger.Logger) *Service {
	return &Service{
		provider: provider,
		redis:    redis,
		cacheTTL: time.Duration(cfg.CacheTTL) * time.Second,
		logger:   log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// Current returns the in-memory snapshot, or nil when none is loaded yet.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

// Load returns a usable snapshot: in-memory first, then the redis cache,
// then a full provider refresh.
func (s *Service) Load(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	if snap := s.loadFromCache(ctx); snap != nil {
		s.current.Store(snap)
		return snap, nil
	}

	return s.Refresh(ctx)
}

// Refresh fetches every namespace from the provider and atomically swaps
// the in-memory snapshot. The previous snapshot stays valid for readers
// that already hold it.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{FetchedAt: time.Now().UTC()}

	results := make([][]Entry, len(models.KnownNamespaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, ns := range models.KnownNamespaces {
		i, ns := i, ns
		g.Go(func() error {
			listings, err := s.provider.ListSymbols(gctx, string(ns))
			if err != nil {
				return err
			}
			entries := make([]Entry, 0, len(listings))
			for _, l := range listings {
				ticker := l.Symbol
				if dot := strings.LastIndex(l.Symbol, "."); dot > 0 {
					ticker = l.Symbol[:dot]
				}
				currency := l.Currency
				if currency == "" {
					currency = models.CurrencyFor(ns)
				}
				entries = append(entries, Entry{
					Ticker:    strings.ToUpper(ticker),
					Namespace: ns,
					Name:      l.Name,
					Currency:  currency,
				})
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, commonerrors.NewDirectoryUnavailableError(err)
	}

	for _, entries := range results {
		snap.Entries = append(snap.Entries, entries...)
	}
	snap.index()

	s.current.Store(snap)
	s.storeInCache(ctx, snap)

	s.logger.Info("directory refreshed", map[string]interface{}{
		"entries":   snap.Size(),
		"fetchedAt": snap.FetchedAt.Format(time.RFC3339),
	})

	return snap, nil
}

func (s *Service) loadFromCache(ctx context.Context) *Snapshot {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, cacheKey)
	if err != nil {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("directory cache entry corrupt, discarding", map[string]interface{}{
			"error": err.Error(),
		})
		_ = s.redis.Del(ctx, cacheKey)
		return nil
	}

	snap.index()
	return &snap
}

func (s *Service) storeInCache(ctx context.Context, snap *Snapshot) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache directory snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
