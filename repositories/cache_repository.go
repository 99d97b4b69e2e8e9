package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"villa-api/domain"
	"villa-api/logging"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/sirupsen/logrus"
)

const (
	localCacheTTL     = 5 * time.Minute
	memcachedCacheTTL = int32(15 * 60) // seconds
)

// CacheOptions configures NewCachedRepository.
type CacheOptions struct {
	// MaxSize bounds the local cache. Zero means 1000 entries.
	MaxSize int64
	// MemcachedHost enables the second cache level when not empty.
	MemcachedHost string
	Logger        logrus.FieldLogger
}

// CachedRepository wraps another repository with a two-level cache of
// single villas: a local ccache first, then Memcached.
// List and FindByName always go to the underlying store.
//
// Every write bumps a generation counter. A read that went to the store
// only fills the cache when the generation is unchanged, so a value loaded
// before a concurrent write can not outlive that write's invalidation.
type CachedRepository struct {
	next      VillaRepository
	local     *ccache.Cache[*domain.Villa]
	memcached *memcache.Client
	logger    logrus.FieldLogger

	mu  sync.Mutex // guards gen and orders cache fills against invalidations
	gen uint64
}

// NewCachedRepository wraps next with the cache described by opts.
func NewCachedRepository(next VillaRepository, opts CacheOptions) *CachedRepository {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	r := &CachedRepository{
		next:   next,
		local:  ccache.New(ccache.Configure[*domain.Villa]().MaxSize(opts.MaxSize)),
		logger: opts.Logger,
	}
	if opts.MemcachedHost != "" {
		r.memcached = memcache.New(opts.MemcachedHost)
		opts.Logger.WithField("host", opts.MemcachedHost).Info("Memcached cache level enabled")
	}
	return r
}

// Close stops the local cache's background worker.
func (r *CachedRepository) Close() {
	r.local.Stop()
}

// List is never cached.
func (r *CachedRepository) List(ctx context.Context) ([]domain.Villa, error) {
	return r.next.List(ctx)
}

// FindByID looks in the local cache, then Memcached, then the store,
// filling the levels it missed on the way back.
func (r *CachedRepository) FindByID(ctx context.Context, id uint) (*domain.Villa, error) {
	key := cacheKey(id)

	if item := r.local.Get(key); item != nil && !item.Expired() {
		r.logger.WithField("key", key).Debug("cache hit (local)")
		v := *item.Value()
		return &v, nil
	}

	gen := r.generation()

	if v, ok := r.getMemcached(key); ok {
		r.mu.Lock()
		if r.gen == gen {
			r.local.Set(key, v, localCacheTTL)
		}
		r.mu.Unlock()
		out := *v
		return &out, nil
	}

	villa, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(key, villa, gen)
	out := *villa
	return &out, nil
}

// FindByName is never cached.
func (r *CachedRepository) FindByName(ctx context.Context, name string) (*domain.Villa, error) {
	return r.next.FindByName(ctx, name)
}

// Add writes through and drops any entry left for the id.
func (r *CachedRepository) Add(ctx context.Context, villa *domain.Villa) error {
	if err := r.next.Add(ctx, villa); err != nil {
		return err
	}
	r.invalidate(villa.ID)
	return nil
}

// Update writes through and drops the cached entry.
func (r *CachedRepository) Update(ctx context.Context, villa *domain.Villa) error {
	// invalidate even on failure, the store may have partially applied it
	defer r.invalidate(villa.ID)
	return r.next.Update(ctx, villa)
}

// Remove deletes through and drops the cached entry.
func (r *CachedRepository) Remove(ctx context.Context, id uint) error {
	defer r.invalidate(id)
	return r.next.Remove(ctx, id)
}

func (r *CachedRepository) getMemcached(key string) (*domain.Villa, bool) {
	if r.memcached == nil {
		return nil, false
	}
	item, err := r.memcached.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			r.logger.WithError(err).WithField("key", key).Warn("memcached get failed")
		}
		return nil, false
	}
	var v domain.Villa
	if err := json.Unmarshal(item.Value, &v); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("memcached value is not a villa")
		return nil, false
	}
	r.logger.WithField("key", key).Debug("cache hit (memcached)")
	return &v, true
}

func (r *CachedRepository) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// store fills both levels unless a write happened since gen was read.
func (r *CachedRepository) store(key string, villa *domain.Villa, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen {
		r.logger.WithField("key", key).Debug("skipping cache fill, villa changed during load")
		return
	}

	v := *villa
	r.local.Set(key, &v, localCacheTTL)

	if r.memcached == nil {
		return
	}
	data, err := json.Marshal(villa)
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("cannot encode villa for memcached")
		return
	}
	if err := r.memcached.Set(&memcache.Item{Key: key, Value: data, Expiration: memcachedCacheTTL}); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("memcached set failed")
	}
}

func (r *CachedRepository) invalidate(id uint) {
	key := cacheKey(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.local.Delete(key)

	if r.memcached == nil {
		return
	}
	if err := r.memcached.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		r.logger.WithError(err).WithField("key", key).Warn("memcached delete failed")
	}
}

func cacheKey(id uint) string {
	return fmt.Sprintf("villa:%d", id)
}
