package reference

import (
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtleson01/bird-app/internal/logger"
)

// LoadObserver is notified after every uncached load.
type LoadObserver func(path string, species int, elapsed time.Duration)

// Loader memoizes Load per path for the process lifetime.
type Loader struct {
	cache    *cache.Cache
	log      logger.Logger
	observer LoadObserver
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithObserver registers a callback for uncached loads
func WithObserver(fn LoadObserver) LoaderOption {
	return func(l *Loader) { l.observer = fn }
}

// NewLoader creates a Loader. The master list is static, so entries never expire.
func NewLoader(log logger.Logger, opts ...LoaderOption) *Loader {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	l := &Loader{
		cache: cache.New(cache.NoExpiration, 0),
		log:   log.Module("reference"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the Catalog for path, parsing it on first use.
func (l *Loader) Load(path string) *Catalog {
	key := cacheKey(path)
	if cached, found := l.cache.Get(key); found {
		if catalog, ok := cached.(*Catalog); ok {
			return catalog
		}
	}

	start := time.Now()
	catalog := Load(path, l.log)
	if l.observer != nil {
		l.observer(path, catalog.Len(), time.Since(start))
	}

	l.cache.Set(key, catalog, cache.NoExpiration)
	return catalog
}

// Invalidate drops every memoized catalog
func (l *Loader) Invalidate() {
	l.cache.Flush()
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
