package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/observability"
)

// Entity is what a knowledge source knows about a model id.
type Entity struct {
	ID         string   `json:"id"`
	Label      string   `json:"label,omitempty"`
	Phenotypes []string `json:"phenotypes,omitempty"`
}

// Knowledge looks up entities by id. An unknown id is a NOT_FOUND error.
type Knowledge interface {
	Lookup(ctx context.Context, id string) (Entity, error)
}

// =============================================================================
// Static knowledge
// =============================================================================

// StaticKnowledge serves entities from memory.
type StaticKnowledge map[string]Entity

// ReadStatic decodes a JSON array of entities.
func ReadStatic(r io.Reader) (StaticKnowledge, error) {
	var ents []Entity
	if err := json.NewDecoder(r).Decode(&ents); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode knowledge")
	}
	k := make(StaticKnowledge, len(ents))
	for _, e := range ents {
		k[e.ID] = e
	}
	return k, nil
}

// LoadStatic reads the entity file at path.
func LoadStatic(path string) (StaticKnowledge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	k, err := ReadStatic(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// Lookup returns the entity with the given id.
func (k StaticKnowledge) Lookup(_ context.Context, id string) (Entity, error) {
	e, ok := k[id]
	if !ok {
		return Entity{}, errors.New(errors.ErrCodeNotFound, "unknown entity %s", id)
	}
	return e, nil
}

// =============================================================================
// Cached knowledge
// =============================================================================

// CachedKnowledge stores lookups of another source in a cache. Transient
// failures of the inner source are retried.
type CachedKnowledge struct {
	next  Knowledge
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewCachedKnowledge wraps next. A nil cache disables caching and a nil
// keyer uses the default layout.
func NewCachedKnowledge(next Knowledge, c cache.Cache, keyer cache.Keyer, ttl time.Duration) *CachedKnowledge {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = cache.TTLKnowledge
	}
	return &CachedKnowledge{next: next, cache: c, keyer: keyer, ttl: ttl}
}

// Lookup returns the cached entity or asks the inner source.
func (k *CachedKnowledge) Lookup(ctx context.Context, id string) (Entity, error) {
	key := k.keyer.KnowledgeKey(id)
	if data, hit, err := k.cache.Get(ctx, key); err == nil && hit {
		var e Entity
		if json.Unmarshal(data, &e) == nil {
			observability.Cache().OnCacheHit(ctx, "knowledge")
			return e, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "knowledge")

	var e Entity
	err := cache.RetryWithBackoff(ctx, func() error {
		var lookupErr error
		e, lookupErr = k.next.Lookup(ctx, id)
		return lookupErr
	})
	if err != nil {
		return Entity{}, err
	}
	if data, err := json.Marshal(e); err == nil {
		if k.cache.Set(ctx, key, data, k.ttl) == nil {
			observability.Cache().OnCacheSet(ctx, "knowledge", len(data))
		}
	}
	return e, nil
}
