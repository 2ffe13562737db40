package popularity

import "time"

// Cache fronts score reads. Recompute deletes the entry; readers fill it.
type Cache interface {
	Get(userID string) (*Breakdown, bool)
	Set(userID string, breakdown *Breakdown, ttl time.Duration)
	Delete(userID string)
}

type noopCache struct{}

func (noopCache) Get(string) (*Breakdown, bool) { return nil, false }

func (noopCache) Set(string, *Breakdown, time.Duration) {}

func (noopCache) Delete(string) {}

func NewNoopCache() Cache { return noopCache{} }
