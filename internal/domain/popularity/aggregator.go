package popularity

import (
	"context"
	"sync"
	"time"

	"meetup-app-go/pkg/logger"
)

const enqueueTimeout = 30 * time.Second

// Aggregator rebuilds PopularityScore rows from the active ledger. It
// always does a full recompute per user, so replaying after any sequence
// of toggles converges on the same totals. Recomputes for the same user
// are serialized through a per-user lock; distinct users run in parallel.
type Aggregator struct {
	repo  Repository
	cache Cache
	log   logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	wg    sync.WaitGroup
}

func NewAggregator(repo Repository, cache Cache, log logger.Logger) *Aggregator {
	if cache == nil {
		cache = NewNoopCache()
	}
	return &Aggregator{
		repo:  repo,
		cache: cache,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// Recompute rebuilds the score of every given user.
func (a *Aggregator) Recompute(ctx context.Context, userIDs []string) error {
	for _, userID := range userIDs {
		if err := a.recomputeOne(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue fires a recompute in the background; safe to call redundantly.
func (a *Aggregator) Enqueue(userIDs ...string) {
	ids := make([]string, len(userIDs))
	copy(ids, userIDs)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()

		if err := a.Recompute(ctx, ids); err != nil {
			a.log.InternalError("popularity: background recompute failed", err, "user_ids", ids)
		}
	}()
}

// Wait blocks until all enqueued recomputes are done.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

func (a *Aggregator) recomputeOne(ctx context.Context, userID string) error {
	lock := a.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	votes, err := a.repo.ListActiveVotesByTarget(ctx, userID)
	if err != nil {
		return err
	}

	total := 0
	perCategory := make(map[string]int)
	for _, vote := range votes {
		total += CategoryWeight(vote.Category)
		perCategory[vote.Category]++
	}

	counts := make([]ScoreCategory, 0, len(perCategory))
	for category, count := range perCategory {
		counts = append(counts, ScoreCategory{
			UserID:   userID,
			Category: category,
			Count:    count,
		})
	}

	score := Score{UserID: userID, Total: total}
	if err := a.repo.ReplaceScore(ctx, &score, counts); err != nil {
		return err
	}

	a.cache.Delete(userID)
	return nil
}

func (a *Aggregator) lockFor(userID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[userID] = lock
	}
	return lock
}
