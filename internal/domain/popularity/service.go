package popularity

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

const dayLayout = "2006-01-02"

// ScheduleAccess is the narrow slice of the schedule domain the ledger
// needs to enforce evaluation preconditions.
type ScheduleAccess interface {
	IsCompleted(ctx context.Context, scheduleID string) (bool, error)
	IsMember(ctx context.Context, scheduleID, userID string) (bool, error)
}

type Service struct {
	repo        Repository
	schedules   ScheduleAccess
	aggregator  *Aggregator
	cache       Cache
	clock       clockwork.Clock
	cacheTTL    time.Duration
	recentLimit int
}

func NewService(repo Repository, schedules ScheduleAccess, aggregator *Aggregator, cache Cache, clock clockwork.Clock, cacheTTL time.Duration, recentLimit int) *Service {
	if cache == nil {
		cache = NewNoopCache()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if recentLimit <= 0 {
		recentLimit = 20
	}
	return &Service{
		repo:        repo,
		schedules:   schedules,
		aggregator:  aggregator,
		cache:       cache,
		clock:       clock,
		cacheTTL:    cacheTTL,
		recentLimit: recentLimit,
	}
}

type ToggleInput struct {
	VoterID    string
	TargetID   string
	Category   string
	Active     bool
	ScheduleID *string
}

// ToggleVote upserts the (voter, target, category) ledger row. Repeating
// the same call changes nothing. The quota check and the ledger write
// share one transaction; the (voter, day) primary key on the limit table
// decides races between two first-votes of the day.
func (s *Service) ToggleVote(ctx context.Context, input ToggleInput) error {
	if input.VoterID == input.TargetID {
		return ErrSelfVote
	}
	if !ValidCategory(input.Category) {
		return ErrUnknownCategory
	}

	if input.ScheduleID != nil {
		completed, err := s.schedules.IsCompleted(ctx, *input.ScheduleID)
		if err != nil {
			return err
		}
		if !completed {
			return ErrNotCompleted
		}
		member, err := s.schedules.IsMember(ctx, *input.ScheduleID, input.VoterID)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotAMember
		}
	}

	var mutated bool

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.GetVote(ctx, input.VoterID, input.TargetID, input.Category)
		if err != nil {
			return err
		}

		// Idempotent: the ledger already holds the requested state.
		if existing != nil && existing.IsActive == input.Active {
			return nil
		}
		// Deactivating a vote that was never cast is a no-op too.
		if existing == nil && !input.Active {
			return nil
		}

		if input.Active {
			if err := s.spendQuota(ctx, tx, input.VoterID, input.TargetID); err != nil {
				return err
			}
		}

		vote := Vote{
			VoterID:    input.VoterID,
			TargetID:   input.TargetID,
			Category:   input.Category,
			IsActive:   input.Active,
			ScheduleID: input.ScheduleID,
		}
		if existing != nil && input.ScheduleID == nil {
			vote.ScheduleID = existing.ScheduleID
		}

		if err := tx.UpsertVote(ctx, &vote); err != nil {
			return err
		}
		mutated = true
		return nil
	})
	if err != nil {
		return err
	}

	if mutated && s.aggregator != nil {
		s.aggregator.Enqueue(input.TargetID)
	}
	return nil
}

// spendQuota applies the daily rate limit: activating a vote against a
// target the voter has not touched today consumes the day's quota, and
// only one new target per UTC day is allowed. Re-activations and extra
// categories against today's target ride on the existing limit row.
func (s *Service) spendQuota(ctx context.Context, tx Repository, voterID, targetID string) error {
	unlimited, err := tx.HasUnlimitedVotes(ctx, voterID)
	if err != nil {
		return err
	}
	if unlimited {
		return nil
	}

	limit := DailyLimit{
		VoterID:  voterID,
		Day:      s.clock.Now().UTC().Format(dayLayout),
		TargetID: targetID,
	}

	spent, existing, err := tx.SpendDailyQuota(ctx, &limit)
	if err != nil {
		return err
	}
	if !spent && existing.TargetID != targetID {
		return ErrRateLimited
	}
	return nil
}

// Recompute synchronously rebuilds the given users' scores.
func (s *Service) Recompute(ctx context.Context, userIDs []string) error {
	return s.aggregator.Recompute(ctx, userIDs)
}

// RecomputeRecent rebuilds every user whose ledger saw activity since the
// cutoff; this is the scheduled batch entry point.
func (s *Service) RecomputeRecent(ctx context.Context, since time.Time) (int, error) {
	targets, err := s.repo.ListTargetsWithVotesSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if err := s.aggregator.Recompute(ctx, targets); err != nil {
		return 0, err
	}
	return len(targets), nil
}

// GetScore serves the aggregate with a read-through cache. A user with no
// score row reads as zero rather than an error.
func (s *Service) GetScore(ctx context.Context, userID string) (*Breakdown, error) {
	if cached, ok := s.cache.Get(userID); ok {
		return cached, nil
	}

	score, counts, err := s.repo.GetScore(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrScoreNotFound) {
			return &Breakdown{UserID: userID, Categories: map[string]int{}}, nil
		}
		return nil, err
	}

	breakdown := &Breakdown{
		UserID:     userID,
		Total:      score.Total,
		Categories: make(map[string]int, len(counts)),
		UpdatedAt:  score.UpdatedAt,
	}
	for _, count := range counts {
		breakdown.Categories[count.Category] = count.Count
	}

	s.cache.Set(userID, breakdown, s.cacheTTL)
	return breakdown, nil
}

// ListRecentReceived returns the target's active votes, most recent first.
func (s *Service) ListRecentReceived(ctx context.Context, targetID string, limit int) ([]Vote, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}
	return s.repo.ListRecentReceived(ctx, targetID, limit)
}

func (s *Service) SetPrivilege(ctx context.Context, userID string, unlimited bool) error {
	return s.repo.SetUnlimitedVotes(ctx, userID, unlimited)
}

// Wait drains background recomputes; used on shutdown and in tests.
func (s *Service) Wait() {
	if s.aggregator != nil {
		s.aggregator.Wait()
	}
}
