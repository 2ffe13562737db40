package popularity

import "errors"

var (
	ErrSelfVote        = errors.New("cannot vote for yourself")
	ErrUnknownCategory = errors.New("unknown vote category")
	ErrNotCompleted    = errors.New("schedule is not completed")
	ErrNotAMember      = errors.New("voter never joined this schedule")
	ErrRateLimited     = errors.New("daily vote quota exhausted")
	ErrScoreNotFound   = errors.New("score not found")
)
