package popularity

import "time"

// Vote categories form a closed set. Every category contributes +1 to the
// aggregate score except overall-negative, which contributes -1.
const (
	CategoryOverallPositive = "overall-positive"
	CategoryOverallNegative = "overall-negative"
	CategoryKind            = "kind"
	CategoryFriendly        = "friendly"
	CategoryPunctual        = "punctual"
	CategoryFunny           = "funny"
)

var categoryWeights = map[string]int{
	CategoryOverallPositive: 1,
	CategoryOverallNegative: -1,
	CategoryKind:            1,
	CategoryFriendly:        1,
	CategoryPunctual:        1,
	CategoryFunny:           1,
}

func ValidCategory(category string) bool {
	_, ok := categoryWeights[category]
	return ok
}

func CategoryWeight(category string) int {
	return categoryWeights[category]
}

// Vote is the ledger row: one per (voter, target, category), toggled via
// is_active. The ledger is the source of truth for scoring.
type Vote struct {
	VoterID    string    `gorm:"primaryKey"`
	TargetID   string    `gorm:"primaryKey;index"`
	Category   string    `gorm:"primaryKey;type:varchar(32)"`
	IsActive   bool      `gorm:"not null;default:false"`
	ScheduleID *string   `gorm:"type:uuid;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// DailyLimit marks the voter's one new evaluation target per UTC day. The
// (voter_id, day) primary key is what makes concurrent first votes of the
// day against different targets collide instead of both passing.
type DailyLimit struct {
	VoterID   string    `gorm:"primaryKey"`
	Day       string    `gorm:"primaryKey;type:varchar(10)"`
	TargetID  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DailyLimit) TableName() string { return "popularity_daily_limits" }

// Score is a pure cache over the active ledger rows; recompute overwrites
// it wholesale and it is never edited by hand.
type Score struct {
	UserID    string    `gorm:"primaryKey"`
	Total     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Score) TableName() string { return "popularity_scores" }

type ScoreCategory struct {
	UserID   string `gorm:"primaryKey"`
	Category string `gorm:"primaryKey;type:varchar(32)"`
	Count    int    `gorm:"not null;default:0"`
}

func (ScoreCategory) TableName() string { return "popularity_score_categories" }

// VotePrivilege grants a voter exemption from the daily quota.
type VotePrivilege struct {
	UserID         string `gorm:"primaryKey"`
	UnlimitedVotes bool   `gorm:"not null;default:false"`
}

func (VotePrivilege) TableName() string { return "vote_privileges" }

// Breakdown is the read model served to clients.
type Breakdown struct {
	UserID     string
	Total      int
	Categories map[string]int
	UpdatedAt  time.Time
}
