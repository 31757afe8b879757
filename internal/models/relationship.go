package models

import "time"

// RelationshipState is the per-(user,character) bond scored from
// conversational signals, monotonically advancing through levels 0-10.
type RelationshipState struct {
	UserID      string
	CharacterID string

	Level int

	Conversations     int
	TimeMinutes       float64
	EmotionalMoments  int
	MemoriesShared    int
	ConflictsResolved int
	GrowthEvents      int

	ConsistencyScore  float64
	AuthenticityScore float64
	TrustScore        float64

	LastInteraction time.Time
	CreatedAt       time.Time
}

// LevelRequirement names the thresholds a pair must clear to advance to a
// given integer level. Table values per spec.md Section 4.4.
type LevelRequirement struct {
	Level             int
	Conversations     int
	Minutes           float64
	EmotionalMoments  int
	MemoriesShared    int
}

// LevelRequirements is the canonical level-progression table, levels 1-10.
var LevelRequirements = []LevelRequirement{
	{Level: 1, Conversations: 2, Minutes: 5, EmotionalMoments: 1, MemoriesShared: 1},
	{Level: 2, Conversations: 4, Minutes: 10, EmotionalMoments: 2, MemoriesShared: 2},
	{Level: 3, Conversations: 6, Minutes: 20, EmotionalMoments: 3, MemoriesShared: 3},
	{Level: 4, Conversations: 8, Minutes: 30, EmotionalMoments: 4, MemoriesShared: 4},
	{Level: 5, Conversations: 10, Minutes: 40, EmotionalMoments: 5, MemoriesShared: 5},
	{Level: 6, Conversations: 12, Minutes: 50, EmotionalMoments: 6, MemoriesShared: 6},
	{Level: 7, Conversations: 14, Minutes: 60, EmotionalMoments: 7, MemoriesShared: 7},
	{Level: 8, Conversations: 16, Minutes: 65, EmotionalMoments: 8, MemoriesShared: 8},
	{Level: 9, Conversations: 18, Minutes: 70, EmotionalMoments: 9, MemoriesShared: 9},
	{Level: 10, Conversations: 20, Minutes: 80, EmotionalMoments: 10, MemoriesShared: 10},
}

// LevelLabel names the narrative stage for a given level, per the state
// machine in spec.md section 4.6.
func LevelLabel(level int) string {
	switch {
	case level <= 0:
		return "Stranger"
	case level <= 2:
		return "Acquaintance"
	case level == 3:
		return "Warming"
	case level <= 5:
		return "Friend"
	case level <= 7:
		return "CloseFriend"
	case level <= 9:
		return "DeepConnection"
	default:
		return "SoulBond"
	}
}

// EmotionalMoment is a single qualifying emotionally significant exchange,
// subject to a per-day cap.
type EmotionalMoment struct {
	UserID      string
	CharacterID string
	OccurredAt  time.Time
	Score       float64
}

// Reward is a rank-limited, one-per-pair recognition of reaching level 10.
type Reward struct {
	Rank          int
	UserID        string
	CharacterID   string
	AwardedAt     time.Time
	WalletAddress string
	Minted        bool
}
