package users

const (
	LevelBase = 1
	LevelVIP  = 4
	LevelMax  = 5
)

// Пороги приглашённых для уровней 2..5
var levelThresholds = []struct {
	level    int
	referred int
}{
	{5, 30},
	{4, 10},
	{3, 3},
	{2, 1},
}

// VIPReferralThreshold is the referral count that makes a user VIP.
const VIPReferralThreshold = 10

// LevelFor derives the referral level from the number of invited users.
func LevelFor(referred int) int {
	for _, t := range levelThresholds {
		if referred >= t.referred {
			return t.level
		}
	}
	return LevelBase
}

func IsVIP(level int) bool {
	return level >= LevelVIP
}

// NextLevel returns the next level and how many more invitations it needs.
// Zero missing means the top level is reached.
func NextLevel(referred int) (level int, missing int) {
	current := LevelFor(referred)
	if current >= LevelMax {
		return current, 0
	}
	for _, t := range levelThresholds {
		if t.level == current+1 {
			return t.level, t.referred - referred
		}
	}
	return current, 0
}
