package gamification

import "math"

// Points awarded by the reward path.
const (
	// TaskCompletionPoints is awarded for each first-time task completion.
	TaskCompletionPoints = 10
	// AchievementUnlockPoints is the bonus awarded once per achievement unlock.
	AchievementUnlockPoints = 20
	// StreakBonusPoints is reserved; no code path awards it yet.
	StreakBonusPoints = 5
)

// Level curve constants. The XP span for advancing out of level L is
// floor(BaseXP * Multiplier^(L-1)), so thresholds grow geometrically.
const (
	BaseXP     = 100
	Multiplier = 1.5
)

// LevelForScore returns the level for a cumulative score. Level starts
// at 1 and increments while the score meets the running cumulative
// threshold. The threshold is inclusive: a score of exactly BaseXP is
// level 2.
func LevelForScore(score int) int {
	if score < 0 {
		return 1
	}
	level := 1
	threshold := BaseXP
	for score >= threshold {
		level++
		threshold += NextLevelThreshold(level)
	}
	return level
}

// NextLevelThreshold returns the XP span required to advance from the
// given level to the next one. Used for progress display; the reward
// path always recomputes level from the absolute score instead of
// accumulating spans, which avoids drift.
func NextLevelThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(BaseXP * math.Pow(Multiplier, float64(level-1))))
}
