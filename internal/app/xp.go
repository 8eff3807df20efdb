package app

// XPPolicy decides the experience points granted when an attempt completes.
type XPPolicy struct {
	Pass int // awarded when the attempt passes
	Fail int // consolation for a completed but failed attempt
}

// DefaultXPPolicy mirrors the platform's quiz completion reward.
func DefaultXPPolicy() XPPolicy {
	return XPPolicy{Pass: 100, Fail: 10}
}

// Award returns the XP for a completed attempt.
func (p XPPolicy) Award(passed bool) int {
	if passed {
		return p.Pass
	}
	return p.Fail
}

// levelThresholds[i] is the minimum XP for level i+1.
var levelThresholds = []int{
	0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000,
	15000, 20000, 26000, 33000, 41000, 50000,
}

// LevelForXP maps accumulated XP to a player level, starting at 1.
func LevelForXP(xp int) int {
	for i := len(levelThresholds) - 1; i >= 0; i-- {
		if xp >= levelThresholds[i] {
			return i + 1
		}
	}
	return 1
}

// XPToNextLevel returns the XP still needed for the next level, or 0 at max level.
func XPToNextLevel(xp int) int {
	for _, threshold := range levelThresholds {
		if xp < threshold {
			return threshold - xp
		}
	}
	return 0
}
