// Package scoring awards points for correct answers on a speed-based scale.
package scoring

import (
	"fmt"
	"math"
	"time"
)

const (
	// MinBonus is awarded to any correct answer, however slow.
	MinBonus = 500
	// MaxBonus is the ceiling for an instant correct answer.
	MaxBonus = 1000
)

// TimeBonus converts answer speed into points on a linear 500..1000 scale.
// Answers at or past the budget, and any non-positive budget, earn the floor.
func TimeBonus(elapsed, budget time.Duration) int {
	if budget <= 0 || elapsed >= budget {
		return MinBonus
	}
	ratio := 1 - elapsed.Seconds()/budget.Seconds()
	bonus := int(math.Round(MinBonus + ratio*500))
	if bonus < MinBonus {
		return MinBonus
	}
	if bonus > MaxBonus {
		return MaxBonus
	}
	return bonus
}

// PointsMessage formats the congratulatory line logged for a correct answer.
func PointsMessage(points int) string {
	switch {
	case points >= 950:
		return fmt.Sprintf("AMAZING! +%d pts (Lightning fast!)", points)
	case points >= 850:
		return fmt.Sprintf("EXCELLENT! +%d pts (Very quick!)", points)
	case points >= 750:
		return fmt.Sprintf("GREAT! +%d pts (Nice speed!)", points)
	case points >= 650:
		return fmt.Sprintf("GOOD! +%d pts (Well done!)", points)
	default:
		return fmt.Sprintf("CORRECT! +%d pts", points)
	}
}
