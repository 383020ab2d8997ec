package scoring

import (
	"testing"
	"time"
)

func TestTimeBonus(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		budget  time.Duration
		want    int
	}{
		{"instant", 0, 15 * time.Second, 1000},
		{"fifth of budget", 3 * time.Second, 15 * time.Second, 900},
		{"midway", 7500 * time.Millisecond, 15 * time.Second, 750},
		{"last moment", 14999 * time.Millisecond, 15 * time.Second, 500},
		{"at budget", 15 * time.Second, 15 * time.Second, 500},
		{"past budget", 20 * time.Second, 15 * time.Second, 500},
		{"zero budget", time.Second, 0, 500},
		{"negative elapsed clamps", -time.Second, 15 * time.Second, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeBonus(tt.elapsed, tt.budget); got != tt.want {
				t.Fatalf("TimeBonus(%v, %v) = %d, want %d", tt.elapsed, tt.budget, got, tt.want)
			}
		})
	}
}

func TestTimeBonusRoundsHalfUp(t *testing.T) {
	// 4.35s of 15s leaves a 0.71 ratio: 500 + 355 exactly.
	if got := TimeBonus(4350*time.Millisecond, 15*time.Second); got != 855 {
		t.Fatalf("TimeBonus = %d, want 855", got)
	}
	// 100ms of 3s rounds 983.33 down to 983 rather than truncating oddly.
	if got := TimeBonus(100*time.Millisecond, 3*time.Second); got != 983 {
		t.Fatalf("TimeBonus = %d, want 983", got)
	}
	// 1s of 3s: 500 + 333.33 rounds to 833.
	if got := TimeBonus(time.Second, 3*time.Second); got != 833 {
		t.Fatalf("TimeBonus = %d, want 833", got)
	}
}

func TestPointsMessage(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{1000, "AMAZING! +1000 pts (Lightning fast!)"},
		{950, "AMAZING! +950 pts (Lightning fast!)"},
		{949, "EXCELLENT! +949 pts (Very quick!)"},
		{850, "EXCELLENT! +850 pts (Very quick!)"},
		{800, "GREAT! +800 pts (Nice speed!)"},
		{700, "GOOD! +700 pts (Well done!)"},
		{500, "CORRECT! +500 pts"},
	}
	for _, tt := range tests {
		if got := PointsMessage(tt.points); got != tt.want {
			t.Errorf("PointsMessage(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}
