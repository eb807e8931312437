package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor_CurveShape(t *testing.T) {
	// Default increment 100: level 1 spans [0,100), level 2 the next
	// 200 points [100,300), level 3 the next 300 [300,600).
	tests := []struct {
		points       int
		level        int
		percent      int
		pointsToNext int
	}{
		{0, 1, 0, 100},
		{50, 1, 50, 50},
		{99, 1, 99, 1},
		{100, 2, 0, 200},
		{200, 2, 50, 100},
		{299, 2, 100, 1}, // 99.5% rounds to 100
		{300, 3, 0, 300},
		{450, 3, 50, 150},
		{600, 4, 0, 400},
	}

	for _, tt := range tests {
		lp := LevelFor(tt.points)
		assert.Equal(t, tt.level, lp.Level, "points=%d", tt.points)
		assert.Equal(t, tt.percent, lp.ProgressPercent, "points=%d", tt.points)
		assert.Equal(t, tt.pointsToNext, lp.PointsToNext, "points=%d", tt.points)
	}
}

func TestLevelFor_NegativePointsTreatedAsZero(t *testing.T) {
	assert.Equal(t, LevelFor(0), LevelFor(-50))
}

func TestLevelFor_MonotonicAndBounded(t *testing.T) {
	prevLevel := 0
	for points := 0; points <= 5000; points++ {
		lp := LevelFor(points)
		assert.GreaterOrEqual(t, lp.Level, 1)
		assert.GreaterOrEqual(t, lp.Level, prevLevel, "level must never decrease")
		assert.GreaterOrEqual(t, lp.ProgressPercent, 0)
		assert.LessOrEqual(t, lp.ProgressPercent, 100)
		assert.GreaterOrEqual(t, lp.PointsToNext, 0)
		prevLevel = lp.Level
	}
}

func TestLevelFor_Deterministic(t *testing.T) {
	for _, points := range []int{0, 17, 100, 299, 1234} {
		assert.Equal(t, LevelFor(points), LevelFor(points))
	}
}

func TestLevelFor_CustomIncrement(t *testing.T) {
	curve := Curve{Increment: 50}
	lp := curve.LevelFor(50)
	assert.Equal(t, 2, lp.Level)
	assert.Equal(t, 0, lp.ProgressPercent)
	assert.Equal(t, 100, lp.PointsToNext)
}

func TestLevelFor_ZeroIncrementFallsBackToDefault(t *testing.T) {
	assert.Equal(t, LevelFor(250), Curve{}.LevelFor(250))
}
