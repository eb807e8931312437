package progress

import (
	"math"
)

// DefaultLevelIncrement is the per-level cost increment of the default
// curve: level 1 spans 100 points, level 2 the next 200, level 3 the
// next 300, and so on.
const DefaultLevelIncrement = 100

// Curve is the escalating level-cost curve. The cost of level n is
// n * Increment points, an arithmetic progression, so each level takes
// longer to clear than the last.
type Curve struct {
	Increment int
}

// DefaultCurve returns the curve used when no configuration overrides it.
func DefaultCurve() Curve {
	return Curve{Increment: DefaultLevelIncrement}
}

// LevelProgress describes where a given point total sits on the curve.
type LevelProgress struct {
	// Level is the current level, always >= 1.
	Level int

	// ProgressPercent is how much of the current level's span has been
	// earned, rounded to the nearest integer. Always within [0, 100].
	ProgressPercent int

	// PointsToNext is how many more points are needed to reach the
	// next level. Always >= 0.
	PointsToNext int
}

// LevelFor maps a cumulative point total onto the curve. The function
// is total and deterministic: negative input is treated as zero, and
// the same input always yields the same triple.
func (c Curve) LevelFor(points int) LevelProgress {
	increment := c.Increment
	if increment <= 0 {
		increment = DefaultLevelIncrement
	}
	if points < 0 {
		points = 0
	}

	level := 1
	start := 0
	span := increment
	for points >= start+span {
		start += span
		level++
		span = level * increment
	}

	earned := points - start
	percent := int(math.Round(float64(earned) / float64(span) * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return LevelProgress{
		Level:           level,
		ProgressPercent: percent,
		PointsToNext:    start + span - points,
	}
}

// LevelFor maps a point total onto the default curve.
func LevelFor(points int) LevelProgress {
	return DefaultCurve().LevelFor(points)
}
