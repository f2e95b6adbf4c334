package strategy

// StreakCounter tracks consecutive breakout days. Only consulted while the
// ticker is flat; streak tracking is suspended for open positions.
type StreakCounter struct {
	stackSize int
}

func NewStreakCounter(stackSize int) *StreakCounter {
	return &StreakCounter{stackSize: stackSize}
}

// RecordDay folds one day into the streak and returns the new value. A
// breakout day increments, capped at stack size so an unfunded signal cannot
// grow the counter without bound; anything else resets to zero.
func (c *StreakCounter) RecordDay(current int, isBreakout bool) int {
	if !isBreakout {
		return 0
	}
	if current >= c.stackSize {
		return c.stackSize
	}
	return current + 1
}
