package quota

import "sync"

// DailyLimiter guards a fixed daily request budget shared by concurrent
// workers. The budget never refills within a process run; it resets only
// when a new process starts.
type DailyLimiter struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewDailyLimiter creates a limiter with the given daily budget.
func NewDailyLimiter(limit int) *DailyLimiter {
	return &DailyLimiter{limit: limit}
}

// TryConsume attempts to take n tokens from the budget. It returns false
// without consuming anything when the budget would be exceeded.
func (l *DailyLimiter) TryConsume(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used+n > l.limit {
		return false
	}
	l.used += n
	return true
}

// Used returns the number of tokens consumed so far.
func (l *DailyLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
