package quota

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyLimiterSequential(t *testing.T) {
	l := NewDailyLimiter(3)

	assert.True(t, l.TryConsume(1))
	assert.True(t, l.TryConsume(2))
	assert.False(t, l.TryConsume(1))
	assert.Equal(t, 3, l.Used())
}

func TestDailyLimiterRejectsOversizedRequest(t *testing.T) {
	l := NewDailyLimiter(5)

	assert.False(t, l.TryConsume(6))
	assert.Equal(t, 0, l.Used())
	assert.True(t, l.TryConsume(5))
}

func TestDailyLimiterConcurrentNeverOverGrants(t *testing.T) {
	const limit = 100
	const workers = 50
	const attemptsPerWorker = 10

	l := NewDailyLimiter(limit)
	var granted atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < attemptsPerWorker; j++ {
				if l.TryConsume(1) {
					granted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), granted.Load())
	assert.Equal(t, limit, l.Used())
}
