package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRunsInPostOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	assert.Equal(t, 3, l.Step())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, l.Step())
}

func TestPostDuringTickRunsNextTick(t *testing.T) {
	l := New()
	ran := false
	l.Post(func() {
		l.Post(func() { ran = true })
	})

	l.Step()
	assert.False(t, ran, "nested post must wait for the next tick")
	assert.Equal(t, 1, l.Pending())

	l.Step()
	assert.True(t, ran)
	assert.Equal(t, int64(2), l.Ticks())
}

func TestDrain(t *testing.T) {
	l := New()
	count := 0
	var chain func()
	chain = func() {
		count++
		if count < 5 {
			l.Post(chain)
		}
	}
	l.Post(chain)
	assert.Equal(t, 5, l.Drain())
	assert.Equal(t, 5, count)
}

func TestPostAfterCloseIsRejected(t *testing.T) {
	l := New()
	l.Close()
	assert.False(t, l.Post(func() {}))
}

func TestRunExecutesWorkFromOtherGoroutines(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() {
				mu.Lock()
				total++
				mu.Unlock()
			})
		}()
	}
	go func() {
		wg.Wait()
		l.Post(l.Close)
	}()

	require.NoError(t, l.Run(ctx))
	assert.Equal(t, 10, total)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}
