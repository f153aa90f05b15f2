package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneration_Monotonic(t *testing.T) {
	var g generation
	assert.Equal(t, int64(0), g.Current())
	assert.Equal(t, int64(1), g.Next())
	assert.Equal(t, int64(2), g.Next())
	assert.Equal(t, int64(2), g.Current())
}

func TestGeneration_Concurrent(t *testing.T) {
	var g generation
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), g.Current())
}
