package engine

import "sync/atomic"

// generation is the refresh counter guarding against stale results.
//
// Each refresh takes Next(); a result is applied only if its generation
// still equals Current() when the loop sees it.
type generation struct {
	n atomic.Int64
}

// Next advances the counter and returns the new generation.
func (g *generation) Next() int64 {
	return g.n.Add(1)
}

// Current returns the latest generation handed out.
func (g *generation) Current() int64 {
	return g.n.Load()
}
