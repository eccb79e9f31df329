package openpose

import "sync"

// idGenerator hands out incremental Datum IDs, starting at zero
type idGenerator struct {
	id int64
	sync.Mutex
}

// next returns the next id
func (g *idGenerator) next() int64 {
	g.Lock()
	defer g.Unlock()
	id := g.id
	g.id++
	return id
}
