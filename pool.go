package openpose

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Pool holds backend instances so concurrent frames each run on their own
// network
type Pool struct {
	// pool of backends
	backends chan Backend
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
	err    error
}

// NewPool opens size instances of a backend
func NewPool(size int, open func(worker int) (Backend, error)) (*Pool, error) {

	p := &Pool{
		backends: make(chan Backend, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		b, err := open(i)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(b)
	}

	return p, nil
}

// Get waits for a free backend until the context is done
func (p *Pool) Get(ctx context.Context) (Backend, error) {

	select {
	case b, ok := <-p.backends:
		if !ok {
			return nil, ErrClosed
		}

		return b, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return a backend to the pool. A backend returned after Close or to a full
// pool is closed.
func (p *Pool) Return(b Backend) {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.err = multierr.Append(p.err, b.Close())
		return
	}

	select {
	case p.backends <- b:
	default:
		// pool is full, the backend is not one of ours
		p.err = multierr.Append(p.err, b.Close())
	}
}

// Size is the number of backends in the pool
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all backends in it. Borrowed backends are closed when
// they are returned.
func (p *Pool) Close() error {

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true

		// close channel
		close(p.backends)

		// close all backends
		for next := range p.backends {
			p.err = multierr.Append(p.err, next.Close())
		}
	}

	return p.err
}
