package connection

import (
	"context"
	"sync"
)

// completion is the single-slot pending-open handle. It settles exactly
// once: resolve, reject and supersede all funnel through the same
// sync.Once, so double settlement and leaked never-settled waits are
// structurally impossible.
type completion struct {
	once sync.Once
	done chan struct{}
	resp *InitResponse
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// settle records the outcome and releases every waiter. Later calls are
// no-ops.
func (c *completion) settle(resp *InitResponse, err error) {
	c.once.Do(func() {
		c.resp = resp
		c.err = err
		close(c.done)
	})
}

// supersede settles the completion with ErrSuperseded; used when a
// disconnect cuts an open attempt short.
func (c *completion) supersede() {
	c.settle(nil, ErrSuperseded)
}

// wait blocks until the completion settles or the context is done. A
// context cancellation abandons the wait but does not settle the
// completion; the machine keeps running.
func (c *completion) wait(ctx context.Context) (*InitResponse, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
