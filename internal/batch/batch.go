// package batch coalesces many logical single-item remote queries into few
// physical batched calls.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Func is a batch-capable remote operation. Outputs must be positionally
// aligned with inputs.
type Func[I, O any] func(ctx context.Context, inputs []I) ([]O, error)

type result[O any] struct {
	value O
	err   error
}

type pending[I, O any] struct {
	input I
	out   chan result[O]
}

// Coordinator turns a batch-capable operation into a single-item-callable
// one. Calls buffer until the batch reaches maxSize or the idle window since
// the first buffered call elapses, then dispatch as one physical call. All
// callers in a flushed batch share its outcome: positional outputs on
// success, the same error on failure.
//
// Each distinct remote operation gets its own Coordinator with an
// independent buffer and timer.
type Coordinator[I, O any] struct {
	fn      Func[I, O]
	maxSize int
	window  time.Duration

	mu     sync.Mutex
	buffer []pending[I, O]
	timer  *time.Timer
}

// New creates a Coordinator around fn with the given maximum batch size and
// idle flush window.
func New[I, O any](fn Func[I, O], maxSize int, window time.Duration) *Coordinator[I, O] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Coordinator[I, O]{fn: fn, maxSize: maxSize, window: window}
}

// Call buffers input and blocks until the batch containing it completes.
// Cancelling ctx abandons the wait; the batch itself still runs for the
// remaining callers.
func (c *Coordinator[I, O]) Call(ctx context.Context, input I) (O, error) {
	out := make(chan result[O], 1)

	c.mu.Lock()
	c.buffer = append(c.buffer, pending[I, O]{input: input, out: out})
	if len(c.buffer) >= c.maxSize {
		batch := c.take()
		c.mu.Unlock()
		go c.dispatch(batch)
	} else {
		if c.timer == nil {
			c.timer = time.AfterFunc(c.window, c.Flush)
		}
		c.mu.Unlock()
	}

	select {
	case r := <-out:
		return r.value, r.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}

// Flush dispatches whatever is buffered without waiting for the window.
func (c *Coordinator[I, O]) Flush() {
	c.mu.Lock()
	batch := c.take()
	c.mu.Unlock()
	c.dispatch(batch)
}

// take empties the buffer and clears the idle timer. Callers hold c.mu.
func (c *Coordinator[I, O]) take() []pending[I, O] {
	batch := c.buffer
	c.buffer = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return batch
}

// dispatch runs one physical call and fans results back out. Dispatch is
// detached from any single caller's context because the batch's fate is
// shared.
func (c *Coordinator[I, O]) dispatch(batch []pending[I, O]) {
	if len(batch) == 0 {
		return
	}

	inputs := make([]I, len(batch))
	for i, p := range batch {
		inputs[i] = p.input
	}

	outputs, err := c.fn(context.Background(), inputs)
	if err == nil && len(outputs) != len(inputs) {
		err = fmt.Errorf("batch returned %d outputs for %d inputs", len(outputs), len(inputs))
	}
	if err != nil {
		for _, p := range batch {
			p.out <- result[O]{err: err}
		}
		return
	}

	for i, p := range batch {
		p.out <- result[O]{value: outputs[i]}
	}
}
