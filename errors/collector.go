package errors

import "sync"

// Collector accumulates resolution errors in the order they are added. It is safe for
// concurrent use and never removes an entry once added.
type Collector struct {
	mu   sync.Mutex
	errs []*ResolutionError
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends err to the collector. Nil errors are ignored.
func (c *Collector) Add(err *ResolutionError) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collector) Errors() []*ResolutionError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ResolutionError, len(c.errs))
	copy(out, c.errs)
	return out
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}
