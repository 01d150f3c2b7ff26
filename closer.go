package sqlhelper

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Closer releases the resources registered with it in reverse
// acquisition order. A failing release does not stop the others.
//
//	c := &Closer{}
//	defer c.Close()
//	conn := Acquire(c, conn)
type Closer struct {
	mu        sync.Mutex
	resources []io.Closer
}

// Acquire registers r with c and returns r unchanged.
func Acquire[T io.Closer](c *Closer, r T) T {
	c.Add(r)
	return r
}

// Add registers r with c.
func (c *Closer) Add(r io.Closer) {
	c.mu.Lock()
	c.resources = append(c.resources, r)
	c.mu.Unlock()
}

// Len returns the number of resources still owned by c.
func (c *Closer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resources)
}

// Transfer moves everything c owns into a new Closer.
// c is left empty, so a deferred c.Close becomes a no-op.
func (c *Closer) Transfer() *Closer {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := &Closer{resources: c.resources}
	c.resources = nil
	return next
}

// Close releases every registered resource, last acquired first.
// Failures are returned joined as *ResourceReleaseError values.
func (c *Closer) Close() error {
	c.mu.Lock()
	resources := c.resources
	c.resources = nil
	c.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		if err := release(resources[i]); err != nil {
			errs = append(errs, &ResourceReleaseError{
				Resource: fmt.Sprintf("%T", resources[i]),
				Err:      err,
			})
		}
	}
	return errors.Join(errs...)
}

// release closes r, turning a panic into an error.
func release(r io.Closer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Close()
}
