package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// background runs side effects after a response is written. Failures are
// logged and never reach the client.
type background struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func newBackground(timeout time.Duration) *background {
	return &background{timeout: timeout}
}

// Go runs fn with its own deadline. component prefixes failure logs.
func (b *background) Go(component string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if v := recover(); v != nil {
				log.Printf("[%s] panic: %v", component, v)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[%s] %v", component, err)
		}
	}()
}

// Wait blocks until every started task finished or ctx is done.
func (b *background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
