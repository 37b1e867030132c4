// Package poll runs a fetch on a fixed interval until cancelled.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller calls fetch immediately and then on every tick, delivering each result to deliver.
// Ticks are independent: a slow fetch does not delay the next one and results are delivered
// in completion order, so the last response to arrive wins. After Stop returns no further
// result is delivered.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)
	deliver  func(T)

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a poller. name is used in logs.
func New[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error), deliver func(T)) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		deliver:  deliver,
	}
}

// Start begins polling until ctx is done or Stop is called
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil || p.stopped {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)
}

// Run polls until ctx is done and then stops the poller
func (p *Poller[T]) Run(ctx context.Context) error {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}

// Stop cancels the timer and any fetch in flight and waits for them to return
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Poller[T]) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller[T]) tick(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		result, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("poller", p.name).Msg("Poll failed")
			}
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped || ctx.Err() != nil {
			return
		}
		p.deliver(result)
	}()
}
