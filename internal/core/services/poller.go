package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// stalenessPoller runs a check on a fixed interval until stopped.
// It is owned by the coordinator and lives exactly as long as one shared
// connection.
type stalenessPoller struct {
	interval time.Duration
	check    func(ctx context.Context) (bool, error)

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func newStalenessPoller(interval time.Duration, check func(ctx context.Context) (bool, error)) *stalenessPoller {
	return &stalenessPoller{
		interval: interval,
		check:    check,
	}
}

// Start launches the polling goroutine. It returns immediately. A poller
// that has been stopped never starts again.
func (p *stalenessPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped || p.interval <= 0 {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx, p.stopCh)
}

// Stop cancels any in-flight check and waits for the goroutine to exit.
func (p *stalenessPoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *stalenessPoller) run(ctx context.Context, stopCh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := p.check(ctx)
			if err != nil {
				logger.Debug("shared template poll failed: %v", err)
				continue
			}
			if stale {
				logger.Debug("shared template changed upstream")
			}
		}
	}
}
