package ui

import (
	"context"
	"sync"
)

// painter renders the latest requested frame on its own goroutine. A newer
// request cancels the frame in progress, up to frameDropThreshold times in a
// row, so a busy pointer cannot starve the window of frames.
type painter struct {
	draw func(context.Context, paintState)

	mu     sync.Mutex
	cancel context.CancelFunc
	drops  int

	ch   chan paintState
	done chan struct{}
}

func startPainter(ctx context.Context, draw func(context.Context, paintState)) *painter {
	p := &painter{draw: draw, ch: make(chan paintState, 1), done: make(chan struct{})}
	go p.run(ctx)
	return p
}

func (p *painter) run(ctx context.Context) {
	defer close(p.done)
	for st := range p.ch {
		fctx, cancel := context.WithCancel(ctx)
		p.mu.Lock()
		p.cancel = cancel
		p.mu.Unlock()
		p.draw(fctx, st)
		p.mu.Lock()
		p.cancel = nil
		if fctx.Err() == nil {
			p.drops = 0
		}
		p.mu.Unlock()
		cancel()
	}
}

// request queues st, replacing any frame not yet started.
func (p *painter) request(st paintState) {
	p.mu.Lock()
	if p.cancel != nil && p.drops < frameDropThreshold {
		p.cancel()
		p.drops++
	}
	p.mu.Unlock()
	select {
	case p.ch <- st:
	default:
		select {
		case <-p.ch:
		default:
		}
		p.ch <- st
	}
}

// interrupt cancels the frame in progress, if any.
func (p *painter) interrupt() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// stop cancels the current frame and waits for the goroutine to finish, so
// nothing touches the window after stop returns.
func (p *painter) stop() {
	p.interrupt()
	close(p.ch)
	<-p.done
}
