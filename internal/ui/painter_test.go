package ui

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(n int) paintState { return paintState{layout: Layout{Width: n}} }

func TestPainterStopWaitsForFrame(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	p := startPainter(context.Background(), func(ctx context.Context, st paintState) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	p.request(frameOf(1))
	<-started

	p.stop()
	assert.True(t, finished.Load(), "stop returned while a frame was still drawing")
}

func TestPainterDrawsLatestFrame(t *testing.T) {
	type drawn struct {
		width     int
		cancelled bool
	}
	var (
		mu      sync.Mutex
		got     []drawn
		started = make(chan struct{})
		release = make(chan struct{})
	)
	p := startPainter(context.Background(), func(ctx context.Context, st paintState) {
		if st.layout.Width == 1 {
			close(started)
			<-release
		}
		mu.Lock()
		got = append(got, drawn{st.layout.Width, ctx.Err() != nil})
		mu.Unlock()
	})

	p.request(frameOf(1))
	<-started
	p.request(frameOf(2))
	p.request(frameOf(3))
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	p.stop()

	assert.Equal(t, []drawn{{1, true}, {3, false}}, got, "frame 2 is replaced and frame 1 is cancelled")
}

func TestPainterDropThreshold(t *testing.T) {
	p := &painter{ch: make(chan paintState, 1)}
	cancels := 0
	p.cancel = func() { cancels++ }
	for i := 0; i < frameDropThreshold+5; i++ {
		p.request(frameOf(i))
	}
	assert.Equal(t, frameDropThreshold, cancels, "a frame is allowed to finish after too many drops")
	assert.Equal(t, frameDropThreshold+4, (<-p.ch).layout.Width)
}
