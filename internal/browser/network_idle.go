package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// waitNetworkIdle returns a channel that closes once the page has had no
// outstanding network requests for quietFor, or ctx is done. Request
// lifecycle is tracked via cdproto/network event counters rather than
// polling, grounded on the teacher's Harvester.listen/activeReqs pattern.
func (s *Session) waitNetworkIdle(ctx context.Context, quietFor time.Duration) <-chan struct{} {
	idle := make(chan struct{})
	var once sync.Once
	closeIdle := func() { once.Do(func() { close(idle) }) }

	var mu sync.Mutex
	active := 0
	var timer *time.Timer

	armTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quietFor, closeIdle)
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-idle:
			return
		default:
		}
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			active++
			if timer != nil {
				timer.Stop()
			}
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if active > 0 {
				active--
			}
			if active == 0 {
				armTimer()
			}
		}
	})

	go func() {
		if err := chromedp.Run(ctx, network.Enable()); err != nil {
			s.logger.Debug("network.Enable failed during stability wait", zap.Error(err))
		}
		mu.Lock()
		if active == 0 {
			armTimer()
		}
		mu.Unlock()
	}()

	go func() {
		<-ctx.Done()
		closeIdle()
	}()

	return idle
}
