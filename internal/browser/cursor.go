package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/input"

	"github.com/kestrel-run/pilot/internal/config"
)

// cursor tracks the simulated mouse position for one session and moves it
// along a short interpolated path before every click or fill, rather than
// teleporting the pointer to the target. This is a deliberately simpler
// model than a Perlin-noise trajectory: linear interpolation across a
// fixed step count plus independent per-step jitter.
type cursor struct {
	cfg  config.CursorConfig
	x, y float64
	rng  *rand.Rand
}

func newCursor(cfg config.CursorConfig, startX, startY float64) *cursor {
	if cfg.Steps <= 0 {
		cfg.Steps = 10
	}
	return &cursor{
		cfg: cfg,
		x:   startX,
		y:   startY,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// jitter returns a value uniformly drawn from [-amplitude, amplitude].
func (c *cursor) jitter(amplitude float64) float64 {
	if amplitude <= 0 {
		return 0
	}
	return (c.rng.Float64()*2 - 1) * amplitude
}

// jitteredPoint returns (cx, cy) offset by independent U(-amplitude,
// +amplitude) jitter on each axis — the "centre ± jitter" click point from
// §4.1 step 2.
func (c *cursor) jitteredPoint(cx, cy float64) (float64, float64) {
	return cx + c.jitter(c.cfg.JitterPx), cy + c.jitter(c.cfg.JitterPx)
}

// moveTo dispatches the interpolated mouse-move sequence from the cursor's
// current position to (destX, destY), then updates the tracked position.
func (c *cursor) moveTo(ctx context.Context, destX, destY float64) error {
	if !c.cfg.Enabled {
		c.x, c.y = destX, destY
		return nil
	}

	startX, startY := c.x, c.y
	steps := c.cfg.Steps

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := startX + (destX-startX)*t + c.jitter(c.cfg.JitterPx)
		py := startY + (destY-startY)*t + c.jitter(c.cfg.JitterPx)
		if i == steps {
			px, py = destX, destY
		}

		evt := input.DispatchMouseEvent(input.MouseMoved, px, py)
		if err := evt.Do(ctx); err != nil {
			return err
		}
		if c.cfg.StepDelay > 0 {
			select {
			case <-time.After(c.cfg.StepDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	c.x, c.y = destX, destY
	return nil
}
