package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/config"
)

// Session is one chromedp tab and implements Gateway.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	persona schemas.Persona
	cursor  *cursor

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var _ Gateway = (*Session)(nil)

func newSession(allocCtx context.Context, cfg config.BrowserConfig, persona schemas.Persona, logger *zap.Logger) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	id := uuid.New().String()
	return &Session{
		id:      id,
		ctx:     tabCtx,
		cancel:  cancel,
		logger:  logger.With(zap.String("session_id", id)),
		cfg:     cfg,
		persona: persona,
	}, nil
}

func (s *Session) initialize(ctx context.Context) error {
	if err := chromedp.Run(s.ctx); err != nil {
		return fmt.Errorf("start target: %w", err)
	}

	var tasks chromedp.Tasks
	if s.persona.UserAgent != "" {
		tasks = append(tasks, chromedp.ActionFunc(func(c context.Context) error {
			return emulatePersona(c, s.persona)
		}))
	}
	if err := chromedp.Run(s.ctx, tasks); err != nil {
		return fmt.Errorf("apply persona: %w", err)
	}

	s.cursor = newCursor(s.cfg.Cursor, float64(s.persona.Width)/2, float64(s.persona.Height)/2)
	return nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

const (
	stabilizeTimeout  = 5 * time.Second
	networkIdleCap    = 3 * time.Second
	networkIdleQuiet  = 500 * time.Millisecond
	stabilizeFallback = 300 * time.Millisecond
)

// stabilize races a DOMContentLoaded wait (followed by a best-effort,
// capped network-idle wait) against a bare network-idle wait. On full
// timeout it sleeps stabilizeFallback rather than erroring — every
// failure here is swallowed, the contract is "wait up to the budget,
// then return".
func (s *Session) stabilize(ctx context.Context) error {
	stabCtx, cancel := context.WithTimeout(ctx, stabilizeTimeout)
	defer cancel()

	idle := s.waitNetworkIdle(stabCtx, networkIdleQuiet)

	domReady := make(chan struct{})
	go func() {
		defer close(domReady)
		if err := chromedp.Run(stabCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
			s.logger.Debug("WaitReady failed during stabilization", zap.Error(err))
		}
	}()

	domThenIdle := make(chan struct{})
	go func() {
		defer close(domThenIdle)
		select {
		case <-domReady:
		case <-stabCtx.Done():
			return
		}
		select {
		case <-idle:
		case <-time.After(networkIdleCap):
		}
	}()

	select {
	case <-domThenIdle:
	case <-idle:
	case <-stabCtx.Done():
		time.Sleep(stabilizeFallback)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate implements Gateway.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()
	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrNavigationDestroyed, err)
	}
	return s.stabilize(ctx)
}

// Snapshot implements Gateway.
func (s *Session) Snapshot(ctx context.Context) (PageState, error) {
	var url, title, text string
	err := s.runActions(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.Evaluate(`(document.body && document.body.innerText) || ""`, &text),
	)
	if err != nil {
		return PageState{}, fmt.Errorf("snapshot: %w", err)
	}
	return PageState{URL: url, Title: title, Text: schemas.NormaliseTextSnippet(text)}, nil
}

// Discover implements Gateway.
func (s *Session) Discover(ctx context.Context) ([]RawElement, error) {
	var raw []RawElement
	err := s.runActions(ctx,
		chromedp.Evaluate(clearScanTagsScript, nil),
		chromedp.Evaluate(discoveryScript, &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return raw, nil
}

func (s *Session) resolveTarget(ctx context.Context, target ElementTarget) (string, schemas.BBox, error) {
	selector := target.ResolvedSelector
	if selector == "" {
		selector = target.Selector
	}
	if selector == "" {
		return "", schemas.BBox{}, fmt.Errorf("%w: no resolvable selector for target", schemas.ErrStaleElement)
	}

	var box []float64
	err := s.runActions(ctx, chromedp.Evaluate(fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		el.scrollIntoView({block: "center", inline: "center"});
		const r = el.getBoundingClientRect();
		return [r.x, r.y, r.width, r.height];
	})()`, selector), &box))
	if err != nil || box == nil {
		return "", schemas.BBox{}, fmt.Errorf("%w: selector %q not found", schemas.ErrStaleElement, selector)
	}
	bbox := schemas.BBox{X: box[0], Y: box[1], W: box[2], H: box[3]}
	if bbox.MinDimension() < 1 {
		return "", schemas.BBox{}, fmt.Errorf("%w: selector %q not visible", schemas.ErrNotVisible, selector)
	}
	return selector, bbox, nil
}

// sleepCtx pauses for d or returns ctx.Err() if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clickAt dispatches the §4.1 cursor-physics click sequence at (x, y): move,
// hover HoverDelay, mouse-down, hold PressDelay, mouse-up.
func (s *Session) clickAt(c context.Context, x, y float64) error {
	if err := s.cursor.moveTo(c, x, y); err != nil {
		return err
	}
	if err := sleepCtx(c, s.cfg.Cursor.HoverDelay); err != nil {
		return err
	}
	if err := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(input.Left).WithClickCount(1).Do(c); err != nil {
		return err
	}
	if err := sleepCtx(c, s.cfg.Cursor.PressDelay); err != nil {
		return err
	}
	return input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(input.Left).WithClickCount(1).Do(c)
}

// Click implements Gateway: scrolls the target into view, moves the cursor
// through an interpolated path to centre ± jitter, and dispatches an
// explicit mousedown/hold/mouseup pair (§4.1 steps 1-5).
func (s *Session) Click(ctx context.Context, target ElementTarget) error {
	_, bbox, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	destX, destY := s.cursor.jitteredPoint(bbox.X+bbox.W/2, bbox.Y+bbox.H/2)

	return s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return s.clickAt(c, destX, destY)
	}))
}

// selectAllModifier returns the platform-correct select-all modifier for
// the session's emulated persona: Meta on macOS, Ctrl everywhere else.
func (s *Session) selectAllModifier() input.Modifier {
	if strings.Contains(strings.ToLower(s.persona.Platform), "mac") {
		return input.ModifierMeta
	}
	return input.ModifierCtrl
}

// Fill implements Gateway: clicks the target via cursor physics, then
// select-all/backspace/pause-50ms/type-at-50ms-per-char (§4.1).
func (s *Session) Fill(ctx context.Context, target ElementTarget, value string) error {
	selector, bbox, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	destX, destY := s.cursor.jitteredPoint(bbox.X+bbox.W/2, bbox.Y+bbox.H/2)
	mod := s.selectAllModifier()

	return s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := s.clickAt(c, destX, destY); err != nil {
			return err
		}
		if err := input.DispatchKeyEvent(input.KeyDown).WithModifiers(mod).WithKey("a").Do(c); err != nil {
			return err
		}
		if err := input.DispatchKeyEvent(input.KeyUp).WithModifiers(mod).WithKey("a").Do(c); err != nil {
			return err
		}
		if err := chromedp.KeyEvent("Backspace").Do(c); err != nil {
			return err
		}
		if err := sleepCtx(c, 50*time.Millisecond); err != nil {
			return err
		}
		for _, r := range value {
			if err := chromedp.SendKeys(selector, string(r), chromedp.ByQuery).Do(c); err != nil {
				return err
			}
			if err := sleepCtx(c, 50*time.Millisecond); err != nil {
				return err
			}
		}
		return nil
	}))
}

// DirectClick implements Gateway: resolves the target and clicks it
// straight away, with no cursor movement.
func (s *Session) DirectClick(ctx context.Context, target ElementTarget) error {
	selector, _, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	return s.runActions(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// DirectFill implements Gateway: resolves the target and fills it
// straight away, with no cursor movement.
func (s *Session) DirectFill(ctx context.Context, target ElementTarget, value string) error {
	selector, _, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	return s.runActions(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// KeyPress implements Gateway: focuses target's resolved selector first
// when one is given, else sends the key to whatever already has focus.
func (s *Session) KeyPress(ctx context.Context, target ElementTarget, key string) error {
	selector := target.ResolvedSelector
	if selector == "" {
		selector = target.Selector
	}
	if selector == "" {
		return s.runActions(ctx, chromedp.KeyEvent(key))
	}
	resolved, _, err := s.resolveTarget(ctx, ElementTarget{ResolvedSelector: selector})
	if err != nil {
		return err
	}
	return s.runActions(ctx, chromedp.Focus(resolved, chromedp.ByQuery), chromedp.KeyEvent(key))
}

// Scroll implements Gateway: dispatches a native mouse.wheel(0, ±amount)
// event at the cursor's current position, per the ACT dispatch table's
// SCROLL row (the 400ms post-scroll pause is the caller's job).
func (s *Session) Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error {
	delta := amount
	if delta == 0 {
		delta = int(s.persona.Height)
		if delta == 0 {
			delta = 800
		}
	}
	if direction == schemas.ScrollUp {
		delta = -delta
	}
	x, y := s.cursor.x, s.cursor.y
	wheel := input.DispatchMouseEvent(input.MouseWheel, x, y).WithDeltaX(0).WithDeltaY(float64(delta))
	if err := s.runActions(ctx, wheel); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// ScrollGeometry implements Gateway.
func (s *Session) ScrollGeometry(ctx context.Context) (float64, float64, error) {
	var geo []float64
	err := s.runActions(ctx, chromedp.Evaluate(
		`[window.scrollY, document.documentElement.scrollHeight]`, &geo))
	if err != nil || len(geo) != 2 {
		return 0, 0, fmt.Errorf("scroll geometry: %w", err)
	}
	return geo[0], geo[1], nil
}

// Wait implements Gateway.
func (s *Session) Wait(ctx context.Context, duration int, until schemas.WaitUntil) error {
	if until == schemas.WaitUntilNetworkIdle {
		return s.stabilize(ctx)
	}
	if duration <= 0 {
		duration = 1000
	}
	select {
	case <-time.After(time.Duration(duration) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Gateway.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// emulatePersona sets the user agent and viewport chromedp should present
// for the rest of the session's lifetime. The persona's timezone is not
// applied.
func emulatePersona(ctx context.Context, p schemas.Persona) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(c context.Context) error {
			return chromedp.EmulateViewport(int64(p.Width), int64(p.Height)).Do(c)
		}),
		chromedp.ActionFunc(func(c context.Context) error {
			if p.UserAgent == "" {
				return nil
			}
			return chromedp.Evaluate(fmt.Sprintf(
				`Object.defineProperty(navigator, 'userAgent', {get: () => %q})`, p.UserAgent), nil).Do(c)
		}),
	)
}
