package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/config"
)

// Manager owns the chromedp allocator and hands out Sessions. A process
// runs one Manager; each navigated task gets its own Session (tab).
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session

	initOnce sync.Once
	initErr  error
}

// NewManager creates a Manager. The chromedp allocator is started lazily on
// the first session request.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser_manager"),
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if m.cfg.IgnoreTLSErrors {
			opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
		}
		for _, a := range m.cfg.Args {
			opts = append(opts, chromedp.Flag(a, true))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		m.allocCtx = allocCtx
		m.allocCancel = allocCancel
		m.logger.Info("browser manager initialized", zap.Bool("headless", m.cfg.Headless))
	})
	return m.initErr
}

// NewSession creates a new isolated tab for one control-loop session.
func (m *Manager) NewSession(ctx context.Context, persona schemas.Persona) (*Session, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	session, err := newSession(m.allocCtx, m.cfg, persona, m.logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, session.id)
		m.mu.Unlock()
	}

	if err := session.initialize(ctx); err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("initialize session: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	return session, nil
}

// Shutdown closes every outstanding session and tears down the allocator.
// Cleanup runs against a detached, values-only view of ctx: Shutdown is
// commonly invoked with the same context the caller is in the middle of
// cancelling, and a half-finished Close shouldn't be cut off by that.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	detached := valueOnlyContext{ctx}
	var g errgroup.Group
	for _, s := range sessions {
		g.Go(func() error {
			return s.Close(detached)
		})
	}
	_ = g.Wait()

	if m.allocCancel != nil {
		m.allocCancel()
	}
}
