// Package chrome keeps a bounded set of headless Chrome tabs that the chrome
// render engine prints documents through.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"casestudy/internal/config"
	"casestudy/internal/infra/logging"
)

// ErrPoolClosed is returned by Acquire and Restart after Close.
var ErrPoolClosed = errors.New("chrome pool closed")

// Tab is one leased browser tab. Ctx is a chromedp context bound to the
// shared browser.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Stats is a point-in-time view of the pool used by the stats endpoint.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	ProfileDir   string    `json:"profile_dir"`
	TimeoutSecs  int       `json:"timeout_secs"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart,omitempty"`
}

// Pool shares one browser process between at most ChromePoolSize concurrent
// tabs. The browser starts lazily on the first print.
type Pool struct {
	mu  sync.Mutex
	cfg config.Config
	sem chan struct{}

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	profileDir    string

	closed      bool
	restarts    int
	lastRestart time.Time
}

// NewPool prepares a pool sized by cfg.PDF.ChromePoolSize. A size of zero
// disables pooling and is reported as an error.
func NewPool(cfg config.Config) (*Pool, error) {
	size := cfg.PDF.ChromePoolSize
	if size <= 0 {
		return nil, errors.New("chrome pool disabled: chrome_pool_size must be > 0")
	}
	p := &Pool{cfg: cfg, sem: make(chan struct{}, size)}
	if err := p.startBrowser(); err != nil {
		return nil, err
	}
	for i := 0; i < size; i++ {
		p.sem <- struct{}{}
	}
	logging.Info("Chrome pool ready", "size", size, "profile_dir", p.profileDir)
	return p, nil
}

func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Software rendering only; minimal containers lack GPU drivers.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// startBrowser must be called with mu held or before the pool is shared.
func (p *Pool) startBrowser() error {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg, dir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	p.profileDir = dir
	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	return nil
}

func (p *Pool) stopBrowser() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

// createProfileDir makes a fresh Chrome user-data directory under
// cfg.PDF.UserDataDir, or the system temp dir when unset.
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create chrome profile base %s: %w", base, err)
	}
	dir, err := os.MkdirTemp(base, "chrome-profile-*")
	if err != nil {
		return "", fmt.Errorf("create chrome profile dir: %w", err)
	}
	return dir, nil
}

// Acquire blocks until a tab slot is free, ctx is done or the pool closes.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.sem <- struct{}{}
		return nil, ErrPoolClosed
	}
	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	return &Tab{Ctx: tabCtx, cancel: cancel}, nil
}

// Release closes the tab and frees its slot. renderErr is only logged; the
// caller decides whether to Restart.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil {
		logging.Debug("Chrome tab released after error", "error", renderErr)
	}
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the browser process and its profile directory. Leased
// tabs keep their old contexts and fail on next use.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.stopBrowser()
	if err := p.startBrowser(); err != nil {
		return err
	}
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts, "profile_dir", p.profileDir)
	return nil
}

// Close stops the browser and removes its profile. It is safe to call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopBrowser()
}

func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	capacity := cap(p.sem)
	idle := len(p.sem)
	return Stats{
		Enabled:      !p.closed && capacity > 0,
		Capacity:     capacity,
		Idle:         idle,
		InUse:        capacity - idle,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
}

// IsSessionInterrupted reports whether err means the browser session went
// away mid-render, as opposed to a failure in the document itself. Timeouts and
// cancellations are not session losses: a slow render must not restart the
// browser other tabs are using.
func IsSessionInterrupted(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "session closed", "websocket", "browser closed", "invalid context"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
