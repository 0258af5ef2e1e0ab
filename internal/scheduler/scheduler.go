// Package scheduler drives the periodic check and reindex cadences that
// detect and report page defacement.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domguard/internal/calibrator"
	"github.com/hazyhaar/domguard/internal/comparator"
	"github.com/hazyhaar/domguard/internal/notifier"
	"github.com/hazyhaar/domguard/internal/parser"
	"github.com/hazyhaar/domguard/internal/store"
)

// Config controls the scheduler's cadence and worker pool.
type Config struct {
	// TickInterval is how often the scheduler looks for due work. Default 1s.
	TickInterval time.Duration
	// CheckInterval is TIME_BETWEEN_CHECKS: how stale a page's last check
	// must be before it is checked again. Default 60 minutes.
	CheckInterval time.Duration
	// MaxConcurrency bounds the number of check/reindex tasks running at
	// once. Default 8.
	MaxConcurrency int
}

func (c *Config) defaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 60 * time.Minute
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
}

// PageManager owns the tick-driven scheduling loop, the in-process soft
// lock on concurrently-indexed pages, and the collaborators a check or
// reindex task needs.
type PageManager struct {
	pages     store.PageStore
	users     store.UserStore
	parser    parser.Parser
	chain     comparator.Chain
	calib     *calibrator.Calibrator
	notifiers notifier.Set
	cfg       Config
	logger    *slog.Logger

	mu                sync.Mutex
	currentlyIndexing map[int64]bool

	sem chan struct{}
}

// New builds a PageManager with sensible defaults, overridable via cfg fields.
func New(
	pages store.PageStore,
	users store.UserStore,
	p parser.Parser,
	chain comparator.Chain,
	calib *calibrator.Calibrator,
	notifiers notifier.Set,
	cfg Config,
	logger *slog.Logger,
) *PageManager {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &PageManager{
		pages:             pages,
		users:             users,
		parser:            p,
		chain:             chain,
		calib:             calib,
		notifiers:         notifiers,
		cfg:               cfg,
		logger:            logger,
		currentlyIndexing: make(map[int64]bool),
		sem:               make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Run starts the tick loop. It blocks until ctx is cancelled.
func (m *PageManager) Run(ctx context.Context) {
	m.logger.Info("scheduler: started",
		"tick_interval", m.cfg.TickInterval, "check_interval", m.cfg.CheckInterval)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("scheduler: stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *PageManager) tick(ctx context.Context) {
	m.reindexSweep(ctx)
	m.checkSweep(ctx)
}

func (m *PageManager) reindexSweep(ctx context.Context) {
	due, err := m.pages.ClaimPagesDueForReindex(ctx)
	if err != nil {
		m.logger.Error("scheduler: claim pages for reindex failed", "error", err)
		return
	}
	for _, page := range due {
		if page.DefacementCount > 0 {
			m.logger.Debug("scheduler: skipping reindex of page in breach",
				"page_id", page.PageID, "defacement_count", page.DefacementCount)
			continue
		}
		m.dispatch(ctx, func(ctx context.Context) { m.analysePage(ctx, page) })
	}
}

func (m *PageManager) checkSweep(ctx context.Context) {
	due, err := m.pages.ClaimPagesDueForCheck(ctx, m.cfg.CheckInterval.Milliseconds())
	if err != nil {
		m.logger.Error("scheduler: claim pages for check failed", "error", err)
		return
	}
	for _, page := range due {
		m.dispatch(ctx, func(ctx context.Context) { m.checkPage(ctx, page) })
	}
}

// dispatch runs fn on a pool worker, bounded by MaxConcurrency, without
// blocking the ticker goroutine beyond acquiring a slot.
func (m *PageManager) dispatch(ctx context.Context, fn func(context.Context)) {
	m.sem <- struct{}{}
	go func() {
		defer func() { <-m.sem }()
		fn(ctx)
	}()
}

func (m *PageManager) tryMarkIndexing(pageID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentlyIndexing[pageID] {
		return false
	}
	m.currentlyIndexing[pageID] = true
	return true
}

func (m *PageManager) isIndexing(pageID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentlyIndexing[pageID]
}

func (m *PageManager) clearIndexing(pageID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.currentlyIndexing, pageID)
}
