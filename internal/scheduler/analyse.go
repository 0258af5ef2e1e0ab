package scheduler

import (
	"context"

	"github.com/hazyhaar/domguard/internal/store"
)

// analysePage fetches (and, for Dynamic pages, calibrates) the current DOM
// and writes it as the new reference snapshot, releasing the soft lock
// whether it succeeds or fails.
func (m *PageManager) analysePage(ctx context.Context, page *store.TrackedPage) {
	if !m.tryMarkIndexing(page.PageID) {
		return
	}
	defer m.clearIndexing(page.PageID)

	var err error
	if page.Type.Dynamic {
		err = m.analyseDynamic(ctx, page)
	} else {
		err = m.analyseStatic(ctx, page)
	}
	if err != nil {
		m.logger.Error("scheduler: reindex failed", "page_id", page.PageID, "error", err)
		return
	}

	if err := m.pages.UpdateTrackingTypeForPage(ctx, page); err != nil {
		m.logger.Error("scheduler: persist tracking type failed", "page_id", page.PageID, "error", err)
	}
}

func (m *PageManager) analyseStatic(ctx context.Context, page *store.TrackedPage) error {
	dom, err := m.parser.ParsePage(ctx, page)
	if err != nil {
		return err
	}
	_, err = m.pages.InsertDomForPage(ctx, page, dom)
	return err
}

func (m *PageManager) analyseDynamic(ctx context.Context, page *store.TrackedPage) error {
	tolerance, err := m.calib.Run(ctx, page)
	if err != nil {
		return err
	}
	page.Type = store.DynamicWithTolerance(tolerance)

	dom, err := m.parser.ParsePage(ctx, page)
	if err != nil {
		return err
	}
	_, err = m.pages.InsertDomForPage(ctx, page, dom)
	return err
}
