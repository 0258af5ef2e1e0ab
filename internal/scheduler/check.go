package scheduler

import (
	"context"

	"github.com/hazyhaar/domguard/internal/comparator"
	"github.com/hazyhaar/domguard/internal/store"
)

// checkPage fetches the live DOM, compares it to the stored reference, and
// updates breach state. It holds the page in currentlyIndexing for its whole
// run, so it never races a concurrent reindex of the same page.
func (m *PageManager) checkPage(ctx context.Context, page *store.TrackedPage) {
	if !m.tryMarkIndexing(page.PageID) {
		return
	}
	defer m.clearIndexing(page.PageID)

	doms, err := m.pages.ReadDomsForPage(ctx, page)
	if err != nil {
		m.logger.Error("scheduler: read doms failed", "page_id", page.PageID, "error", err)
		return
	}
	if len(doms) == 0 {
		m.logger.Info("scheduler: no reference dom, skipping check", "page_id", page.PageID)
		return
	}
	reference := latestDom(doms)

	current, err := m.parser.ParsePage(ctx, page)
	if err != nil {
		m.logger.Error("scheduler: fetch failed during check", "page_id", page.PageID, "error", err)
		return
	}

	verdict := m.chain.Run(page, reference.Dom, current)
	switch verdict {
	case comparator.NotDefaced:
		if err := m.pages.ResetDefacementCount(ctx, page); err != nil {
			m.logger.Error("scheduler: reset defacement count failed", "page_id", page.PageID, "error", err)
		}
	case comparator.Defaced:
		m.onDefaced(ctx, page, reference.Dom, current)
	}
}

func (m *PageManager) onDefaced(ctx context.Context, page *store.TrackedPage, referenceDom, currentDom string) {
	notify := page.DefacementCount+1 >= page.DefacementThreshold && !page.NotifiedOfBreach
	if err := m.pages.IncrementDefacementCount(ctx, page, notify); err != nil {
		m.logger.Error("scheduler: increment defacement count failed", "page_id", page.PageID, "error", err)
		return
	}
	m.logger.Warn("scheduler: defacement detected",
		"page_id", page.PageID, "defacement_count", page.DefacementCount, "notify", notify)

	if !notify {
		return
	}
	m.sendBreachNotifications(ctx, page, referenceDom, currentDom)
}

func (m *PageManager) sendBreachNotifications(ctx context.Context, page *store.TrackedPage, referenceDom, currentDom string) {
	owner, err := m.users.GetUserInfoForID(ctx, page.OwnerUserID)
	if err != nil {
		m.logger.Error("scheduler: owner lookup failed", "page_id", page.PageID, "error", err)
		return
	}
	contacts, err := m.users.ListContactsFor(ctx, owner)
	if err != nil {
		m.logger.Error("scheduler: list contacts failed", "page_id", page.PageID, "error", err)
		return
	}
	if len(contacts) == 0 {
		m.logger.Warn("scheduler: page owner has no contacts", "page_id", page.PageID, "user_id", owner.UserID)
		return
	}

	for _, contact := range contacts {
		n := m.notifiers.FirstMatch(contact.Channel)
		if n == nil {
			m.logger.Warn("scheduler: no notifier for channel", "contact_id", contact.ContactID, "channel", contact.Channel)
			continue
		}
		if err := n.SendReport(ctx, owner, contact, page, referenceDom, currentDom); err != nil {
			m.logger.Error("scheduler: notification failed", "contact_id", contact.ContactID, "error", err)
			continue
		}
		m.logger.Info("scheduler: notification sent", "page_id", page.PageID, "contact_id", contact.ContactID)
	}
}

func latestDom(doms []*store.StoredDom) *store.StoredDom {
	latest := doms[0]
	for _, d := range doms[1:] {
		if d.DomID > latest.DomID {
			latest = d
		}
	}
	return latest
}
