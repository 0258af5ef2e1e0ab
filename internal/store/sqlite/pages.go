// CRUD plus the atomic claim-and-advance soft lock for tracked_pages.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/domguard/internal/store"
)

const pageColumns = `page_id, page_url, owner_user_id, last_time_checked, last_time_indexed,
	index_interval, defacement_count, defacement_threshold, notified_of_current,
	page_type, page_tolerance`

func scanPage(row interface{ Scan(...any) error }) (*store.TrackedPage, error) {
	p := &store.TrackedPage{}
	var pageType string
	var tolerance float64
	var notified int
	if err := row.Scan(
		&p.PageID, &p.PageURL, &p.OwnerUserID, &p.LastCheckedAt, &p.LastIndexedAt,
		&p.IndexInterval, &p.DefacementCount, &p.DefacementThreshold, &notified,
		&pageType, &tolerance,
	); err != nil {
		return nil, err
	}
	p.NotifiedOfBreach = notified != 0
	if pageType == "Dynamic" {
		p.Type = store.DynamicWithTolerance(tolerance)
	} else {
		p.Type = store.Static
	}
	return p, nil
}

// InsertTrackedPage implements store.PageStore. A new page is always Static
// with no stored DOM; the default index interval and defacement threshold
// are 30 minutes and 5 breaches respectively.
func (s *Store) InsertTrackedPage(ctx context.Context, url string, userID int64) (*store.TrackedPage, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO tracked_pages (page_url, owner_user_id, index_interval, defacement_threshold)
		VALUES (?, ?, 1800000, 5)`, url, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("%w: insert tracked page: %v", store.ErrBackend, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", store.ErrBackend, err)
	}
	return s.GetPageByID(ctx, id)
}

// ListAllTrackedPages implements store.PageStore.
func (s *Store) ListAllTrackedPages(ctx context.Context) ([]*store.TrackedPage, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+pageColumns+` FROM tracked_pages ORDER BY page_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list pages: %v", store.ErrBackend, err)
	}
	defer rows.Close()
	return collectPages(rows)
}

// GetPageByURL implements store.PageStore. Lookup is case-insensitive.
func (s *Store) GetPageByURL(ctx context.Context, url string) (*store.TrackedPage, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM tracked_pages WHERE page_url = ? COLLATE NOCASE`, url)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get page by url: %v", store.ErrBackend, err)
	}
	return p, nil
}

// GetPageByID implements store.PageStore.
func (s *Store) GetPageByID(ctx context.Context, id int64) (*store.TrackedPage, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM tracked_pages WHERE page_id = ?`, id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get page by id: %v", store.ErrBackend, err)
	}
	return p, nil
}

// DeleteTrackedPage implements store.PageStore. StoredDoms cascade via the
// foreign key ON DELETE CASCADE.
func (s *Store) DeleteTrackedPage(ctx context.Context, page *store.TrackedPage) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM tracked_pages WHERE page_id = ?`, page.PageID)
	if err != nil {
		return fmt.Errorf("%w: delete page: %v", store.ErrBackend, err)
	}
	return nil
}

// UpdateTrackingTypeForPage implements store.PageStore.
func (s *Store) UpdateTrackingTypeForPage(ctx context.Context, page *store.TrackedPage) error {
	now := time.Now().UnixMilli()
	pageType := "Static"
	tolerance := 0.0
	if page.Type.Dynamic {
		pageType = "Dynamic"
		tolerance = page.Type.Tolerance
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE tracked_pages
		SET page_type = ?, page_tolerance = ?, last_time_indexed = ?, index_interval = ?
		WHERE page_id = ?`,
		pageType, tolerance, now, page.IndexInterval, page.PageID)
	if err != nil {
		return fmt.Errorf("%w: update tracking type: %v", store.ErrBackend, err)
	}
	page.LastIndexedAt = now
	return nil
}

// ClaimPagesDueForCheck is a soft lock: a single UPDATE...RETURNING
// statement both advances last_time_checked to now for every eligible row
// and returns exactly those rows. Two concurrent
// callers race on disjoint WHERE predicates (each sees the rows the other
// already claimed drop out of its own eligible set) because SQLite applies
// writes to this database serially.
func (s *Store) ClaimPagesDueForCheck(ctx context.Context, checkInterval int64) ([]*store.TrackedPage, error) {
	now := time.Now().UnixMilli()
	threshold := now - checkInterval
	rows, err := s.DB.QueryContext(ctx, `
		UPDATE tracked_pages
		SET last_time_checked = ?
		WHERE last_time_checked <= ?
		RETURNING `+pageColumns,
		now, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: claim pages for check: %v", store.ErrBackend, err)
	}
	defer rows.Close()
	return collectPages(rows)
}

// ClaimPagesDueForReindex implements the reindex-side soft lock: eligible
// rows are those whose last_time_indexed is older than now - index_interval,
// a per-row threshold, so the WHERE clause computes it inline.
func (s *Store) ClaimPagesDueForReindex(ctx context.Context) ([]*store.TrackedPage, error) {
	now := time.Now().UnixMilli()
	rows, err := s.DB.QueryContext(ctx, `
		UPDATE tracked_pages
		SET last_time_indexed = ?
		WHERE last_time_indexed <= ? - index_interval
		RETURNING `+pageColumns,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("%w: claim pages for reindex: %v", store.ErrBackend, err)
	}
	defer rows.Close()
	return collectPages(rows)
}

// IncrementDefacementCount implements store.PageStore's atomic
// increment-and-OR-flag contract.
func (s *Store) IncrementDefacementCount(ctx context.Context, page *store.TrackedPage, notified bool) error {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE tracked_pages
		SET defacement_count = defacement_count + 1,
		    notified_of_current = notified_of_current OR ?
		WHERE page_id = ?
		RETURNING defacement_count, notified_of_current`,
		boolInt(notified), page.PageID)

	var count, notifiedOut int
	if err := row.Scan(&count, &notifiedOut); err != nil {
		return fmt.Errorf("%w: increment defacement count: %v", store.ErrBackend, err)
	}
	page.DefacementCount = count
	page.NotifiedOfBreach = notifiedOut != 0
	return nil
}

// ResetDefacementCount implements store.PageStore.
func (s *Store) ResetDefacementCount(ctx context.Context, page *store.TrackedPage) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE tracked_pages SET defacement_count = 0, notified_of_current = 0 WHERE page_id = ?`,
		page.PageID)
	if err != nil {
		return fmt.Errorf("%w: reset defacement count: %v", store.ErrBackend, err)
	}
	page.DefacementCount = 0
	page.NotifiedOfBreach = false
	return nil
}

func collectPages(rows *sql.Rows) ([]*store.TrackedPage, error) {
	var pages []*store.TrackedPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan page: %v", store.ErrBackend, err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pages: %v", store.ErrBackend, err)
	}
	return pages, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint violations as *sqlite.Error with
	// a message containing "UNIQUE constraint failed"; it does not expose a
	// typed error code through the database/sql surface, so we match on text.
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
