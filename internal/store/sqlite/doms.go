package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/domguard/internal/store"
)

func scanDom(row interface{ Scan(...any) error }) (*store.StoredDom, error) {
	d := &store.StoredDom{}
	if err := row.Scan(&d.DomID, &d.PageID, &d.Dom); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadDomsForPage implements store.PageStore, oldest first.
func (s *Store) ReadDomsForPage(ctx context.Context, page *store.TrackedPage) ([]*store.StoredDom, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT dom_id, page_id, dom FROM stored_doms WHERE page_id = ? ORDER BY dom_id`, page.PageID)
	if err != nil {
		return nil, fmt.Errorf("%w: read doms for page: %v", store.ErrBackend, err)
	}
	defer rows.Close()

	var doms []*store.StoredDom
	for rows.Next() {
		d, err := scanDom(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan dom: %v", store.ErrBackend, err)
		}
		doms = append(doms, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate doms: %v", store.ErrBackend, err)
	}
	return doms, nil
}

// ReadLatestDomForPage implements store.PageStore. The reference DOM used by
// comparators is always the highest dom_id stored for the page.
func (s *Store) ReadLatestDomForPage(ctx context.Context, page *store.TrackedPage) (*store.StoredDom, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT dom_id, page_id, dom FROM stored_doms WHERE page_id = ? ORDER BY dom_id DESC LIMIT 1`,
		page.PageID)
	d, err := scanDom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read latest dom: %v", store.ErrBackend, err)
	}
	return d, nil
}

// InsertDomForPage implements store.PageStore.
func (s *Store) InsertDomForPage(ctx context.Context, page *store.TrackedPage, dom string) (*store.StoredDom, error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO stored_doms (page_id, dom) VALUES (?, ?)`, page.PageID, dom)
	if err != nil {
		return nil, fmt.Errorf("%w: insert dom: %v", store.ErrBackend, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", store.ErrBackend, err)
	}
	return &store.StoredDom{DomID: id, PageID: page.PageID, Dom: dom}, nil
}

// UpdateDomForPage implements store.PageStore.
func (s *Store) UpdateDomForPage(ctx context.Context, dom *store.StoredDom, newDom string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE stored_doms SET dom = ? WHERE dom_id = ?`, newDom, dom.DomID)
	if err != nil {
		return fmt.Errorf("%w: update dom: %v", store.ErrBackend, err)
	}
	dom.Dom = newDom
	return nil
}

// DeleteDomForPage implements store.PageStore.
func (s *Store) DeleteDomForPage(ctx context.Context, dom *store.StoredDom) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM stored_doms WHERE dom_id = ?`, dom.DomID)
	if err != nil {
		return fmt.Errorf("%w: delete dom: %v", store.ErrBackend, err)
	}
	return nil
}
