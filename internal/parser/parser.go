// Package parser fetches the fully-rendered DOM of a tracked page.
package parser

import (
	"context"

	"github.com/hazyhaar/domguard/internal/store"
)

// Parser produces the fully-rendered DOM (post-CSS, post-script) of a
// page as UTF-8 text. Implementations are blocking I/O of
// seconds-to-minutes latency; callers must run them off any latency-
// sensitive loop.
type Parser interface {
	ParsePage(ctx context.Context, page *store.TrackedPage) (string, error)
}
