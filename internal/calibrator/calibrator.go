// Package calibrator samples a Dynamic page's live DOM repeatedly to derive
// a diff tolerance that absorbs the page's normal churn.
package calibrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domguard/internal/comparator"
	"github.com/hazyhaar/domguard/internal/parser"
	"github.com/hazyhaar/domguard/internal/store"
)

// ErrNoSamples is returned when every fetch in a calibration run fails.
// The caller must not persist a tolerance in that case.
var ErrNoSamples = errors.New("calibrator: no successful samples")

// Calibrator takes Samples snapshots of a page spaced SampleSpacing apart
// and derives a diff tolerance from their pairwise similarity.
type Calibrator struct {
	Parser parser.Parser
	Logger *slog.Logger

	// Samples is the number of live-DOM fetches taken. Default 10.
	Samples int
	// SampleSpacing is the delay between consecutive fetches. Default 1s.
	// Samples * SampleSpacing is the calibration window.
	SampleSpacing time.Duration
	// SafetyMargin multiplies the mean pairwise diff to get the final
	// tolerance. Default 1.3 (a 30% margin against false positives).
	SafetyMargin float64
}

// New builds a Calibrator with sensible defaults, overridable via the exported
// fields before the first Run.
func New(p parser.Parser, logger *slog.Logger) *Calibrator {
	return &Calibrator{
		Parser:        p,
		Logger:        logger,
		Samples:       10,
		SampleSpacing: time.Second,
		SafetyMargin:  1.3,
	}
}

// Run executes the sampling protocol for page and returns the tolerance to
// assign it. Fetch failures are logged and skipped, not retried; ErrNoSamples
// is returned if every fetch failed.
func (c *Calibrator) Run(ctx context.Context, page *store.TrackedPage) (float64, error) {
	samples := make([]string, 0, c.Samples)

	for i := 0; i < c.Samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(c.SampleSpacing):
			}
		}

		dom, err := c.Parser.ParsePage(ctx, page)
		if err != nil {
			c.Logger.Error("calibrator: sample fetch failed",
				"page_id", page.PageID, "sample", i, "error", err)
			continue
		}
		samples = append(samples, dom)
	}

	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: page %d", ErrNoSamples, page.PageID)
	}
	if len(samples) == 1 {
		return 0, nil
	}

	var sum float64
	var pairs int
	for i, a := range samples {
		for j, b := range samples {
			if i == j {
				continue
			}
			sum += comparator.Percentage(a, b)
			pairs++
		}
	}
	mean := sum / float64(pairs)
	return c.SafetyMargin * mean, nil
}
