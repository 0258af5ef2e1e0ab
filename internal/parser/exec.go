package parser

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/hazyhaar/domguard/internal/store"
)

// ExecConfig configures ExecParser.
type ExecConfig struct {
	// Binary is the chromium-family executable to invoke. Default: "chromium".
	Binary string
	// FetchTimeout bounds a single subprocess run. Default: 30s.
	FetchTimeout time.Duration
}

func (c *ExecConfig) defaults() {
	if c.Binary == "" {
		c.Binary = "chromium"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
}

// ExecParser is the literal reference Parser: it shells out to
// "<binary> --headless --disable-gpu --dump-dom <url>" and captures stdout
// as the DOM.
// It has no in-process browser state to recycle, at the cost of paying a
// fresh Chrome startup on every fetch.
type ExecParser struct {
	cfg ExecConfig
}

// NewExecParser constructs an ExecParser.
func NewExecParser(cfg ExecConfig) *ExecParser {
	cfg.defaults()
	return &ExecParser{cfg: cfg}
}

// ParsePage implements Parser.
func (p *ExecParser) ParsePage(ctx context.Context, page *store.TrackedPage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.Binary, "--headless", "--disable-gpu", "--dump-dom", page.PageURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("parser: %s --dump-dom: %w (stderr: %s)", p.cfg.Binary, err, stderr.String())
	}
	return stdout.String(), nil
}
