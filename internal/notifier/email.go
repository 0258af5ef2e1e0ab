package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/pelletier/go-toml/v2"

	"github.com/hazyhaar/domguard/internal/store"
)

// EmailConfig is the TOML shape read from the email notifier's config file.
type EmailConfig struct {
	SMTPServer string `toml:"smtp_server"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Port       int    `toml:"port"`
	FromName   string `toml:"from_name"`
	FromEmail  string `toml:"from_email"`
}

func (c *EmailConfig) defaults() {
	if c.Port == 0 {
		c.Port = 587
	}
}

// LoadEmailConfig reads and parses a TOML notifier config file.
func LoadEmailConfig(path string) (*EmailConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("notifier: read config: %w", err)
	}
	var cfg EmailConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("notifier: parse config: %w", err)
	}
	cfg.defaults()
	return &cfg, nil
}

// Email is the reference Notifier: SMTP delivery with static credentials,
// report bodies rendered as Markdown for readability in plain-text clients.
type Email struct {
	cfg       EmailConfig
	logger    *slog.Logger
	converter *converter.Converter
}

// NewEmail builds an Email notifier from a loaded config.
func NewEmail(cfg EmailConfig, logger *slog.Logger) *Email {
	if logger == nil {
		logger = slog.Default()
	}
	return &Email{
		cfg:    cfg,
		logger: logger,
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

func (e *Email) Matches(channel store.ChannelTag) bool { return channel == store.ChannelEmail }

// SendReport implements Notifier.
func (e *Email) SendReport(ctx context.Context, user *store.User, contact *store.Contact, page *store.TrackedPage, referenceDom, currentDom string) error {
	body := e.renderBody(user, page, referenceDom, currentDom)

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.SMTPServer)

	from := fmt.Sprintf("%s <%s>", e.cfg.FromName, e.cfg.FromEmail)
	msg := e.buildMessage(from, user.Username, contact.Address, page.PageURL, body)

	if err := smtp.SendMail(addr, auth, e.cfg.FromEmail, []string{contact.Address}, []byte(msg)); err != nil {
		return fmt.Errorf("notifier: send mail: %w", err)
	}
	e.logger.Info("notifier: email sent",
		"page_id", page.PageID, "contact_id", contact.ContactID, "address", contact.Address)
	return nil
}

func (e *Email) buildMessage(from, toName, toAddr, pageURL, body string) string {
	subject := fmt.Sprintf("Defacement alert: %s", pageURL)
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s <%s>\r\n", toName, toAddr)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return b.String()
}

func (e *Email) renderBody(user *store.User, page *store.TrackedPage, referenceDom, currentDom string) string {
	ref := e.toMarkdown(referenceDom, page.PageURL)
	cur := e.toMarkdown(currentDom, page.PageURL)

	var b strings.Builder
	fmt.Fprintf(&b, "Page %s (owned by %s) has reached its defacement threshold.\n\n", page.PageURL, user.Username)
	fmt.Fprintf(&b, "Consecutive defaced checks: %d / %d\n\n", page.DefacementCount, page.DefacementThreshold)
	b.WriteString("## Reference content\n\n")
	b.WriteString(ref)
	b.WriteString("\n\n## Current content\n\n")
	b.WriteString(cur)
	return b.String()
}

func (e *Email) toMarkdown(html, sourceURL string) string {
	if html == "" {
		return "(empty)"
	}
	result, err := e.converter.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return html
	}
	return strings.TrimSpace(result)
}
