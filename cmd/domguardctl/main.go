// Command domguardctl is the operator front-end for domguard: a
// line-oriented menu over the same SQLite database the daemon uses, for
// registering pages and users without touching the schema by hand.
//
// Usage:
//
//	domguardctl -db domguard.db
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domguard/internal/store"
	"github.com/hazyhaar/domguard/internal/store/sqlite"
)

const menu = `
domguard operator console
  1) list tracked pages
  2) register a page
  3) remove a page
  4) edit a page's tracking type
  5) force a rescan of a page
  6) find a user
  7) create a user
  8) delete a user
  9) register a contact
 10) delete a contact
  0) quit
> `

func main() {
	dbPath := flag.String("db", "domguard.db", "path to SQLite database")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := sqlite.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "domguardctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	run(context.Background(), st, bufio.NewScanner(os.Stdin), os.Stdout, logger)
}

func run(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File, logger *slog.Logger) {
	for {
		fmt.Fprint(out, menu)
		if !in.Scan() {
			return
		}
		switch strings.TrimSpace(in.Text()) {
		case "1":
			cmdListPages(ctx, st, out)
		case "2":
			cmdRegisterPage(ctx, st, in, out)
		case "3":
			cmdRemovePage(ctx, st, in, out)
		case "4":
			cmdEditPageType(ctx, st, in, out)
		case "5":
			cmdForceRescan(ctx, st, in, out, logger)
		case "6":
			cmdFindUser(ctx, st, in, out)
		case "7":
			cmdCreateUser(ctx, st, in, out)
		case "8":
			cmdDeleteUser(ctx, st, in, out)
		case "9":
			cmdRegisterContact(ctx, st, in, out)
		case "10":
			cmdDeleteContact(ctx, st, in, out)
		case "0", "quit", "exit":
			return
		default:
			fmt.Fprintln(out, "unrecognized entry")
		}
	}
}

func prompt(in *bufio.Scanner, out *os.File, label string) (string, bool) {
	fmt.Fprintf(out, "%s: ", label)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func promptInt(in *bufio.Scanner, out *os.File, label string) (int64, bool) {
	s, ok := prompt(in, out, label)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(out, "not a number: %v\n", err)
		return 0, false
	}
	return n, true
}

func cmdListPages(ctx context.Context, st *sqlite.Store, out *os.File) {
	pages, err := st.ListAllTrackedPages(ctx)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(pages) == 0 {
		fmt.Fprintln(out, "no tracked pages")
		return
	}
	for _, p := range pages {
		kind := "static"
		if p.Type.Dynamic {
			kind = fmt.Sprintf("dynamic (tolerance %.2f%%)", p.Type.Tolerance)
		}
		fmt.Fprintf(out, "  [%d] %s  owner=%d  %s  defacements=%d/%d\n",
			p.PageID, p.PageURL, p.OwnerUserID, kind, p.DefacementCount, p.DefacementThreshold)
	}
}

func cmdRegisterPage(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	url, ok := prompt(in, out, "page URL")
	if !ok {
		return
	}
	userID, ok := promptInt(in, out, "owner user id")
	if !ok {
		return
	}
	page, err := st.InsertTrackedPage(ctx, url, userID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "registered page %d\n", page.PageID)
}

func cmdRemovePage(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	id, ok := promptInt(in, out, "page id")
	if !ok {
		return
	}
	page, err := st.GetPageByID(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if err := st.DeleteTrackedPage(ctx, page); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "removed")
}

func cmdEditPageType(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	id, ok := promptInt(in, out, "page id")
	if !ok {
		return
	}
	page, err := st.GetPageByID(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	kind, ok := prompt(in, out, "type (static/dynamic)")
	if !ok {
		return
	}
	switch strings.ToLower(kind) {
	case "static":
		page.Type = store.Static
	case "dynamic":
		fmt.Fprintln(out, "dynamic tracking requires a calibration pass; use entry 5 (force rescan) after switching")
		page.Type = store.DynamicWithTolerance(0)
	default:
		fmt.Fprintln(out, "must be static or dynamic")
		return
	}
	if err := st.UpdateTrackingTypeForPage(ctx, page); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "updated")
}

// cmdForceRescan clears last_time_indexed so the next scheduler tick picks
// the page up in its reindex sweep instead of waiting out the normal
// index interval. It does not fetch the page itself — the daemon does. A
// page whose defacement count is above zero is claimed by that sweep but
// not reindexed.
func cmdForceRescan(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File, logger *slog.Logger) {
	id, ok := promptInt(in, out, "page id")
	if !ok {
		return
	}
	page, err := st.GetPageByID(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if _, err := st.DB.ExecContext(ctx, `UPDATE tracked_pages SET last_time_indexed = 0 WHERE page_id = ?`, page.PageID); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	logger.Info("domguardctl: queued forced rescan", "page_id", page.PageID)
	fmt.Fprintln(out, "queued: the daemon will reindex this page on its next tick unless it is in breach")
}

func cmdFindUser(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	username, ok := prompt(in, out, "username")
	if !ok {
		return
	}
	u, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	contacts, err := st.ListContactsFor(ctx, u)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "user %d: %s\n", u.UserID, u.Username)
	for _, c := range contacts {
		fmt.Fprintf(out, "  contact [%d] %s: %s\n", c.ContactID, c.Channel, c.Address)
	}
}

func cmdCreateUser(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	username, ok := prompt(in, out, "username")
	if !ok {
		return
	}
	u, err := st.CreateUser(ctx, username)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "created user %d\n", u.UserID)
}

func cmdDeleteUser(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	id, ok := promptInt(in, out, "user id")
	if !ok {
		return
	}
	u, err := st.GetUserInfoForID(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if err := st.DeleteUser(ctx, u); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "deleted")
}

func cmdRegisterContact(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	userID, ok := promptInt(in, out, "owner user id")
	if !ok {
		return
	}
	u, err := st.GetUserInfoForID(ctx, userID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	address, ok := prompt(in, out, "email address")
	if !ok {
		return
	}
	c, err := st.InsertContactFor(ctx, u, store.ChannelEmail, address)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "registered contact %d\n", c.ContactID)
}

func cmdDeleteContact(ctx context.Context, st *sqlite.Store, in *bufio.Scanner, out *os.File) {
	id, ok := promptInt(in, out, "contact id")
	if !ok {
		return
	}
	c, err := st.GetContactForID(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if err := st.DeleteContact(ctx, c); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "deleted")
}
