package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/hazyhaar/domguard/internal/dbopen"
	"github.com/hazyhaar/domguard/internal/store/sqlite"
)

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db := dbopen.OpenMemory(t, sqlite.Schema)
	return &sqlite.Store{DB: db}
}

func runScript(t *testing.T, st *sqlite.Store, script string) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	run(context.Background(), st, bufio.NewScanner(strings.NewReader(script)), w, logger)
	w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func TestCreateUserAndRegisterPage(t *testing.T) {
	st := testStore(t)
	script := "7\nalice\n2\nhttps://example.com\n1\n0\n"

	out := runScript(t, st, script)
	if !strings.Contains(out, "created user 1") {
		t.Errorf("expected user creation confirmation, got:\n%s", out)
	}
	if !strings.Contains(out, "registered page 1") {
		t.Errorf("expected page registration confirmation, got:\n%s", out)
	}

	pages, err := st.ListAllTrackedPages(context.Background())
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(pages) != 1 || pages[0].PageURL != "https://example.com" {
		t.Errorf("got pages %+v", pages)
	}
}

func TestForceRescanClearsLastIndexed(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	u, err := st.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	page, err := st.InsertTrackedPage(ctx, "https://example.com/a", u.UserID)
	if err != nil {
		t.Fatalf("insert page: %v", err)
	}

	script := "5\n" + strconv.FormatInt(page.PageID, 10) + "\n0\n"
	out := runScript(t, st, script)
	if !strings.Contains(out, "queued") {
		t.Errorf("expected queue confirmation, got:\n%s", out)
	}

	got, err := st.GetPageByID(ctx, page.PageID)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if got.LastIndexedAt != 0 {
		t.Errorf("LastIndexedAt: got %d, want 0", got.LastIndexedAt)
	}
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	u, err := st.CreateUser(ctx, "carol")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	script := "8\n" + strconv.FormatInt(u.UserID, 10) + "\n0\n"
	out := runScript(t, st, script)
	if !strings.Contains(out, "deleted") {
		t.Errorf("expected deletion confirmation, got:\n%s", out)
	}

	if _, err := st.GetUserByUsername(ctx, "carol"); err == nil {
		t.Error("expected user to be gone")
	}
}
