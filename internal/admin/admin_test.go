package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/domguard/internal/dbopen"
	"github.com/hazyhaar/domguard/internal/store"
	"github.com/hazyhaar/domguard/internal/store/sqlite"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db := dbopen.OpenMemory(t, sqlite.Schema)
	return &sqlite.Store{DB: db}
}

func TestHealthz(t *testing.T) {
	s := New(testStore(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestStatus_ReportsCountsAcrossPages(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	u, err := st.CreateUser(ctx, "owner")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	clean, err := st.InsertTrackedPage(ctx, "https://example.com/clean", u.UserID)
	if err != nil {
		t.Fatalf("insert page: %v", err)
	}

	breached, err := st.InsertTrackedPage(ctx, "https://example.com/breached", u.UserID)
	if err != nil {
		t.Fatalf("insert page: %v", err)
	}
	if err := st.IncrementDefacementCount(ctx, breached, false); err != nil {
		t.Fatalf("increment: %v", err)
	}

	dynamic, err := st.InsertTrackedPage(ctx, "https://example.com/dynamic", u.UserID)
	if err != nil {
		t.Fatalf("insert page: %v", err)
	}
	dynamic.Type = store.DynamicWithTolerance(12.5)
	if err := st.UpdateTrackingTypeForPage(ctx, dynamic); err != nil {
		t.Fatalf("update tracking type: %v", err)
	}

	_ = clean

	s := New(st, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TrackedPages != 3 {
		t.Errorf("TrackedPages: got %d, want 3", resp.TrackedPages)
	}
	if resp.InBreach != 1 {
		t.Errorf("InBreach: got %d, want 1", resp.InBreach)
	}
	if resp.Dynamic != 1 {
		t.Errorf("Dynamic: got %d, want 1", resp.Dynamic)
	}
}
