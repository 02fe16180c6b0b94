package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/advfind/idgen"
	"github.com/hazyhaar/advfind/kit"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newLogger(t *testing.T, db *sql.DB, opts ...Option) *SQLiteLogger {
	t.Helper()
	l := NewSQLiteLogger(db, opts...)
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLogFillsDefaults(t *testing.T) {
	db := setupTestDB(t)
	l := newLogger(t, db)
	defer l.Close()

	e := &Entry{Action: "advfind_search", Parameters: `{"terms":["x"]}`}
	if err := l.Log(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if e.EntryID == "" || e.Timestamp == 0 {
		t.Fatalf("defaults not filled: %+v", e)
	}
	if e.Status != "success" || e.Transport != "local" {
		t.Errorf("status/transport: got %q/%q", e.Status, e.Transport)
	}

	failed := &Entry{Action: "advfind_search", Error: "no usable matcher"}
	l.Log(context.Background(), failed)
	if failed.Status != "error" {
		t.Errorf("status for error entry: got %q", failed.Status)
	}

	var action string
	db.QueryRow("SELECT action FROM audit_log WHERE entry_id = ?", e.EntryID).Scan(&action)
	if action != "advfind_search" {
		t.Errorf("DB action: got %q", action)
	}
}

func TestLogAsyncFlushesOnClose(t *testing.T) {
	db := setupTestDB(t)
	l := newLogger(t, db, WithIDGenerator(idgen.Prefixed("t", idgen.Sequence())))

	for range 50 {
		l.LogAsync(&Entry{Action: "advfind_navigate"})
	}
	l.Close()

	var count int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE action = 'advfind_navigate'").Scan(&count)
	if count != 50 {
		t.Errorf("count: got %d, want 50", count)
	}
}

func TestMiddleware(t *testing.T) {
	db := setupTestDB(t)
	l := newLogger(t, db)

	ok := Middleware(l, "advfind_count")(func(ctx context.Context, req any) (any, error) {
		return "result", nil
	})
	errFail := errors.New("endpoint failed")
	fail := Middleware(l, "advfind_clear")(func(ctx context.Context, req any) (any, error) {
		return nil, errFail
	})

	ctx := kit.WithTransport(context.Background(), "mcp")
	ctx = kit.WithSessionID(ctx, "s1")
	ctx = kit.WithRequestID(ctx, "r1")

	resp, err := ok(ctx, map[string]string{"foo": "bar"})
	if err != nil || resp != "result" {
		t.Fatalf("ok endpoint: %v, %v", resp, err)
	}
	if _, err := fail(context.Background(), nil); !errors.Is(err, errFail) {
		t.Fatalf("fail endpoint: got %v", err)
	}
	l.Close()

	q := NewSQLiteLogger(db)
	defer q.Close()

	got, err := q.Query(context.Background(), Filter{Action: "advfind_count"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries: got %d, want 1", len(got))
	}
	e := got[0]
	if e.Transport != "mcp" || e.SessionID != "s1" || e.RequestID != "r1" {
		t.Errorf("context ids: %+v", e)
	}
	if e.Parameters != `{"foo":"bar"}` {
		t.Errorf("parameters: got %q", e.Parameters)
	}

	got, _ = q.Query(context.Background(), Filter{Status: "error"})
	if len(got) != 1 || got[0].Error != "endpoint failed" || got[0].Action != "advfind_clear" {
		t.Errorf("error entries: %+v", got)
	}
}
