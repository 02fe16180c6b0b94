// Package audit records engine service calls in SQLite: which service ran,
// over which transport, for which session, how long it took and whether it
// failed. Entries are buffered and written in batches.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/advfind/idgen"
	"github.com/hazyhaar/advfind/kit"
)

// Schema is the DDL of the audit table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id      TEXT PRIMARY KEY,
    timestamp     INTEGER NOT NULL,
    action        TEXT NOT NULL,
    transport     TEXT NOT NULL DEFAULT '',
    session_id    TEXT NOT NULL DEFAULT '',
    request_id    TEXT NOT NULL DEFAULT '',
    parameters    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action, status);
`

const (
	batchSize     = 32
	flushInterval = 2 * time.Second
)

// Entry is one service call.
type Entry struct {
	EntryID    string `json:"entry_id"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
	Action     string `json:"action"`
	Transport  string `json:"transport"`
	SessionID  string `json:"session_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Parameters string `json:"parameters,omitempty"` // JSON
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"` // "success" or "error"
}

// Filter selects entries for Query. Zero fields match everything.
type Filter struct {
	Action    string
	Status    string
	SessionID string
	Since     time.Time
	Limit     int // default 100
}

// SQLiteLogger persists entries to the audit_log table.
type SQLiteLogger struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
	ch     chan *Entry
	stop   chan struct{}
	done   chan struct{}
}

// Option configures a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator sets the entry id generator. Default: "aud_" + UUIDv7.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// WithLogger sets the logger used for flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *SQLiteLogger) { l.logger = logger }
}

// NewSQLiteLogger starts the flush goroutine. Call Init before logging and
// Close to flush pending entries.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:     db,
		newID:  idgen.Prefixed("aud_", idgen.Default),
		logger: slog.Default(),
		ch:     make(chan *Entry, 1024),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Init creates the audit table.
func (l *SQLiteLogger) Init() error {
	if _, err := l.db.Exec(Schema); err != nil {
		return fmt.Errorf("audit: exec schema: %w", err)
	}
	return nil
}

// Log writes e synchronously.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	return l.insert(ctx, l.db, e)
}

// LogAsync queues e. When the buffer is full the entry is written
// synchronously.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(e)
	select {
	case l.ch <- e:
	default:
		l.logger.Warn("audit: buffer full, sync fallback", "action", e.Action)
		if err := l.insert(context.Background(), l.db, e); err != nil {
			l.logger.Error("audit: sync fallback failed", "error", err)
		}
	}
}

// Query returns entries matching f, newest first.
func (l *SQLiteLogger) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT entry_id, timestamp, action, transport, session_id, request_id,
		parameters, error_message, duration_ms, status FROM audit_log WHERE 1=1`
	var args []any
	if f.Action != "" {
		q += " AND action = ?"
		args = append(args, f.Action)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.SessionID != "" {
		q += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, f.Since.UnixMilli())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY timestamp DESC, entry_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.Action, &e.Transport, &e.SessionID,
			&e.RequestID, &e.Parameters, &e.Error, &e.DurationMs, &e.Status); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close drains the buffer and stops the flush goroutine.
func (l *SQLiteLogger) Close() error {
	close(l.stop)
	<-l.done
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.Transport == "" {
		e.Transport = "local"
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (l *SQLiteLogger) insert(ctx context.Context, db execer, e *Entry) error {
	_, err := db.ExecContext(ctx, `INSERT INTO audit_log
		(entry_id, timestamp, action, transport, session_id, request_id,
		 parameters, error_message, duration_ms, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.EntryID, e.Timestamp, e.Action, e.Transport, e.SessionID, e.RequestID,
		e.Parameters, e.Error, e.DurationMs, e.Status)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func (l *SQLiteLogger) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	batch := make([]*Entry, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			l.logger.Error("audit: begin tx", "error", err)
			return
		}
		for _, e := range batch {
			if err := l.insert(ctx, tx, e); err != nil {
				l.logger.Error("audit: flush", "entry_id", e.EntryID, "error", err)
			}
		}
		if err := tx.Commit(); err != nil {
			l.logger.Error("audit: commit", "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Middleware records every call of an endpoint under action. The request
// is stored as JSON; transport, session and request ids come from kit.
func Middleware(l *SQLiteLogger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			e := &Entry{
				Action:     action,
				Transport:  kit.GetTransport(ctx),
				SessionID:  kit.GetSessionID(ctx),
				RequestID:  kit.GetRequestID(ctx),
				DurationMs: time.Since(start).Milliseconds(),
			}
			if req != nil {
				if b, jerr := json.Marshal(req); jerr == nil {
					e.Parameters = string(b)
				}
			}
			if err != nil {
				e.Error = err.Error()
			}
			l.LogAsync(e)
			return resp, err
		}
	}
}
