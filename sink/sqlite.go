package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/roomsage/bookscan/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id          TEXT NOT NULL,
	site_name        TEXT,
	url              TEXT NOT NULL,
	engine_name      TEXT,
	engine_domain    TEXT,
	booking_url      TEXT,
	tier             INTEGER,
	detection_method TEXT NOT NULL,
	needs_review     INTEGER NOT NULL DEFAULT 0,
	phone            TEXT,
	email            TEXT,
	room_count_hint  TEXT,
	error_code       TEXT,
	error_message    TEXT,
	registry_version TEXT,
	detected_at      TEXT NOT NULL,
	duration_ms      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_site_id ON outcomes(site_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_engine ON outcomes(engine_name);
`

const insertOutcome = `
INSERT INTO outcomes (
	site_id, site_name, url, engine_name, engine_domain, booking_url,
	tier, detection_method, needs_review, phone, email, room_count_hint,
	error_code, error_message, registry_version, detected_at, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink appends every outcome to a local SQLite file, creating the
// schema on first open. Repeated runs accumulate; site_id plus
// detected_at identifies a run.
type SQLiteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewSQLite opens (or creates) the database at path and prepares the
// insert statement.
func NewSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink: init schema: %w", err)
	}
	stmt, err := db.Prepare(insertOutcome)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink: prepare: %w", err)
	}
	return &SQLiteSink{db: db, stmt: stmt}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, o *models.DetectionOutcome) error {
	var errCode, errMsg string
	if o.Error != nil {
		errCode = o.Error.Code
		errMsg = o.Error.Message
	}
	_, err := s.stmt.ExecContext(ctx,
		o.SiteID, o.SiteName, o.URL, o.EngineName, o.EngineDomain, o.BookingURL,
		o.Tier, string(o.Method), boolInt(o.NeedsReview),
		o.Contact.Phone, o.Contact.Email, o.Contact.RoomCountHint,
		errCode, errMsg, o.RegistryVersion,
		o.DetectedAt.Format("2006-01-02T15:04:05.000Z07:00"), o.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("sqlite sink: insert: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	_ = s.stmt.Close()
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
