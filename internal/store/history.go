package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// DefaultHistoryTable is the detection table read by default.
const DefaultHistoryTable = "haka_entry"

// Dialect selects placeholder and quoting rules.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// historyColumns are the columns the source table must expose.
var historyColumns = []string{
	detection.FieldEventDate,
	detection.FieldCamera,
	detection.FieldZone,
	detection.FieldEventType,
	detection.FieldObjectClass,
	detection.FieldImpact,
}

// timeLayouts are tried in order when a driver hands back timestamps as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Period is a half-open [Start, End) time range.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the calendar month "YYYY-MM" in loc.
func MonthPeriod(month string, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), loc)
	if err != nil {
		return Period{}, detection.NewValidationError("source.month", fmt.Sprintf("want YYYY-MM, got %q", month))
	}
	return Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// HistorySource reads RawEvents from a detection table.
type HistorySource struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *zap.Logger
}

// NewHistorySource validates the table name and returns a source over db.
func NewHistorySource(db *sql.DB, dialect Dialect, table string, logger *zap.Logger) (*HistorySource, error) {
	if table == "" {
		table = DefaultHistoryTable
	}
	if !identPattern.MatchString(table) {
		return nil, detection.NewValidationError("database.table", fmt.Sprintf("invalid table name %q", table))
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, detection.NewValidationError("database.driver", fmt.Sprintf("unsupported driver %q", dialect))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistorySource{db: db, dialect: dialect, table: table, logger: logger}, nil
}

// Ping checks the connection.
func (h *HistorySource) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Events returns detections with eventDate in [from, to). A table lacking
// one of the required columns yields a ValidationError naming it.
func (h *HistorySource) Events(ctx context.Context, from, to time.Time) ([]detection.RawEvent, error) {
	if err := h.checkColumns(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s >= %s AND %s < %s`,
		h.columnList(), h.table,
		quote(detection.FieldEventDate), h.placeholder(1),
		quote(detection.FieldEventDate), h.placeholder(2))

	start := time.Now()
	rows, err := h.db.QueryContext(ctx, query, h.bound(from), h.bound(to))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []detection.RawEvent
	for rows.Next() {
		var ts, camera, zone, eventType, objectClass, impact any
		if err := rows.Scan(&ts, &camera, &zone, &eventType, &objectClass, &impact); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		t, err := toTime(ts)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", len(events)+1, err)
		}
		events = append(events, detection.RawEvent{
			Timestamp:   t,
			Camera:      toText(camera),
			Zone:        toText(zone),
			EventType:   toText(eventType),
			ObjectClass: toText(objectClass),
			Impact:      toText(impact),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	h.logger.Info("history loaded",
		zap.String("table", h.table),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("rows", len(events)),
		zap.Duration("took", time.Since(start)),
	)
	return events, nil
}

func (h *HistorySource) checkColumns(ctx context.Context) error {
	rows, err := h.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", h.table))
	if err != nil {
		return fmt.Errorf("inspect table %s: %w", h.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns of %s: %w", h.table, err)
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	for _, want := range historyColumns {
		if !have[want] {
			return detection.NewValidationError(want, fmt.Sprintf("column missing from table %s", h.table))
		}
	}
	return nil
}

func (h *HistorySource) columnList() string {
	quoted := make([]string, len(historyColumns))
	for i, c := range historyColumns {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (h *HistorySource) placeholder(n int) string {
	if h.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// bound converts a period bound for the driver. SQLite keeps timestamps as
// text, so bounds are rendered in the same UTC layout the seeder writes.
func (h *HistorySource) bound(t time.Time) any {
	if h.dialect == DialectSQLite {
		return FormatSQLiteTime(t)
	}
	return t
}

// FormatSQLiteTime renders t the way history rows are stored in SQLite.
func FormatSQLiteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05-07:00")
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case nil:
		return time.Time{}, detection.NewValidationError(detection.FieldEventDate, "null timestamp")
	}
	return time.Time{}, detection.NewValidationError(detection.FieldEventDate, fmt.Sprintf("unsupported type %T", v))
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, detection.NewValidationError(detection.FieldEventDate, fmt.Sprintf("unparseable timestamp %q", s))
}

// toText renders a column value as text. Numeric impacts keep their
// shortest decimal form.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// HistoryMigrations creates the detection table in SQLite.
func HistoryMigrations(table string) []Migration {
	return []Migration{{
		Version:     1,
		Description: "create " + table,
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					"eventDate"   TEXT NOT NULL,
					"camera"      TEXT NOT NULL,
					"zone"        TEXT NOT NULL,
					"eventType"   TEXT NOT NULL DEFAULT '',
					"objectClass" TEXT NOT NULL DEFAULT '',
					"impact"      TEXT NOT NULL DEFAULT ''
				)`, table),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_event_date ON %s("eventDate")`, table, table),
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}}
}

// InsertEvents appends events to an SQLite detection table.
func (s *SQLiteStore) InsertEvents(ctx context.Context, table string, events []detection.RawEvent) error {
	if !identPattern.MatchString(table) {
		return detection.NewValidationError("database.table", fmt.Sprintf("invalid table name %q", table))
	}
	return s.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT INTO %s ("eventDate", "camera", "zone", "eventType", "objectClass", "impact") VALUES (?, ?, ?, ?, ?, ?)`,
			table))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, FormatSQLiteTime(e.Timestamp),
				e.Camera, e.Zone, e.EventType, e.ObjectClass, e.Impact); err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
		}
		return nil
	})
}
