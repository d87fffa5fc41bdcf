package audit

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for the change log.
// Uses separate reader/writer connections for SQLite concurrency.
type Repository struct {
	reader *sql.DB // For SELECT queries
	writer *sql.DB // For INSERT/DELETE
}

// NewRepository creates a new change log Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

const changeColumns = `change_id, timestamp, node, operation, value, kind, label, source, status, message`

// Insert writes a change, generating its ID and timestamp.
// Status defaults to OK.
func (r *Repository) Insert(input WriteChangeInput) (*Change, error) {
	changeID := uuid.New().String()

	status := input.Status
	if status == "" {
		status = StatusOK
	}

	_, err := r.writer.Exec(`
		INSERT INTO changes (`+changeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, changeID, nowISO(), input.Node, input.Operation, input.Value, input.Kind, input.Label, string(input.Source), string(status), input.Message)
	if err != nil {
		return nil, err
	}

	return r.Get(changeID)
}

// Get retrieves a single change by ID.
// Returns nil, nil if not found.
func (r *Repository) Get(changeID string) (*Change, error) {
	row := r.reader.QueryRow(`SELECT `+changeColumns+` FROM changes WHERE change_id = ?`, changeID)

	change, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return change, err
}

// Query retrieves changes matching filters, newest first.
// Returns changes, total count, and error.
func (r *Repository) Query(filters ChangeQueryFilters) ([]Change, int, error) {
	whereClause, args := buildWhereClause(filters)

	var total int
	if err := r.reader.QueryRow("SELECT COUNT(*) FROM changes "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	query := `SELECT ` + changeColumns + ` FROM changes ` + whereClause + `
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ? OFFSET ?`
	rows, err := r.reader.Query(query, append(args, limit, filters.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, 0, err
		}
		changes = append(changes, *change)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return changes, total, nil
}

// Prune deletes changes older than the cutoff time.
// Returns number of rows deleted.
func (r *Repository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.writer.Exec(`DELETE FROM changes WHERE timestamp < ?`, cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func buildWhereClause(filters ChangeQueryFilters) (string, []any) {
	conditions := []string{}
	args := []any{}

	if filters.Node != nil {
		conditions = append(conditions, "node = ? COLLATE NOCASE")
		args = append(args, *filters.Node)
	}
	if filters.Source != nil {
		conditions = append(conditions, "source = ?")
		args = append(args, string(*filters.Source))
	}
	if filters.StartDate != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filters.StartDate.UTC().Format(timestampLayout))
	}
	if filters.EndDate != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filters.EndDate.UTC().Format(timestampLayout))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChange(row scanner) (*Change, error) {
	var change Change
	var timestamp, source, status string
	var operation, label, message sql.NullString

	err := row.Scan(
		&change.ChangeID,
		&timestamp,
		&change.Node,
		&operation,
		&change.Value,
		&change.Kind,
		&label,
		&source,
		&status,
		&message,
	)
	if err != nil {
		return nil, err
	}

	change.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		change.Timestamp, _ = time.Parse("2006-01-02 15:04:05", timestamp)
	}
	change.Source = Source(source)
	change.Status = Status(status)
	if operation.Valid {
		change.Operation = &operation.String
	}
	if label.Valid {
		change.Label = &label.String
	}
	if message.Valid {
		change.Message = &message.String
	}

	return &change, nil
}

// timestampLayout has a fixed-width fraction so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowISO() string {
	return time.Now().UTC().Format(timestampLayout)
}
