package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// ErrEmptyName is returned when a record has no name.
var ErrEmptyName = errors.New("attendance name is empty")

// Record is one attendance row.
type Record struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Time string `json:"time"` // HH:MM:SS of the first mark
	Date string `json:"date"` // YYYY-MM-DD
}

// NewRecord builds the record for name at the given instant, in its location.
func NewRecord(name string, at time.Time) Record {
	return Record{Name: name, Time: at.Format(timeLayout), Date: at.Format(dateLayout)}
}

// Repository stores attendance records.
type Repository interface {
	// Insert writes rec unless (name, date) exists. It reports whether a
	// row was written.
	Insert(ctx context.Context, rec Record) (bool, error)

	// ListByDate returns the records for date (YYYY-MM-DD), earliest first.
	ListByDate(ctx context.Context, date string) ([]Record, error)
}

// SQLiteRepository implements Repository over the attendance table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an opened, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert implements Repository.
func (r *SQLiteRepository) Insert(ctx context.Context, rec Record) (bool, error) {
	if rec.Name == "" {
		return false, ErrEmptyName
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO attendance (name, time, date, created_at) VALUES (?, ?, ?, ?)`,
		rec.Name, rec.Time, rec.Date, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}

// ListByDate implements Repository.
func (r *SQLiteRepository) ListByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, time, date FROM attendance WHERE date = ? ORDER BY time, id`, date)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Time, &rec.Date); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attendance: %w", err)
	}
	return records, nil
}
