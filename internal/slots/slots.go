package slots

import (
	"context"
	"time"

	"github.com/example/padel-booking/internal/db"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

// DefaultCourt is the label used when a slot is created without one.
const DefaultCourt = "Unknown"

// Slot is the only persisted entity. Date and times stay opaque strings
// end to end; the calendar frontend joins them as date+"T"+time.
type Slot struct {
	ID          int64
	Date        string
	StartTime   string
	EndTime     string
	Status      Status
	ClientName  *string
	ClientEmail *string
	Court       string
	CreatedAt   time.Time
}

type Store struct{ db *db.DB }

func NewStore(d *db.DB) *Store { return &Store{db: d} }

func (s *Store) Create(ctx context.Context, date, start, end, court string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO slots (date, start_time, end_time, status, court)
VALUES ($1, $2, $3, 'available', $4)
RETURNING id`,
		date, start, end, court,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (s *Store) List(ctx context.Context, onlyAvailable bool) ([]Slot, error) {
	q := `
SELECT id, date, start_time, end_time, status, client_name, client_email, court, created_at
FROM slots
ORDER BY date, start_time`
	if onlyAvailable {
		q = `
SELECT id, date, start_time, end_time, status, client_name, client_email, court, created_at
FROM slots
WHERE status = 'available'
ORDER BY date, start_time`
	}

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		var sl Slot
		if err := rows.Scan(
			&sl.ID, &sl.Date, &sl.StartTime, &sl.EndTime, &sl.Status,
			&sl.ClientName, &sl.ClientEmail, &sl.Court, &sl.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (Slot, error) {
	var sl Slot
	err := s.db.QueryRow(ctx, `
SELECT id, date, start_time, end_time, status, client_name, client_email, court, created_at
FROM slots
WHERE id = $1`, id).
		Scan(&sl.ID, &sl.Date, &sl.StartTime, &sl.EndTime, &sl.Status,
			&sl.ClientName, &sl.ClientEmail, &sl.Court, &sl.CreatedAt)
	if err != nil {
		return Slot{}, db.WrapNotFound(err)
	}
	return sl, nil
}

// SetBooked flips an available slot to booked and attaches the client.
// The status check lives in the same statement as the update, so two
// concurrent bookings for one id can never both report true.
func (s *Store) SetBooked(ctx context.Context, id int64, name, email string) (bool, error) {
	n, err := s.db.Exec(ctx, `
UPDATE slots
SET status = 'booked', client_name = $2, client_email = $3
WHERE id = $1 AND status = 'available'`,
		id, name, email)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetAvailable clears the booking regardless of prior status.
func (s *Store) SetAvailable(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.Exec(ctx, `
UPDATE slots
SET status = 'available', client_name = NULL, client_email = NULL
WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
